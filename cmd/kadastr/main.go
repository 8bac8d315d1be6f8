package main

import (
	"os"

	"github.com/woozymasta/kadastr/internal/config"
	"github.com/woozymasta/kadastr/internal/logger"
	"github.com/woozymasta/kadastr/internal/metrics"
	"github.com/woozymasta/kadastr/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	KML         []string `short:"k" long:"kml"          description:"KML file to process (repeatable)" required:"true"`
	Output      string   `short:"o" long:"out"          description:"Write all features into one file instead of <name>.geojson next to each input"`
	ConfigFile  string   `short:"c" long:"config"       env:"KADASTR_CONFIG"      description:"Path to configuration file" default:"kadastr.yaml"`
	EnvFile     string   `long:"env-file"               description:"Dotenv file loaded before reading flags" default:".env"`
	Format      string   `long:"format"                 env:"KADASTR_FORMAT"      description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Indent      int      `long:"indent"                 env:"KADASTR_INDENT"      description:"Spaces per indent level, 0 for compact output" default:"2"`
	Precision   int      `long:"precision"              env:"KADASTR_PRECISION"   description:"Decimal places kept in coordinates" default:"6"`
	SourceCRS   string   `long:"source-crs"             env:"KADASTR_SOURCE_CRS"  description:"Reference of KML coordinates" default:"EPSG:4326"`
	TargetCRS   string   `long:"target-crs"             env:"KADASTR_TARGET_CRS"  description:"Metric reference for area, length and perimeter" default:"EPSG:3857"`
	NoReproject bool     `long:"no-reproject"           env:"KADASTR_NO_REPROJECT" description:"Measure in source coordinates"`
	MaxDepth    int      `long:"max-depth"              env:"KADASTR_MAX_DEPTH"   description:"Container nesting limit" default:"64"`
	BBox        string   `long:"bbox"                   env:"KADASTR_BBOX"        description:"Keep features intersecting minX,minY,maxX,maxY (source coordinates)"`
	Concurrency int      `short:"p" long:"concurrency"  env:"KADASTR_CONCURRENCY" description:"Files processed in parallel" default:"4"`
	MetricsFile string   `long:"metrics-file"           env:"KADASTR_METRICS_FILE" description:"Write Prometheus metrics in text format to this file"`
}

func main() {
	envFile, envErr := config.LoadEnv(os.Args[1:])

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	if envErr != nil {
		log.Warn().Err(envErr).Str("path", envFile).Msg("Failed to load env file")
	}

	cfg, err := loadConfig(parser, &opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	m := metrics.New()
	procOpts, err := processor.OptionsFromConfig(cfg, log.Logger, m)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Int("files", len(opts.KML)).
		Int("concurrency", cfg.Concurrency).
		Str("source_crs", cfg.SourceCRS).
		Str("target_crs", cfg.TargetCRS).
		Bool("reproject", cfg.Reproject).
		Msg("Starting conversion")

	results := processor.ProcessBatch(opts.KML, cfg.Concurrency, procOpts)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			continue
		}
		logResult(res)

		if opts.Output != "" {
			continue
		}
		if err := save(m, processor.OutputPath(res.Path, cfg.Format), res, cfg); err != nil {
			log.Error().Err(err).Str("file", res.Path).Msg("Failed to write output")
			failed++
		}
	}

	if opts.Output != "" {
		merged := &processor.Result{Collection: processor.Merge(results)}
		if err := save(m, opts.Output, merged, cfg); err != nil {
			log.Error().Err(err).Str("path", opts.Output).Msg("Failed to write output")
			failed++
		}
	}

	if opts.MetricsFile != "" {
		if err := m.WriteTextfile(opts.MetricsFile); err != nil {
			log.Error().Err(err).Str("path", opts.MetricsFile).Msg("Failed to write metrics")
		}
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Int("total", len(results)).Msg("Conversion finished with errors")
		os.Exit(1)
	}
	log.Info().Int("total", len(results)).Msg("Conversion finished successfully")
}

func save(m *metrics.Metrics, path string, res *processor.Result, cfg *config.Config) error {
	if err := processor.SaveFeatureCollection(path, res.Collection, cfg.Format, cfg.Indent); err != nil {
		return err
	}
	m.FeaturesWritten.Add(float64(len(res.Collection.Features)))
	log.Info().
		Str("path", path).
		Int("features", len(res.Collection.Features)).
		Msg("Output written")
	return nil
}

// loadConfig layers built-in defaults, the config file and explicitly set
// flags or environment variables, in that order.
func loadConfig(parser *flags.Parser, opts *Options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if explicit(parser, "config") {
		cfg, err = config.Load(opts.ConfigFile)
	} else {
		cfg, err = config.LoadOptional(opts.ConfigFile)
	}
	if err != nil {
		return nil, err
	}

	if explicit(parser, "format") {
		cfg.Format = opts.Format
	}
	if explicit(parser, "indent") {
		cfg.Indent = opts.Indent
	}
	if explicit(parser, "precision") {
		cfg.Precision = opts.Precision
	}
	if explicit(parser, "source-crs") {
		cfg.SourceCRS = opts.SourceCRS
	}
	if explicit(parser, "target-crs") {
		cfg.TargetCRS = opts.TargetCRS
	}
	if opts.NoReproject {
		cfg.Reproject = false
	}
	if explicit(parser, "max-depth") {
		cfg.MaxDepth = opts.MaxDepth
	}
	if explicit(parser, "concurrency") {
		cfg.Concurrency = opts.Concurrency
	}
	if opts.BBox != "" {
		if cfg.BBox, err = config.ParseBBox(opts.BBox); err != nil {
			return nil, err
		}
	}

	return cfg, cfg.Validate()
}

// explicit reports whether an option was given on the command line or
// through its environment variable.
func explicit(parser *flags.Parser, long string) bool {
	opt := parser.FindOptionByLongName(long)
	if opt == nil {
		return false
	}
	if opt.IsSet() && !opt.IsSetDefault() {
		return true
	}
	if key := opt.EnvKeyWithNamespace(); key != "" {
		_, ok := os.LookupEnv(key)
		return ok
	}
	return false
}

func logResult(res *processor.Result) {
	log.Info().
		Str("file", res.Path).
		Str("document", res.Document).
		Int("placemarks", res.Placemarks).
		Int("converted", res.Converted).
		Int("failed", res.Failed).
		Int("filtered", res.Filtered).
		Msg("KML file processed")

	for i, r := range res.Reports {
		name, id := r.Name, r.ID
		if name == "" {
			name = "N/A"
		}
		if id == "" {
			id = "N/A"
		}

		event := log.Info()
		if r.Err != nil {
			event = log.Warn().Err(r.Err)
		}
		event = event.
			Int("n", i+1).
			Str("name", name).
			Str("id", id).
			Stringer("kind", r.Kind).
			Bool("filtered", r.Filtered)

		if r.Err == nil {
			event = event.Str("wkt", r.WKT).Bool("valid", r.Valid)
			if !r.Valid {
				event = event.Str("reason", r.Reason)
			}
			if r.Area != nil {
				event = event.Float64("area", *r.Area)
			}
			if r.Length != nil && *r.Length > 0 {
				event = event.Float64("length", *r.Length)
			}
			if r.Perimeter != nil && *r.Perimeter > 0 {
				event = event.Float64("perimeter", *r.Perimeter)
			}
		}
		event.Msg("Placemark")
	}
}
