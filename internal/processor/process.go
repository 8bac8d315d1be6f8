// Package processor runs KML documents through extraction, conversion,
// measuring and GeoJSON serialization.
package processor

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/woozymasta/kadastr/internal/config"
	"github.com/woozymasta/kadastr/internal/geo"
	"github.com/woozymasta/kadastr/internal/index"
	"github.com/woozymasta/kadastr/internal/kml"
	"github.com/woozymasta/kadastr/internal/measure"
	"github.com/woozymasta/kadastr/internal/metrics"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/rs/zerolog"
)

// ErrNoStartNode is returned for documents with no Document, Folder or
// Placemark below the root.
var ErrNoStartNode = errors.New("no Document or Folder to extract from")

// Options configure a processing run.
type Options struct {
	Precision int
	MaxDepth  int
	Measure   measure.Options

	// BBox, when set, keeps only features whose bounds intersect it.
	// Expressed in source coordinates.
	BBox *orb.Bound

	// Metrics is optional.
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// OptionsFromConfig maps configuration onto processing options.
func OptionsFromConfig(cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics) (Options, error) {
	opts := Options{
		Precision: cfg.Precision,
		MaxDepth:  cfg.MaxDepth,
		Measure: measure.Options{
			SourceCRS: cfg.SourceCRS,
			TargetCRS: cfg.TargetCRS,
			Reproject: cfg.Reproject,
			Logger:    logger,
		},
		Metrics: m,
		Logger:  logger,
	}

	b, ok, err := cfg.Bound()
	if err != nil {
		return opts, err
	}
	if ok {
		opts.BBox = &b
	}
	return opts, nil
}

// Report describes the outcome for one placemark.
type Report struct {
	Name string
	ID   string
	Kind kml.Kind

	// Err is set when the geometry could not be converted.
	Err error

	// Type and WKT describe the converted geometry.
	Type   string
	WKT    string
	Valid  bool
	Reason string

	Area      *float64
	Length    *float64
	Perimeter *float64

	// Filtered marks placemarks dropped by the bbox filter.
	Filtered bool
}

// Result is the outcome of processing one document.
type Result struct {
	// Path is the input file, empty for readers.
	Path       string
	Document   string
	Collection geo.GeoJSONFeatureCollection
	Reports    []Report

	Placemarks int
	Converted  int
	Failed     int
	Filtered   int

	// Err is a file-level failure; set only by ProcessBatch.
	Err error
}

// ProcessFile loads and processes a KML file.
func ProcessFile(path string, opts Options) (*Result, error) {
	doc, err := kml.Load(path)
	if err != nil {
		countFile(opts.Metrics, err)
		return nil, err
	}

	res, err := ProcessDocument(doc, opts)
	countFile(opts.Metrics, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.Path = path
	return res, nil
}

// ProcessReader parses and processes a KML document read from r.
func ProcessReader(r io.Reader, opts Options) (*Result, error) {
	doc, err := kml.Parse(r)
	if err != nil {
		countFile(opts.Metrics, err)
		return nil, err
	}

	res, err := ProcessDocument(doc, opts)
	countFile(opts.Metrics, err)
	return res, err
}

func countFile(m *metrics.Metrics, err error) {
	if m == nil {
		return
	}
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusFailed
	}
	m.FilesProcessed.WithLabelValues(status).Inc()
}

// ProcessDocument extracts every placemark from doc and builds the feature
// collection. Placemarks that fail to convert are kept as features with a
// null geometry.
func ProcessDocument(doc *kml.Document, opts Options) (*Result, error) {
	started := time.Now()
	logger := opts.Logger

	start, ok := doc.StartNode()
	if !ok {
		return nil, ErrNoStartNode
	}

	res := &Result{Document: doc.Name()}
	traverser := kml.Traverser{MaxDepth: opts.MaxDepth, Logger: logger}
	placemarks := traverser.Extract(start)
	res.Placemarks = len(placemarks)

	features := make([]geo.GeoJSONFeature, 0, len(placemarks))
	geometries := make([]orb.Geometry, 0, len(placemarks))
	res.Reports = make([]Report, 0, len(placemarks))

	for _, pm := range placemarks {
		if opts.Metrics != nil {
			opts.Metrics.Placemarks.WithLabelValues(pm.Kind.String()).Inc()
		}

		report := Report{Name: pm.Name, ID: pm.ID, Kind: pm.Kind}
		planar, err := geo.Convert(pm, opts.Precision)
		if err != nil {
			res.Failed++
			report.Err = err
			if opts.Metrics != nil {
				opts.Metrics.ConversionFailures.WithLabelValues(failureReason(err)).Inc()
			}
			if pm.Kind != kml.KindUnknown {
				logger.Warn().
					Err(err).
					Str("placemark", pm.DisplayName()).
					Stringer("kind", pm.Kind).
					Msg("Could not convert geometry")
			}

			features = append(features, geo.NewFeature(pm, nil, geo.Measures{}, opts.Precision))
			geometries = append(geometries, nil)
			res.Reports = append(res.Reports, report)
			continue
		}

		res.Converted++
		m := measureAll(planar.Geometry, opts.Measure)

		report.Type = planar.Type()
		report.WKT = wkt.MarshalString(planar.Geometry)
		report.Valid = planar.Valid
		report.Reason = planar.Reason
		report.Area, report.Length, report.Perimeter = m.Area, m.Length, m.Perimeter

		if !planar.Valid {
			logger.Warn().
				Str("placemark", pm.DisplayName()).
				Str("reason", planar.Reason).
				Msg("Geometry is not valid")
		}

		features = append(features, geo.NewFeature(pm, planar, m, opts.Precision))
		geometries = append(geometries, planar.Geometry)
		res.Reports = append(res.Reports, report)
	}

	if opts.BBox != nil {
		features = filterByBound(features, geometries, res.Reports, *opts.BBox)
		res.Filtered = len(placemarks) - len(features)
	}

	res.Collection = geo.NewFeatureCollection(features)

	if opts.Metrics != nil {
		opts.Metrics.DocumentDurationMs.Observe(float64(time.Since(started).Milliseconds()))
	}
	logger.Debug().
		Str("document", res.Document).
		Int("placemarks", res.Placemarks).
		Int("converted", res.Converted).
		Int("failed", res.Failed).
		Int("filtered", res.Filtered).
		Msg("Document processed")

	return res, nil
}

func measureAll(g orb.Geometry, opts measure.Options) geo.Measures {
	var m geo.Measures
	if v, ok := measure.Area(g, opts); ok {
		m.Area = &v
	}
	if v, ok := measure.Length(g, opts); ok {
		m.Length = &v
	}
	if v, ok := measure.Perimeter(g, opts); ok {
		m.Perimeter = &v
	}
	return m
}

// filterByBound keeps features whose geometry intersects b, in source order,
// and flags the dropped reports.
func filterByBound(features []geo.GeoJSONFeature, geometries []orb.Geometry, reports []Report, b orb.Bound) []geo.GeoJSONFeature {
	keep := index.New(geometries).Search(b)

	kept := make([]geo.GeoJSONFeature, 0, len(keep))
	next := 0
	for i := range features {
		if next < len(keep) && keep[next] == i {
			kept = append(kept, features[i])
			next++
			continue
		}
		reports[i].Filtered = true
	}
	return kept
}

func failureReason(err error) string {
	var insufficient *geo.InsufficientPointsError
	switch {
	case errors.As(err, &insufficient):
		return "insufficient_points"
	case errors.Is(err, geo.ErrNoGeometry):
		return "no_geometry"
	case errors.Is(err, geo.ErrKindMismatch):
		return "kind_mismatch"
	case errors.Is(err, geo.ErrEmptyMultiGeometry):
		return "empty_multigeometry"
	case errors.Is(err, geo.ErrConversionFault):
		return "fault"
	}
	return "other"
}
