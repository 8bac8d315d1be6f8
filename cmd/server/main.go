package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/woozymasta/kadastr/internal/config"
	"github.com/woozymasta/kadastr/internal/logger"
	"github.com/woozymasta/kadastr/internal/metrics"
	"github.com/woozymasta/kadastr/internal/server"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"   env:"CONFIG_FILE"    description:"Path to configuration file" default:"kadastr.yaml"`
	EnvFile    string `long:"env-file"                                description:"Dotenv file loaded before reading flags" default:".env"`
	Addr       string `short:"a" long:"addr"     env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"     env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
	MaxBody    int64  `long:"max-body-size"      env:"MAX_BODY_SIZE"  description:"Upload limit in bytes, 0 keeps the configured value"`
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

	// Setup Logging
	opts.Logger.Setup()

	if envErr != nil {
		log.Warn().Err(envErr).Str("path", envFile).Msg("Failed to load env file")
	}

	// Load Config
	cfg, err := config.LoadOptional(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.MaxBody > 0 {
		cfg.MaxBodySize = opts.MaxBody
	}

	srvCtx := server.NewServerContext(cfg, metrics.New())

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/convert", srvCtx.HandleConvert)
	mux.HandleFunc("/healthz", srvCtx.HandleHealth)
	mux.HandleFunc("/metrics", srvCtx.HandleMetrics)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           server.RequestLogger(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("addr", listenAddr).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
