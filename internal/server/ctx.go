package server

import (
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/kadastr/internal/config"
	"github.com/woozymasta/kadastr/internal/metrics"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config  *config.Config
	Metrics *metrics.Metrics
}

// NewServerContext initializes the context. A nil config falls back to the
// defaults and a nil metrics set is created fresh.
func NewServerContext(cfg *config.Config, m *metrics.Metrics) *ServerContext {
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = config.DefaultMaxBodySize
	}
	if m == nil {
		m = metrics.New()
	}

	log.Info().
		Str("source_crs", cfg.SourceCRS).
		Str("target_crs", cfg.TargetCRS).
		Bool("reproject", cfg.Reproject).
		Int("precision", cfg.Precision).
		Int64("max_body_size", cfg.MaxBodySize).
		Msg("Server context initialized successfully")

	return &ServerContext{Config: cfg, Metrics: m}
}
