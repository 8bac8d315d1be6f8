// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/hlog"
	"github.com/woozymasta/kadastr/internal/config"
	"github.com/woozymasta/kadastr/internal/geo"
	"github.com/woozymasta/kadastr/internal/processor"
)

// Content types of conversion responses.
const (
	ContentTypeGeoJSON = "application/geo+json"
	ContentTypeYAML    = "application/yaml"
)

// HandleConvert converts a KML request body into a GeoJSON FeatureCollection.
//
// Query parameters override the configured defaults: precision, indent,
// format, source_crs, target_crs, reproject and bbox.
func (s *ServerContext) HandleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cfg, err := s.requestConfig(r.URL.Query())
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, cfg.MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts, err := processor.OptionsFromConfig(cfg, *hlog.FromRequest(r), s.Metrics)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := processor.ProcessReader(bytes.NewReader(data), opts)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, processor.ErrNoStartNode) {
			status = http.StatusUnprocessableEntity
		}
		httpError(w, status, err.Error())
		return
	}

	w.Header().Set("X-Placemarks", strconv.Itoa(res.Placemarks))
	w.Header().Set("X-Failed-Placemarks", strconv.Itoa(res.Failed))
	if writeCollection(w, r, res.Collection, cfg.Format, cfg.Indent) {
		s.Metrics.FeaturesWritten.Add(float64(len(res.Collection.Features)))
	}
}

// writeCollection encodes fc in full before committing the response, so an
// encoding failure is reported as 500 instead of a truncated 200.
func writeCollection(w http.ResponseWriter, r *http.Request, fc geo.GeoJSONFeatureCollection, format string, indent int) bool {
	var buf bytes.Buffer
	if err := geo.EncodeFeatureCollection(&buf, fc, format, indent); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to encode conversion response")
		httpError(w, http.StatusInternalServerError, "failed to encode feature collection")
		return false
	}

	contentType := ContentTypeGeoJSON
	if format == "yaml" {
		contentType = ContentTypeYAML
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(buf.Bytes()); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to write conversion response")
		return false
	}
	return true
}

// requestConfig copies the server configuration and applies query overrides.
func (s *ServerContext) requestConfig(q url.Values) (*config.Config, error) {
	cfg := *s.Config
	cfg.BBox = append([]float64(nil), s.Config.BBox...)

	for key, target := range map[string]*int{"precision": &cfg.Precision, "indent": &cfg.Indent} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			*target = n
		}
	}
	if v := q.Get("source_crs"); v != "" {
		cfg.SourceCRS = v
	}
	if v := q.Get("target_crs"); v != "" {
		cfg.TargetCRS = v
	}
	if v := q.Get("format"); v != "" {
		cfg.Format = v
	}
	if v := q.Get("reproject"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("reproject: %w", err)
		}
		cfg.Reproject = b
	}
	if v := q.Get("bbox"); v != "" {
		bbox, err := config.ParseBBox(v)
		if err != nil {
			return nil, err
		}
		cfg.BBox = bbox
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// HandleHealth reports liveness.
func (s *ServerContext) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleMetrics serves the Prometheus registry.
func (s *ServerContext) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	s.Metrics.Handler().ServeHTTP(w, r)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
