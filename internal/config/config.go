// Package config handles configuration loading and shared conversion settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/woozymasta/kadastr/internal/crs"
	"github.com/woozymasta/kadastr/internal/geo"
	"github.com/woozymasta/kadastr/internal/kml"

	"gopkg.in/yaml.v3"
)

// DefaultMaxBodySize limits KML uploads to the HTTP service.
const DefaultMaxBodySize = 32 << 20

// Config represents the configuration file structure.
type Config struct {
	SourceCRS   string    `yaml:"source_crs" json:"source_crs"`
	TargetCRS   string    `yaml:"target_crs" json:"target_crs"`
	Format      string    `yaml:"format" json:"format"`
	BBox        []float64 `yaml:"bbox,omitempty" json:"bbox,omitempty"`
	Precision   int       `yaml:"precision" json:"precision"`
	Indent      int       `yaml:"indent" json:"indent"`
	MaxDepth    int       `yaml:"max_depth" json:"max_depth"`
	Concurrency int       `yaml:"concurrency" json:"concurrency"`
	MaxBodySize int64     `yaml:"max_body_size,omitempty" json:"max_body_size,omitempty"`
	Reproject   bool      `yaml:"reproject" json:"reproject"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Precision:   geo.DefaultPrecision,
		SourceCRS:   crs.WGS84ID,
		TargetCRS:   crs.WebMercatorID,
		Reproject:   true,
		Indent:      2,
		MaxDepth:    kml.DefaultMaxDepth,
		Concurrency: 4,
		Format:      "json",
		MaxBodySize: DefaultMaxBodySize,
	}
}

// Load reads the YAML configuration file from the specified path. Keys
// present in the file override the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is like Load but returns the defaults when the file does not
// exist.
func LoadOptional(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks value ranges and reference identifiers.
func (c *Config) Validate() error {
	if c.Precision < 0 {
		return fmt.Errorf("precision must be >= 0, got %d", c.Precision)
	}
	if c.Indent < 0 {
		return fmt.Errorf("indent must be >= 0, got %d", c.Indent)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be >= 1, got %d", c.MaxDepth)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.Format != "json" && c.Format != "yaml" {
		return fmt.Errorf("unsupported format %q", c.Format)
	}
	if _, err := crs.Lookup(c.SourceCRS); err != nil {
		return err
	}
	if _, err := crs.Lookup(c.TargetCRS); err != nil {
		return err
	}
	if _, _, err := c.Bound(); err != nil {
		return err
	}
	return nil
}

// Bound returns the bbox filter. ok is false when no filter is set.
func (c *Config) Bound() (b orb.Bound, ok bool, err error) {
	if len(c.BBox) == 0 {
		return orb.Bound{}, false, nil
	}
	if len(c.BBox) != 4 {
		return orb.Bound{}, false, fmt.Errorf("bbox needs 4 values, got %d", len(c.BBox))
	}
	b = orb.Bound{Min: orb.Point{c.BBox[0], c.BBox[1]}, Max: orb.Point{c.BBox[2], c.BBox[3]}}
	if b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] {
		return orb.Bound{}, false, fmt.Errorf("bbox min exceeds max: %v", c.BBox)
	}
	return b, true, nil
}

// ParseBBox parses "minX,minY,maxX,maxY".
func ParseBBox(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox %q: expected minX,minY,maxX,maxY", s)
	}

	out := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bbox %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}
