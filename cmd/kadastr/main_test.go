package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jessevdk/go-flags"
)

func parse(t *testing.T, args ...string) (*flags.Parser, *Options) {
	t.Helper()
	var opts Options
	parser := flags.NewParser(&opts, flags.Default&^flags.PrintErrors)
	if _, err := parser.ParseArgs(args); err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	return parser, &opts
}

func TestLoadConfigLayering(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "kadastr.yaml")
	content := "precision: 3\nindent: 4\ntarget_crs: EPSG:3395\nconcurrency: 2\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	parser, opts := parse(t, "-k", "a.kml", "-c", cfgPath, "--indent", "0", "--no-reproject", "--bbox", "1,2,3,4")
	cfg, err := loadConfig(parser, opts)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Precision != 3 {
		t.Errorf("Expected precision from file, got %d", cfg.Precision)
	}
	if cfg.Indent != 0 {
		t.Errorf("Expected indent from flag, got %d", cfg.Indent)
	}
	if cfg.TargetCRS != "EPSG:3395" || cfg.Concurrency != 2 {
		t.Errorf("unexpected file values %+v", cfg)
	}
	if cfg.Reproject {
		t.Error("Expected --no-reproject to win")
	}
	if !reflect.DeepEqual(cfg.BBox, []float64{1, 2, 3, 4}) {
		t.Errorf("unexpected bbox %v", cfg.BBox)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "kadastr.yaml")
	if err := os.WriteFile(cfgPath, []byte("precision: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KADASTR_PRECISION", "8")

	parser, opts := parse(t, "-k", "a.kml", "-c", cfgPath)
	cfg, err := loadConfig(parser, opts)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Precision != 8 {
		t.Errorf("Expected env precision 8, got %d", cfg.Precision)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	// default path may be absent
	parser, opts := parse(t, "-k", "a.kml")
	opts.ConfigFile = filepath.Join(t.TempDir(), "kadastr.yaml")
	if _, err := loadConfig(parser, opts); err != nil {
		t.Errorf("Expected defaults for absent default config, got %v", err)
	}

	// explicitly named path must exist
	parser, opts = parse(t, "-k", "a.kml", "-c", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := loadConfig(parser, opts); err == nil {
		t.Error("Expected error for missing explicit config")
	}
}

func TestLoadConfigInvalidFlags(t *testing.T) {
	parser, opts := parse(t, "-k", "a.kml", "--source-crs", "EPSG:1")
	opts.ConfigFile = filepath.Join(t.TempDir(), "kadastr.yaml")
	if _, err := loadConfig(parser, opts); err == nil {
		t.Error("Expected error for unknown source reference")
	}
}
