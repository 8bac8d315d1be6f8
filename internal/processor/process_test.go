package processor

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woozymasta/kadastr/internal/config"
	"github.com/woozymasta/kadastr/internal/geo"
	"github.com/woozymasta/kadastr/internal/metrics"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

const parcelsKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <name>Parcels</name>
    <Placemark id="p1">
      <name>Plot</name>
      <Polygon>
        <outerBoundaryIs><LinearRing><coordinates>0,0 1,0 1,1 0,1 0,0</coordinates></LinearRing></outerBoundaryIs>
      </Polygon>
    </Placemark>
    <Folder>
      <name>Misc</name>
      <Placemark>
        <name>Well</name>
        <Point><coordinates>10,20,5</coordinates></Point>
      </Placemark>
      <Placemark>
        <name>Broken road</name>
        <LineString><coordinates>5,5</coordinates></LineString>
      </Placemark>
    </Folder>
    <Placemark>
      <name>Fence</name>
      <LineString><coordinates>0,0 0,1</coordinates></LineString>
    </Placemark>
  </Document>
</kml>`

func defaultOptions(t *testing.T, m *metrics.Metrics) Options {
	t.Helper()
	opts, err := OptionsFromConfig(config.Default(), zerolog.Nop(), m)
	if err != nil {
		t.Fatal(err)
	}
	return opts
}

func TestProcessReader(t *testing.T) {
	m := metrics.New()
	res, err := ProcessReader(strings.NewReader(parcelsKML), defaultOptions(t, m))
	if err != nil {
		t.Fatalf("ProcessReader: %v", err)
	}

	if res.Document != "Parcels" {
		t.Errorf("Expected document name Parcels, got %q", res.Document)
	}
	if res.Placemarks != 4 || res.Converted != 3 || res.Failed != 1 {
		t.Errorf("unexpected counters: %+v", res)
	}
	if len(res.Collection.Features) != 4 {
		t.Fatalf("Expected 4 features, got %d", len(res.Collection.Features))
	}

	names := []string{"Plot", "Well", "Broken road", "Fence"}
	for i, want := range names {
		if got := res.Collection.Features[i].Properties[geo.PropName]; got != want {
			t.Errorf("feature %d: expected %s, got %v", i, want, got)
		}
	}

	plot := res.Collection.Features[0].Properties
	area, _ := plot[geo.PropArea].(float64)
	if area < 12392658216*0.99 || area > 12392658216*1.01 {
		t.Errorf("unexpected plot area %v", plot[geo.PropArea])
	}
	if plot[geo.PropID] != "p1" {
		t.Errorf("Expected id p1, got %v", plot[geo.PropID])
	}

	well := res.Collection.Features[1].Properties
	if _, ok := well[geo.PropArea]; ok {
		t.Error("Expected point area to be omitted")
	}

	broken := res.Collection.Features[2]
	if broken.Geometry != nil {
		t.Errorf("Expected null geometry for broken road, got %v", broken.Geometry)
	}
	var insufficient *geo.InsufficientPointsError
	if !errors.As(res.Reports[2].Err, &insufficient) {
		t.Errorf("Expected insufficient points report, got %v", res.Reports[2].Err)
	}

	if res.Reports[0].WKT != "POLYGON((0 0,1 0,1 1,0 1,0 0))" {
		t.Errorf("unexpected WKT %q", res.Reports[0].WKT)
	}

	if got := testutil.ToFloat64(m.FilesProcessed.WithLabelValues(metrics.StatusOK)); got != 1 {
		t.Errorf("Expected 1 processed file, got %v", got)
	}
	if got := testutil.ToFloat64(m.Placemarks.WithLabelValues("LineString")); got != 2 {
		t.Errorf("Expected 2 line placemarks, got %v", got)
	}
	if got := testutil.ToFloat64(m.ConversionFailures.WithLabelValues("insufficient_points")); got != 1 {
		t.Errorf("Expected 1 failure, got %v", got)
	}
}

func TestProcessBBoxFilter(t *testing.T) {
	opts := defaultOptions(t, nil)
	opts.BBox = &orb.Bound{Min: orb.Point{-0.5, 0.5}, Max: orb.Point{0.5, 2}}

	res, err := ProcessReader(strings.NewReader(parcelsKML), opts)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Collection.Features) != 2 {
		t.Fatalf("Expected 2 features, got %d", len(res.Collection.Features))
	}
	if res.Collection.Features[0].Properties[geo.PropName] != "Plot" ||
		res.Collection.Features[1].Properties[geo.PropName] != "Fence" {
		t.Errorf("unexpected filtered features %v", res.Collection.Features)
	}
	if res.Filtered != 2 || !res.Reports[1].Filtered || !res.Reports[2].Filtered || res.Reports[3].Filtered {
		t.Errorf("unexpected filter flags: %+v", res.Reports)
	}
}

func TestProcessBBoxFilterEdges(t *testing.T) {
	opts := defaultOptions(t, nil)
	// Plot spans 0..1, Fence sits on x=0; the box max edge touches both
	opts.BBox = &orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{0, 0}}

	res, err := ProcessReader(strings.NewReader(parcelsKML), opts)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Collection.Features) != 2 {
		t.Fatalf("Expected 2 features, got %d", len(res.Collection.Features))
	}
	if res.Collection.Features[0].Properties[geo.PropName] != "Plot" ||
		res.Collection.Features[1].Properties[geo.PropName] != "Fence" {
		t.Errorf("unexpected filtered features %v", res.Collection.Features)
	}
}

const nonFiniteKML = `<kml><Document><name>Mixed</name>
<Placemark><name>Good</name><Point><coordinates>1,2</coordinates></Point></Placemark>
<Placemark><name>NaN point</name><Point><coordinates>nan,5</coordinates></Point></Placemark>
<Placemark><name>Inf line</name><LineString><coordinates>0,0 inf,1 2,2</coordinates></LineString></Placemark>
</Document></kml>`

func TestProcessNonFiniteCoordinates(t *testing.T) {
	res, err := ProcessReader(strings.NewReader(nonFiniteKML), defaultOptions(t, nil))
	if err != nil {
		t.Fatal(err)
	}

	if res.Converted != 2 || res.Failed != 1 {
		t.Errorf("unexpected counters: %+v", res)
	}
	if res.Collection.Features[1].Geometry != nil {
		t.Errorf("Expected null geometry for NaN point, got %v", res.Collection.Features[1].Geometry)
	}

	path := filepath.Join(t.TempDir(), "mixed.geojson")
	if err := SaveFeatureCollection(path, res.Collection, "json", 0); err != nil {
		t.Fatalf("Expected collection to encode, got %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded geo.GeoJSONFeatureCollection
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Features) != 3 || decoded.Features[0].Properties[geo.PropName] != "Good" {
		t.Errorf("unexpected output %s", data)
	}
}

// A LinearRing placemark is written as a closed LineString, so it carries a
// length and no perimeter or area.
func TestProcessLinearRingMeasures(t *testing.T) {
	doc := `<kml><Document><Placemark><name>Ring</name>
<LinearRing><coordinates>0,0 3,0 3,4 0,0</coordinates></LinearRing>
</Placemark></Document></kml>`

	opts := defaultOptions(t, nil)
	opts.Measure.Reproject = false

	res, err := ProcessReader(strings.NewReader(doc), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Reports) != 1 {
		t.Fatalf("Expected 1 report, got %d", len(res.Reports))
	}

	r := res.Reports[0]
	if r.Type != "LineString" {
		t.Errorf("Expected LineString, got %s", r.Type)
	}
	if r.Length == nil || *r.Length != 12 {
		t.Errorf("Expected length 12, got %v", r.Length)
	}
	if r.Perimeter == nil || *r.Perimeter != 0 {
		t.Errorf("Expected perimeter 0, got %v", r.Perimeter)
	}

	props := res.Collection.Features[0].Properties
	if props[geo.PropLength] != 12.0 {
		t.Errorf("Expected length property 12, got %v", props[geo.PropLength])
	}
	if _, ok := props[geo.PropPerimeter]; ok {
		t.Error("Expected perimeter to be omitted")
	}
	if _, ok := props[geo.PropArea]; ok {
		t.Error("Expected area to be omitted")
	}
}

func TestProcessNoStartNode(t *testing.T) {
	m := metrics.New()
	_, err := ProcessReader(strings.NewReader(`<kml><Style/></kml>`), defaultOptions(t, m))
	if !errors.Is(err, ErrNoStartNode) {
		t.Errorf("Expected ErrNoStartNode, got %v", err)
	}
	if got := testutil.ToFloat64(m.FilesProcessed.WithLabelValues(metrics.StatusFailed)); got != 1 {
		t.Errorf("Expected 1 failed file, got %v", got)
	}
}

func writeKML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessBatchOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		content := `<kml><Document><name>` + name + `</name><Placemark><Point><coordinates>` +
			strings.Repeat("1", i+1) + `,2</coordinates></Point></Placemark></Document></kml>`
		paths = append(paths, writeKML(t, dir, name+".kml", content))
	}
	paths = append(paths[:2], append([]string{filepath.Join(dir, "missing.kml")}, paths[2:]...)...)

	results := ProcessBatch(paths, 3, defaultOptions(t, nil))
	if len(results) != len(paths) {
		t.Fatalf("Expected %d results, got %d", len(paths), len(results))
	}

	want := []string{"a", "b", "", "c", "d", "e"}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("result %d: expected path %s, got %s", i, paths[i], r.Path)
		}
		if r.Document != want[i] {
			t.Errorf("result %d: expected document %q, got %q", i, want[i], r.Document)
		}
	}
	if results[2].Err == nil {
		t.Error("Expected error for missing file")
	}

	merged := Merge(results)
	if len(merged.Features) != 5 {
		t.Errorf("Expected 5 merged features, got %d", len(merged.Features))
	}
}

func TestSaveFeatureCollection(t *testing.T) {
	res, err := ProcessReader(strings.NewReader(parcelsKML), defaultOptions(t, nil))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "nested", "out", "parcels.geojson")
	if err := SaveFeatureCollection(path, res.Collection, "json", 0); err != nil {
		t.Fatalf("SaveFeatureCollection: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != "FeatureCollection" {
		t.Errorf("unexpected document %v", decoded["type"])
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Errorf("Expected compact single-line output")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct{ in, format, want string }{
		{"data/parcels.kml", "json", "data/parcels.geojson"},
		{"parcels.KML", "yaml", "parcels.yaml"},
		{"noext", "json", "noext.geojson"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.in, tt.format); got != tt.want {
			t.Errorf("OutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
