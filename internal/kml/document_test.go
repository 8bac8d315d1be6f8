package kml

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDocumentName(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "document with name",
			src:  `<kml><Document><name>My KML Document</name></Document></kml>`,
			want: "My KML Document",
		},
		{
			name: "document without name",
			src:  `<kml><Document><Placemark/></Document></kml>`,
			want: "Document (Unnamed)",
		},
		{
			name: "document with empty name",
			src:  `<kml><Document><name>  </name></Document></kml>`,
			want: "Document (name is empty)",
		},
		{
			name: "root folder",
			src:  `<kml><name>Root</name><Folder><name>F</name></Folder></kml>`,
			want: "Root",
		},
		{
			name: "bare placemark",
			src:  `<kml><Placemark><name>P</name></Placemark></kml>`,
			want: "No Document/Folder in KML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.src)
			if got := doc.Name(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDocumentStartNode(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantOK  bool
		wantTag string
	}{
		{"document", `<kml><Document/></kml>`, true, "Document"},
		{"bare placemark", `<kml><Placemark/></kml>`, true, "kml"},
		{"root folder", `<kml><Folder/></kml>`, true, "kml"},
		{"nothing", `<kml><Style/></kml>`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := mustParse(t, tt.src).StartNode()
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && n.Tag() != tt.wantTag {
				t.Errorf("Expected start tag %q, got %q", tt.wantTag, n.Tag())
			}
		})
	}
}

func TestBarePlacemarkRootIsExtracted(t *testing.T) {
	src := `<kml xmlns="http://www.opengis.net/kml/2.2">
	  <Placemark><name>Test Placemark 1</name><Point><coordinates>10,20,0</coordinates></Point></Placemark>
	</kml>`
	start := mustStart(t, mustParse(t, src))

	got := Traverser{}.Extract(start)
	if len(got) != 1 || got[0].Name != "Test Placemark 1" {
		t.Fatalf("unexpected placemarks %+v", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.kml")
	if err := os.WriteFile(path, []byte(complexKML), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Name() != "Test KML Geometries" {
		t.Errorf("unexpected name %q", doc.Name())
	}

	if _, err := Load(filepath.Join(dir, "missing.kml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(strings.NewReader(`<kml version=2></kml>`)); err == nil {
		t.Error("Expected error for malformed XML")
	}
	if _, err := ParseBytes([]byte("   ")); err == nil {
		t.Error("Expected error for empty input")
	} else if !errors.Is(err, ErrNoRoot) && !strings.Contains(err.Error(), "kml:") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestNodeAccessors(t *testing.T) {
	doc := mustParse(t, `<kml xmlns:gx="http://www.google.com/kml/ext/2.2"><Placemark id="p1"><name> spaced </name><gx:Track/></Placemark></kml>`)
	pm := doc.Root().Child("Placemark")
	if pm == nil {
		t.Fatal("placemark not found")
	}
	if id, ok := pm.Attr("id"); !ok || id != "p1" {
		t.Errorf("unexpected id %q %v", id, ok)
	}
	if _, ok := pm.Attr("missing"); ok {
		t.Error("missing attribute reported present")
	}
	if got := childText(pm, "name"); got != "spaced" {
		t.Errorf("Expected trimmed name, got %q", got)
	}
	if pm.Child("Track") == nil {
		t.Error("Expected prefixed child to be found by local name")
	}
	if pm.Child("Point") != nil {
		t.Error("Expected nil for absent child")
	}
	if got := ParseKind("WeirdShape"); got != KindUnknown {
		t.Errorf("Expected KindUnknown, got %v", got)
	}
	if got := ParseKind("Polygon"); got != KindPolygon {
		t.Errorf("Expected KindPolygon, got %v", got)
	}
}
