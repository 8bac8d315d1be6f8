// Package geo converts extracted placemarks to planar geometry and GeoJSON.
package geo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/woozymasta/kadastr/internal/kml"
	"gopkg.in/yaml.v3"
)

// Property keys written into feature properties.
const (
	PropName          = "kml_name"
	PropID            = "kml_id"
	PropKMLType       = "kml_geometry_type"
	PropGeometryType  = "geometry_type"
	PropValid         = "is_valid"
	PropValidity      = "validity_reason"
	PropArea          = "calculated_area_sq_units"
	PropLength        = "calculated_length_units"
	PropPerimeter     = "calculated_perimeter_units"
	negligibleMeasure = 1e-9
)

// GeoJSONFeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type GeoJSONFeatureCollection struct {
	Type     string           `json:"type" yaml:"type"`
	Features []GeoJSONFeature `json:"features" yaml:"features"`
}

// GeoJSONFeature represents a single geographic feature with geometry and properties.
type GeoJSONFeature struct {
	Type       string                 `json:"type" yaml:"type"`
	Geometry   *geojson.Geometry      `json:"geometry" yaml:"geometry"`
	Properties map[string]interface{} `json:"properties" yaml:"properties"`
}

// Measures holds the optional metric values of a feature.
type Measures struct {
	Area      *float64
	Length    *float64
	Perimeter *float64
}

// NewFeature builds a GeoJSON feature for a placemark and its converted
// geometry. g may be nil when conversion produced no value.
func NewFeature(pm kml.Placemark, g *Planar, m Measures, precision int) GeoJSONFeature {
	props := map[string]interface{}{
		PropKMLType: pm.Kind.String(),
	}
	if pm.Name != "" {
		props[PropName] = pm.Name
	}
	if pm.ID != "" {
		props[PropID] = pm.ID
	}

	var geometry *geojson.Geometry
	if g != nil && g.Geometry != nil {
		geometry = geojson.NewGeometry(g.Geometry)
		props[PropGeometryType] = g.Type()
		props[PropValid] = g.Valid
		if !g.Valid && g.Reason != "" {
			props[PropValidity] = g.Reason
		}
	}

	putMeasure(props, PropArea, m.Area, precision)
	putMeasure(props, PropLength, m.Length, precision)
	putMeasure(props, PropPerimeter, m.Perimeter, precision)

	return GeoJSONFeature{
		Type:       "Feature",
		Geometry:   geometry,
		Properties: props,
	}
}

func putMeasure(props map[string]interface{}, key string, v *float64, precision int) {
	if v == nil {
		return
	}
	r := Round(*v, precision)
	if math.Abs(r) > negligibleMeasure {
		props[key] = r
	}
}

// NewFeatureCollection wraps features in a FeatureCollection.
func NewFeatureCollection(features []GeoJSONFeature) GeoJSONFeatureCollection {
	if features == nil {
		features = []GeoJSONFeature{}
	}
	return GeoJSONFeatureCollection{Type: "FeatureCollection", Features: features}
}

// MarshalFeatureCollection encodes fc as JSON. indent is the number of
// spaces per level, 0 produces compact output.
func MarshalFeatureCollection(fc GeoJSONFeatureCollection, indent int) ([]byte, error) {
	if indent <= 0 {
		return json.Marshal(fc)
	}
	return json.MarshalIndent(fc, "", strings.Repeat(" ", indent))
}

// EncodeFeatureCollection writes fc to w as "json" or "yaml".
func EncodeFeatureCollection(w io.Writer, fc GeoJSONFeatureCollection, format string, indent int) error {
	data, err := MarshalFeatureCollection(fc, indent)
	if err != nil {
		return err
	}

	switch format {
	case "", "json":
	case "yaml":
		if data, err = jsonToYAML(data, indent); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}

	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	_, err = w.Write(data)
	return err
}

// WriteFeatureCollection writes fc as UTF-8 JSON to path.
func WriteFeatureCollection(path string, fc GeoJSONFeatureCollection, indent int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeFeatureCollection(f, fc, "json", indent); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// jsonToYAML re-encodes JSON as block-style YAML keeping key order.
func jsonToYAML(data []byte, indent int) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	blockStyle(&node)

	if indent <= 0 {
		indent = 2
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = 0
	}
	if n.Kind == yaml.ScalarNode && n.Style == yaml.DoubleQuotedStyle {
		n.Style = 0
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}
