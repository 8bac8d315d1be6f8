// Package kml extracts placemark geometries from KML container trees.
package kml

// Kind is the declared geometry kind of a placemark or sub-geometry.
type Kind int

const (
	KindUnknown Kind = iota
	KindPoint
	KindLineString
	KindLinearRing
	KindPolygon
	KindMultiGeometry
)

var kindNames = [...]string{
	KindUnknown:       "Unknown",
	KindPoint:         "Point",
	KindLineString:    "LineString",
	KindLinearRing:    "LinearRing",
	KindPolygon:       "Polygon",
	KindMultiGeometry: "MultiGeometry",
}

// String returns the KML element name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// ParseKind maps a KML geometry tag to its kind.
// Anything not recognised is KindUnknown.
func ParseKind(tag string) Kind {
	for k, name := range kindNames {
		if k != int(KindUnknown) && name == tag {
			return Kind(k)
		}
	}
	return KindUnknown
}

// Geometry is the closed set of geometry payloads a placemark can carry.
// Only the types in this package implement it.
type Geometry interface {
	Kind() Kind
	sealed()
}

// Point holds the raw coordinate string of a KML Point ("x,y[,z]").
type Point struct {
	Coordinates string
}

// LineString holds the raw coordinate string of a KML LineString.
type LineString struct {
	Coordinates string
}

// LinearRing holds the raw coordinate string of a KML LinearRing.
type LinearRing struct {
	Coordinates string
}

// Polygon is one outer ring and zero or more holes.
type Polygon struct {
	Outer LinearRing
	Inner []LinearRing
}

// SubGeometry is a member of a MultiGeometry. Kind is the declared element
// name and is kept even if the member later fails to convert.
type SubGeometry struct {
	Kind     Kind
	Geometry Geometry
}

// MultiGeometry is an ordered list of sub-geometries.
type MultiGeometry struct {
	Geometries []SubGeometry
}

func (Point) Kind() Kind         { return KindPoint }
func (LineString) Kind() Kind    { return KindLineString }
func (LinearRing) Kind() Kind    { return KindLinearRing }
func (Polygon) Kind() Kind       { return KindPolygon }
func (MultiGeometry) Kind() Kind { return KindMultiGeometry }

func (Point) sealed()         {}
func (LineString) sealed()    {}
func (LinearRing) sealed()    {}
func (Polygon) sealed()       {}
func (MultiGeometry) sealed() {}

// Placemark is a single feature extracted from the document tree.
type Placemark struct {
	// Name and ID are empty when absent in the source.
	Name string
	ID   string

	// Kind is the declared kind. It is expected to match Geometry.Kind(),
	// a mismatch makes the placemark unconvertible but is not an error here.
	Kind     Kind
	Geometry Geometry

	// Source is the placemark element, kept for diagnostics only.
	Source Node
}

// DisplayName returns the placemark name or a placeholder for logs.
func (p Placemark) DisplayName() string {
	if p.Name == "" {
		return "Unnamed Placemark"
	}
	return p.Name
}
