package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/woozymasta/kadastr/internal/kml"
)

// Minimum point counts per geometry kind.
const (
	MinPointPoints      = 1
	MinLineStringPoints = 2
	MinRingPoints       = 3
)

var (
	// ErrNoGeometry means the placemark carries no geometry to convert.
	ErrNoGeometry = errors.New("placemark has no geometry")
	// ErrKindMismatch means the declared kind disagrees with the payload type.
	ErrKindMismatch = errors.New("declared kind does not match geometry data")
	// ErrEmptyMultiGeometry means no member of a MultiGeometry converted.
	ErrEmptyMultiGeometry = errors.New("no sub-geometry could be converted")
	// ErrConversionFault wraps an unexpected fault recovered during conversion.
	ErrConversionFault = errors.New("geometry conversion fault")
)

// InsufficientPointsError reports a geometry with too few parsed points.
type InsufficientPointsError struct {
	Kind kml.Kind
	Got  int
	Need int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("%v needs at least %d points, got %d", e.Kind, e.Need, e.Got)
}

// Planar is a converted geometry with its validity diagnosis.
type Planar struct {
	Geometry orb.Geometry
	Valid    bool
	// Reason explains why the geometry is invalid. Empty when valid.
	Reason string
}

// Type returns the GeoJSON type name of the geometry.
func (p *Planar) Type() string {
	if p == nil || p.Geometry == nil {
		return ""
	}
	return p.Geometry.GeoJSONType()
}

// Convert maps a placemark geometry to planar geometry.
//
// A non-nil error means there is no value; it never panics.
func Convert(pm kml.Placemark, precision int) (planar *Planar, err error) {
	defer func() {
		if r := recover(); r != nil {
			planar = nil
			err = fmt.Errorf("%w: %s: %v", ErrConversionFault, pm.DisplayName(), r)
		}
	}()

	g, err := convert(pm, precision)
	if err != nil {
		return nil, err
	}

	valid, reason := Validate(g)
	return &Planar{Geometry: g, Valid: valid, Reason: reason}, nil
}

func convert(pm kml.Placemark, precision int) (orb.Geometry, error) {
	if pm.Geometry == nil {
		return nil, ErrNoGeometry
	}
	if pm.Kind != pm.Geometry.Kind() {
		return nil, fmt.Errorf("%w: declared %v, got %v", ErrKindMismatch, pm.Kind, pm.Geometry.Kind())
	}

	switch g := pm.Geometry.(type) {
	case kml.Point:
		points := ParsePoints(g.Coordinates, precision)
		if len(points) < MinPointPoints {
			return nil, &InsufficientPointsError{Kind: kml.KindPoint, Got: len(points), Need: MinPointPoints}
		}
		return points[0], nil

	case kml.LineString:
		points := ParsePoints(g.Coordinates, precision)
		if len(points) < MinLineStringPoints {
			return nil, &InsufficientPointsError{Kind: kml.KindLineString, Got: len(points), Need: MinLineStringPoints}
		}
		return orb.LineString(points), nil

	case kml.LinearRing:
		ring, err := convertRing(g, precision)
		if err != nil {
			return nil, err
		}
		return orb.LineString(ring), nil

	case kml.Polygon:
		return convertPolygon(g, precision)

	case kml.MultiGeometry:
		return convertMulti(pm, g, precision)
	}

	return nil, fmt.Errorf("%w: unsupported payload %T", ErrKindMismatch, pm.Geometry)
}

// convertRing parses a ring and closes it. Closure of the source data is not
// validated.
func convertRing(r kml.LinearRing, precision int) (orb.Ring, error) {
	points := ParsePoints(r.Coordinates, precision)
	if len(points) < MinRingPoints {
		return nil, &InsufficientPointsError{Kind: kml.KindLinearRing, Got: len(points), Need: MinRingPoints}
	}
	ring := orb.Ring(points)
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

func convertPolygon(p kml.Polygon, precision int) (orb.Geometry, error) {
	outer, err := convertRing(p.Outer, precision)
	if err != nil {
		return nil, fmt.Errorf("outer boundary: %w", err)
	}

	poly := orb.Polygon{outer}
	for _, inner := range p.Inner {
		hole, err := convertRing(inner, precision)
		if err != nil {
			continue
		}
		poly = append(poly, hole)
	}
	return poly, nil
}

func convertMulti(pm kml.Placemark, mg kml.MultiGeometry, precision int) (orb.Geometry, error) {
	name := "sub_geom"
	if pm.Name != "" {
		name = pm.Name + "_sub"
	}

	var parts []orb.Geometry
	for _, sub := range mg.Geometries {
		g, err := convert(kml.Placemark{Name: name, Kind: sub.Kind, Geometry: sub.Geometry}, precision)
		if err != nil {
			continue
		}
		parts = append(parts, g)
	}
	if len(parts) == 0 {
		return nil, ErrEmptyMultiGeometry
	}

	return groupGeometries(parts), nil
}

// groupGeometries builds a homogeneous multi-geometry when all parts share
// one of Point, LineString or Polygon, and a collection otherwise.
func groupGeometries(parts []orb.Geometry) orb.Geometry {
	switch parts[0].(type) {
	case orb.Point:
		mp := make(orb.MultiPoint, 0, len(parts))
		for _, g := range parts {
			p, ok := g.(orb.Point)
			if !ok {
				return orb.Collection(parts)
			}
			mp = append(mp, p)
		}
		return mp

	case orb.LineString:
		mls := make(orb.MultiLineString, 0, len(parts))
		for _, g := range parts {
			ls, ok := g.(orb.LineString)
			if !ok {
				return orb.Collection(parts)
			}
			mls = append(mls, ls)
		}
		return mls

	case orb.Polygon:
		mp := make(orb.MultiPolygon, 0, len(parts))
		for _, g := range parts {
			p, ok := g.(orb.Polygon)
			if !ok {
				return orb.Collection(parts)
			}
			mp = append(mp, p)
		}
		return mp
	}

	return orb.Collection(parts)
}
