package crs

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Transform converts points from Source to Target.
type Transform struct {
	Source *CRS
	Target *CRS
}

// NewTransform returns a transform between two registry entries.
func NewTransform(src, dst *CRS) (*Transform, error) {
	if src == nil || dst == nil {
		return nil, fmt.Errorf("transform needs both source and target reference")
	}
	return &Transform{Source: src, Target: dst}, nil
}

// Identity reports whether the transform leaves coordinates unchanged.
func (t *Transform) Identity() bool {
	if Equal(t.Source, t.Target) {
		return true
	}
	// both are lon/lat on WGS 84
	return t.Source.IsGeographic() && t.Target.IsGeographic()
}

// Point transforms a single point.
func (t *Transform) Point(p orb.Point) (orb.Point, error) {
	if t.Identity() {
		return p, nil
	}
	ll, err := t.Source.ToWGS84(p)
	if err != nil {
		return p, fmt.Errorf("%s to WGS 84: %w", t.Source, err)
	}
	out, err := t.Target.FromWGS84(ll)
	if err != nil {
		return p, fmt.Errorf("WGS 84 to %s: %w", t.Target, err)
	}
	return out, nil
}

// Geometry returns a transformed copy of g. The input is never modified.
func (t *Transform) Geometry(g orb.Geometry) (orb.Geometry, error) {
	switch g := g.(type) {
	case nil:
		return nil, nil
	case orb.Point:
		return t.Point(g)
	case orb.MultiPoint:
		pts, err := t.points(g)
		return orb.MultiPoint(pts), err
	case orb.LineString:
		pts, err := t.points(g)
		return orb.LineString(pts), err
	case orb.Ring:
		pts, err := t.points(g)
		return orb.Ring(pts), err
	case orb.MultiLineString:
		out := make(orb.MultiLineString, 0, len(g))
		for _, ls := range g {
			pts, err := t.points(ls)
			if err != nil {
				return nil, err
			}
			out = append(out, pts)
		}
		return out, nil
	case orb.Polygon:
		return t.polygon(g)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(g))
		for _, p := range g {
			tp, err := t.polygon(p)
			if err != nil {
				return nil, err
			}
			out = append(out, tp)
		}
		return out, nil
	case orb.Collection:
		out := make(orb.Collection, 0, len(g))
		for _, member := range g {
			tg, err := t.Geometry(member)
			if err != nil {
				return nil, err
			}
			out = append(out, tg)
		}
		return out, nil
	case orb.Bound:
		lo, err := t.Point(g.Min)
		if err != nil {
			return nil, err
		}
		hi, err := t.Point(g.Max)
		if err != nil {
			return nil, err
		}
		return orb.MultiPoint{lo, hi}.Bound(), nil
	}
	return nil, fmt.Errorf("unsupported geometry %T", g)
}

func (t *Transform) points(in []orb.Point) ([]orb.Point, error) {
	out := make([]orb.Point, len(in))
	for i, p := range in {
		tp, err := t.Point(p)
		if err != nil {
			return nil, err
		}
		out[i] = tp
	}
	return out, nil
}

func (t *Transform) polygon(p orb.Polygon) (orb.Polygon, error) {
	out := make(orb.Polygon, 0, len(p))
	for _, r := range p {
		pts, err := t.points(r)
		if err != nil {
			return nil, err
		}
		out = append(out, pts)
	}
	return out, nil
}

// TransformGeometry resolves both identifiers and transforms g.
func TransformGeometry(g orb.Geometry, from, to string) (orb.Geometry, error) {
	src, err := Lookup(from)
	if err != nil {
		return nil, err
	}
	dst, err := Lookup(to)
	if err != nil {
		return nil, err
	}
	t, err := NewTransform(src, dst)
	if err != nil {
		return nil, err
	}
	return t.Geometry(g)
}
