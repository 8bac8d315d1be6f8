// Package measure computes area, length and perimeter of planar geometry,
// reprojecting into a metric reference first when asked to.
package measure

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog"
	"github.com/woozymasta/kadastr/internal/crs"
)

// Options control the reference in which measures are taken.
type Options struct {
	// SourceCRS is the reference of the input coordinates.
	SourceCRS string
	// Reproject transforms coordinates into TargetCRS before measuring.
	Reproject bool
	// TargetCRS is the metric reference measures are taken in.
	TargetCRS string
	// Logger receives warnings about reference handling. The zero value
	// discards them.
	Logger zerolog.Logger
}

// DefaultOptions measures WGS 84 input in Web Mercator metres.
func DefaultOptions() Options {
	return Options{
		SourceCRS: crs.WGS84ID,
		Reproject: true,
		TargetCRS: crs.WebMercatorID,
		Logger:    zerolog.Nop(),
	}
}

type metric int

const (
	metricArea metric = iota
	metricLength
	metricPerimeter
)

func (m metric) String() string {
	switch m {
	case metricArea:
		return "area"
	case metricLength:
		return "length"
	}
	return "perimeter"
}

// Area returns the area of polygonal geometry. Points and lines have zero
// area. ok is false when g is nil or the area cannot be computed.
func Area(g orb.Geometry, opts Options) (float64, bool) {
	return measure(g, opts, metricArea)
}

// Length returns the length of linear geometry. Points and polygons have
// zero length.
func Length(g orb.Geometry, opts Options) (float64, bool) {
	return measure(g, opts, metricLength)
}

// Perimeter returns the summed length of the outer rings of polygonal
// geometry. Holes are not counted.
func Perimeter(g orb.Geometry, opts Options) (float64, bool) {
	return measure(g, opts, metricPerimeter)
}

func measure(g orb.Geometry, opts Options, m metric) (v float64, ok bool) {
	if g == nil {
		return 0, false
	}

	defer func() {
		if r := recover(); r != nil {
			opts.Logger.Error().Str("metric", m.String()).Msgf("Measure failed: %v", r)
			v, ok = 0, false
		}
	}()

	if !supports(g, m) {
		switch g.(type) {
		case orb.Point, orb.MultiPoint, orb.LineString, orb.Ring, orb.MultiLineString, orb.Polygon, orb.MultiPolygon:
			return 0, true
		}
		return 0, false
	}

	if opts.Reproject {
		g = reproject(g, opts, m)
	}

	if c, isCollection := g.(orb.Collection); isCollection {
		member := opts
		member.Reproject = false

		var total float64
		for _, part := range c {
			if part == nil || !supports(part, m) {
				continue
			}
			if _, nested := part.(orb.Collection); nested {
				continue
			}
			if pv, pok := measure(part, member, m); pok {
				total += pv
			}
		}
		return total, true
	}

	return value(g, m)
}

// supports reports whether g can carry a non-zero value of m.
func supports(g orb.Geometry, m metric) bool {
	switch g.(type) {
	case orb.Collection:
		return true
	case orb.Polygon, orb.MultiPolygon:
		return m == metricArea || m == metricPerimeter
	case orb.LineString, orb.Ring, orb.MultiLineString:
		return m == metricLength
	}
	return false
}

func value(g orb.Geometry, m metric) (float64, bool) {
	switch m {
	case metricArea:
		return planar.Area(g), true
	case metricLength:
		return planar.Length(g), true
	}

	switch g := g.(type) {
	case orb.Polygon:
		return outerLength(g), true
	case orb.MultiPolygon:
		var total float64
		for _, p := range g {
			total += outerLength(p)
		}
		return total, true
	}
	return 0, false
}

func outerLength(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	return planar.Length(p[0])
}

// reproject transforms g into the target reference. On any failure the
// original geometry is returned and a warning logged.
func reproject(g orb.Geometry, opts Options, m metric) orb.Geometry {
	logger := opts.Logger.With().Str("metric", m.String()).Logger()

	src, err := crs.Lookup(opts.SourceCRS)
	if err != nil {
		logger.Warn().Err(err).Msg("Measuring in original coordinates")
		return g
	}
	dst, err := crs.Lookup(opts.TargetCRS)
	if err != nil {
		logger.Warn().Err(err).Msg("Measuring in original coordinates")
		return g
	}
	if crs.Equal(src, dst) {
		return g
	}
	if src.IsProjected() {
		logger.Warn().
			Str("source", src.ID).
			Str("target", dst.ID).
			Msg("Source reference is projected but differs from target, reprojecting")
	}

	t, err := crs.NewTransform(src, dst)
	if err == nil {
		var out orb.Geometry
		if out, err = t.Geometry(g); err == nil {
			return out
		}
	}
	logger.Warn().Err(fmt.Errorf("%s to %s: %w", src.ID, dst.ID, err)).Msg("Measuring in original coordinates")
	return g
}
