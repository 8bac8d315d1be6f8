package crs

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

// Newton iteration bounds for inverse projections, in metres.
const (
	inverseTolerance = 1e-6
	inverseStep      = 1e-7 // degrees
	inverseMaxIter   = 8
)

// newProjected wraps a wgs84 projected system on the WGS84 datum as a
// registry entry. Points go through the projection directly, without the
// geocentric round trip the library uses between datums.
func newProjected(code int, name string, sys wgs84.CoordinateReferenceSystem) *CRS {
	prs, ok := sys.(wgs84.ProjectedReferenceSystem)
	if !ok {
		panic(fmt.Sprintf("crs: EPSG:%d is not a projected system", code))
	}

	forward := func(lon, lat float64) (float64, float64) {
		return prs.Projection.FromLonLat(lon, lat, prs.Datum)
	}

	return &CRS{
		ID:   fmt.Sprintf("EPSG:%d", code),
		Name: name,
		Kind: Projected,
		fromWGS84: func(p orb.Point) orb.Point {
			east, north := forward(p[0], p[1])
			return orb.Point{east, north}
		},
		toWGS84: func(p orb.Point) orb.Point {
			lon, lat := prs.Projection.ToLonLat(p[0], p[1], prs.Datum)
			return refineInverse(forward, p, lon, lat)
		},
	}
}

// refineInverse runs Newton steps on the forward projection, starting at
// lon/lat, until forward reproduces target within inverseTolerance.
//
// The wgs84 transverse Mercator inverse series is off by metres away from
// the central meridian while its forward series is not.
func refineInverse(forward func(lon, lat float64) (float64, float64), target orb.Point, lon, lat float64) orb.Point {
	for i := 0; i < inverseMaxIter; i++ {
		east, north := forward(lon, lat)
		dEast, dNorth := target[0]-east, target[1]-north
		if math.Abs(dEast) < inverseTolerance && math.Abs(dNorth) < inverseTolerance {
			break
		}

		eLon, nLon := forward(lon+inverseStep, lat)
		eLat, nLat := forward(lon, lat+inverseStep)
		a, b := (eLon-east)/inverseStep, (eLat-east)/inverseStep
		c, d := (nLon-north)/inverseStep, (nLat-north)/inverseStep

		det := a*d - b*c
		if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
			break
		}
		lon += (d*dEast - b*dNorth) / det
		lat += (a*dNorth - c*dEast) / det
	}
	return orb.Point{lon, lat}
}
