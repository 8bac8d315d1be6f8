package crs

import (
	"math"

	"github.com/paulmach/orb/project"
	"github.com/wroge/wgs84"
)

// webMercator is the spherical Pseudo-Mercator used by web maps.
var webMercator = &CRS{
	ID:        WebMercatorID,
	Name:      "WGS 84 / Pseudo-Mercator",
	Kind:      Projected,
	toWGS84:   project.Mercator.ToWGS84,
	fromWGS84: project.WGS84.ToMercator,
}

// worldMercator is EPSG:3395, which the wgs84 EPSG repository lacks.
var worldMercator = wgs84.ProjectedReferenceSystem{
	Datum:      wgs84.WGS84(),
	Projection: ellipsoidalMercator{},
}

// ellipsoidalMercator implements wgs84.Projection for the normal Mercator
// projection on an ellipsoid.
type ellipsoidalMercator struct{}

func (ellipsoidalMercator) FromLonLat(lon, lat float64, s wgs84.Spheroid) (east, north float64) {
	e := eccentricity(s)
	phi := lat * math.Pi / 180
	es := e * math.Sin(phi)

	east = s.A() * lon * math.Pi / 180
	north = s.A() * math.Log(math.Tan(math.Pi/4+phi/2)*math.Pow((1-es)/(1+es), e/2))
	return east, north
}

func (ellipsoidalMercator) ToLonLat(east, north float64, s wgs84.Spheroid) (lon, lat float64) {
	e := eccentricity(s)
	lon = east / s.A() * 180 / math.Pi

	// start from the spherical latitude and refine for the ellipsoid
	t := math.Exp(-north / s.A())
	phi := inverseMercatorLat(north / s.A())
	for i := 0; i < 15; i++ {
		es := e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-es)/(1+es), e/2))
		if math.Abs(next-phi) < 1e-12 {
			phi = next
			break
		}
		phi = next
	}

	return lon, phi * 180 / math.Pi
}

func eccentricity(s wgs84.Spheroid) float64 {
	f := 1 / s.Fi()
	return math.Sqrt(f * (2 - f))
}

// inverseMercatorLat returns the spherical latitude in radians for a
// normalised Mercator ordinate y (radians on the unit sphere).
func inverseMercatorLat(y float64) float64 {
	return 2*math.Atan(math.Exp(y)) - math.Pi*0.5
}
