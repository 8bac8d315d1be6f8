package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-geos"
)

// Validate checks a geometry with GEOS and returns the validity flag and,
// for invalid geometry, the reason GEOS gives.
//
// Geometry GEOS refuses to build is reported invalid with the build error.
func Validate(g orb.Geometry) (bool, string) {
	if g == nil {
		return false, "empty geometry"
	}

	data, err := geojson.NewGeometry(g).MarshalJSON()
	if err != nil {
		return false, err.Error()
	}

	gg, err := geos.NewGeomFromGeoJSON(string(data))
	if err != nil {
		return false, err.Error()
	}
	defer gg.Destroy()

	if gg.IsValid() {
		return true, ""
	}
	return false, gg.IsValidReason()
}
