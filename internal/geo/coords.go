package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// DefaultPrecision is the number of decimal places coordinates are rounded to.
const DefaultPrecision = 6

// Coordinate is a parsed "x,y[,z]" tuple.
type Coordinate struct {
	X, Y, Z float64
	HasZ    bool
}

// Dim returns 2 or 3.
func (c Coordinate) Dim() int {
	if c.HasZ {
		return 3
	}
	return 2
}

// XY drops the z component.
func (c Coordinate) XY() orb.Point {
	return orb.Point{c.X, c.Y}
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow(10, float64(precision))
	r := math.Round(v*scale) / scale
	if math.IsInf(r, 0) || math.IsNaN(r) {
		// v*scale overflowed, v has no fractional digits at this scale
		return v
	}
	return r
}

// ParseCoordinates parses a KML coordinate string such as
// "10.1234567,20.7654321,5.0 11.123,22.321".
//
// Tokens are separated by whitespace, components by commas. Tokens with a
// component count other than 2 or 3, or with an unparsable or non-finite
// component, are skipped. An empty third component is read as 0.
func ParseCoordinates(s string, precision int) []Coordinate {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return nil
	}

	coords := make([]Coordinate, 0, len(tokens))
	for _, tok := range tokens {
		if c, ok := parseToken(tok, precision); ok {
			coords = append(coords, c)
		}
	}
	return coords
}

func parseToken(tok string, precision int) (Coordinate, bool) {
	parts := strings.Split(tok, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return Coordinate{}, false
	}

	x, ok := parseComponent(parts[0])
	if !ok {
		return Coordinate{}, false
	}
	y, ok := parseComponent(parts[1])
	if !ok {
		return Coordinate{}, false
	}
	c := Coordinate{X: Round(x, precision), Y: Round(y, precision)}

	if len(parts) == 3 {
		c.HasZ = true
		if zs := strings.TrimSpace(parts[2]); zs != "" {
			z, ok := parseComponent(zs)
			if !ok {
				return Coordinate{}, false
			}
			c.Z = Round(z, precision)
		}
	}

	return c, true
}

// parseComponent parses one ordinate. NaN and infinities are rejected
// along with syntax errors.
func parseComponent(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParsePoints parses s and projects every tuple to 2D.
func ParsePoints(s string, precision int) []orb.Point {
	coords := ParseCoordinates(s, precision)
	points := make([]orb.Point, 0, len(coords))
	for _, c := range coords {
		points = append(points, c.XY())
	}
	return points
}
