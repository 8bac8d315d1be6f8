// Package crs holds the coordinate reference systems known to kadastr and
// the point transforms between them.
//
// Every reference converts to and from WGS84 longitude/latitude; transforms
// between two references go through WGS84. Projected references other than
// Web Mercator come from the github.com/wroge/wgs84 EPSG repository.
package crs

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

// Kind classifies a reference by its coordinate units.
type Kind int

const (
	// Geographic references use angular units (degrees).
	Geographic Kind = iota
	// Projected references use linear units (metres).
	Projected
)

func (k Kind) String() string {
	if k == Projected {
		return "projected"
	}
	return "geographic"
}

// Identifiers used as defaults across the module.
const (
	WGS84ID       = "EPSG:4326"
	WebMercatorID = "EPSG:3857"
)

// ErrNonFinite is returned when a transform produces NaN or Inf.
var ErrNonFinite = errors.New("transform produced non-finite coordinates")

// UnknownError reports an identifier with no registry entry.
type UnknownError struct {
	ID string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown coordinate reference system %q", e.ID)
}

// CRS is a registry entry. Entries are unique per reference, so two
// identifiers naming the same reference resolve to the same pointer.
type CRS struct {
	// ID is the canonical identifier, e.g. "EPSG:3857".
	ID   string
	Name string
	Kind Kind

	toWGS84   func(orb.Point) orb.Point
	fromWGS84 func(orb.Point) orb.Point
}

func (c *CRS) String() string { return c.ID }

// IsGeographic reports whether c uses angular units.
func (c *CRS) IsGeographic() bool { return c != nil && c.Kind == Geographic }

// IsProjected reports whether c uses linear units.
func (c *CRS) IsProjected() bool { return c != nil && c.Kind == Projected }

// Equal reports whether a and b are the same registry entry.
func Equal(a, b *CRS) bool {
	return a != nil && b != nil && a.ID == b.ID
}

// ToWGS84 converts a point in c to WGS84 lon/lat.
func (c *CRS) ToWGS84(p orb.Point) (orb.Point, error) {
	return finite(c.toWGS84(p))
}

// FromWGS84 converts a WGS84 lon/lat point into c.
func (c *CRS) FromWGS84(p orb.Point) (orb.Point, error) {
	return finite(c.fromWGS84(p))
}

func finite(p orb.Point) (orb.Point, error) {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return p, ErrNonFinite
		}
	}
	return p, nil
}

func identity(p orb.Point) orb.Point { return p }

var (
	lonLat = &CRS{ID: WGS84ID, Name: "WGS 84", Kind: Geographic, toWGS84: identity, fromWGS84: identity}
	crs84  = &CRS{ID: "OGC:CRS84", Name: "WGS 84 (CRS84)", Kind: Geographic, toWGS84: identity, fromWGS84: identity}

	registry = map[int]*CRS{}
	aliases  = map[int]int{900913: 3857, 3785: 3857, 102100: 3857, 102113: 3857}
)

func init() {
	epsg := wgs84.EPSG()
	epsg.Add(3395, worldMercator)

	registry[4326] = lonLat
	registry[3857] = webMercator
	registry[3395] = newProjected(3395, "WGS 84 / World Mercator", epsg.Code(3395))

	for zone := 1; zone <= 60; zone++ {
		north, south := 32600+zone, 32700+zone
		registry[north] = newProjected(north, fmt.Sprintf("WGS 84 / UTM zone %dN", zone), epsg.Code(north))
		registry[south] = newProjected(south, fmt.Sprintf("WGS 84 / UTM zone %dS", zone), epsg.Code(south))
	}
}

// WGS84 returns the EPSG:4326 entry.
func WGS84() *CRS { return lonLat }

// Lookup resolves an identifier to its registry entry.
//
// Accepted forms are "EPSG:<code>", "urn:ogc:def:crs:EPSG::<code>",
// "CRS84", "urn:ogc:def:crs:OGC:1.3:CRS84" and a bare numeric code.
func Lookup(id string) (*CRS, error) {
	s := strings.ToUpper(strings.TrimSpace(id))
	if s == "" {
		return nil, &UnknownError{ID: id}
	}

	if s == "CRS84" || strings.HasSuffix(s, ":CRS84") {
		return crs84, nil
	}

	var digits string
	switch {
	case strings.HasPrefix(s, "URN:OGC:DEF:CRS:EPSG:"):
		digits = s[strings.LastIndex(s, ":")+1:]
	case strings.HasPrefix(s, "EPSG:"):
		digits = strings.TrimPrefix(s, "EPSG:")
	default:
		digits = s
	}

	code, err := strconv.Atoi(digits)
	if err != nil {
		return nil, &UnknownError{ID: id}
	}
	if canonical, ok := aliases[code]; ok {
		code = canonical
	}

	c, ok := registry[code]
	if !ok {
		return nil, &UnknownError{ID: id}
	}
	return c, nil
}

// MustLookup is like Lookup but panics on unknown identifiers.
// Intended for package-level defaults.
func MustLookup(id string) *CRS {
	c, err := Lookup(id)
	if err != nil {
		panic(err)
	}
	return c
}
