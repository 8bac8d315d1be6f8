package kml

import (
	"github.com/rs/zerolog"
)

// DefaultMaxDepth is the container nesting limit used when Traverser.MaxDepth
// is not set.
const DefaultMaxDepth = 64

// Traverser walks KML containers and collects placemarks.
type Traverser struct {
	// MaxDepth bounds how many container levels below the start node are
	// entered. Zero means DefaultMaxDepth.
	MaxDepth int

	// Logger receives diagnostics. The zero value discards them.
	Logger zerolog.Logger
}

type frame struct {
	node  Node
	depth int
}

// Extract collects placemarks below root with default settings.
func Extract(root Node, logger zerolog.Logger) []Placemark {
	t := Traverser{Logger: logger}
	return t.Extract(root)
}

// Extract performs a pre-order depth-first walk over root's children in
// source order. Folders and nested Documents are entered, Placemarks are
// extracted, everything else is ignored.
func (t Traverser) Extract(root Node) []Placemark {
	if root == nil {
		return nil
	}

	maxDepth := t.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	var placemarks []Placemark
	stack := pushChildren(nil, root, 0)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch top.node.Tag() {
		case "Placemark":
			if pm, ok := t.extractPlacemark(top.node); ok {
				placemarks = append(placemarks, pm)
				t.Logger.Trace().
					Str("placemark", pm.DisplayName()).
					Stringer("kind", pm.Kind).
					Msg("Placemark extracted")
			}

		case "Folder", "Document":
			if top.depth+1 > maxDepth {
				t.Logger.Warn().
					Str("container", top.node.Tag()).
					Str("name", childText(top.node, "name")).
					Int("max_depth", maxDepth).
					Msg("Container nesting too deep, skipping subtree")
				continue
			}
			t.Logger.Trace().
				Str("container", top.node.Tag()).
				Str("name", childText(top.node, "name")).
				Int("depth", top.depth+1).
				Msg("Entering container")
			stack = pushChildren(stack, top.node, top.depth+1)
		}
	}

	return placemarks
}

// pushChildren pushes children in reverse so they pop in source order.
func pushChildren(stack []frame, n Node, depth int) []frame {
	children := n.Children()
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: children[i], depth: depth})
	}
	return stack
}

func (t Traverser) extractPlacemark(n Node) (Placemark, bool) {
	if n == nil {
		return Placemark{}, false
	}

	pm := Placemark{
		Name:   childText(n, "name"),
		Source: n,
	}
	if id, ok := n.Attr("id"); ok {
		pm.ID = id
	}

	switch {
	case n.Child("Point") != nil:
		pm.Geometry = Point{Coordinates: childText(n.Child("Point"), "coordinates")}
	case n.Child("LineString") != nil:
		pm.Geometry = LineString{Coordinates: childText(n.Child("LineString"), "coordinates")}
	case n.Child("Polygon") != nil:
		pm.Geometry = readPolygon(n.Child("Polygon"))
	case n.Child("LinearRing") != nil:
		pm.Geometry = LinearRing{Coordinates: childText(n.Child("LinearRing"), "coordinates")}
	case n.Child("MultiGeometry") != nil:
		if mg, ok := t.readMultiGeometry(pm, n.Child("MultiGeometry")); ok {
			pm.Geometry = mg
		}
	}

	if pm.Geometry == nil {
		pm.Kind = KindUnknown
		t.Logger.Debug().
			Str("placemark", pm.DisplayName()).
			Str("id", pm.ID).
			Strs("children", childTags(n)).
			Msg("Placemark has no recognised geometry")
		return pm, true
	}

	pm.Kind = pm.Geometry.Kind()
	return pm, true
}

func readPolygon(n Node) Polygon {
	poly := Polygon{
		Outer: LinearRing{Coordinates: childText(path(n, "outerBoundaryIs", "LinearRing"), "coordinates")},
	}
	for _, c := range n.Children() {
		if c.Tag() != "innerBoundaryIs" {
			continue
		}
		coords := path(c, "LinearRing", "coordinates")
		if coords == nil {
			continue
		}
		poly.Inner = append(poly.Inner, LinearRing{Coordinates: coords.Text()})
	}
	return poly
}

// readMultiGeometry interprets the direct children of a MultiGeometry.
func (t Traverser) readMultiGeometry(pm Placemark, n Node) (MultiGeometry, bool) {
	var mg MultiGeometry

	for _, c := range n.Children() {
		var sub Geometry

		switch c.Tag() {
		case "Point":
			if coords := childText(c, "coordinates"); coords != "" {
				sub = Point{Coordinates: coords}
			}
		case "LineString":
			if coords := childText(c, "coordinates"); coords != "" {
				sub = LineString{Coordinates: coords}
			}
		case "LinearRing":
			if coords := childText(c, "coordinates"); coords != "" {
				sub = LinearRing{Coordinates: coords}
			}
		case "Polygon":
			if poly := readPolygon(c); poly.Outer.Coordinates != "" {
				sub = poly
			}
		case "MultiGeometry":
			t.Logger.Warn().
				Str("placemark", pm.DisplayName()).
				Msg("Nested MultiGeometry is not supported, skipping")
		}

		if sub != nil {
			mg.Geometries = append(mg.Geometries, SubGeometry{Kind: sub.Kind(), Geometry: sub})
		}
	}

	return mg, len(mg.Geometries) > 0
}

func childTags(n Node) []string {
	children := n.Children()
	tags := make([]string, 0, len(children))
	for _, c := range children {
		tags = append(tags, c.Tag())
	}
	return tags
}
