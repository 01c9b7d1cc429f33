package alerting

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// circleSegments is the number of vertices used to approximate a CAP circle.
const circleSegments = 64

var errEmptyCoordinates = errors.New("empty coordinate string")

// ParseCoordinateString converts a CAP area coordinate string into a
// geometry with [lon, lat] points.
//
// Polygons are whitespace separated "lat,lon" pairs and become a closed
// polygon (or a line string or point when too few distinct pairs are given).
// Circles are "lat,lon radius" with the radius in kilometres; a zero radius
// yields the centre point.
func ParseCoordinateString(s string) (orb.Geometry, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, errEmptyCoordinates
	}

	if len(fields) == 2 && !strings.Contains(fields[1], ",") {
		return parseCircle(fields[0], fields[1])
	}

	points := make([]orb.Point, 0, len(fields))
	for _, field := range fields {
		point, err := parsePoint(field)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}

	return shapeOf(points), nil
}

// Centroid returns the area-weighted centroid of g, or the centre of its
// bound when g has no area.
func Centroid(g orb.Geometry) orb.Point {
	if point, ok := g.(orb.Point); ok {
		return point
	}
	centroid, area := planar.CentroidArea(g)
	if area == 0 {
		return g.Bound().Center()
	}
	return centroid
}

func parsePoint(pair string) (orb.Point, error) {
	latStr, lonStr, ok := strings.Cut(pair, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("invalid coordinate pair %q", pair)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid latitude in %q: %w", pair, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid longitude in %q: %w", pair, err)
	}
	if !finite(lat) || !finite(lon) {
		return orb.Point{}, fmt.Errorf("non-finite coordinate in %q", pair)
	}

	if lat < -90 || lat > 90 {
		return orb.Point{}, fmt.Errorf("latitude out of range in %q", pair)
	}
	if lon < -180 || lon > 180 {
		return orb.Point{}, fmt.Errorf("longitude out of range in %q", pair)
	}

	return orb.Point{lon, lat}, nil
}

func parseCircle(centre, radius string) (orb.Geometry, error) {
	point, err := parsePoint(centre)
	if err != nil {
		return nil, err
	}

	km, err := strconv.ParseFloat(radius, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid circle radius %q: %w", radius, err)
	}
	if !finite(km) {
		return nil, fmt.Errorf("non-finite circle radius %q", radius)
	}
	if km < 0 {
		return nil, fmt.Errorf("negative circle radius %q", radius)
	}
	if km == 0 {
		return point, nil
	}

	// Clockwise bearings produce a clockwise ring; reversed below.
	ring := make(orb.Ring, 0, circleSegments+1)
	for i := 0; i < circleSegments; i++ {
		bearing := float64(i) * 360 / circleSegments
		ring = append(ring, geo.PointAtBearingAndDistance(point, bearing, km*1000))
	}
	ring = append(ring, ring[0])
	ring.Reverse()

	return orb.Polygon{ring}, nil
}

func shapeOf(points []orb.Point) orb.Geometry {
	distinct := distinctPoints(points)
	switch len(distinct) {
	case 1:
		return distinct[0]
	case 2:
		return orb.LineString(distinct)
	}

	ring := orb.Ring(points)
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	if ring.Orientation() == orb.CW {
		ring.Reverse()
	}
	return orb.Polygon{ring}
}

func distinctPoints(points []orb.Point) []orb.Point {
	seen := make(map[orb.Point]struct{}, len(points))
	distinct := make([]orb.Point, 0, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		distinct = append(distinct, p)
	}
	return distinct
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
