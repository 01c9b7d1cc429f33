package alerting

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinateString_Polygon(t *testing.T) {
	g, err := ParseCoordinateString("-6.2,38.7 -6.2,39.6 -7.2,39.6 -7.2,38.7 -6.2,38.7")
	require.NoError(t, err)

	polygon, ok := g.(orb.Polygon)
	require.True(t, ok, "expected polygon, got %T", g)
	require.Len(t, polygon, 1)

	ring := polygon[0]
	assert.True(t, ring.Closed())
	assert.Len(t, ring, 5)
	assert.Equal(t, orb.CCW, ring.Orientation())
	assert.Contains(t, ring, orb.Point{38.7, -6.2}, "points are stored as lon, lat")
}

func TestParseCoordinateString_ClosesOpenRing(t *testing.T) {
	g, err := ParseCoordinateString("0,0 0,1 1,1")
	require.NoError(t, err)

	polygon, ok := g.(orb.Polygon)
	require.True(t, ok)
	assert.True(t, polygon[0].Closed())
	assert.Len(t, polygon[0], 4)
}

func TestParseCoordinateString_Degenerate(t *testing.T) {
	g, err := ParseCoordinateString("1,2 1,2")
	require.NoError(t, err)
	assert.Equal(t, orb.Point{2, 1}, g)

	g, err = ParseCoordinateString("1,2 3,4 1,2")
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{2, 1}, {4, 3}}, g)
}

func TestParseCoordinateString_Circle(t *testing.T) {
	g, err := ParseCoordinateString("0,0 10")
	require.NoError(t, err)

	polygon, ok := g.(orb.Polygon)
	require.True(t, ok, "expected polygon, got %T", g)
	assert.Len(t, polygon[0], circleSegments+1)
	assert.True(t, polygon[0].Closed())
	assert.Equal(t, orb.CCW, polygon[0].Orientation())

	centroid := Centroid(g)
	assert.InDelta(t, 0, centroid.Lon(), 1e-3)
	assert.InDelta(t, 0, centroid.Lat(), 1e-3)

	bound := g.Bound()
	// 10 km is roughly 0.09 degrees at the equator.
	assert.InDelta(t, 0.09, bound.Max.Lat(), 0.01)
}

func TestParseCoordinateString_ZeroRadiusCircle(t *testing.T) {
	g, err := ParseCoordinateString("-6.8,39.28 0")
	require.NoError(t, err)
	assert.Equal(t, orb.Point{39.28, -6.8}, g)
}

func TestParseCoordinateString_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: "   "},
		{name: "missing comma", input: "12 34 56"},
		{name: "bad latitude", input: "abc,1 2,3 4,5"},
		{name: "bad longitude", input: "1,abc 2,3 4,5"},
		{name: "latitude out of range", input: "91,0 1,1 2,2"},
		{name: "longitude out of range", input: "0,181 1,1 2,2"},
		{name: "bad radius", input: "0,0 ten"},
		{name: "negative radius", input: "0,0 -5"},
		{name: "nan centre", input: "NaN,NaN 0"},
		{name: "nan vertex", input: "1,1 2,2 NaN,3 1,1"},
		{name: "infinite radius", input: "1,1 Inf"},
		{name: "nan radius", input: "1,1 NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCoordinateString(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestCentroid(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}
	c := Centroid(square)
	assert.InDelta(t, 1, c.Lon(), 1e-9)
	assert.InDelta(t, 1, c.Lat(), 1e-9)

	point := orb.Point{3, 4}
	assert.Equal(t, point, Centroid(point))

	line := orb.LineString{{0, 0}, {4, 0}}
	c = Centroid(line)
	assert.InDelta(t, 2, c.Lon(), 1e-9)
	assert.InDelta(t, 0, c.Lat(), 1e-9)
}
