package alerting

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return data
}

func TestParseAlert_Fixture(t *testing.T) {
	alert, err := ParseAlert(readFixture(t, "alert.xml"))
	require.NoError(t, err)

	assert.Equal(t, "TMA-2019-11-25-001", alert.Identifier)
	assert.Equal(t, "info@meteo.go.tz", alert.Sender)
	require.NotNil(t, alert.Sent)
	assert.True(t, alert.Sent.Equal(time.Date(2019, 11, 25, 6, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Actual", alert.Status)
	assert.Equal(t, "Alert", alert.MsgType)
	assert.Equal(t, "Public", alert.Scope)
	assert.NotEmpty(t, alert.References)

	info := alert.Info
	assert.Equal(t, "en", info.Language)
	assert.Equal(t, []string{"Met"}, info.Category)
	assert.Equal(t, "Heavy Rain", info.Event)
	assert.Equal(t, []string{"Prepare"}, info.ResponseType)
	assert.Equal(t, "Expected", info.Urgency)
	assert.Equal(t, "Severe", info.Severity)
	assert.Equal(t, "Likely", info.Certainty)
	assert.Equal(t, []ValuePair{{ValueName: "SAME", Value: "FLW"}}, info.EventCodes)
	require.NotNil(t, info.Onset)
	require.NotNil(t, info.Expires)
	assert.True(t, info.Expires.After(*info.Onset))
	assert.Nil(t, info.Effective)
	assert.Equal(t, "Tanzania Meteorological Authority", info.SenderName)
	assert.NotEmpty(t, info.Headline)
	assert.Equal(t, "Heavy rain exceeding 50 mm in 24 hours is expected over the coastal regions.", info.Description)
	assert.NotEmpty(t, info.Instruction)
	assert.Equal(t, "http://www.meteo.go.tz/", info.Web)
	assert.NotEmpty(t, info.Contact)
	assert.Len(t, info.Parameters, 1)

	area := info.Area
	assert.Equal(t, "Dar es Salaam, Pwani, Tanga", area.AreaDesc)
	assert.Equal(t, []ValuePair{{ValueName: "ISO3166-2", Value: "TZ-02"}}, area.Geocodes)
	require.NotNil(t, area.Geometry)
	require.NotNil(t, area.Centroid)
	assert.Equal(t, "Polygon", area.Geometry.Type)
	assert.Equal(t, "Point", area.Centroid.Type)

	centroid, ok := area.Centroid.Coordinates.(orb.Point)
	require.True(t, ok)
	assert.True(t, area.Geometry.Geometry().Bound().Contains(centroid))
	assert.InDelta(t, 39.15, centroid.Lon(), 1e-6)
	assert.InDelta(t, -6.7, centroid.Lat(), 1e-6)

	assert.Len(t, alert.Hash, 64)
}

func TestParseAlert_HashIsDeterministic(t *testing.T) {
	data := readFixture(t, "alert.xml")

	first, err := ParseAlert(data)
	require.NoError(t, err)
	second, err := ParseAlert(data)
	require.NoError(t, err)

	assert.Equal(t, first.Hash, second.Hash)
}

func TestParseAlert_HashIgnoresWhitespace(t *testing.T) {
	compact := `<alert><identifier>A-1</identifier><sent>2020-01-01T00:00:00Z</sent><info><event>Flood</event><area><areaDesc>Delta</areaDesc></area></info></alert>`
	spaced := `<alert>
    <identifier>  A-1  </identifier>
    <sent>
      2020-01-01T00:00:00Z
    </sent>
    <info>
      <event>Flood</event>
      <area>
        <areaDesc>Delta</areaDesc>
      </area>
    </info>
  </alert>`

	a, err := ParseAlert([]byte(compact))
	require.NoError(t, err)
	b, err := ParseAlert([]byte(spaced))
	require.NoError(t, err)

	assert.Equal(t, a.Hash, b.Hash)
}

func TestParseAlert_HashChangesWithContent(t *testing.T) {
	a, err := ParseAlert([]byte(`<alert><identifier>A-1</identifier></alert>`))
	require.NoError(t, err)
	b, err := ParseAlert([]byte(`<alert><identifier>A-2</identifier></alert>`))
	require.NoError(t, err)

	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestParseAlert_HashExcludesItself(t *testing.T) {
	alert, err := ParseAlert(readFixture(t, "alert.xml"))
	require.NoError(t, err)

	unhashed := *alert
	unhashed.Hash = ""
	expected, err := HashOf(&unhashed)
	require.NoError(t, err)

	assert.Equal(t, expected, alert.Hash)
}

func TestParseAlert_NoArea(t *testing.T) {
	alert, err := ParseAlert([]byte(`<alert><identifier>A-1</identifier><info><event>Test</event></info></alert>`))
	require.NoError(t, err)

	assert.Equal(t, Area{}, alert.Info.Area)
	assert.Nil(t, alert.Info.Area.Geometry)
	assert.Nil(t, alert.Info.Area.Centroid)
	assert.NotEmpty(t, alert.Hash)
}

func TestParseAlert_AreaWithoutCoordinates(t *testing.T) {
	alert, err := ParseAlert([]byte(`<alert><info><area><areaDesc>Somewhere</areaDesc></area></info></alert>`))
	require.NoError(t, err)

	assert.Equal(t, "Somewhere", alert.Info.Area.AreaDesc)
	assert.Nil(t, alert.Info.Area.Geometry)
	assert.Nil(t, alert.Info.Area.Centroid)
}

func TestParseAlert_CircleFallback(t *testing.T) {
	alert, err := ParseAlert([]byte(`<alert><info><area><areaDesc>Port</areaDesc><circle>-6.8,39.28 5</circle></area></info></alert>`))
	require.NoError(t, err)

	area := alert.Info.Area
	require.NotNil(t, area.Geometry)
	require.NotNil(t, area.Centroid)
	assert.Equal(t, "Polygon", area.Geometry.Type)

	centroid := area.Centroid.Coordinates.(orb.Point)
	assert.InDelta(t, 39.28, centroid.Lon(), 1e-3)
	assert.InDelta(t, -6.8, centroid.Lat(), 1e-3)
}

func TestParseAlert_PolygonTakesPrecedence(t *testing.T) {
	alert, err := ParseAlert([]byte(`<alert><info><area>
  <polygon>0,0 0,2 2,2 2,0 0,0</polygon>
  <circle>50,50 1</circle>
</area></info></alert>`))
	require.NoError(t, err)

	centroid := alert.Info.Area.Centroid.Coordinates.(orb.Point)
	assert.InDelta(t, 1, centroid.Lon(), 1e-9)
	assert.InDelta(t, 1, centroid.Lat(), 1e-9)
}

func TestParseAlert_InvalidCoordinatesAreOmitted(t *testing.T) {
	alert, err := ParseAlert([]byte(`<alert><info><area><polygon>not coordinates</polygon></area></info></alert>`))
	require.NoError(t, err)

	assert.Equal(t, "not coordinates", alert.Info.Area.Polygon)
	assert.Nil(t, alert.Info.Area.Geometry)

	for _, area := range []string{
		`<circle>NaN,NaN 0</circle>`,
		`<polygon>1,1 2,2 NaN,3 1,1</polygon>`,
		`<circle>1,1 Inf</circle>`,
	} {
		alert, err := ParseAlert([]byte(`<alert><identifier>N1</identifier><info><area><areaDesc>x</areaDesc>` + area + `</area></info></alert>`))
		require.NoError(t, err, area)

		assert.Nil(t, alert.Info.Area.Geometry, area)
		assert.Nil(t, alert.Info.Area.Centroid, area)
		assert.Len(t, alert.Hash, 64, area)
	}
}

func TestParseAlert_ZonelessDatesAreUTC(t *testing.T) {
	alert, err := ParseAlert([]byte(`<alert><sent>2019-11-25 06:00:00</sent></alert>`))
	require.NoError(t, err)

	require.NotNil(t, alert.Sent)
	assert.Equal(t, time.UTC, alert.Sent.Location())
	assert.True(t, alert.Sent.Equal(time.Date(2019, 11, 25, 6, 0, 0, 0, time.UTC)))
}

func TestParseAlert_UnparseableDates(t *testing.T) {
	alert, err := ParseAlert([]byte(`<alert><sent>not a date</sent><info><onset></onset><expires>never</expires></info></alert>`))
	require.NoError(t, err)

	assert.Nil(t, alert.Sent)
	assert.Nil(t, alert.Info.Onset)
	assert.Nil(t, alert.Info.Expires)
}

func TestParseAlert_MultipleBlocks(t *testing.T) {
	doc := `<alert>
  <identifier>A-1</identifier>
  <code>IPAWSv1.0</code>
  <code>PROFILE:CAP-CP:0.4</code>
  <info>
    <language>en</language>
    <area><areaDesc>North</areaDesc></area>
    <area><areaDesc>South</areaDesc><circle>1,1 0</circle></area>
  </info>
  <info>
    <language>sw</language>
    <area><areaDesc>Kaskazini</areaDesc></area>
  </info>
</alert>`

	alert, err := ParseAlert([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"IPAWSv1.0", "PROFILE:CAP-CP:0.4"}, alert.Code)
	assert.Equal(t, "en", alert.Info.Language)
	assert.Equal(t, "North", alert.Info.Area.AreaDesc)
	require.Len(t, alert.Info.AdditionalAreas, 1)
	assert.Equal(t, "South", alert.Info.AdditionalAreas[0].AreaDesc)
	require.NotNil(t, alert.Info.AdditionalAreas[0].Geometry)
	assert.Equal(t, "Point", alert.Info.AdditionalAreas[0].Geometry.Type)

	require.Len(t, alert.AdditionalInfo, 1)
	assert.Equal(t, "sw", alert.AdditionalInfo[0].Language)
	assert.Equal(t, "Kaskazini", alert.AdditionalInfo[0].Area.AreaDesc)
}

func TestParseAlert_MalformedXML(t *testing.T) {
	alert, err := ParseAlert([]byte(`<alert><identifier>A-1</identifier>`))

	assert.Nil(t, alert)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, KindAlert, parseErr.Kind)
}

func TestAlert_JSON(t *testing.T) {
	alert, err := ParseAlert(readFixture(t, "alert.xml"))
	require.NoError(t, err)

	data, err := json.Marshal(alert)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	info := decoded["info"].(map[string]any)
	area := info["area"].(map[string]any)
	geometry := area["geometry"].(map[string]any)
	assert.Equal(t, "Polygon", geometry["type"])
	assert.Equal(t, alert.Hash, decoded["hash"])
	assert.NotContains(t, decoded, "$")
}
