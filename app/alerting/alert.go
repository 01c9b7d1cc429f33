package alerting

import (
	"bytes"
	"io"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// ParseAlert parses a CAP alert document into its canonical form.
func ParseAlert(data []byte) (*Alert, error) {
	return DecodeAlert(bytes.NewReader(data))
}

// DecodeAlert reads a CAP alert document from r and canonicalizes it:
// parser artifacts are dropped, dates are coerced, area geometry is derived
// and the content hash is computed over the result. Malformed XML yields a
// *ParseError and no alert.
func DecodeAlert(r io.Reader) (*Alert, error) {
	tree, err := DecodeXML(r)
	if err != nil {
		return nil, &ParseError{Kind: KindAlert, Err: err}
	}

	alert := alertFromTree(Normalize(tree))

	hash, err := HashOf(alert)
	if err != nil {
		return nil, &ParseError{Kind: KindAlert, Err: err}
	}
	alert.Hash = hash

	return alert, nil
}

func alertFromTree(t Tree) *Alert {
	alert := &Alert{
		Identifier:  t.String("identifier"),
		Sender:      t.String("sender"),
		Sent:        parseTime(t.String("sent")),
		Status:      t.String("status"),
		MsgType:     t.String("msgType"),
		Source:      t.String("source"),
		Scope:       t.String("scope"),
		Restriction: t.String("restriction"),
		Addresses:   t.String("addresses"),
		Code:        t.Strings("code"),
		Note:        t.String("note"),
		References:  t.String("references"),
		Incidents:   t.String("incidents"),
	}

	for i, block := range t.Trees("info") {
		info := infoFromTree(Normalize(block))
		if i == 0 {
			alert.Info = info
			continue
		}
		alert.AdditionalInfo = append(alert.AdditionalInfo, info)
	}

	return alert
}

func infoFromTree(t Tree) Info {
	info := Info{
		Language:     t.String("language"),
		Category:     t.Strings("category"),
		Event:        t.String("event"),
		ResponseType: t.Strings("responseType"),
		Urgency:      t.String("urgency"),
		Severity:     t.String("severity"),
		Certainty:    t.String("certainty"),
		Audience:     t.String("audience"),
		EventCodes:   valuePairs(t.Trees("eventCode")),
		Effective:    parseTime(t.String("effective")),
		Onset:        parseTime(t.String("onset")),
		Expires:      parseTime(t.String("expires")),
		SenderName:   t.String("senderName"),
		Headline:     t.String("headline"),
		Description:  t.String("description"),
		Instruction:  t.String("instruction"),
		Web:          t.String("web"),
		Contact:      t.String("contact"),
		Parameters:   valuePairs(t.Trees("parameter")),
	}

	for _, resource := range t.Trees("resource") {
		info.Resources = append(info.Resources, Resource{
			ResourceDesc: resource.String("resourceDesc"),
			MimeType:     resource.String("mimeType"),
			Size:         resource.String("size"),
			URI:          resource.String("uri"),
			DerefURI:     resource.String("derefUri"),
			Digest:       resource.String("digest"),
		})
	}

	for i, block := range t.Trees("area") {
		area := areaFromTree(Normalize(block))
		if i == 0 {
			info.Area = area
			continue
		}
		info.AdditionalAreas = append(info.AdditionalAreas, area)
	}

	return info
}

func areaFromTree(t Tree) Area {
	area := Area{
		AreaDesc: t.String("areaDesc"),
		Polygon:  strings.TrimSpace(t.String("polygon")),
		Circle:   strings.TrimSpace(t.String("circle")),
		Geocodes: valuePairs(t.Trees("geocode")),
		Altitude: t.String("altitude"),
		Ceiling:  t.String("ceiling"),
	}
	attachGeometry(&area)
	return area
}

// attachGeometry derives geometry and centroid from the polygon, falling
// back to the circle. Unparseable coordinates leave both unset.
func attachGeometry(area *Area) {
	coordinates := area.Polygon
	if coordinates == "" {
		coordinates = area.Circle
	}
	if coordinates == "" {
		return
	}

	geometry, err := ParseCoordinateString(coordinates)
	if err != nil {
		return
	}

	area.Geometry = geojson.NewGeometry(geometry)
	area.Centroid = geojson.NewGeometry(Centroid(geometry))
}

func valuePairs(trees []Tree) []ValuePair {
	var pairs []ValuePair
	for _, t := range trees {
		pairs = append(pairs, ValuePair{
			ValueName: t.String("valueName"),
			Value:     t.String("value"),
		})
	}
	return pairs
}
