package alerting

import (
	"time"

	"github.com/paulmach/orb/geojson"
)

// Alert is the canonical form of a CAP alert message.
type Alert struct {
	Identifier     string     `json:"identifier"`
	Sender         string     `json:"sender"`
	Sent           *time.Time `json:"sent,omitempty"`
	Status         string     `json:"status"`
	MsgType        string     `json:"msgType"`
	Source         string     `json:"source,omitempty"`
	Scope          string     `json:"scope"`
	Restriction    string     `json:"restriction,omitempty"`
	Addresses      string     `json:"addresses,omitempty"`
	Code           []string   `json:"code,omitempty"`
	Note           string     `json:"note,omitempty"`
	References     string     `json:"references,omitempty"`
	Incidents      string     `json:"incidents,omitempty"`
	Info           Info       `json:"info"`
	AdditionalInfo []Info     `json:"additionalInfo,omitempty"`
	Hash           string     `json:"hash,omitempty"`
}

// Info is one info block of an alert. Additional blocks usually carry the
// same alert in other languages.
type Info struct {
	Language        string      `json:"language,omitempty"`
	Category        []string    `json:"category,omitempty"`
	Event           string      `json:"event,omitempty"`
	ResponseType    []string    `json:"responseType,omitempty"`
	Urgency         string      `json:"urgency,omitempty"`
	Severity        string      `json:"severity,omitempty"`
	Certainty       string      `json:"certainty,omitempty"`
	Audience        string      `json:"audience,omitempty"`
	EventCodes      []ValuePair `json:"eventCodes,omitempty"`
	Effective       *time.Time  `json:"effective,omitempty"`
	Onset           *time.Time  `json:"onset,omitempty"`
	Expires         *time.Time  `json:"expires,omitempty"`
	SenderName      string      `json:"senderName,omitempty"`
	Headline        string      `json:"headline,omitempty"`
	Description     string      `json:"description,omitempty"`
	Instruction     string      `json:"instruction,omitempty"`
	Web             string      `json:"web,omitempty"`
	Contact         string      `json:"contact,omitempty"`
	Parameters      []ValuePair `json:"parameters,omitempty"`
	Resources       []Resource  `json:"resources,omitempty"`
	Area            Area        `json:"area"`
	AdditionalAreas []Area      `json:"additionalAreas,omitempty"`
}

// Area describes the geographic extent of an info block. Geometry and
// Centroid are derived from Polygon, or from Circle when no polygon is given.
type Area struct {
	AreaDesc string            `json:"areaDesc,omitempty"`
	Polygon  string            `json:"polygon,omitempty"`
	Circle   string            `json:"circle,omitempty"`
	Geocodes []ValuePair       `json:"geocodes,omitempty"`
	Altitude string            `json:"altitude,omitempty"`
	Ceiling  string            `json:"ceiling,omitempty"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
	Centroid *geojson.Geometry `json:"centroid,omitempty"`
}

// ValuePair is a CAP valueName/value pair used by eventCode, parameter and
// geocode elements.
type ValuePair struct {
	ValueName string `json:"valueName"`
	Value     string `json:"value"`
}

type Resource struct {
	ResourceDesc string `json:"resourceDesc,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	Size         string `json:"size,omitempty"`
	URI          string `json:"uri,omitempty"`
	DerefURI     string `json:"derefUri,omitempty"`
	Digest       string `json:"digest,omitempty"`
}

// Feed is a parsed distribution feed: channel metadata plus items in
// document order. Items are normalized trees or fetched alerts.
type Feed[T any] struct {
	Channel Tree `json:"channel"`
	Items   []T  `json:"items"`
}

// Links returns the link of every item that has one, in item order.
func Links(items []Tree) []string {
	links := make([]string, 0, len(items))
	for _, item := range items {
		if link := item.String("link"); link != "" {
			links = append(links, link)
		}
	}
	return links
}
