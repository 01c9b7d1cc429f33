package api

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/lysyi3m/cap-comb/app/alerting"
	"github.com/lysyi3m/cap-comb/app/snapshot"
	"github.com/paulmach/orb"
)

// Generator renders a source snapshot as an RSS 2.0 feed of its filtered
// alerts, one item per alert with the area centroid as a GeoRSS point.
type Generator struct {
	version string
}

func NewGenerator(version string) *Generator {
	return &Generator{version: version}
}

func (g *Generator) Run(snap snapshot.Snapshot, selfLink string) (string, error) {
	if snap.Feed == nil {
		return "", fmt.Errorf("snapshot for source %s has no feed", snap.Source)
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:georss="http://www.georss.org/georss">`)
	buf.WriteString("\n  <channel>\n")

	channel := snap.Feed.Channel
	g.writeElement(&buf, "title", cmp.Or(channel.String("title"), snap.Source), 4)
	g.writeElement(&buf, "link", channel.String("link"), 4)
	g.writeElement(&buf, "description", cmp.Or(channel.String("description"), fmt.Sprintf("Filtered CAP alerts from %s", snap.Source)), 4)

	if selfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(selfLink)))
	}

	g.writeElement(&buf, "lastBuildDate", snap.FetchedAt.In(time.Local).Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("CAP-Comb/%s", g.version), 4)
	g.writeElement(&buf, "language", channel.String("language"), 4)

	for _, alert := range snap.Feed.Items {
		if alert != nil {
			g.writeItem(&buf, alert)
		}
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, alert *alerting.Alert) {
	info := alert.Info

	buf.WriteString("    <item>\n")

	if alert.Identifier != "" {
		buf.WriteString("      <guid isPermaLink=\"false\">")
		xml.EscapeText(buf, []byte(alert.Identifier))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", cmp.Or(info.Headline, info.Event, alert.Identifier), 6)
	g.writeElement(buf, "link", info.Web, 6)
	g.writeElement(buf, "description", cmp.Or(info.Description, "No description available"), 6)

	if alert.Sent != nil {
		g.writeElement(buf, "pubDate", alert.Sent.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "author", alert.Sender, 6)

	for _, category := range info.Category {
		g.writeElement(buf, "category", category, 6)
	}
	if info.Severity != "" {
		buf.WriteString("      <category domain=\"severity\">")
		xml.EscapeText(buf, []byte(info.Severity))
		buf.WriteString("</category>\n")
	}

	if point, ok := centroidOf(info.Area); ok {
		// GeoRSS points are "lat lon".
		g.writeElement(buf, "georss:point", formatCoord(point.Lat())+" "+formatCoord(point.Lon()), 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func centroidOf(area alerting.Area) (orb.Point, bool) {
	if area.Centroid == nil {
		return orb.Point{}, false
	}
	point, ok := area.Centroid.Coordinates.(orb.Point)
	return point, ok
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
