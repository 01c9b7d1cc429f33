package source

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/cap-comb/app/alerting"
	"golang.org/x/text/cases"
)

// filterFields lists the alert fields a source filter may match against.
var filterFields = map[string]bool{
	"event":       true,
	"headline":    true,
	"description": true,
	"instruction": true,
	"severity":    true,
	"urgency":     true,
	"certainty":   true,
	"category":    true,
	"status":      true,
	"msgType":     true,
	"areaDesc":    true,
	"sender":      true,
	"senderName":  true,
	"language":    true,
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns the alerts that pass every filter of the source, keeping
// their order.
func (f *Filterer) Run(alerts []*alerting.Alert, sourceConfig *Config) []*alerting.Alert {
	if len(sourceConfig.Filters) == 0 {
		return alerts
	}

	// Casers are stateful; one per run keeps them off shared goroutines.
	fold := cases.Fold()

	kept := make([]*alerting.Alert, 0, len(alerts))
	for _, alert := range alerts {
		isFiltered, filterReason := f.applyFilters(fold, alert, sourceConfig.Filters)
		if isFiltered {
			slog.Debug("Alert filtered", "source", sourceConfig.Name, "identifier", alert.Identifier, "reason", filterReason)
			continue
		}
		kept = append(kept, alert)
	}

	return kept
}

func (f *Filterer) applyFilters(fold cases.Caser, alert *alerting.Alert, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := fold.String(f.getFieldValue(alert, filter.Field))

		for _, exclude := range filter.Excludes {
			if strings.Contains(value, fold.String(exclude)) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if strings.Contains(value, fold.String(include)) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) getFieldValue(alert *alerting.Alert, field string) string {
	infos := append([]alerting.Info{alert.Info}, alert.AdditionalInfo...)

	var values []string
	for _, info := range infos {
		switch field {
		case "event":
			values = append(values, info.Event)
		case "headline":
			values = append(values, info.Headline)
		case "description":
			values = append(values, plainText(info.Description))
		case "instruction":
			values = append(values, plainText(info.Instruction))
		case "severity":
			values = append(values, info.Severity)
		case "urgency":
			values = append(values, info.Urgency)
		case "certainty":
			values = append(values, info.Certainty)
		case "category":
			values = append(values, info.Category...)
		case "senderName":
			values = append(values, info.SenderName)
		case "language":
			values = append(values, info.Language)
		case "areaDesc":
			values = append(values, info.Area.AreaDesc)
			for _, area := range info.AdditionalAreas {
				values = append(values, area.AreaDesc)
			}
		}
	}

	switch field {
	case "status":
		values = append(values, alert.Status)
	case "msgType":
		values = append(values, alert.MsgType)
	case "sender":
		values = append(values, alert.Sender)
	}

	return strings.Join(values, " ")
}

// plainText strips markup some agencies embed in free-text alert fields.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}
