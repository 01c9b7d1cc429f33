package alerting

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFeed is wrapped by ParseError when a document parses as a
// feed format other than RSS or Atom.
var ErrUnsupportedFeed = errors.New("unsupported feed format")

// TransportError reports a failed HTTP exchange or a broken source stream.
// StatusCode is zero when no response was received.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error: %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	if e.URL == "" {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Kinds of documents a ParseError can refer to.
const (
	KindAlert = "alert"
	KindFeed  = "feed"
)

// ParseError reports a document that could not be parsed.
type ParseError struct {
	Kind string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FetchAlertsError reports the alert fetch that failed a FetchAlerts call.
type FetchAlertsError struct {
	FeedURL string
	URL     string
	Err     error
}

func (e *FetchAlertsError) Error() string {
	return fmt.Sprintf("failed to fetch alert %s from feed %s: %v", e.URL, e.FeedURL, e.Err)
}

func (e *FetchAlertsError) Unwrap() error {
	return e.Err
}
