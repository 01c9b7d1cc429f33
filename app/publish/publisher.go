package publish

import (
	"context"

	"github.com/lysyi3m/cap-comb/app/alerting"
)

// Publisher hands canonical alerts of one source to a downstream sink.
type Publisher interface {
	Publish(ctx context.Context, source string, alerts []*alerting.Alert) error
	Close() error
}

// NoopPublisher discards alerts. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []*alerting.Alert) error { return nil }

func (NoopPublisher) Close() error { return nil }
