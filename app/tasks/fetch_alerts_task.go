package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/cap-comb/app/alerting"
	"github.com/lysyi3m/cap-comb/app/database"
	"github.com/lysyi3m/cap-comb/app/observability"
	"github.com/lysyi3m/cap-comb/app/source"
)

// FetchAlertsTask polls one source: feed, linked alerts, filters. The kept
// alerts replace the source snapshot and are handed to the publisher.
type FetchAlertsTask struct {
	Task
	SourceConfig *source.Config
	deps         *Deps
}

func NewFetchAlertsTask(sourceConfig *source.Config, deps *Deps) *FetchAlertsTask {
	return &FetchAlertsTask{
		Task:         NewTask(TaskTypeFetchAlerts, sourceConfig.Name, deps.Clock),
		SourceConfig: sourceConfig,
		deps:         deps,
	}
}

func (t *FetchAlertsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	metrics := t.deps.Metrics
	started := t.deps.Clock.Now()

	opts := t.SourceConfig.FetchOptions(t.deps.UserAgent, t.deps.FetchConcurrency)
	feed, err := t.deps.Client.FetchAlerts(ctx, opts)

	fetchedAt := t.deps.Clock.Now().UTC()
	nextFetchAt := fetchedAt.Add(t.SourceConfig.RefreshInterval())

	metrics.Fetches.WithLabelValues(t.SourceName, observability.FetchOutcome(err)).Inc()
	metrics.FetchDuration.WithLabelValues(t.SourceName).Observe(fetchedAt.Sub(started).Seconds())

	if err != nil {
		if recordErr := t.deps.SourceRepo.RecordFailure(ctx, t.SourceName, fetchedAt, nextFetchAt, err); recordErr != nil {
			slog.Warn("Failed to record fetch failure", "source", t.SourceName, "error", recordErr)
		}
		return fmt.Errorf("failed to fetch alerts: %w", err)
	}

	alerts := t.deps.Filterer.Run(feed.Items, t.SourceConfig)
	filteredCount := len(feed.Items) - len(alerts)

	if limit := t.SourceConfig.Settings.MaxAlerts; limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}

	metrics.AlertsFetched.WithLabelValues(t.SourceName).Add(float64(len(feed.Items)))
	metrics.AlertsFiltered.WithLabelValues(t.SourceName).Add(float64(filteredCount))

	t.deps.Snapshots.Put(t.SourceName, &alerting.Feed[*alerting.Alert]{Channel: feed.Channel, Items: alerts}, fetchedAt)

	err = t.deps.SourceRepo.RecordSuccess(ctx, t.SourceName, database.FetchResult{
		Title:       feed.Channel.String("title"),
		Link:        feed.Channel.String("link"),
		Language:    feed.Channel.String("language"),
		AlertCount:  len(alerts),
		FetchedAt:   fetchedAt,
		NextFetchAt: nextFetchAt,
	})
	if err != nil {
		return fmt.Errorf("failed to record fetch result: %w", err)
	}

	if err := t.deps.Publisher.Publish(ctx, t.SourceName, alerts); err != nil {
		metrics.PublishErrors.WithLabelValues(t.SourceName).Inc()
		return fmt.Errorf("failed to publish alerts: %w", err)
	}
	metrics.AlertsPublished.WithLabelValues(t.SourceName).Add(float64(len(alerts)))

	slog.Info("Task completed",
		"type", "FetchAlerts",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"total", len(feed.Items),
		"filtered", filteredCount,
		"kept", len(alerts))

	return nil
}
