package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/cap-comb/app/source"
)

type SyncSourceTask struct {
	Task
	SourceConfig *source.Config
	deps         *Deps
}

func NewSyncSourceTask(sourceConfig *source.Config, deps *Deps) *SyncSourceTask {
	return &SyncSourceTask{
		Task:         NewTask(TaskTypeSyncSource, sourceConfig.Name, deps.Clock),
		SourceConfig: sourceConfig,
		deps:         deps,
	}
}

func (t *SyncSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.deps.SourceRepo.UpsertSource(ctx, t.SourceConfig.Name, t.SourceConfig.URL); err != nil {
		return fmt.Errorf("failed to sync source config to database: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncSource",
		"source", t.SourceName,
		"duration", t.GetDuration())

	return nil
}
