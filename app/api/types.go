package api

import (
	"github.com/lysyi3m/cap-comb/app/database"
	"github.com/lysyi3m/cap-comb/app/snapshot"
	"github.com/lysyi3m/cap-comb/app/source"
	"github.com/lysyi3m/cap-comb/app/tasks"
)

// maxAlertBody caps the CAP document accepted by POST /alerts/parse.
const maxAlertBody = 16 << 20

type Handler struct {
	configCache *source.ConfigCache
	sourceRepo  database.SourceRepository
	snapshots   *snapshot.Store
	scheduler   tasks.TaskSchedulerInterface
	generator   *Generator
	version     string
}

type taskInfo struct {
	ID   string         `json:"id"`
	Type tasks.TaskType `json:"type"`
}
