package tasks

import "github.com/lysyi3m/cap-comb/app/source"

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to manage background source polling.
// Example usage:
//
//	scheduler := NewScheduler(deps, interval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewSyncSourceTask(sourceConfig, deps))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	RefreshSource(sourceConfig *source.Config) (TaskInterface, error)
}
