package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lysyi3m/cap-comb/app/source"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	queueSize     = 300
	taskTimeout   = 5 * time.Minute
	maxRetryDelay = 30 * time.Second
)

type Scheduler struct {
	deps        *Deps
	clock       clockwork.Clock
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	// sources with a fetch task queued, running or waiting for a retry
	pendingMu sync.Mutex
	pending   map[string]bool
}

func NewScheduler(deps *Deps, interval time.Duration, workerCount int) *Scheduler {
	deps.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		deps:        deps,
		clock:       deps.Clock,
		interval:    interval,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
		pending:     make(map[string]bool),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := s.clock.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.Chan():
				s.enqueueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		s.deps.Metrics.QueueDepth.Set(float64(len(s.taskQueue)))
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// RefreshSource enqueues an immediate fetch of the source, ignoring its
// next fetch time.
func (s *Scheduler) RefreshSource(sourceConfig *source.Config) (TaskInterface, error) {
	task := NewFetchAlertsTask(sourceConfig, s.deps)
	if err := s.enqueueFetch(task); err != nil {
		return nil, err
	}
	return task, nil
}

// enqueueStartupTasks registers every configured source before any fetch is
// queued, so fetch results always have a row to update.
func (s *Scheduler) enqueueStartupTasks() {
	sourceConfigs := s.deps.ConfigCache.GetConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No source configurations found")
		return
	}

	slog.Debug("Processing source configurations", "count", len(sourceConfigs))
	s.deps.Metrics.SourcesLoaded.Set(float64(len(sourceConfigs)))

	for _, sourceConfig := range sourceConfigs {
		syncTask := NewSyncSourceTask(sourceConfig, s.deps)
		syncTask.Start()
		if err := syncTask.Execute(s.ctx); err != nil {
			slog.Warn("Failed to sync source", "source", sourceConfig.Name, "error", err)
			continue
		}

		if !sourceConfig.Settings.Enabled {
			slog.Debug("Source disabled, skipping FetchAlertsTask", "source", sourceConfig.Name)
			continue
		}

		if err := s.enqueueFetch(NewFetchAlertsTask(sourceConfig, s.deps)); err != nil {
			slog.Warn("Failed to enqueue FetchAlertsTask", "source", sourceConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	sourceConfigs := s.deps.ConfigCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	slog.Debug("Processing enabled source configurations for task scheduling", "count", len(sourceConfigs))

	now := s.clock.Now().UTC()
	for _, sourceConfig := range sourceConfigs {
		src, err := s.deps.SourceRepo.GetSource(s.ctx, sourceConfig.Name)
		if err != nil {
			slog.Warn("Failed to get source from database, skipping", "source", sourceConfig.Name, "error", err)
			continue
		}
		if src == nil {
			slog.Warn("Source not found in database, skipping", "source", sourceConfig.Name)
			continue
		}

		if src.NextFetchAt != nil && src.NextFetchAt.After(now) {
			slog.Debug("Source not due for refresh yet", "source", sourceConfig.Name, "next_fetch_at", src.NextFetchAt)
			continue
		}

		if err := s.enqueueFetch(NewFetchAlertsTask(sourceConfig, s.deps)); err != nil {
			slog.Debug("FetchAlertsTask not enqueued", "source", sourceConfig.Name, "error", err)
		}
	}
}

// enqueueFetch queues a fetch unless one is already pending for the source.
func (s *Scheduler) enqueueFetch(task *FetchAlertsTask) error {
	name := task.GetSourceName()

	s.pendingMu.Lock()
	if s.pending[name] {
		s.pendingMu.Unlock()
		return fmt.Errorf("fetch already pending for source %s", name)
	}
	s.pending[name] = true
	s.pendingMu.Unlock()

	if err := s.EnqueueTask(task); err != nil {
		s.release(task)
		return err
	}
	return nil
}

func (s *Scheduler) release(task TaskInterface) {
	if task.GetType() != TaskTypeFetchAlerts {
		return
	}
	s.pendingMu.Lock()
	delete(s.pending, task.GetSourceName())
	s.pendingMu.Unlock()
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.deps.Metrics.QueueDepth.Set(float64(len(s.taskQueue)))
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		s.release(task)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		s.release(task)
		return
	}

	task.IncrementRetryCount()
	retryDelay := retryDelayFor(task.GetRetryCount())
	s.deps.Metrics.TaskRetries.WithLabelValues(string(task.GetType())).Inc()

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		case <-s.clock.After(retryDelay):
		}

		if retryErr := s.EnqueueTask(task); retryErr != nil {
			slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			s.release(task)
		}
	}()
}

// retryDelayFor doubles from one second per attempt, capped at maxRetryDelay.
func retryDelayFor(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
