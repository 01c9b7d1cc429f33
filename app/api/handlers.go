package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/cap-comb/app/alerting"
	"github.com/lysyi3m/cap-comb/app/database"
	"github.com/lysyi3m/cap-comb/app/snapshot"
	"github.com/lysyi3m/cap-comb/app/source"
	"github.com/lysyi3m/cap-comb/app/tasks"
)

func NewHandler(configCache *source.ConfigCache, sourceRepo database.SourceRepository,
	snapshots *snapshot.Store, scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		configCache: configCache,
		sourceRepo:  sourceRepo,
		snapshots:   snapshots,
		scheduler:   scheduler,
		generator:   NewGenerator(version),
		version:     version,
	}
}

func (h *Handler) GetSourceAlerts(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	snap, ok := h.snapshots.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No alerts fetched yet"})
		return
	}

	c.Header("X-Source-Name", name)
	c.Header("X-Alert-Count", strconv.Itoa(len(snap.Feed.Items)))
	c.Header("X-Last-Fetched", snap.FetchedAt.Format(time.RFC3339))

	c.JSON(http.StatusOK, snap)
}

// GetSourceFeed serves the latest filtered alerts of a source as RSS.
func (h *Handler) GetSourceFeed(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	snap, ok := h.snapshots.Get(name)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	rss, err := h.generator.Run(snap, selfLink(c))
	if err != nil {
		slog.Error("RSS generation error", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("X-Source-Name", name)
	c.Header("X-Alert-Count", strconv.Itoa(len(snap.Feed.Items)))
	c.Header("X-Last-Fetched", snap.FetchedAt.Format(time.RFC3339))

	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

// ParseAlert canonicalizes the CAP document in the request body.
func (h *Handler) ParseAlert(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxAlertBody))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Alert document too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	alert, err := alerting.ParseAlert(data)
	if err != nil {
		slog.Debug("Alert parse failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid CAP document", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, alert)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"version":               h.version,
		"loaded_configurations": h.configCache.GetConfigCount(),
		"snapshots":             h.snapshots.Len(),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(c.Request.Context()); err == nil {
		health["sources"] = sourceCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]gin.H, 0, len(names))
	for _, name := range names {
		sourceConfig := configs[name]
		sourceInfo := gin.H{
			"name":             sourceConfig.Name,
			"url":              sourceConfig.URL,
			"enabled":          sourceConfig.Settings.Enabled,
			"max_alerts":       sourceConfig.Settings.MaxAlerts,
			"refresh_interval": sourceConfig.RefreshInterval().String(),
			"filters":          len(sourceConfig.Filters),
		}

		src, err := h.sourceRepo.GetSource(c.Request.Context(), name)
		if err != nil {
			slog.Error("Database error", "operation", "get_source", "source", name, "error", err)
		}
		if src != nil {
			sourceInfo["title"] = src.Title
			sourceInfo["alert_count"] = src.AlertCount
			sourceInfo["last_error"] = src.LastError
			sourceInfo["last_fetched_at"] = src.LastFetchedAt
			sourceInfo["last_success_at"] = src.LastSuccessAt
			sourceInfo["next_fetch_at"] = src.NextFetchAt
		}

		sources = append(sources, sourceInfo)
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"total":   len(sources),
	})
}

// APIRefreshSource reloads the source configuration from disk and queues an
// immediate fetch.
func (h *Handler) APIRefreshSource(c *gin.Context) {
	name := c.Param("name")

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	sourceConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	if err := h.sourceRepo.UpsertSource(c.Request.Context(), sourceConfig.Name, sourceConfig.URL); err != nil {
		slog.Error("Database error", "operation", "upsert_source", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if !sourceConfig.Settings.Enabled {
		c.JSON(http.StatusConflict, gin.H{"error": "Source is disabled"})
		return
	}

	task, err := h.scheduler.RefreshSource(sourceConfig)
	if err != nil {
		slog.Warn("Error enqueueing fetch task", "source", name, "error", err)
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Failed to enqueue fetch task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Configuration reloaded and fetch enqueued",
		"source": gin.H{
			"name": sourceConfig.Name,
			"url":  sourceConfig.URL,
		},
		"tasks": []taskInfo{{ID: task.GetID(), Type: task.GetType()}},
	})
}

func selfLink(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.Path
}
