package handlers

import (
  "context"
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"
  "gorm.io/gorm"

  "github.com/regwatch/engine/internal/backfill"
  "github.com/regwatch/engine/internal/coordinator"
  "github.com/regwatch/engine/internal/logger"
  "github.com/regwatch/engine/internal/registry"
  "github.com/regwatch/engine/internal/store"
)

type CrawlHandler struct {
  coordinator *coordinator.Coordinator
  store       *store.Store
  log         *logger.Logger
}

func NewCrawlHandler(c *coordinator.Coordinator, s *store.Store, log *logger.Logger) *CrawlHandler {
  return &CrawlHandler{coordinator: c, store: s, log: log.With("handler", "crawl")}
}

// Trigger handles POST /api/crawl/trigger. Returns "started" and the
// new run's id immediately, or "conflict" if one is already running.
func (h *CrawlHandler) Trigger(c *gin.Context) {
  run, err := h.coordinator.TriggerAsync(context.Background(), registry.All())
  if err != nil {
    if errors.Is(err, coordinator.ErrConflict) {
      latest, _ := h.store.LatestRun()
      RespondOK(c, gin.H{"status": "conflict", "run_id": latest.ID})
      return
    }
    if errors.Is(err, coordinator.ErrAnalyzerNotConfigured) {
      RespondError(c, http.StatusPreconditionFailed, "analyzer_not_configured", err)
      return
    }
    RespondError(c, http.StatusInternalServerError, "trigger_failed", err)
    return
  }

  RespondOK(c, gin.H{"status": "started", "run_id": run.ID})
}

// Status handles GET /api/crawl/status.
func (h *CrawlHandler) Status(c *gin.Context) {
  run, err := h.store.LatestRun()
  if errors.Is(err, gorm.ErrRecordNotFound) {
    RespondOK(c, gin.H{"status": "never_run"})
    return
  }
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "status_failed", err)
    return
  }
  RespondOK(c, run)
}

// RebuildLaws handles POST /api/laws/rebuild, triggering §4.6 on
// demand outside the crawl cycle.
func (h *CrawlHandler) RebuildLaws(c *gin.Context) {
  result, err := backfill.Run(h.store.DB(), h.log)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "backfill_failed", err)
    return
  }
  RespondOK(c, result)
}
