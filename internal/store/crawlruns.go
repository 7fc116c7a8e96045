package store

import (
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
)

// ErrRunInProgress is returned by StartRun when a crawl_run row is
// already "running" -- the durable half of the single-flight guard.
var ErrRunInProgress = errors.New("crawl run already in progress")

// StartRun atomically creates a new crawl_run row, refusing to start
// if the latest run is still "running".
func (s *Store) StartRun() (CrawlRun, error) {
  var run CrawlRun
  err := s.db.Transaction(func(tx *gorm.DB) error {
    var latest CrawlRun
    err := tx.Order("started_at DESC").First(&latest).Error
    if err != nil && err != gorm.ErrRecordNotFound {
      return err
    }
    if err == nil && latest.Status == "running" {
      return ErrRunInProgress
    }

    run = CrawlRun{
      ID:        uuid.New(),
      StartedAt: time.Now().UTC(),
      Status:    "running",
    }
    return tx.Create(&run).Error
  })
  if err != nil {
    return CrawlRun{}, err
  }
  return run, nil
}

// CompleteRun marks a run "completed" with final item counts.
func (s *Store) CompleteRun(id uuid.UUID, itemsFound, itemsNew, itemsUpdated int) error {
  now := time.Now().UTC()
  return s.db.Model(&CrawlRun{}).Where("id = ?", id).Updates(map[string]interface{}{
    "status":        "completed",
    "completed_at":  now,
    "items_found":   itemsFound,
    "items_new":     itemsNew,
    "items_updated": itemsUpdated,
  }).Error
}

// FailRun marks a run "failed" with the orchestrator-level error
// message. Per-item failures never reach here; they are absorbed.
func (s *Store) FailRun(id uuid.UUID, message string) error {
  now := time.Now().UTC()
  return s.db.Model(&CrawlRun{}).Where("id = ?", id).Updates(map[string]interface{}{
    "status":        "failed",
    "completed_at":  now,
    "error_message": message,
  }).Error
}

// LatestRun returns the most recent crawl_run row, or
// gorm.ErrRecordNotFound if none has ever run.
func (s *Store) LatestRun() (CrawlRun, error) {
  var run CrawlRun
  err := s.db.Order("started_at DESC").First(&run).Error
  return run, err
}
