package store

import (
  "fmt"
  "time"

  "gorm.io/driver/sqlite"
  "gorm.io/gorm"

  "github.com/regwatch/engine/internal/logger"
)

// Store owns the durable state of the ingestion engine. It is opened
// once per process. Writes go through its methods or through the
// *gorm.DB returned by DB(); the pool is capped at one open connection,
// so writes are serialized.
type Store struct {
  db  *gorm.DB
  log *logger.Logger
}

// New opens the database at path (":memory:" permitted for tests),
// migrates the schema, and reconciles any crawl_run left "running" by
// a prior process that crashed or was killed.
func New(path string, log *logger.Logger) (*Store, error) {
  storeLog := log.With("component", "store")

  storeLog.Info("opening database", "path", path)
  db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
  if err != nil {
    storeLog.Error("failed to open database", "error", err)
    return nil, fmt.Errorf("open database: %w", err)
  }

  sqlDB, err := db.DB()
  if err != nil {
    return nil, fmt.Errorf("underlying sql.DB: %w", err)
  }
  sqlDB.SetMaxOpenConns(1)

  if err := migrate(db); err != nil {
    storeLog.Error("migration failed", "error", err)
    return nil, fmt.Errorf("migrate: %w", err)
  }

  s := &Store{db: db, log: storeLog}

  if err := s.reconcileOrphanedRuns(); err != nil {
    return nil, fmt.Errorf("reconcile orphaned runs: %w", err)
  }

  return s, nil
}

// reconcileOrphanedRuns marks any crawl_run still "running" from a
// prior process as "failed". The single-flight invariant guarantees
// at most one such row exists.
func (s *Store) reconcileOrphanedRuns() error {
  result := s.db.Model(&CrawlRun{}).
    Where("status = ?", "running").
    Updates(map[string]interface{}{
      "status":        "failed",
      "error_message": "interrupted by restart",
      "completed_at":  time.Now().UTC(),
    })
  if result.Error != nil {
    return result.Error
  }
  if result.RowsAffected > 0 {
    s.log.Warn("reconciled orphaned running crawl run(s) at startup", "count", result.RowsAffected)
  }
  return nil
}

// DB exposes the underlying *gorm.DB for callers (backfill, the
// coordinator's persist transaction, notify) that run their own
// queries, writes, or transactions beyond this package's methods.
func (s *Store) DB() *gorm.DB {
  return s.db
}
