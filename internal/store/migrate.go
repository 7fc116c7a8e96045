package store

import (
  "fmt"

  "gorm.io/gorm"
)

// migrate runs AutoMigrate for every model this package owns, then
// layers on the additive guards (new columns, extra indexes) that
// AutoMigrate alone won't backfill onto an existing table. Never
// drops or re-types a column.
func migrate(db *gorm.DB) error {
  if err := db.AutoMigrate(
    &Source{},
    &RegulationEvent{},
    &EventHistoryEntry{},
    &Law{},
    &LawUpdate{},
    &CrawlRun{},
    &Notification{},
  ); err != nil {
    return fmt.Errorf("auto migrate: %w", err)
  }

  if err := ensureColumn(db, &RegulationEvent{}, "raw_text", "TEXT"); err != nil {
    return err
  }

  indexes := []struct {
    name  string
    table string
    cols  string
  }{
    {"idx_events_stage", "regulation_events", "stage"},
    {"idx_events_jurisdiction_country", "regulation_events", "jurisdiction_country"},
    {"idx_events_jurisdiction_state", "regulation_events", "jurisdiction_state"},
    {"idx_events_age_bracket", "regulation_events", "age_bracket"},
    {"idx_events_published_date", "regulation_events", "published_date"},
    {"idx_events_updated_at", "regulation_events", "updated_at"},
    {"idx_history_event_changed", "event_history", "event_id, changed_at DESC"},
    {"idx_laws_stage", "laws", "stage"},
    {"idx_laws_risk", "laws", "aggregate_risk_max DESC, aggregate_risk_recent_weighted DESC"},
  }
  for _, idx := range indexes {
    stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, idx.table, idx.cols)
    if err := db.Exec(stmt).Error; err != nil {
      return fmt.Errorf("create index %s: %w", idx.name, err)
    }
  }

  return nil
}

// ensureColumn adds a column to model's table only if it's missing,
// mirroring GORM's own HasColumn/AddColumn guard that AutoMigrate
// already leans on for new models -- made explicit here because
// raw_text predates the cap invariant and might be hand-edited in
// older deployments.
func ensureColumn(db *gorm.DB, model interface{}, column, sqlType string) error {
  migrator := db.Migrator()
  if migrator.HasColumn(model, column) {
    return nil
  }
  return migrator.AddColumn(model, column)
}
