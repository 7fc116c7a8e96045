package store

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
)

// Source mirrors a registry entry once observed by a crawl run. The
// registry itself is compiled-in; this row tracks the mutable
// per-source crawl state (reliability drift, last_crawled_at).
type Source struct {
  ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
  Name                string    `gorm:"uniqueIndex;not null"`
  URL                 string    `gorm:"uniqueIndex;not null"`
  Type                string    `gorm:"not null"`
  AuthorityType       string    `gorm:"not null"`
  Jurisdiction        string
  JurisdictionCountry string
  JurisdictionState   string
  ReliabilityTier     int `gorm:"not null"`
  LastCrawledAt       *time.Time
  CreatedAt           time.Time
  UpdatedAt           time.Time
}

func (Source) TableName() string { return "sources" }

// RegulationEvent is a single observed publication or update about a
// regulatory item, at a specific jurisdiction and lifecycle stage.
type RegulationEvent struct {
  ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
  Title               string    `gorm:"not null;index:idx_events_dedup,unique,priority:3"`
  JurisdictionCountry string    `gorm:"index;index:idx_events_dedup,unique,priority:2"`
  JurisdictionState   string
  Stage               string `gorm:"index;not null"`
  IsUnder16Applicable bool
  AgeBracket          string `gorm:"index;not null"`
  Impact              int    `gorm:"not null"`
  Likelihood          int    `gorm:"not null"`
  Confidence          int    `gorm:"not null"`
  Chili               int    `gorm:"not null"`
  Summary             string
  BusinessImpact      string
  RequiredSolutions   datatypes.JSON
  AffectedProducts    datatypes.JSON
  CompetitorResponses datatypes.JSON
  RawText             string
  SourceURLLink       string `gorm:"index:idx_events_dedup,unique,priority:1"`
  EffectiveDate       *string
  PublishedDate       *string `gorm:"index"`
  SourceID            uuid.UUID
  CreatedAt           time.Time
  UpdatedAt           time.Time `gorm:"index"`
}

func (RegulationEvent) TableName() string { return "regulation_events" }

// EventHistoryEntry is an append-only audit row for a RegulationEvent.
// Never mutated after insert.
type EventHistoryEntry struct {
  ID            uint      `gorm:"primaryKey;autoIncrement"`
  EventID       uuid.UUID `gorm:"index:idx_history_event,priority:1;not null"`
  ChangedAt     time.Time `gorm:"index:idx_history_event,priority:2;not null"`
  ChangedBy     string
  ChangeType    string `gorm:"not null"`
  FieldName     string
  PreviousValue string
  NewValue      string
}

func (EventHistoryEntry) TableName() string { return "event_history" }

// Law is the canonical grouping under which one or more
// RegulationEvents are merged by the backfill engine.
type Law struct {
  ID                           uuid.UUID `gorm:"type:uuid;primaryKey"`
  LawKey                       string    `gorm:"uniqueIndex;not null"`
  LawName                      string    `gorm:"not null"`
  JurisdictionCountry          string    `gorm:"index:idx_laws_jurisdiction,priority:1"`
  JurisdictionState            string    `gorm:"index:idx_laws_jurisdiction,priority:2"`
  LawType                      string
  Stage                        string `gorm:"index"`
  Status                       string
  FirstSeenAt                  time.Time
  LastSeenAt                   time.Time
  LatestEffectiveDate          *string
  AggregateRiskMax             int     `gorm:"index:idx_laws_risk,priority:1"`
  AggregateRiskRecentWeighted  float64 `gorm:"index:idx_laws_risk,priority:2"`
  AggregateRiskOverall         float64
  SourceConfidence             float64
  CreatedAt                    time.Time
  UpdatedAt                    time.Time
}

func (Law) TableName() string { return "laws" }

// LawUpdate is the one-to-many join between a Law and the
// RegulationEvent that was folded into it by backfill.
type LawUpdate struct {
  ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
  LawID         uuid.UUID `gorm:"index:idx_law_updates_law,priority:1;not null"`
  EventID       uuid.UUID `gorm:"uniqueIndex;not null"`
  Title         string
  Stage         string
  AgeBracket    string
  Impact        int
  Likelihood    int
  Confidence    int
  Chili         int
  Summary       string
  EffectiveDate *string
  PublishedDate *string `gorm:"index:idx_law_updates_law,priority:2"`
  RawMetadata   datatypes.JSON
  CreatedAt     time.Time `gorm:"index:idx_law_updates_law,priority:3"`
}

func (LawUpdate) TableName() string { return "law_updates" }

// CrawlRun records one invocation of the ingestion pipeline. At most
// one row may be in status "running" at a time (single-flight).
type CrawlRun struct {
  ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
  StartedAt    time.Time
  CompletedAt  *time.Time
  Status       string `gorm:"index;not null"`
  ItemsFound   int
  ItemsNew     int
  ItemsUpdated int
  ErrorMessage string
}

func (CrawlRun) TableName() string { return "crawl_runs" }

// Notification is the seeding contract consumed by out-of-scope
// email/webhook transport. The core only owns creation, never delivery.
type Notification struct {
  ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
  EventID   uuid.UUID `gorm:"index;not null"`
  Severity  string    `gorm:"not null"`
  CreatedAt time.Time
  Delivered bool
}

func (Notification) TableName() string { return "notifications" }
