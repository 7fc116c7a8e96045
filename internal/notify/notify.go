// Package notify seeds the notifications table the core hands off to
// out-of-scope email/webhook transport. It owns creation only, never
// delivery.
package notify

import (
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/regwatch/engine/internal/logger"
)

// Notification mirrors the store's persisted row; kept as a plain
// value object here so callers outside internal/store don't need to
// import its model package directly.
type Notification struct {
  EventID   string
  Severity  string
  CreatedAt time.Time
}

const (
  SeverityWarning  = "warning"
  SeverityCritical = "critical"

  highRiskThreshold     = 4
  criticalRiskThreshold = 5
)

// Notifier seeds notifications for newly created high-risk events.
type Notifier struct {
  db  *gorm.DB
  log *logger.Logger
}

func New(db *gorm.DB, log *logger.Logger) *Notifier {
  return &Notifier{db: db, log: log.With("component", "notify")}
}

// SeedIfHighRisk inserts a notification row when chili >= 4 (critical
// at >= 5). Events below the threshold produce no row and a nil
// Notification.
func (n *Notifier) SeedIfHighRisk(eventID string, chili int) (*Notification, error) {
  if chili < highRiskThreshold {
    return nil, nil
  }

  severity := SeverityWarning
  if chili >= criticalRiskThreshold {
    severity = SeverityCritical
  }

  id, err := uuid.Parse(eventID)
  if err != nil {
    return nil, fmt.Errorf("parse event id: %w", err)
  }

  createdAt := time.Now().UTC()
  row := notificationRow{
    ID:        uuid.New(),
    EventID:   id,
    Severity:  severity,
    CreatedAt: createdAt,
    Delivered: false,
  }
  if err := n.db.Create(&row).Error; err != nil {
    return nil, fmt.Errorf("create notification: %w", err)
  }

  n.log.Info("seeded notification", "event_id", eventID, "severity", severity)
  return &Notification{EventID: eventID, Severity: severity, CreatedAt: createdAt}, nil
}

// notificationRow mirrors store.Notification's columns without
// importing the store package, keeping notify a leaf dependency of
// coordinator rather than a cyclic one.
type notificationRow struct {
  ID        uuid.UUID `gorm:"column:id"`
  EventID   uuid.UUID `gorm:"column:event_id"`
  Severity  string    `gorm:"column:severity"`
  CreatedAt time.Time `gorm:"column:created_at"`
  Delivered bool      `gorm:"column:delivered"`
}

func (notificationRow) TableName() string { return "notifications" }
