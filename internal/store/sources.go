package store

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/regwatch/engine/internal/registry"
)

// EnsureSource inserts a Source on first observation, or updates its
// reliability tier and last_crawled_at on subsequent crawls. Never
// deletes. Must be called within the caller's enclosing transaction.
func (s *Store) EnsureSource(tx *gorm.DB, src registry.Source) (Source, error) {
  db := s.txOrDB(tx)

  var existing Source
  err := db.Where("name = ?", src.Name).First(&existing).Error
  now := time.Now().UTC()

  if err == gorm.ErrRecordNotFound {
    existing = Source{
      ID:                  uuid.New(),
      Name:                src.Name,
      URL:                 src.URL,
      Type:                string(src.Type),
      AuthorityType:       string(src.AuthorityType),
      Jurisdiction:        src.Jurisdiction,
      JurisdictionCountry: src.JurisdictionCountry,
      JurisdictionState:   src.JurisdictionState,
      ReliabilityTier:     src.ReliabilityTier,
      LastCrawledAt:       &now,
      CreatedAt:           now,
      UpdatedAt:           now,
    }
    if err := db.Create(&existing).Error; err != nil {
      return Source{}, err
    }
    return existing, nil
  }
  if err != nil {
    return Source{}, err
  }

  existing.ReliabilityTier = src.ReliabilityTier
  existing.LastCrawledAt = &now
  existing.UpdatedAt = now
  if err := db.Save(&existing).Error; err != nil {
    return Source{}, err
  }
  return existing, nil
}

func (s *Store) txOrDB(tx *gorm.DB) *gorm.DB {
  if tx != nil {
    return tx
  }
  return s.db
}
