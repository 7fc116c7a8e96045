package store

import (
  "crypto/sha1"
  "encoding/hex"
  "encoding/json"
  "regexp"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

const rawTextCap = 5000

// UpsertResult is the three-way outcome of UpsertEvent.
type UpsertResult string

const (
  ResultNew       UpsertResult = "new"
  ResultUpdated   UpsertResult = "updated"
  ResultDuplicate UpsertResult = "duplicate"
)

// UpsertInput is the value object the analyzer/coordinator build per
// item before it crosses into the store.
type UpsertInput struct {
  Title               string
  JurisdictionCountry string
  JurisdictionState   string
  Stage               string
  IsUnder16Applicable bool
  AgeBracket          string
  Impact              int
  Likelihood          int
  Confidence          int
  Chili               int
  Summary             string
  BusinessImpact      string
  RequiredSolutions   []string
  AffectedProducts    []string
  CompetitorResponses []string
  RawText             string
  SourceURLLink       string
  EffectiveDate       *string
  PublishedDate       *string
  SourceID            uuid.UUID
}

var wsRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
  return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

func textHash(s string) string {
  sum := sha1.Sum([]byte(strings.ToLower(collapseWhitespace(s))))
  return hex.EncodeToString(sum[:])
}

func regulationKey(country, state, title string) string {
  return strings.ToLower(country) + "|" + strings.ToLower(state) + "|" + strings.ToLower(title)
}

// UpsertEvent implements the §4.4 dedup algorithm. Must run inside the
// caller's enclosing transaction (tx non-nil in production use; nil
// falls back to the store's own db handle, used by tests).
func (s *Store) UpsertEvent(tx *gorm.DB, in UpsertInput) (UpsertResult, uuid.UUID, error) {
  db := s.txOrDB(tx)

  if len([]rune(in.RawText)) > rawTextCap {
    in.RawText = string([]rune(in.RawText)[:rawTextCap])
  }

  incomingKey := regulationKey(in.JurisdictionCountry, in.JurisdictionState, in.Title)
  normalizedURL := strings.ToLower(strings.TrimSpace(in.SourceURLLink))
  contentHash := textHash(in.RawText)

  var candidates []RegulationEvent
  if err := db.
    Where("LOWER(jurisdiction_country) = LOWER(?) AND LOWER(COALESCE(jurisdiction_state, '')) = LOWER(?) AND (LOWER(title) = LOWER(?) OR LOWER(source_url_link) = LOWER(?))",
      in.JurisdictionCountry, in.JurisdictionState, in.Title, in.SourceURLLink).
    Order("updated_at DESC").
    Find(&candidates).Error; err != nil {
    return "", uuid.Nil, err
  }

  var match *RegulationEvent
  for i := range candidates {
    c := candidates[i]
    candURL := strings.ToLower(strings.TrimSpace(c.SourceURLLink))
    candKey := regulationKey(c.JurisdictionCountry, c.JurisdictionState, c.Title)
    candHash := textHash(c.RawText)

    bothURLsPresent := normalizedURL != "" && candURL != ""
    urlMatch := bothURLsPresent && normalizedURL == candURL && candKey == incomingKey
    noDistinctURLs := !(normalizedURL != "" && candURL != "" && normalizedURL != candURL)
    hashMatch := noDistinctURLs && candHash == contentHash && candKey == incomingKey

    if urlMatch || hashMatch {
      match = &candidates[i]
      break
    }
  }

  if match == nil {
    return s.insertNewEvent(db, in)
  }
  return s.applyUpdateOrDuplicate(db, match, in)
}

func (s *Store) insertNewEvent(db *gorm.DB, in UpsertInput) (UpsertResult, uuid.UUID, error) {
  now := time.Now().UTC()
  event := RegulationEvent{
    ID:                  uuid.New(),
    Title:               in.Title,
    JurisdictionCountry: in.JurisdictionCountry,
    JurisdictionState:   in.JurisdictionState,
    Stage:               in.Stage,
    IsUnder16Applicable: in.IsUnder16Applicable,
    AgeBracket:          in.AgeBracket,
    Impact:              in.Impact,
    Likelihood:          in.Likelihood,
    Confidence:          in.Confidence,
    Chili:               in.Chili,
    Summary:             in.Summary,
    BusinessImpact:      in.BusinessImpact,
    RequiredSolutions:   marshalStrings(in.RequiredSolutions),
    AffectedProducts:    marshalStrings(in.AffectedProducts),
    CompetitorResponses: marshalStrings(in.CompetitorResponses),
    RawText:             in.RawText,
    SourceURLLink:       in.SourceURLLink,
    EffectiveDate:       in.EffectiveDate,
    PublishedDate:       in.PublishedDate,
    SourceID:            in.SourceID,
    CreatedAt:           now,
    UpdatedAt:           now,
  }
  if err := db.Create(&event).Error; err != nil {
    return "", uuid.Nil, err
  }

  history := EventHistoryEntry{
    EventID:    event.ID,
    ChangedAt:  now,
    ChangedBy:  "pipeline",
    ChangeType: "created",
    FieldName:  "",
    NewValue:   "",
  }
  if err := db.Create(&history).Error; err != nil {
    return "", uuid.Nil, err
  }

  return ResultNew, event.ID, nil
}

func (s *Store) applyUpdateOrDuplicate(db *gorm.DB, existing *RegulationEvent, in UpsertInput) (UpsertResult, uuid.UUID, error) {
  stageChanged := existing.Stage != in.Stage
  changed := stageChanged ||
    existing.Summary != in.Summary ||
    existing.BusinessImpact != in.BusinessImpact ||
    existing.AgeBracket != in.AgeBracket ||
    existing.Impact != in.Impact ||
    existing.Likelihood != in.Likelihood ||
    existing.Confidence != in.Confidence ||
    existing.Chili != in.Chili

  if !changed {
    return ResultDuplicate, existing.ID, nil
  }

  previousStage := existing.Stage
  now := time.Now().UTC()

  existing.Stage = in.Stage
  existing.Summary = in.Summary
  existing.BusinessImpact = in.BusinessImpact
  existing.AgeBracket = in.AgeBracket
  existing.Impact = in.Impact
  existing.Likelihood = in.Likelihood
  existing.Confidence = in.Confidence
  existing.Chili = in.Chili
  existing.UpdatedAt = now

  if err := db.Save(existing).Error; err != nil {
    return "", uuid.Nil, err
  }

  history := EventHistoryEntry{
    EventID:   existing.ID,
    ChangedAt: now,
    ChangedBy: "pipeline",
  }
  if stageChanged {
    history.ChangeType = "status_changed"
    history.FieldName = "stage"
    history.PreviousValue = previousStage
    history.NewValue = in.Stage
  } else {
    history.ChangeType = "updated"
    history.FieldName = "analysis"
    history.NewValue = "Pipeline refresh"
  }
  if err := db.Create(&history).Error; err != nil {
    return "", uuid.Nil, err
  }

  return ResultUpdated, existing.ID, nil
}

// GetHistory returns an event's history rows sorted by
// (changed_at DESC, id DESC).
func (s *Store) GetHistory(eventID uuid.UUID) ([]EventHistoryEntry, error) {
  var rows []EventHistoryEntry
  err := s.db.
    Where("event_id = ?", eventID).
    Order("changed_at DESC, id DESC").
    Find(&rows).Error
  return rows, err
}

func marshalStrings(items []string) datatypes.JSON {
  if items == nil {
    items = []string{}
  }
  b, err := json.Marshal(items)
  if err != nil {
    return datatypes.JSON("[]")
  }
  return datatypes.JSON(b)
}

func unmarshalStrings(raw datatypes.JSON) []string {
  if len(raw) == 0 {
    return nil
  }
  var out []string
  if err := json.Unmarshal(raw, &out); err != nil {
    return nil
  }
  return out
}
