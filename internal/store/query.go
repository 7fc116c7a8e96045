package store

import (
  "math"
  "strings"
  "time"

  "github.com/google/uuid"

  "github.com/regwatch/engine/internal/canon"
)

// BriefItem is one ranked law entry returned by Brief.
type BriefItem struct {
  LawKey                      string
  LawName                     string
  JurisdictionCountry         string
  JurisdictionState           string
  Stage                       string
  AgeBracket                  string
  AggregateRiskMax            int
  AggregateRiskRecentWeighted float64
  AggregateRiskOverall        float64
  UpdateCount                 int
  LatestSummary               string
}

// BriefResult is the full §4.8 Brief payload.
type BriefResult struct {
  GeneratedAt   time.Time
  LastCrawledAt *time.Time
  Items         []BriefItem
}

const briefHardLimit = 20

// Brief returns the top laws ranked by (aggregate_risk_max DESC,
// aggregate_risk_recent_weighted DESC, updated_at DESC). If the laws
// table is empty (no backfill has run yet), it falls back to an
// on-the-fly, unpersisted grouping of regulation_events by inferred
// canonical key, so a freshly-deployed instance still renders
// something.
func (s *Store) Brief(limit int) (BriefResult, error) {
  if limit <= 0 || limit > briefHardLimit {
    limit = briefHardLimit
  }

  result := BriefResult{GeneratedAt: time.Now().UTC()}

  var lastCrawled *time.Time
  var latestRun CrawlRun
  if err := s.db.Order("started_at DESC").First(&latestRun).Error; err == nil {
    lastCrawled = latestRun.CompletedAt
  }
  result.LastCrawledAt = lastCrawled

  var count int64
  if err := s.db.Model(&Law{}).Count(&count).Error; err != nil {
    return result, err
  }

  if count == 0 {
    items, err := s.briefFallbackFromEvents(limit)
    if err != nil {
      return result, err
    }
    result.Items = items
    return result, nil
  }

  var laws []Law
  if err := s.db.
    Order("aggregate_risk_max DESC, aggregate_risk_recent_weighted DESC, updated_at DESC").
    Limit(limit).
    Find(&laws).Error; err != nil {
    return result, err
  }

  items := make([]BriefItem, 0, len(laws))
  for _, law := range laws {
    var updateCount int64
    s.db.Model(&LawUpdate{}).Where("law_id = ?", law.ID).Count(&updateCount)

    var latest LawUpdate
    latestSummary := ""
    latestAgeBracket := ""
    if err := s.db.Where("law_id = ?", law.ID).Order("published_date DESC, created_at DESC").First(&latest).Error; err == nil {
      latestSummary = latest.Summary
      latestAgeBracket = latest.AgeBracket
    }

    items = append(items, BriefItem{
      LawKey:                      law.LawKey,
      LawName:                     law.LawName,
      JurisdictionCountry:         law.JurisdictionCountry,
      JurisdictionState:           law.JurisdictionState,
      Stage:                       law.Stage,
      AgeBracket:                  latestAgeBracket,
      AggregateRiskMax:            law.AggregateRiskMax,
      AggregateRiskRecentWeighted: law.AggregateRiskRecentWeighted,
      AggregateRiskOverall:        law.AggregateRiskOverall,
      UpdateCount:                 int(updateCount),
      LatestSummary:               latestSummary,
    })
  }
  result.Items = items
  return result, nil
}

func (s *Store) briefFallbackFromEvents(limit int) ([]BriefItem, error) {
  var events []RegulationEvent
  if err := s.db.Order("updated_at DESC").Limit(500).Find(&events).Error; err != nil {
    return nil, err
  }

  type group struct {
    item  BriefItem
    count int
  }
  groups := map[string]*group{}

  for _, e := range events {
    inferred := canon.InferCanonicalLaw(canon.Input{
      Title:               e.Title,
      Summary:             e.Summary,
      Content:             e.RawText,
      JurisdictionCountry: e.JurisdictionCountry,
      JurisdictionState:   e.JurisdictionState,
    })

    g, ok := groups[inferred.LawKey]
    if !ok {
      g = &group{item: BriefItem{
        LawKey:               inferred.LawKey,
        LawName:              inferred.LawName,
        JurisdictionCountry:  e.JurisdictionCountry,
        JurisdictionState:    e.JurisdictionState,
        Stage:                e.Stage,
        AgeBracket:           e.AgeBracket,
        AggregateRiskMax:     e.Chili,
        LatestSummary:        e.Summary,
      }}
      groups[inferred.LawKey] = g
    }
    g.count++
    if e.Chili > g.item.AggregateRiskMax {
      g.item.AggregateRiskMax = e.Chili
    }
  }

  items := make([]BriefItem, 0, len(groups))
  for _, g := range groups {
    g.item.UpdateCount = g.count
    items = append(items, g.item)
  }

  sortBriefItems(items)
  if len(items) > limit {
    items = items[:limit]
  }
  return items, nil
}

func sortBriefItems(items []BriefItem) {
  for i := 1; i < len(items); i++ {
    for j := i; j > 0 && items[j].AggregateRiskMax > items[j-1].AggregateRiskMax; j-- {
      items[j], items[j-1] = items[j-1], items[j]
    }
  }
}

// EventFilter captures the Events() query parameters.
type EventFilter struct {
  Jurisdictions []string
  Stages        []string
  AgeBracket    string
  MinRisk       *int
  MaxRisk       *int
  DateFrom      *string
  DateTo        *string
  Q             string
  SortBy        string
  SortDir       string
  Page          int
  Limit         int
}

// EventsPage is the paginated Events() result.
type EventsPage struct {
  Items      []RegulationEvent
  Page       int
  TotalPages int
  Total      int
}

var allowedSortColumns = map[string]string{
  "updated_at":     "updated_at",
  "published_date": "published_date",
  "chili_score":    "chili",
  "jurisdiction":   "jurisdiction_country",
  "stage":          "stage",
  "title":          "title",
}

// Events returns a filtered, paginated, sorted page of regulation
// events per §4.8.
func (s *Store) Events(f EventFilter) (EventsPage, error) {
  limit := f.Limit
  if limit <= 0 || limit > 100 {
    limit = 100
  }
  page := f.Page
  if page < 1 {
    page = 1
  }

  q := s.db.Model(&RegulationEvent{})

  if len(f.Jurisdictions) > 0 {
    q = q.Where("jurisdiction_country IN ?", f.Jurisdictions)
  }
  if len(f.Stages) > 0 {
    q = q.Where("stage IN ?", f.Stages)
  }
  if f.AgeBracket != "" {
    q = q.Where("age_bracket = ?", f.AgeBracket)
  }
  if f.MinRisk != nil {
    q = q.Where("chili >= ?", *f.MinRisk)
  }
  if f.MaxRisk != nil {
    q = q.Where("chili <= ?", *f.MaxRisk)
  }
  if f.DateFrom != nil {
    q = q.Where("COALESCE(published_date, effective_date, date(updated_at)) >= ?", *f.DateFrom)
  }
  if f.DateTo != nil {
    q = q.Where("COALESCE(published_date, effective_date, date(updated_at)) <= ?", *f.DateTo)
  }
  if f.Q != "" {
    like := "%" + f.Q + "%"
    q = q.Where("title LIKE ? OR summary LIKE ? OR business_impact LIKE ?", like, like, like)
  }

  var total int64
  if err := q.Count(&total).Error; err != nil {
    return EventsPage{}, err
  }

  sortCol, ok := allowedSortColumns[f.SortBy]
  if !ok {
    sortCol = "updated_at"
  }
  dir := "DESC"
  if strings.EqualFold(f.SortDir, "asc") {
    dir = "ASC"
  }

  var items []RegulationEvent
  if err := q.
    Order(sortCol + " " + dir).
    Limit(limit).
    Offset((page - 1) * limit).
    Find(&items).Error; err != nil {
    return EventsPage{}, err
  }

  totalPages := int(math.Ceil(float64(total) / float64(limit)))
  if totalPages < 1 {
    totalPages = 1
  }

  return EventsPage{Items: items, Page: page, TotalPages: totalPages, Total: int(total)}, nil
}

// EventDetailResult is the §4.8 EventDetail payload.
type EventDetailResult struct {
  Event         RegulationEvent
  Feedback      []EventHistoryEntry
  RelatedEvents []RegulationEvent
  History       []EventHistoryEntry
  Timeline      []EventHistoryEntry
}

// EventDetail assembles an event with its feedback rows, related
// events, and history/timeline.
func (s *Store) EventDetail(id uuid.UUID) (EventDetailResult, error) {
  var event RegulationEvent
  if err := s.db.Where("id = ?", id).First(&event).Error; err != nil {
    return EventDetailResult{}, err
  }

  history, err := s.GetHistory(id)
  if err != nil {
    return EventDetailResult{}, err
  }
  if len(history) > 50 {
    history = history[:50]
  }

  var feedback []EventHistoryEntry
  for _, h := range history {
    if h.ChangeType == "feedback" {
      feedback = append(feedback, h)
    }
  }

  var related []RegulationEvent
  if err := s.db.
    Where("jurisdiction_country = ? AND id != ?", event.JurisdictionCountry, event.ID).
    Order("chili DESC, updated_at DESC").
    Limit(5).
    Find(&related).Error; err != nil {
    return EventDetailResult{}, err
  }

  return EventDetailResult{
    Event:         event,
    Feedback:      feedback,
    RelatedEvents: related,
    History:       history,
    Timeline:      history,
  }, nil
}

// LawDetailResult is the §4.8 LawDetail payload.
type LawDetailResult struct {
  Law      Law
  Updates  []LawUpdate
  Timeline []LawUpdate
}

// LawDetail assembles a Law with its updates (published_date DESC)
// and a timeline identical to the updates, exposed for UX.
func (s *Store) LawDetail(lawKey string) (LawDetailResult, error) {
  var law Law
  if err := s.db.Where("law_key = ?", lawKey).First(&law).Error; err != nil {
    return LawDetailResult{}, err
  }

  var updates []LawUpdate
  if err := s.db.
    Where("law_id = ?", law.ID).
    Order("published_date DESC").
    Find(&updates).Error; err != nil {
    return LawDetailResult{}, err
  }

  return LawDetailResult{Law: law, Updates: updates, Timeline: updates}, nil
}
