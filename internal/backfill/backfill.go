// Package backfill recomputes the laws/law_updates tables from the
// current regulation_events, grouping by canonical key. It is
// destructive of only those two derived tables; source events are
// never touched.
package backfill

import (
  "encoding/json"
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/regwatch/engine/internal/canon"
  "github.com/regwatch/engine/internal/logger"
  "github.com/regwatch/engine/internal/store"
)

// Result summarizes one backfill run.
type Result struct {
  Laws             int
  LawUpdates       int
  MergedDuplicates int
}

const (
  dayLayout = "2006-01-02"
)

type eventWithSource struct {
  store.RegulationEvent
  ReliabilityTier int
}

// Run truncates and rebuilds laws/law_updates inside one transaction.
// Idempotent: running it twice with unchanged events yields the same
// laws table.
func Run(db *gorm.DB, log *logger.Logger) (Result, error) {
  backfillLog := log.With("component", "backfill")
  backfillLog.Info("starting law backfill")

  var result Result
  err := db.Transaction(func(tx *gorm.DB) error {
    if err := tx.Exec("DELETE FROM law_updates").Error; err != nil {
      return fmt.Errorf("truncate law_updates: %w", err)
    }
    if err := tx.Exec("DELETE FROM laws").Error; err != nil {
      return fmt.Errorf("truncate laws: %w", err)
    }

    var rows []eventWithSource
    if err := tx.Table("regulation_events").
      Select("regulation_events.*, COALESCE(sources.reliability_tier, 3) AS reliability_tier").
      Joins("LEFT JOIN sources ON sources.id = regulation_events.source_id").
      Find(&rows).Error; err != nil {
      return fmt.Errorf("load events: %w", err)
    }

    groups := groupByCanonicalKey(rows)

    for lawKey, members := range groups {
      law, updates := buildLaw(lawKey, members)

      if err := tx.Create(&law).Error; err != nil {
        return fmt.Errorf("insert law %s: %w", lawKey, err)
      }
      for i := range updates {
        updates[i].LawID = law.ID
      }
      if len(updates) > 0 {
        if err := tx.Create(&updates).Error; err != nil {
          return fmt.Errorf("insert law_updates for %s: %w", lawKey, err)
        }
      }

      result.Laws++
      result.LawUpdates += len(updates)
      if len(members) > 1 {
        result.MergedDuplicates += len(members) - 1
      }
    }

    return nil
  })
  if err != nil {
    backfillLog.Error("law backfill failed", "error", err)
    return Result{}, err
  }

  backfillLog.Info("law backfill completed", "laws", result.Laws, "law_updates", result.LawUpdates)
  return result, nil
}

func groupByCanonicalKey(rows []eventWithSource) map[string][]eventWithSource {
  groups := map[string][]eventWithSource{}
  for _, row := range rows {
    inferred := canon.InferCanonicalLaw(canon.Input{
      Title:               row.Title,
      Summary:             row.Summary,
      Content:             row.RawText,
      JurisdictionCountry: row.JurisdictionCountry,
      JurisdictionState:   row.JurisdictionState,
    })
    groups[inferred.LawKey] = append(groups[inferred.LawKey], row)
  }
  return groups
}

func buildLaw(lawKey string, members []eventWithSource) (store.Law, []store.LawUpdate) {
  names := make([]string, 0, len(members))
  lawTypes := make([]string, 0, len(members))
  for _, m := range members {
    inferred := canon.InferCanonicalLaw(canon.Input{
      Title:               m.Title,
      Summary:             m.Summary,
      Content:             m.RawText,
      JurisdictionCountry: m.JurisdictionCountry,
      JurisdictionState:   m.JurisdictionState,
    })
    names = append(names, inferred.LawName)
    lawTypes = append(lawTypes, inferred.LawType)
  }
  bestName := canon.BestName(names)
  lawType := bestLawType(lawTypes)

  first := members[0]

  var firstSeen, lastSeen time.Time
  var latestEffective *string
  maxChili := 0
  var weightedSum, weightTotal float64
  var overallSum float64
  var tierSum float64

  sorted := append([]eventWithSource{}, members...)
  sortByReferenceDateDesc(sorted)

  lawUpdates := make([]store.LawUpdate, 0, len(members))

  for i, m := range sorted {
    ref := referenceDate(m.RegulationEvent)
    if i == 0 || ref.Before(firstSeen) {
      if i == 0 {
        firstSeen = ref
      } else if ref.Before(firstSeen) {
        firstSeen = ref
      }
    }
    lastCandidate := m.UpdatedAt
    if lastCandidate.IsZero() {
      lastCandidate = ref
    }
    if i == 0 || lastCandidate.After(lastSeen) {
      lastSeen = lastCandidate
    }

    if m.EffectiveDate != nil && *m.EffectiveDate != "" {
      if latestEffective == nil || *m.EffectiveDate > *latestEffective {
        latestEffective = m.EffectiveDate
      }
    }

    if m.Chili > maxChili {
      maxChili = m.Chili
    }

    w := weightForAge(ref)
    weightedSum += float64(m.Chili) * w
    weightTotal += w

    overallSum += 0.4*float64(m.Chili) + 0.3*float64(m.Impact) + 0.2*float64(m.Likelihood) + 0.1*float64(m.Confidence)
    tierSum += float64(m.ReliabilityTier)

    metadata, _ := json.Marshal(map[string]interface{}{
      "age_bracket":           m.AgeBracket,
      "jurisdiction_country":  m.JurisdictionCountry,
      "jurisdiction_state":    m.JurisdictionState,
      "source_reliability_tier": m.ReliabilityTier,
    })

    lawUpdates = append(lawUpdates, store.LawUpdate{
      ID:            uuid.New(),
      EventID:       m.ID,
      Title:         m.Title,
      Stage:         m.Stage,
      AgeBracket:    m.AgeBracket,
      Impact:        m.Impact,
      Likelihood:    m.Likelihood,
      Confidence:    m.Confidence,
      Chili:         m.Chili,
      Summary:       m.Summary,
      EffectiveDate: m.EffectiveDate,
      PublishedDate: m.PublishedDate,
      RawMetadata:   datatypes.JSON(metadata),
      CreatedAt:     time.Now().UTC(),
    })
  }

  aggregateRecentWeighted := float64(maxChili)
  if weightTotal > 0 {
    aggregateRecentWeighted = weightedSum / weightTotal
  }

  now := time.Now().UTC()
  law := store.Law{
    ID:                          uuid.New(),
    LawKey:                      lawKey,
    LawName:                     bestName,
    JurisdictionCountry:         first.JurisdictionCountry,
    JurisdictionState:           first.JurisdictionState,
    LawType:                     lawType,
    Stage:                       sorted[0].Stage,
    Status:                      sorted[0].Stage,
    FirstSeenAt:                 firstSeen,
    LastSeenAt:                  lastSeen,
    LatestEffectiveDate:         latestEffective,
    AggregateRiskMax:            maxChili,
    AggregateRiskRecentWeighted: aggregateRecentWeighted,
    AggregateRiskOverall:        overallSum / float64(len(members)),
    SourceConfidence:            tierSum / float64(len(members)),
    CreatedAt:                   now,
    UpdatedAt:                   now,
  }

  return law, lawUpdates
}

// bestLawType upgrades from the generic "law" to a more specific term
// whenever any member supplies one.
func bestLawType(types []string) string {
  best := "law"
  for _, t := range types {
    if t != "" && t != "law" {
      best = t
    }
  }
  return best
}

func referenceDate(e store.RegulationEvent) time.Time {
  if e.PublishedDate != nil {
    if t, ok := parseDate(*e.PublishedDate); ok {
      return t
    }
  }
  if e.EffectiveDate != nil {
    if t, ok := parseDate(*e.EffectiveDate); ok {
      return t
    }
  }
  if !e.UpdatedAt.IsZero() {
    return e.UpdatedAt
  }
  return e.CreatedAt
}

func parseDate(s string) (time.Time, bool) {
  if t, err := time.Parse(time.RFC3339, s); err == nil {
    return t, true
  }
  if t, err := time.Parse(dayLayout, s); err == nil {
    return t, true
  }
  return time.Time{}, false
}

func weightForAge(ref time.Time) float64 {
  age := time.Since(ref)
  switch {
  case age <= 30*24*time.Hour:
    return 1.0
  case age <= 90*24*time.Hour:
    return 0.9
  case age <= 180*24*time.Hour:
    return 0.8
  case age <= 365*24*time.Hour:
    return 0.65
  case age <= 730*24*time.Hour:
    return 0.5
  default:
    return 0.35
  }
}

func sortByReferenceDateDesc(members []eventWithSource) {
  for i := 1; i < len(members); i++ {
    for j := i; j > 0 && referenceDate(members[j].RegulationEvent).After(referenceDate(members[j-1].RegulationEvent)); j-- {
      members[j], members[j-1] = members[j-1], members[j]
    }
  }
}
