package backfill

import (
  "testing"

  "github.com/stretchr/testify/require"

  "github.com/regwatch/engine/internal/logger"
  "github.com/regwatch/engine/internal/registry"
  "github.com/regwatch/engine/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
  t.Helper()
  log, err := logger.New("test")
  require.NoError(t, err)
  s, err := store.New(":memory:", log)
  require.NoError(t, err)
  return s
}

func TestRun_CanonicalGrouping(t *testing.T) {
  s := newTestStore(t)
  log, _ := logger.New("test")

  _, _, err := s.UpsertEvent(nil, store.UpsertInput{
    Title:               "FTC publishes COPPA Rule amendments",
    JurisdictionCountry: "US",
    Stage:               "proposed",
    AgeBracket:          "both",
    Impact:              3, Likelihood: 3, Confidence: 4, Chili: 4,
    Summary:       "Proposed amendments.",
    SourceURLLink: "https://www.ftc.gov/a",
  })
  require.NoError(t, err)

  _, _, err = s.UpsertEvent(nil, store.UpsertInput{
    Title:               "FTC issues COPPA enforcement guidance",
    JurisdictionCountry: "US",
    Stage:               "enacted",
    AgeBracket:          "both",
    Impact:              4, Likelihood: 4, Confidence: 4, Chili: 5,
    Summary:       "Enforcement guidance issued.",
    SourceURLLink: "https://www.ftc.gov/b",
  })
  require.NoError(t, err)

  result, err := Run(s.DB(), log)
  require.NoError(t, err)
  require.GreaterOrEqual(t, result.Laws, 1)

  var law store.Law
  require.NoError(t, s.DB().Where("law_name LIKE ?", "%COPPA%").First(&law).Error)
  require.Equal(t, 5, law.AggregateRiskMax)

  var updateCount int64
  s.DB().Model(&store.LawUpdate{}).Where("law_id = ?", law.ID).Count(&updateCount)
  require.GreaterOrEqual(t, updateCount, int64(2))
}

func TestRun_SourceConfidenceFromReliabilityTier(t *testing.T) {
  s := newTestStore(t)
  log, _ := logger.New("test")

  src, err := s.EnsureSource(nil, registry.Source{
    Name:                "FTC Newsroom",
    URL:                 "https://www.ftc.gov",
    Type:                registry.SourceGovernmentPage,
    AuthorityType:       registry.AuthorityNational,
    JurisdictionCountry: "US",
    ReliabilityTier:     5,
  })
  require.NoError(t, err)

  _, _, err = s.UpsertEvent(nil, store.UpsertInput{
    Title:               "FTC publishes COPPA Rule amendments",
    JurisdictionCountry: "US",
    Stage:               "proposed",
    AgeBracket:          "both",
    Impact:              3, Likelihood: 3, Confidence: 4, Chili: 4,
    Summary:       "Proposed amendments.",
    SourceURLLink: "https://www.ftc.gov/a",
    SourceID:      src.ID,
  })
  require.NoError(t, err)

  _, err = Run(s.DB(), log)
  require.NoError(t, err)

  var law store.Law
  require.NoError(t, s.DB().Where("law_name LIKE ?", "%COPPA%").First(&law).Error)
  require.Equal(t, 5.0, law.SourceConfidence)
}

func TestRun_JurisdictionDistinguishesLaws(t *testing.T) {
  s := newTestStore(t)
  log, _ := logger.New("test")

  _, _, err := s.UpsertEvent(nil, store.UpsertInput{
    Title:               "Age-Appropriate Design Code Act enforcement",
    JurisdictionCountry: "US",
    JurisdictionState:   "California",
    Stage:               "enacted",
    AgeBracket:          "both",
    Impact:              3, Likelihood: 3, Confidence: 3, Chili: 3,
    SourceURLLink: "https://example.com/us",
  })
  require.NoError(t, err)

  _, _, err = s.UpsertEvent(nil, store.UpsertInput{
    Title:               "Age-Appropriate Design Code Act enforcement",
    JurisdictionCountry: "United Kingdom",
    Stage:               "enacted",
    AgeBracket:          "both",
    Impact:              3, Likelihood: 3, Confidence: 3, Chili: 3,
    SourceURLLink: "https://example.com/uk",
  })
  require.NoError(t, err)

  _, err = Run(s.DB(), log)
  require.NoError(t, err)

  var laws []store.Law
  require.NoError(t, s.DB().Find(&laws).Error)
  require.Len(t, laws, 2)
  require.NotEqual(t, laws[0].LawKey, laws[1].LawKey)

  for _, law := range laws {
    var count int64
    s.DB().Model(&store.LawUpdate{}).Where("law_id = ?", law.ID).Count(&count)
    require.EqualValues(t, 1, count)
  }
}
