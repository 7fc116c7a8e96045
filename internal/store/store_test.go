package store

import (
  "testing"

  "github.com/google/uuid"
  "github.com/stretchr/testify/require"

  "github.com/regwatch/engine/internal/logger"
)

func newTestStore(t *testing.T) *Store {
  t.Helper()
  log, err := logger.New("test")
  require.NoError(t, err)

  s, err := New(":memory:", log)
  require.NoError(t, err)
  return s
}

func baseInput() UpsertInput {
  return UpsertInput{
    Title:               "FTC publishes COPPA Rule amendments",
    JurisdictionCountry: "US",
    Stage:               "proposed",
    AgeBracket:          "both",
    Impact:              3,
    Likelihood:          3,
    Confidence:          4,
    Chili:               4,
    Summary:             "The FTC proposes amendments to the COPPA Rule.",
    SourceURLLink:       "https://www.ftc.gov/a",
    SourceID:            uuid.New(),
  }
}

func TestUpsertEvent_FirstObservationInsert(t *testing.T) {
  s := newTestStore(t)

  result, id, err := s.UpsertEvent(nil, baseInput())
  require.NoError(t, err)
  require.Equal(t, ResultNew, result)

  var count int64
  s.db.Model(&RegulationEvent{}).Count(&count)
  require.EqualValues(t, 1, count)

  history, err := s.GetHistory(id)
  require.NoError(t, err)
  require.Len(t, history, 1)
  require.Equal(t, "created", history[0].ChangeType)
}

func TestUpsertEvent_DedupNoOp(t *testing.T) {
  s := newTestStore(t)

  _, _, err := s.UpsertEvent(nil, baseInput())
  require.NoError(t, err)

  result, _, err := s.UpsertEvent(nil, baseInput())
  require.NoError(t, err)
  require.Equal(t, ResultDuplicate, result)

  var count int64
  s.db.Model(&RegulationEvent{}).Count(&count)
  require.EqualValues(t, 1, count)
}

func TestUpsertEvent_StageChange(t *testing.T) {
  s := newTestStore(t)

  _, id, err := s.UpsertEvent(nil, baseInput())
  require.NoError(t, err)

  changed := baseInput()
  changed.Stage = "enacted"
  changed.Chili = 5

  result, sameID, err := s.UpsertEvent(nil, changed)
  require.NoError(t, err)
  require.Equal(t, ResultUpdated, result)
  require.Equal(t, id, sameID)

  var event RegulationEvent
  require.NoError(t, s.db.Where("id = ?", id).First(&event).Error)
  require.Equal(t, "enacted", event.Stage)
  require.Equal(t, 5, event.Chili)

  history, err := s.GetHistory(id)
  require.NoError(t, err)
  require.Len(t, history, 2)
  require.Equal(t, "status_changed", history[0].ChangeType)
  require.Equal(t, "proposed", history[0].PreviousValue)
  require.Equal(t, "enacted", history[0].NewValue)
}

func TestUpsertEvent_URLDiscrimination(t *testing.T) {
  s := newTestStore(t)

  first := baseInput()
  _, _, err := s.UpsertEvent(nil, first)
  require.NoError(t, err)

  second := baseInput()
  second.SourceURLLink = "https://www.ftc.gov/b"
  result, _, err := s.UpsertEvent(nil, second)
  require.NoError(t, err)
  require.Equal(t, ResultNew, result)

  var count int64
  s.db.Model(&RegulationEvent{}).Count(&count)
  require.EqualValues(t, 2, count)
}

func TestUpsertEvent_HistoryMonotonicity(t *testing.T) {
  s := newTestStore(t)

  _, id, err := s.UpsertEvent(nil, baseInput())
  require.NoError(t, err)

  for i := 0; i < 3; i++ {
    changed := baseInput()
    changed.Summary = baseInput().Summary + string(rune('a'+i))
    _, _, err := s.UpsertEvent(nil, changed)
    require.NoError(t, err)
  }

  history, err := s.GetHistory(id)
  require.NoError(t, err)
  require.True(t, len(history) >= 1)
  require.Equal(t, "created", history[len(history)-1].ChangeType)
}

func TestUpsertEvent_BoundedRawText(t *testing.T) {
  s := newTestStore(t)

  in := baseInput()
  big := make([]rune, 6000)
  for i := range big {
    big[i] = 'x'
  }
  in.RawText = string(big)

  _, id, err := s.UpsertEvent(nil, in)
  require.NoError(t, err)

  var event RegulationEvent
  require.NoError(t, s.db.Where("id = ?", id).First(&event).Error)
  require.LessOrEqual(t, len([]rune(event.RawText)), rawTextCap)
}
