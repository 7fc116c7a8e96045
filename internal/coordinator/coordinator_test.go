package coordinator

import (
  "context"
  "encoding/json"
  "net/http"
  "net/http/httptest"
  "testing"
  "time"

  "github.com/stretchr/testify/require"

  "github.com/regwatch/engine/internal/fetch"
  "github.com/regwatch/engine/internal/llm"
  "github.com/regwatch/engine/internal/logger"
  "github.com/regwatch/engine/internal/notify"
  "github.com/regwatch/engine/internal/registry"
  "github.com/regwatch/engine/internal/store"
)

func testLogger(t *testing.T) *logger.Logger {
  t.Helper()
  log, err := logger.New("test")
  require.NoError(t, err)
  return log
}

func TestTrigger_RefusesWithoutAnalyzer(t *testing.T) {
  c := New(nil, nil, nil, nil, 5, testLogger(t))
  _, err := c.Trigger(context.Background(), nil)
  require.ErrorIs(t, err, ErrAnalyzerNotConfigured)
}

func TestTrigger_ConflictWhenAlreadyInFlight(t *testing.T) {
  analyzer := llm.NewAnalyzer(nil)
  c := New(nil, nil, analyzer, nil, 5, testLogger(t))
  c.inFlight.Store(true)

  _, err := c.Trigger(context.Background(), nil)
  require.ErrorIs(t, err, ErrConflict)
}

func TestTrigger_EndToEnd(t *testing.T) {
  log := testLogger(t)

  pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    w.Write([]byte(`<html><head><title>FTC publishes COPPA Rule amendments</title></head>` +
      `<body><p>The FTC has proposed amendments to the COPPA Rule covering minors online.</p></body></html>`))
  }))
  defer pageServer.Close()

  llmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    body := map[string]interface{}{
      "relevant":              true,
      "title":                 "FTC publishes COPPA Rule amendments",
      "jurisdiction_country":  "US",
      "stage":                 "proposed",
      "is_under16_applicable": true,
      "age_bracket":           "both",
      "impact":                3,
      "likelihood":            3,
      "confidence":            4,
      "chili":                 4,
      "summary":               "The FTC proposes amendments to the COPPA Rule.",
    }
    text, _ := json.Marshal(body)
    resp := map[string]interface{}{
      "content": []map[string]string{{"text": string(text)}},
    }
    w.Header().Set("content-type", "application/json")
    json.NewEncoder(w).Encode(resp)
  }))
  defer llmServer.Close()

  s, err := store.New(":memory:", log)
  require.NoError(t, err)

  pageFetcher := fetch.NewPageFetcher(log)
  dispatcher := fetch.NewDispatcher(log, pageFetcher, fetch.NewRSSFetcher(log), nil, 5)

  client := llm.NewClient(log, llmServer.URL, "test-key", "analyst-v1", 512, 10*time.Second, 1, 100*time.Millisecond, time.Second)
  analyzer := llm.NewAnalyzer(client)

  notifier := notify.New(s.DB(), log)
  c := New(s, dispatcher, analyzer, notifier, 5, log)

  sources := []registry.Source{
    {
      Name:                "FTC",
      URL:                 pageServer.URL,
      Type:                registry.SourceGovernmentPage,
      AuthorityType:       registry.AuthorityNational,
      JurisdictionCountry: "US",
      ReliabilityTier:     5,
    },
  }

  result, err := c.Trigger(context.Background(), sources)
  require.NoError(t, err)
  require.Equal(t, "completed", result.Run.Status)
  require.Equal(t, 1, result.ItemsFound)
  require.Equal(t, 1, result.ItemsNew)

  var eventCount int64
  s.DB().Model(&store.RegulationEvent{}).Count(&eventCount)
  require.EqualValues(t, 1, eventCount)
}

func TestTrigger_SingleFlightAgainstStore(t *testing.T) {
  log := testLogger(t)
  s, err := store.New(":memory:", log)
  require.NoError(t, err)

  run, err := s.StartRun()
  require.NoError(t, err)
  require.Equal(t, "running", run.Status)

  analyzer := llm.NewAnalyzer(nil)
  c := New(s, fetch.NewDispatcher(log, fetch.NewPageFetcher(log), fetch.NewRSSFetcher(log), nil, 5), analyzer, nil, 5, log)

  _, err = c.Trigger(context.Background(), nil)
  require.ErrorIs(t, err, ErrConflict)

  var runningCount int64
  s.DB().Model(&store.CrawlRun{}).Where("status = ?", "running").Count(&runningCount)
  require.EqualValues(t, 1, runningCount)
}
