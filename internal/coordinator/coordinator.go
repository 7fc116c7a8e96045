// Package coordinator owns the crawl-run lifecycle: single-flight,
// bounded fetch/analyze fan-out, the single persist transaction, and
// the post-completion side effects (notifications, backfill).
package coordinator

import (
  "context"
  "errors"
  "fmt"
  "strings"
  "sync/atomic"

  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"
  "gorm.io/gorm"

  "github.com/regwatch/engine/internal/backfill"
  "github.com/regwatch/engine/internal/fetch"
  "github.com/regwatch/engine/internal/llm"
  "github.com/regwatch/engine/internal/logger"
  "github.com/regwatch/engine/internal/notify"
  "github.com/regwatch/engine/internal/registry"
  "github.com/regwatch/engine/internal/store"
)

// ErrConflict is returned when a trigger arrives while a run is
// already in progress.
var ErrConflict = errors.New("crawl already in progress")

// ErrAnalyzerNotConfigured is returned when no analyzer endpoint
// credential is present; the coordinator refuses to start a run it
// knows cannot classify anything.
var ErrAnalyzerNotConfigured = errors.New("analyzer not configured")

// PipelineError records one absorbed per-item failure for the run
// result's error list, per the §7 propagation policy.
type PipelineError struct {
  Stage   string
  Source  string
  Message string
}

// Result is the outcome of one RunPipeline invocation.
type Result struct {
  Run          store.CrawlRun
  ItemsFound   int
  ItemsNew     int
  ItemsUpdated int
  Errors       []PipelineError
}

// Coordinator owns the in-memory single-flight flag layered on top of
// the store's durable "running" row check. The in-memory flag closes
// the gap between two goroutines both observing "no running row yet"
// before the first one's row commits; the durable row remains the
// source of truth that survives a process restart.
type Coordinator struct {
  store               *store.Store
  fetcher             *fetch.Dispatcher
  analyzer            *llm.Analyzer
  notifier            *notify.Notifier
  log                 *logger.Logger
  analysisConcurrency int
  inFlight            atomic.Bool
}

func New(s *store.Store, fetcher *fetch.Dispatcher, analyzer *llm.Analyzer, notifier *notify.Notifier, analysisConcurrency int, log *logger.Logger) *Coordinator {
  if analysisConcurrency <= 0 {
    analysisConcurrency = 12
  }
  return &Coordinator{
    store:               s,
    fetcher:             fetcher,
    analyzer:            analyzer,
    notifier:            notifier,
    analysisConcurrency: analysisConcurrency,
    log:                 log.With("component", "coordinator"),
  }
}

type analyzedItem struct {
  item   fetch.CrawledItem
  result *llm.AnalysisResult
}

// Trigger runs one full crawl/analyze/persist/backfill cycle to
// completion and is directly testable as a blocking call. TriggerAsync
// is what the HTTP layer actually calls: it does the same single-flight
// acquisition synchronously (so a conflicting request gets an
// immediate answer) and runs the rest in the background.
func (c *Coordinator) Trigger(ctx context.Context, sources []registry.Source) (Result, error) {
  run, err := c.acquire()
  if err != nil {
    return Result{}, err
  }
  return c.runToCompletion(ctx, run, sources), nil
}

// TriggerAsync acquires the single-flight slot synchronously, then
// runs the pipeline on a background goroutine. It returns as soon as
// the run is accepted or rejected, never waiting for the crawl itself.
func (c *Coordinator) TriggerAsync(ctx context.Context, sources []registry.Source) (store.CrawlRun, error) {
  run, err := c.acquire()
  if err != nil {
    return store.CrawlRun{}, err
  }

  go func() {
    c.runToCompletion(context.Background(), run, sources)
  }()

  return run, nil
}

// acquire performs the analyzer check, the in-memory single-flight
// compare-and-swap, and the durable StartRun insert. On any failure it
// releases the in-memory flag itself; on success the flag is released
// by runToCompletion once the pipeline finishes.
func (c *Coordinator) acquire() (store.CrawlRun, error) {
  if c.analyzer == nil {
    return store.CrawlRun{}, ErrAnalyzerNotConfigured
  }

  if !c.inFlight.CompareAndSwap(false, true) {
    return store.CrawlRun{}, ErrConflict
  }

  run, err := c.store.StartRun()
  if err != nil {
    c.inFlight.Store(false)
    if errors.Is(err, store.ErrRunInProgress) {
      return store.CrawlRun{}, ErrConflict
    }
    return store.CrawlRun{}, err
  }

  return run, nil
}

func (c *Coordinator) runToCompletion(ctx context.Context, run store.CrawlRun, sources []registry.Source) Result {
  defer c.inFlight.Store(false)

  result, runErr := c.runPipeline(ctx, run, sources)
  if runErr != nil {
    c.log.Error("crawl run failed", "run_id", run.ID, "error", runErr)
    if failErr := c.store.FailRun(run.ID, runErr.Error()); failErr != nil {
      c.log.Error("failed to mark run failed", "run_id", run.ID, "error", failErr)
    }
    run.Status = "failed"
    result.Run = run
  }

  return result
}

func (c *Coordinator) runPipeline(ctx context.Context, run store.CrawlRun, sources []registry.Source) (Result, error) {
  result := Result{Run: run}

  outcomes := c.fetcher.FetchAll(ctx, sources)

  var items []fetch.CrawledItem
  for _, outcome := range outcomes {
    if outcome.Err != nil {
      result.Errors = append(result.Errors, PipelineError{Stage: "fetch", Source: outcome.Source.Name, Message: outcome.Err.Error()})
      continue
    }
    items = append(items, outcome.Items...)
  }

  result.ItemsFound = len(items)
  if len(items) == 0 {
    if err := c.store.CompleteRun(run.ID, 0, 0, 0); err != nil {
      return result, fmt.Errorf("complete empty run: %w", err)
    }
    run.Status = "completed"
    result.Run = run
    return result, nil
  }

  analyzed := c.analyzeAll(ctx, items, &result)

  newEventIDs, err := c.persist(run, analyzed, &result)
  if err != nil {
    return result, fmt.Errorf("persist: %w", err)
  }

  if err := c.store.CompleteRun(run.ID, result.ItemsFound, result.ItemsNew, result.ItemsUpdated); err != nil {
    return result, fmt.Errorf("complete run: %w", err)
  }
  run.Status = "completed"
  result.Run = run

  c.postCompletion(ctx, newEventIDs)

  return result, nil
}

func (c *Coordinator) analyzeAll(ctx context.Context, items []fetch.CrawledItem, result *Result) []analyzedItem {
  out := make([]analyzedItem, len(items))
  errs := make([]*PipelineError, len(items))

  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(c.analysisConcurrency)

  for i, item := range items {
    i, item := i, item
    g.Go(func() error {
      analysis, err := c.analyzer.Analyze(gctx, item)
      if err != nil {
        c.log.Warn("analysis failed, dropping item", "source", item.Source.Name, "url", item.URL, "error", err)
        errs[i] = &PipelineError{Stage: "analyze", Source: item.Source.Name, Message: err.Error()}
        return nil
      }
      out[i] = analyzedItem{item: item, result: analysis}
      return nil
    })
  }
  _ = g.Wait()

  for _, e := range errs {
    if e != nil {
      result.Errors = append(result.Errors, *e)
    }
  }

  return out
}

// persist runs inside a single transaction so readers see either the
// full run's effects or none of it.
func (c *Coordinator) persist(run store.CrawlRun, analyzed []analyzedItem, result *Result) ([]eventOutcome, error) {
  var newEvents []eventOutcome
  seen := map[string]bool{}

  err := c.store.DB().Transaction(func(tx *gorm.DB) error {
    for _, a := range analyzed {
      if a.result == nil {
        continue
      }

      key := pipelineDedupKey(a.item, a.result)
      if seen[key] {
        continue
      }
      seen[key] = true

      src, err := c.store.EnsureSource(tx, a.item.Source)
      if err != nil {
        result.Errors = append(result.Errors, PipelineError{Stage: "store", Source: a.item.Source.Name, Message: err.Error()})
        continue
      }

      input := toUpsertInput(a.item, a.result)
      input.SourceID = src.ID
      outcome, eventID, err := c.store.UpsertEvent(tx, input)
      if err != nil {
        result.Errors = append(result.Errors, PipelineError{Stage: "store", Source: a.item.Source.Name, Message: err.Error()})
        continue
      }

      switch outcome {
      case store.ResultNew:
        result.ItemsNew++
        newEvents = append(newEvents, eventOutcome{eventID: eventID, chili: a.result.Chili})
      case store.ResultUpdated:
        result.ItemsUpdated++
      }
    }
    return nil
  })

  return newEvents, err
}

type eventOutcome struct {
  eventID uuid.UUID
  chili   int
}

func pipelineDedupKey(item fetch.CrawledItem, result *llm.AnalysisResult) string {
  url := strings.ToLower(strings.TrimSpace(item.URL))
  country := strings.ToLower(result.JurisdictionCountry)
  state := strings.ToLower(result.JurisdictionState)
  title := strings.ToLower(result.Title)
  if title == "" {
    title = strings.ToLower(item.Title)
  }
  base := country + "|" + state + "|" + title
  if url != "" {
    return base + "::" + url
  }
  return base + "::text:" + fetch.TextHash(item.Text)
}

func toUpsertInput(item fetch.CrawledItem, result *llm.AnalysisResult) store.UpsertInput {
  title := result.Title
  if title == "" {
    title = item.Title
  }
  return store.UpsertInput{
    Title:               title,
    JurisdictionCountry: result.JurisdictionCountry,
    JurisdictionState:   result.JurisdictionState,
    Stage:               string(result.Stage),
    IsUnder16Applicable: result.IsUnder16Applicable,
    AgeBracket:          string(result.AgeBracket),
    Impact:              result.Impact,
    Likelihood:          result.Likelihood,
    Confidence:          result.Confidence,
    Chili:               result.Chili,
    Summary:             result.Summary,
    BusinessImpact:      result.BusinessImpact,
    RequiredSolutions:   result.RequiredSolutions,
    AffectedProducts:    result.AffectedProducts,
    CompetitorResponses: result.CompetitorResponses,
    RawText:             item.Text,
    SourceURLLink:       item.URL,
    EffectiveDate:       result.EffectiveDate,
    PublishedDate:       result.PublishedDate,
  }
}

func (c *Coordinator) postCompletion(ctx context.Context, newEvents []eventOutcome) {
  if c.notifier != nil {
    for _, e := range newEvents {
      note, err := c.notifier.SeedIfHighRisk(e.eventID.String(), e.chili)
      if err != nil {
        c.log.Warn("failed to seed notification", "event_id", e.eventID.String(), "error", err)
        continue
      }
      if note != nil {
        c.log.Debug("notification seeded", "event_id", note.EventID, "severity", note.Severity)
      }
    }
  }

  if _, err := backfill.Run(c.store.DB(), c.log); err != nil {
    c.log.Error("post-crawl backfill failed", "error", err)
  }
}
