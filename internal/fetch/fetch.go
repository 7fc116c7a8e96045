package fetch

import (
  "context"
  "sync"
  "time"

  "golang.org/x/sync/errgroup"
  "golang.org/x/time/rate"

  "github.com/regwatch/engine/internal/logger"
  "github.com/regwatch/engine/internal/registry"
)

const microblogInterQueryDelay = 1500 * time.Millisecond

// Dispatcher fans a crawl run out across every registered source,
// running non-microblog sources in bounded parallel batches and
// microblog sources strictly sequentially with inter-query pacing, per
// the concurrency model.
type Dispatcher struct {
  log              *logger.Logger
  page             *PageFetcher
  rss              *RSSFetcher
  microblog        *MicroblogFetcher
  fetchConcurrency int
}

func NewDispatcher(log *logger.Logger, page *PageFetcher, rss *RSSFetcher, microblog *MicroblogFetcher, fetchConcurrency int) *Dispatcher {
  if fetchConcurrency <= 0 {
    fetchConcurrency = 5
  }
  return &Dispatcher{
    log:              log.With("component", "fetch.Dispatcher"),
    page:             page,
    rss:              rss,
    microblog:        microblog,
    fetchConcurrency: fetchConcurrency,
  }
}

// FetchAll crawls every source and returns one Outcome per source. It
// never returns an error itself: each fetcher absorbs and logs its own
// failures and yields zero items. FetchAll does not set Outcome.Err.
func (d *Dispatcher) FetchAll(ctx context.Context, sources []registry.Source) []Outcome {
  nonMicroblog := registry.NonMicroblog(sources)
  microblogSources := registry.Microblog(sources)

  outcomes := make([]Outcome, 0, len(sources))
  var mu sync.Mutex

  g, gctx := errgroup.WithContext(ctx)
  g.SetLimit(d.fetchConcurrency)

  for _, source := range nonMicroblog {
    source := source
    g.Go(func() error {
      items := d.fetchOne(gctx, source)
      mu.Lock()
      outcomes = append(outcomes, Outcome{Source: source, Items: DedupItems(items)})
      mu.Unlock()
      return nil
    })
  }
  _ = g.Wait()

  if d.microblog != nil {
    limiter := rate.NewLimiter(rate.Every(microblogInterQueryDelay), 1)
    for _, source := range microblogSources {
      if err := limiter.Wait(ctx); err != nil {
        break
      }
      items := d.microblog.Fetch(ctx, source)
      outcomes = append(outcomes, Outcome{Source: source, Items: DedupItems(items)})
    }
  }

  return outcomes
}

func (d *Dispatcher) fetchOne(ctx context.Context, source registry.Source) []CrawledItem {
  switch source.Type {
  case registry.SourceGovernmentPage, registry.SourceLegalDatabase:
    return d.page.Fetch(ctx, source)
  case registry.SourceRSSFeed, registry.SourceNewsSearch:
    return d.rss.Fetch(ctx, source)
  default:
    d.log.Warn("unknown source type, skipping", "source", source.Name, "type", source.Type)
    return nil
  }
}
