// Package fetch implements the per-source-type extractors described in
// the pipeline's fetch stage. Every fetcher has best-effort semantics:
// failures are absorbed and return an empty slice, never an abort.
package fetch

import (
  "time"

  "github.com/regwatch/engine/internal/registry"
)

// CrawledItem is the value object fetchers hand to the analyzer.
type CrawledItem struct {
  Source    registry.Source
  URL       string
  Title     string
  Text      string
  FetchedAt time.Time
}

// Outcome is the per-source result of a dispatch. Err has room for an
// absorbed fetch error, but Dispatcher.FetchAll leaves it nil: the
// fetchers log their failures and return no items instead.
type Outcome struct {
  Source registry.Source
  Items  []CrawledItem
  Err    error
}
