package fetch

import (
  "context"
  "fmt"
  "io"
  "net/http"
  "regexp"
  "strings"
  "time"

  "github.com/regwatch/engine/internal/logger"
  "github.com/regwatch/engine/internal/registry"
)

const (
  rssTimeout  = 30 * time.Second
  rssBodyCap  = 12 * 1024
  rssMaxItems = 10
)

var (
  itemBlockRe  = regexp.MustCompile(`(?is)<(item|entry)\b[^>]*>(.*?)</(?:item|entry)>`)
  titleRe      = regexp.MustCompile(`(?is)<title\b[^>]*>(.*?)</title>`)
  linkHrefRe   = regexp.MustCompile(`(?is)<link\b[^>]*\bhref\s*=\s*["']([^"']+)["'][^>]*/?>`)
  linkTextRe   = regexp.MustCompile(`(?is)<link\b[^>]*>(.*?)</link>`)
  descRe       = regexp.MustCompile(`(?is)<description\b[^>]*>(.*?)</description>`)
  summaryRe    = regexp.MustCompile(`(?is)<summary\b[^>]*>(.*?)</summary>`)
  contentRe    = regexp.MustCompile(`(?is)<content(?::encoded)?\b[^>]*>(.*?)</content(?::encoded)?>`)
  cdataRe      = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
  tagStripRe   = regexp.MustCompile(`(?s)<[^>]+>`)
)

type RSSFetcher struct {
  log    *logger.Logger
  client *http.Client
}

func NewRSSFetcher(log *logger.Logger) *RSSFetcher {
  return &RSSFetcher{
    log:    log.With("fetcher", "rss"),
    client: &http.Client{Timeout: rssTimeout},
  }
}

// Fetch implements the rss_feed / news_search extractor: up to
// rssMaxItems entries, each becoming one CrawledItem that reuses the
// parent Source (so downstream joins work) but carries its own URL and
// title.
func (f *RSSFetcher) Fetch(ctx context.Context, source registry.Source) []CrawledItem {
  body, err := f.get(ctx, source.URL)
  if err != nil {
    f.log.Warn("rss fetch failed", "source", source.Name, "url", source.URL, "error", err)
    return nil
  }

  blocks := itemBlockRe.FindAllStringSubmatch(body, rssMaxItems)
  if len(blocks) == 0 {
    return nil
  }

  now := time.Now()
  items := make([]CrawledItem, 0, len(blocks))
  for _, b := range blocks {
    block := b[2]
    title := collapseWS(stripTags(firstMatch(titleRe, block)))
    link := rssLink(block)
    text := collapseWS(stripTags(rssBody(block)))
    if title == "" && text == "" {
      continue
    }
    items = append(items, CrawledItem{
      Source:    source,
      URL:       link,
      Title:     title,
      Text:      text,
      FetchedAt: now,
    })
  }
  return items
}

func (f *RSSFetcher) get(ctx context.Context, url string) (string, error) {
  req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
  if err != nil {
    return "", err
  }
  req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; RegWatchBot/1.0; +https://regwatch.example/bot)")

  resp, err := f.client.Do(req)
  if err != nil {
    return "", err
  }
  defer resp.Body.Close()

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
  }

  raw, err := io.ReadAll(io.LimitReader(resp.Body, rssBodyCap))
  if err != nil {
    return "", err
  }
  return string(raw), nil
}

func rssLink(block string) string {
  if m := linkHrefRe.FindStringSubmatch(block); len(m) > 1 {
    return strings.TrimSpace(m[1])
  }
  if m := linkTextRe.FindStringSubmatch(block); len(m) > 1 {
    return strings.TrimSpace(stripCDATA(m[1]))
  }
  return ""
}

func rssBody(block string) string {
  if m := descRe.FindStringSubmatch(block); len(m) > 1 {
    return stripCDATA(m[1])
  }
  if m := summaryRe.FindStringSubmatch(block); len(m) > 1 {
    return stripCDATA(m[1])
  }
  if m := contentRe.FindStringSubmatch(block); len(m) > 1 {
    return stripCDATA(m[1])
  }
  return ""
}

func firstMatch(re *regexp.Regexp, s string) string {
  if m := re.FindStringSubmatch(s); len(m) > 1 {
    return stripCDATA(m[1])
  }
  return ""
}

func stripCDATA(s string) string {
  if m := cdataRe.FindStringSubmatch(s); len(m) > 1 {
    return m[1]
  }
  return s
}

func stripTags(s string) string {
  return tagStripRe.ReplaceAllString(s, " ")
}
