package fetch

import (
  "context"
  "fmt"
  "io"
  "net/http"
  "regexp"
  "strings"
  "time"

  "golang.org/x/net/html"

  "github.com/regwatch/engine/internal/logger"
  "github.com/regwatch/engine/internal/registry"
)

const (
  pageTimeout   = 30 * time.Second
  pageBodyCap   = 12 * 1024
  pageTitleCap  = 200
  pageEnrichMin = 200
)

var skipTags = map[string]bool{
  "script": true,
  "style":  true,
  "nav":    true,
  "footer": true,
  "header": true,
}

var wsRe = regexp.MustCompile(`\s+`)

type PageFetcher struct {
  log    *logger.Logger
  client *http.Client
}

func NewPageFetcher(log *logger.Logger) *PageFetcher {
  return &PageFetcher{
    log:    log.With("fetcher", "page"),
    client: &http.Client{Timeout: pageTimeout},
  }
}

// Fetch implements the government_page / legal_database extractor.
// Best-effort: any failure returns an empty slice, never an error to
// the caller.
func (f *PageFetcher) Fetch(ctx context.Context, source registry.Source) []CrawledItem {
  body, err := f.get(ctx, source.URL)
  if err != nil {
    f.log.Warn("page fetch failed", "source", source.Name, "url", source.URL, "error", err)
    return nil
  }

  title, text, meta := stripHTML(body)
  title = capRunes(title, pageTitleCap)

  if len([]rune(text)) < pageEnrichMin {
    text = enrichText(text, meta, source)
  }

  if title == "" {
    title = source.Name
  }

  return []CrawledItem{{
    Source:    source,
    URL:       source.URL,
    Title:     title,
    Text:      text,
    FetchedAt: time.Now(),
  }}
}

func (f *PageFetcher) get(ctx context.Context, url string) (string, error) {
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

  limited := io.LimitReader(resp.Body, pageBodyCap)
  raw, err := io.ReadAll(limited)
  if err != nil {
    return "", err
  }
  return string(raw), nil
}

type pageMeta struct {
  ogTitle       string
  ogDescription string
  description   string
}

// stripHTML walks the document with an html.Tokenizer, dropping
// script/style/nav/footer/header subtrees, decoding entities via the
// tokenizer itself, and collapsing whitespace. It also pulls out
// <title> and a handful of meta tags used for enrichment.
func stripHTML(doc string) (title, text string, meta pageMeta) {
  tokenizer := html.NewTokenizer(strings.NewReader(doc))

  var sb strings.Builder
  var titleSB strings.Builder
  inTitle := false
  skipDepth := 0
  var skipTagName string

  for {
    tt := tokenizer.Next()
    if tt == html.ErrorToken {
      break
    }
    tok := tokenizer.Token()

    switch tt {
    case html.StartTagToken, html.SelfClosingTagToken:
      name := strings.ToLower(tok.Data)
      if name == "title" {
        inTitle = true
      }
      if name == "meta" {
        applyMeta(&meta, tok)
      }
      if skipDepth == 0 && skipTags[name] && tt == html.StartTagToken {
        skipDepth = 1
        skipTagName = name
      } else if skipDepth > 0 && name == skipTagName {
        skipDepth++
      }
    case html.EndTagToken:
      name := strings.ToLower(tok.Data)
      if name == "title" {
        inTitle = false
      }
      if skipDepth > 0 && name == skipTagName {
        skipDepth--
      }
    case html.TextToken:
      if skipDepth > 0 {
        continue
      }
      if inTitle {
        titleSB.WriteString(tok.Data)
        continue
      }
      sb.WriteString(tok.Data)
      sb.WriteString(" ")
    }
  }

  title = collapseWS(titleSB.String())
  text = collapseWS(sb.String())
  return title, text, meta
}

func applyMeta(meta *pageMeta, tok html.Token) {
  var name, property, content string
  for _, a := range tok.Attr {
    switch strings.ToLower(a.Key) {
    case "name":
      name = strings.ToLower(a.Val)
    case "property":
      property = strings.ToLower(a.Val)
    case "content":
      content = a.Val
    }
  }
  switch {
  case property == "og:title":
    meta.ogTitle = content
  case property == "og:description":
    meta.ogDescription = content
  case name == "description":
    meta.description = content
  }
}

func enrichText(text string, meta pageMeta, source registry.Source) string {
  parts := []string{text}
  if meta.ogDescription != "" {
    parts = append(parts, meta.ogDescription)
  }
  if meta.description != "" {
    parts = append(parts, meta.description)
  }
  if meta.ogTitle != "" {
    parts = append(parts, meta.ogTitle)
  }
  parts = append(parts, source.Name, source.Description)
  if len(source.SearchKeywords) > 0 {
    parts = append(parts, strings.Join(source.SearchKeywords, " "))
  }
  return collapseWS(strings.Join(parts, " "))
}

func collapseWS(s string) string {
  return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

func capRunes(s string, n int) string {
  r := []rune(s)
  if len(r) <= n {
    return s
  }
  return string(r[:n])
}
