package fetch

import (
  "context"
  "crypto/sha1"
  "encoding/hex"
  "encoding/json"
  "fmt"
  "io"
  "math/rand"
  "net/http"
  "strconv"
  "strings"
  "time"

  "github.com/regwatch/engine/internal/logger"
  "github.com/regwatch/engine/internal/registry"
)

const microblogSearchURL = "https://api.x.example/2/tweets/search/recent"

// MicroblogFetcher implements the microblog_search extractor: a
// paginated, bearer-token-authenticated recent-search call, retried
// with exponential backoff on rate-limit and server errors.
type MicroblogFetcher struct {
  log         *logger.Logger
  client      *http.Client
  bearerToken string
  maxRetries  int
  baseBackoff time.Duration
  maxBackoff  time.Duration
}

func NewMicroblogFetcher(log *logger.Logger, bearerToken string, timeout time.Duration, maxRetries int, baseBackoff, maxBackoff time.Duration) *MicroblogFetcher {
  return &MicroblogFetcher{
    log:         log.With("fetcher", "microblog"),
    client:      &http.Client{Timeout: timeout},
    bearerToken: bearerToken,
    maxRetries:  maxRetries,
    baseBackoff: baseBackoff,
    maxBackoff:  maxBackoff,
  }
}

type tweetUser struct {
  ID       string `json:"id"`
  Username string `json:"username"`
  Name     string `json:"name"`
}

type tweetMetrics struct {
  LikeCount   int `json:"like_count"`
  RetweetCount int `json:"retweet_count"`
  ReplyCount  int `json:"reply_count"`
}

type tweet struct {
  ID             string       `json:"id"`
  Text           string       `json:"text"`
  AuthorID       string       `json:"author_id"`
  CreatedAt      string       `json:"created_at"`
  PublicMetrics  tweetMetrics `json:"public_metrics"`
}

type searchResponse struct {
  Data     []tweet `json:"data"`
  Includes struct {
    Users []tweetUser `json:"users"`
  } `json:"includes"`
  Meta struct {
    NextToken string `json:"next_token"`
  } `json:"meta"`
}

// Fetch runs one recent-search query for the source, following
// pagination tokens, and returns one CrawledItem per tweet. Tweet IDs
// are deduplicated within this single call.
func (f *MicroblogFetcher) Fetch(ctx context.Context, source registry.Source) []CrawledItem {
  if f.bearerToken == "" {
    return nil
  }

  seen := make(map[string]bool)
  var items []CrawledItem
  nextToken := ""

  for {
    resp, err := f.searchOnce(ctx, source.URL, nextToken)
    if err != nil {
      f.log.Warn("microblog fetch failed", "source", source.Name, "error", err)
      break
    }

    users := make(map[string]tweetUser, len(resp.Includes.Users))
    for _, u := range resp.Includes.Users {
      users[u.ID] = u
    }

    for _, tw := range resp.Data {
      if tw.ID == "" || seen[tw.ID] {
        continue
      }
      seen[tw.ID] = true
      items = append(items, tweetToItem(source, tw, users[tw.AuthorID]))
    }

    if resp.Meta.NextToken == "" || len(resp.Data) == 0 {
      break
    }
    nextToken = resp.Meta.NextToken
  }

  return items
}

func tweetToItem(source registry.Source, tw tweet, user tweetUser) CrawledItem {
  author := user.Username
  if author == "" {
    author = tw.AuthorID
  }
  url := fmt.Sprintf("https://x.example/%s/status/%s", author, tw.ID)
  text := fmt.Sprintf("@%s | %s | %s | likes=%d retweets=%d replies=%d | %s",
    author, url, tw.CreatedAt,
    tw.PublicMetrics.LikeCount, tw.PublicMetrics.RetweetCount, tw.PublicMetrics.ReplyCount,
    tw.Text,
  )
  return CrawledItem{
    Source:    source,
    URL:       url,
    Title:     collapseWS(truncateRunes(tw.Text, 200)),
    Text:      text,
    FetchedAt: time.Now(),
  }
}

func truncateRunes(s string, n int) string {
  r := []rune(s)
  if len(r) <= n {
    return s
  }
  return string(r[:n])
}

func (f *MicroblogFetcher) searchOnce(ctx context.Context, query, nextToken string) (*searchResponse, error) {
  backoff := f.baseBackoff

  for attempt := 0; attempt <= f.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return nil, ctx.Err()
    }

    resp, raw, retryAfter, err := f.doSearch(ctx, query, nextToken)
    if err == nil {
      var out searchResponse
      if jErr := json.Unmarshal(raw, &out); jErr != nil {
        return nil, fmt.Errorf("decode search response: %w", jErr)
      }
      return &out, nil
    }

    statusErr, ok := err.(*httpStatusError)
    if !ok || !isRetryableStatus(statusErr.Code) {
      return nil, err
    }
    if attempt == f.maxRetries {
      return nil, err
    }

    sleep := backoff
    if retryAfter > 0 {
      sleep = retryAfter
    }
    if sleep > f.maxBackoff {
      sleep = f.maxBackoff
    }
    sleep = jitter(sleep)

    f.log.Warn("microblog request retrying",
      "attempt", attempt+1,
      "max_retries", f.maxRetries,
      "sleep", sleep.String(),
      "status", statusErr.Code,
    )

    select {
    case <-ctx.Done():
      return nil, ctx.Err()
    case <-time.After(sleep):
    }

    backoff *= 2
    _ = resp
  }

  return nil, fmt.Errorf("microblog search exhausted retries")
}

type httpStatusError struct {
  Code int
}

func (e *httpStatusError) Error() string {
  return fmt.Sprintf("microblog search http %d", e.Code)
}

func isRetryableStatus(code int) bool {
  if code == 408 || code == 429 {
    return true
  }
  return code >= 500 && code <= 599
}

func (f *MicroblogFetcher) doSearch(ctx context.Context, query, nextToken string) (*http.Response, []byte, time.Duration, error) {
  req, err := http.NewRequestWithContext(ctx, http.MethodGet, microblogSearchURL, nil)
  if err != nil {
    return nil, nil, 0, err
  }

  q := req.URL.Query()
  q.Set("query", query)
  q.Set("max_results", "100")
  q.Set("tweet.fields", "created_at,author_id,public_metrics")
  q.Set("expansions", "author_id")
  if nextToken != "" {
    q.Set("next_token", nextToken)
  }
  req.URL.RawQuery = q.Encode()
  req.Header.Set("Authorization", "Bearer "+f.bearerToken)

  resp, err := f.client.Do(req)
  if err != nil {
    return nil, nil, 0, err
  }
  defer resp.Body.Close()

  raw, err := io.ReadAll(resp.Body)
  if err != nil {
    return resp, nil, 0, err
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return resp, raw, retryAfterOf(resp), &httpStatusError{Code: resp.StatusCode}
  }
  return resp, raw, 0, nil
}

func retryAfterOf(resp *http.Response) time.Duration {
  if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
    if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
      return time.Duration(secs) * time.Second
    }
  }
  if reset := strings.TrimSpace(resp.Header.Get("x-rate-limit-reset")); reset != "" {
    if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
      d := time.Until(time.Unix(epoch, 0))
      if d > 0 {
        return d
      }
    }
  }
  return 0
}

func jitter(base time.Duration) time.Duration {
  if base <= 0 {
    return 0
  }
  delta := base.Seconds() * 0.2
  low := base.Seconds() - delta
  high := base.Seconds() + delta
  if low < 0 {
    low = 0
  }
  v := low + rand.Float64()*(high-low)
  return time.Duration(v * float64(time.Second))
}

// TextHash is sha1 of whitespace-collapsed lowercased text, used as the
// content-identity half of the output dedup key.
func TextHash(text string) string {
  norm := strings.ToLower(collapseWS(text))
  sum := sha1.Sum([]byte(norm))
  return hex.EncodeToString(sum[:])
}
