// Package llm implements the analyzer: a client for the external
// LLM endpoint plus the parsing/clamping rules that turn its raw JSON
// response into a validated AnalysisResult.
package llm

import (
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "math/rand"
  "net"
  "net/http"
  "strconv"
  "strings"
  "time"

  "github.com/regwatch/engine/internal/logger"
)

const apiVersion = "2023-06-01"

// Client speaks the single wire contract the core owns: a JSON body of
// {model, max_tokens, messages} with content-type/x-api-key/
// anthropic-version headers, returning content[0].text.
type Client struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  maxTokens  int
  httpClient *http.Client
  maxRetries int
  baseBackoff time.Duration
  maxBackoff  time.Duration
}

func NewClient(log *logger.Logger, baseURL, apiKey, model string, maxTokens int, timeout time.Duration, maxRetries int, baseBackoff, maxBackoff time.Duration) *Client {
  if baseURL == "" {
    baseURL = "https://api.regwatch-llm.example"
  }
  if model == "" {
    model = "analyst-v1"
  }
  if maxTokens <= 0 {
    maxTokens = 1024
  }
  return &Client{
    log:         log.With("component", "llm.Client"),
    baseURL:     baseURL,
    apiKey:      apiKey,
    model:       model,
    maxTokens:   maxTokens,
    httpClient:  &http.Client{Timeout: timeout},
    maxRetries:  maxRetries,
    baseBackoff: baseBackoff,
    maxBackoff:  maxBackoff,
  }
}

type message struct {
  Role    string `json:"role"`
  Content string `json:"content"`
}

type completionRequest struct {
  Model     string    `json:"model"`
  MaxTokens int       `json:"max_tokens"`
  Messages  []message `json:"messages"`
}

type contentBlock struct {
  Text string `json:"text"`
}

type completionResponse struct {
  Content []contentBlock `json:"content"`
}

type httpError struct {
  StatusCode int
  Body       string
}

func (e *httpError) Error() string {
  return fmt.Sprintf("llm endpoint http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
  if code == 408 || code == 429 {
    return true
  }
  return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
  if err == nil {
    return false
  }
  var netErr net.Error
  if errors.As(err, &netErr) {
    return netErr.Timeout()
  }
  var httpErr *httpError
  if errors.As(err, &httpErr) {
    return isRetryableHTTP(httpErr.StatusCode)
  }
  return false
}

func jitterSleep(base time.Duration) time.Duration {
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

func (c *Client) doOnce(ctx context.Context, prompt, text string) (*http.Response, []byte, error) {
  body := completionRequest{
    Model:     c.model,
    MaxTokens: c.maxTokens,
    Messages: []message{
      {Role: "user", Content: prompt + "\n\n" + text},
    },
  }

  var buf bytes.Buffer
  if err := json.NewEncoder(&buf).Encode(body); err != nil {
    return nil, nil, err
  }

  req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", &buf)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("content-type", "application/json")
  req.Header.Set("x-api-key", c.apiKey)
  req.Header.Set("anthropic-version", apiVersion)

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, nil, err
  }
  defer resp.Body.Close()

  raw, err := io.ReadAll(resp.Body)
  if err != nil {
    return resp, nil, err
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return resp, raw, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return resp, raw, nil
}

// Complete sends the fixed system prompt plus item text and returns
// the raw text of the model's reply (expected to be a JSON object per
// §4.3), retrying on timeouts/429/5xx with exponential backoff honoring
// Retry-After.
func (c *Client) Complete(ctx context.Context, prompt, text string) (string, error) {
  backoff := c.baseBackoff

  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return "", ctx.Err()
    }

    resp, raw, err := c.doOnce(ctx, prompt, text)
    if err == nil {
      var out completionResponse
      if uErr := json.Unmarshal(raw, &out); uErr != nil {
        return "", fmt.Errorf("decode llm response: %w", uErr)
      }
      if len(out.Content) == 0 {
        return "", fmt.Errorf("empty llm response content")
      }
      return out.Content[0].Text, nil
    }

    if !isRetryableErr(err) {
      return "", err
    }
    if attempt == c.maxRetries {
      return "", err
    }

    sleep := backoff
    if resp != nil {
      if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
        if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
          sleep = time.Duration(secs) * time.Second
        }
      }
    }
    if sleep > c.maxBackoff {
      sleep = c.maxBackoff
    }
    sleep = jitterSleep(sleep)

    c.log.Warn("llm request retrying", "attempt", attempt+1, "max_retries", c.maxRetries, "sleep", sleep.String(), "error", err.Error())

    select {
    case <-ctx.Done():
      return "", ctx.Err()
    case <-time.After(sleep):
    }

    backoff *= 2
  }

  return "", fmt.Errorf("unreachable retry loop")
}
