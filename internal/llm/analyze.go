package llm

import (
  "context"
  "encoding/json"
  "regexp"
  "strings"
  "time"

  "github.com/regwatch/engine/internal/fetch"
  "github.com/regwatch/engine/internal/regtypes"
)

const (
  analyzeTimeout = 60 * time.Second
  maxItemText    = 8 * 1024
)

const systemPrompt = `You are a regulatory analyst. Given a source name, URL, title, and ` +
  `text excerpt about a possible law, bill, or regulatory action affecting minors online, ` +
  `respond with a single JSON object and nothing else. If the item is not about a specific ` +
  `regulation, bill, or enforcement action relevant to minors' online safety or privacy, ` +
  `respond with {"relevant": false}. Otherwise respond with an object containing: ` +
  `relevant (true), title, jurisdiction_country, jurisdiction_state, stage ` +
  `(one of proposed, introduced, committee_review, passed, enacted, effective, amended, ` +
  `withdrawn, rejected), is_under16_applicable (bool), age_bracket (one of "13-15", "16-18", ` +
  `"both"), impact, likelihood, confidence, chili (integers 1-5), summary, business_impact, ` +
  `required_solutions (array of strings), affected_products (array of strings), ` +
  `competitor_responses (array of strings), effective_date, published_date.`

// AnalysisResult is the normalized, clamped output of the analyzer. A
// nil result with a nil error means the item was judged irrelevant.
type AnalysisResult struct {
  Title               string
  JurisdictionCountry string
  JurisdictionState   string
  Stage               regtypes.Stage
  IsUnder16Applicable bool
  AgeBracket          regtypes.AgeBracket
  Impact              int
  Likelihood          int
  Confidence          int
  Chili               int
  Summary             string
  BusinessImpact      string
  RequiredSolutions   []string
  AffectedProducts    []string
  CompetitorResponses []string
  EffectiveDate       *string
  PublishedDate       *string
}

var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
var braceRe = regexp.MustCompile(`(?s)\{.*\}`)

// Analyzer calls the external LLM endpoint per item and normalizes the
// response. A nil *AnalysisResult with a nil error signals "irrelevant,
// skip"; a non-nil error signals a failure the pipeline should drop.
type Analyzer struct {
  client *Client
}

func NewAnalyzer(client *Client) *Analyzer {
  return &Analyzer{client: client}
}

func (a *Analyzer) Analyze(ctx context.Context, item fetch.CrawledItem) (*AnalysisResult, error) {
  ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
  defer cancel()

  text := item.Text
  if len([]byte(text)) > maxItemText {
    text = truncateBytes(text, maxItemText)
  }

  userContent := "Source: " + item.Source.Name + "\nURL: " + item.URL + "\nTitle: " + item.Title + "\nText: " + text

  raw, err := a.client.Complete(ctx, systemPrompt, userContent)
  if err != nil {
    return nil, err
  }

  obj, ok := parseJSONObject(raw)
  if !ok {
    return nil, nil
  }

  if relevant, present := obj["relevant"].(bool); present && !relevant {
    return nil, nil
  }

  return normalize(obj), nil
}

func parseJSONObject(raw string) (map[string]any, bool) {
  candidate := strings.TrimSpace(raw)
  if m := jsonFenceRe.FindStringSubmatch(candidate); len(m) > 1 {
    candidate = strings.TrimSpace(m[1])
  }

  var obj map[string]any
  if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
    return obj, true
  }

  if m := braceRe.FindString(candidate); m != "" {
    if err := json.Unmarshal([]byte(m), &obj); err == nil {
      return obj, true
    }
  }

  return nil, false
}

func normalize(obj map[string]any) *AnalysisResult {
  return &AnalysisResult{
    Title:               strOr(obj["title"], ""),
    JurisdictionCountry: strOr(obj["jurisdiction_country"], ""),
    JurisdictionState:   strOr(obj["jurisdiction_state"], ""),
    Stage:               regtypes.CoerceStage(strOr(obj["stage"], "")),
    IsUnder16Applicable: boolOr(obj["is_under16_applicable"], false),
    AgeBracket:          regtypes.CoerceAgeBracket(strOr(obj["age_bracket"], "")),
    Impact:              clampField(obj["impact"]),
    Likelihood:          clampField(obj["likelihood"]),
    Confidence:          clampField(obj["confidence"]),
    Chili:               clampField(obj["chili"]),
    Summary:             strOr(obj["summary"], ""),
    BusinessImpact:      strOr(obj["business_impact"], ""),
    RequiredSolutions:   strArrOr(obj["required_solutions"]),
    AffectedProducts:    strArrOr(obj["affected_products"]),
    CompetitorResponses: strArrOr(obj["competitor_responses"]),
    EffectiveDate:       strPtrOr(obj["effective_date"]),
    PublishedDate:       strPtrOr(obj["published_date"]),
  }
}

func clampField(v any) int {
  f, ok := toFloat(v)
  return regtypes.ClampScore(f, ok)
}

func toFloat(v any) (float64, bool) {
  switch n := v.(type) {
  case float64:
    return n, true
  case int:
    return float64(n), true
  default:
    return 0, false
  }
}

func strOr(v any, def string) string {
  if s, ok := v.(string); ok {
    return s
  }
  return def
}

func strPtrOr(v any) *string {
  if s, ok := v.(string); ok && s != "" {
    return &s
  }
  return nil
}

func boolOr(v any, def bool) bool {
  if b, ok := v.(bool); ok {
    return b
  }
  return def
}

func strArrOr(v any) []string {
  arr, ok := v.([]any)
  if !ok {
    return []string{}
  }
  out := make([]string, 0, len(arr))
  for _, e := range arr {
    if s, ok := e.(string); ok {
      out = append(out, s)
    }
  }
  return out
}

func truncateBytes(s string, n int) string {
  b := []byte(s)
  if len(b) <= n {
    return s
  }
  return string(b[:n])
}
