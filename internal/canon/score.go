package canon

import (
  "regexp"
  "strings"
)

var (
  lawKeywordRe = regexp.MustCompile(`(?i)\b(Act|Bill|Directive|Regulation|Code|Rule)\b`)
  yearRe       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

var knownAcronyms = []string{
  "COPPA", "KOSA", "GDPR", "DPDP", "PDPA", "DSA", "SCOPE", "AADC",
}

func containsKnownAcronym(name string) bool {
  upper := strings.ToUpper(name)
  for _, a := range knownAcronyms {
    if strings.Contains(upper, a) {
      return true
    }
  }
  return false
}

// ScoreName is the single scoring heuristic used both when choosing
// among explicit-law-phrase candidates (§4.5) and when the backfill
// engine picks the "best" canonical name among a law group's members
// (§4.6). Higher is better; ties break by shorter name at the call
// site.
func ScoreName(name string) int {
  score := 0
  if lawKeywordRe.MatchString(name) {
    score += 10
  }
  if yearRe.MatchString(name) {
    score += 2
  }
  if containsKnownAcronym(name) {
    score += 3
  }
  words := strings.Fields(name)
  if len(words) > 9 {
    score -= len(words) - 9
  }
  return score
}

// BestName picks the highest-scoring name from candidates, breaking
// ties by shorter rune length. Empty candidates are ignored. Returns
// "" if every candidate is empty.
func BestName(candidates []string) string {
  best := ""
  bestScore := 0
  hasBest := false
  for _, c := range candidates {
    c = strings.TrimSpace(c)
    if c == "" {
      continue
    }
    score := ScoreName(c)
    if !hasBest || score > bestScore || (score == bestScore && len([]rune(c)) < len([]rune(best))) {
      best = c
      bestScore = score
      hasBest = true
    }
  }
  return best
}
