// Package canon implements the canonical-law inferrer: a pure function
// mapping observed text to a stable (lawKey, lawName, lawType,
// lawIdentifier) tuple. No I/O, no store dependency.
package canon

import (
  "regexp"
  "strings"
)

type Input struct {
  Title               string
  Summary             string
  Content             string
  JurisdictionCountry string
  JurisdictionState   string
}

type Result struct {
  LawName       string
  LawType       string
  LawIdentifier string
  LawKey        string
}

var stopWords = map[string]bool{
  "the": true, "a": true, "this": true, "for": true, "to": true,
  "under": true, "potentially": true,
}

var narrativeVerbs = map[string]bool{
  "has": true, "is": true, "are": true, "introduced": true,
  "enacted": true, "issued": true, "setting": true, "claims": true,
  "alleging": true, "follows": true,
}

var euContextRe = regexp.MustCompile(`(?i)\b(eu|european|commission|minors)\b|article\s*28|regulation\b`)
var ukContextRe = regexp.MustCompile(`(?i)\b(uk|united kingdom|ofcom)\b`)
var auContextRe = regexp.MustCompile(`(?i)\b(australia|acma)\b`)

var lawPhraseRe = regexp.MustCompile(`\b([A-Z][\w'.-]*(?:\s+(?:of|and|the|for)\s+[A-Z][\w'.-]*|\s+[A-Z0-9][\w'.-]*){0,8}\s+(?:Act|Bill|Directive|Regulation|Code|Rule))(\s+(?:19|20)\d{2})?\b`)

var billNumberRe = regexp.MustCompile(`\b(SB|HB|AB|HR)[-\s]?(\d{2,5})\b`)

// InferCanonicalLaw implements §4.5: the first match wins over
// (title, summary, content).
func InferCanonicalLaw(in Input) Result {
  combined := strings.Join([]string{in.Title, in.Summary, in.Content}, "\n")
  lower := strings.ToLower(combined)

  if res, ok := matchAlias(lower, combined, in); ok {
    return finish(res, in)
  }

  if res, ok := matchExplicitLawPhrase(combined); ok {
    return finish(res, in)
  }

  if res, ok := matchBillOnly(combined); ok {
    return finish(res, in)
  }

  return finish(subjectLineFallback(in.Title), in)
}

func finish(partial Result, in Input) Result {
  identOrName := partial.LawIdentifier
  if identOrName == "" {
    identOrName = partial.LawName
  }
  partial.LawKey = Key(in.JurisdictionCountry, in.JurisdictionState, identOrName)
  return partial
}

// --- Known-alias table ---

func matchAlias(lower, original string, in Input) (Result, bool) {
  switch {
  case strings.Contains(lower, "coppa") || strings.Contains(lower, "children's online privacy protection act") || strings.Contains(lower, "childrens online privacy protection act"):
    return Result{LawName: "Children's Online Privacy Protection Act (COPPA)", LawType: "act", LawIdentifier: "COPPA"}, true

  case strings.Contains(lower, "kosa") || strings.Contains(lower, "kids online safety act"):
    return Result{LawName: "Kids Online Safety Act (KOSA)", LawType: "act", LawIdentifier: "KOSA"}, true

  case strings.Contains(lower, "age-appropriate design code") || strings.Contains(lower, "age appropriate design code") || strings.Contains(lower, "ab-2273") || strings.Contains(lower, "ab 2273"):
    return Result{LawName: "California Age-Appropriate Design Code Act", LawType: "act", LawIdentifier: "AB-2273"}, true

  case strings.Contains(lower, "securing children online through parental empowerment") || strings.Contains(lower, "scope act"):
    return Result{LawName: "Securing Children Online through Parental Empowerment Act (SCOPE Act)", LawType: "act", LawIdentifier: "SCOPE-ACT"}, true

  case (strings.Contains(lower, "dsa") || strings.Contains(lower, "digital services act")) && euContextRe.MatchString(original):
    return Result{LawName: "Digital Services Act (DSA)", LawType: "regulation", LawIdentifier: "EU-DSA"}, true

  case strings.Contains(lower, "online safety act"):
    switch {
    case ukContextRe.MatchString(original):
      return Result{LawName: "Online Safety Act 2023 (UK)", LawType: "act", LawIdentifier: "UK-OSA-2023"}, true
    case auContextRe.MatchString(original):
      return Result{LawName: "Online Safety Act 2021 (Australia)", LawType: "act", LawIdentifier: "AU-OSA-2021"}, true
    default:
      return Result{LawName: "Online Safety Act", LawType: "act"}, true
    }

  case strings.Contains(lower, "gdpr") || strings.Contains(lower, "general data protection regulation"):
    return Result{LawName: "General Data Protection Regulation (GDPR)", LawType: "regulation", LawIdentifier: "GDPR"}, true

  case strings.Contains(lower, "dpdp") || strings.Contains(lower, "digital personal data protection"):
    return Result{LawName: "Digital Personal Data Protection Act (DPDP)", LawType: "act", LawIdentifier: "DPDP"}, true

  case strings.Contains(lower, "pdpa") || strings.Contains(lower, "personal data protection act"):
    return Result{LawName: "Personal Data Protection Act (PDPA)", LawType: "act", LawIdentifier: "PDPA"}, true
  }

  return Result{}, false
}

// --- Explicit law phrase ---

type phraseCandidate struct {
  name  string
  score int
}

func matchExplicitLawPhrase(text string) (Result, bool) {
  matches := lawPhraseRe.FindAllStringSubmatch(text, -1)
  var candidates []phraseCandidate

  for _, m := range matches {
    phrase := strings.TrimSpace(m[1])
    hasYear := strings.TrimSpace(m[2]) != ""

    words := strings.Fields(phrase)
    i := 0
    for i < len(words)-1 && stopWords[strings.ToLower(words[i])] {
      i++
    }
    head := words[i:]
    if len(head) == 0 {
      continue
    }
    if narrativeVerbs[strings.ToLower(head[0])] {
      continue
    }

    name := strings.Join(head, " ")
    if hasYear {
      name = name + m[2]
    }
    candidates = append(candidates, phraseCandidate{name: strings.TrimSpace(name), score: ScoreName(name)})
  }

  if len(candidates) == 0 {
    return Result{}, false
  }

  best := candidates[0]
  for _, c := range candidates[1:] {
    if c.score > best.score || (c.score == best.score && len([]rune(c.name)) < len([]rune(best.name))) {
      best = c
    }
  }

  result := Result{LawName: best.name, LawType: "law"}
  if billID := findBillNumber(text); billID != "" {
    result.LawIdentifier = billID
  }
  return result, true
}

// --- Bill-only fallback ---

func matchBillOnly(text string) (Result, bool) {
  billID := findBillNumber(text)
  if billID == "" {
    return Result{}, false
  }
  return Result{LawName: billID + " Bill", LawType: "bill", LawIdentifier: billID}, true
}

func findBillNumber(text string) string {
  m := billNumberRe.FindStringSubmatch(text)
  if m == nil {
    return ""
  }
  return strings.ToUpper(m[1]) + "-" + m[2]
}

// --- Subject-line fallback ---

func subjectLineFallback(title string) Result {
  lower := strings.ToLower(title)
  switch {
  case strings.Contains(lower, "online safety"):
    return Result{LawName: "Child Online Safety Law", LawType: "law"}
  case strings.Contains(lower, "age verification") || strings.Contains(lower, "age assurance"):
    return Result{LawName: "Age Verification Law", LawType: "law"}
  case strings.Contains(lower, "privacy") || strings.Contains(lower, "data protection") || strings.Contains(lower, "children's privacy") || strings.Contains(lower, "childrens privacy"):
    return Result{LawName: "Child Data Privacy Law", LawType: "law"}
  }

  words := strings.Fields(strings.TrimSpace(title))
  if len(words) == 0 {
    return Result{LawName: "Unspecified Law", LawType: "law"}
  }
  if len(words) > 7 {
    words = words[:7]
  }
  return Result{LawName: titleCase(strings.Join(words, " ")), LawType: "law"}
}

func titleCase(s string) string {
  words := strings.Fields(s)
  for i, w := range words {
    if w == "" {
      continue
    }
    r := []rune(w)
    r[0] = []rune(strings.ToUpper(string(r[0])))[0]
    words[i] = string(r)
  }
  return strings.Join(words, " ")
}
