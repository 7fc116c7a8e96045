// Package registry holds the static, typed catalogue of web sources the
// pipeline crawls. It is pure data: no I/O, no mutation at runtime.
package registry

import "strings"

type SourceType string

const (
  SourceGovernmentPage SourceType = "government_page"
  SourceRSSFeed        SourceType = "rss_feed"
  SourceNewsSearch     SourceType = "news_search"
  SourceLegalDatabase  SourceType = "legal_database"
  SourceMicroblog      SourceType = "microblog_search"
)

type AuthorityType string

const (
  AuthorityNational      AuthorityType = "national"
  AuthorityState         AuthorityType = "state"
  AuthorityLocal         AuthorityType = "local"
  AuthoritySupranational AuthorityType = "supranational"
)

// Source is the value object produced for downstream collaborators
// (fetchers, the store's EnsureSource) describing one crawl target.
type Source struct {
  Name                string
  URL                 string
  Type                SourceType
  AuthorityType       AuthorityType
  Jurisdiction        string
  JurisdictionCountry string
  JurisdictionState   string
  ReliabilityTier     int
  SearchKeywords      []string
  Description         string
}

// IsMicroblog reports whether this source must go through the
// sequential, backoff-aware microblog fetcher rather than the bounded
// parallel batch fetcher.
func (s Source) IsMicroblog() bool {
  return s.Type == SourceMicroblog
}

// All returns the full static catalogue.
func All() []Source {
  out := make([]Source, len(catalogue))
  copy(out, catalogue)
  return out
}

// ByJurisdiction returns sources whose JurisdictionCountry matches
// (case-insensitive); an empty country returns the full catalogue.
func ByJurisdiction(country string) []Source {
  if strings.TrimSpace(country) == "" {
    return All()
  }
  want := strings.ToLower(strings.TrimSpace(country))
  var out []Source
  for _, s := range catalogue {
    if strings.ToLower(s.JurisdictionCountry) == want {
      out = append(out, s)
    }
  }
  return out
}

// MinReliability returns sources with ReliabilityTier >= tier.
func MinReliability(tier int) []Source {
  var out []Source
  for _, s := range catalogue {
    if s.ReliabilityTier >= tier {
      out = append(out, s)
    }
  }
  return out
}

// NonMicroblog returns every source except microblog_search ones.
func NonMicroblog(sources []Source) []Source {
  var out []Source
  for _, s := range sources {
    if !s.IsMicroblog() {
      out = append(out, s)
    }
  }
  return out
}

// Microblog returns only microblog_search sources.
func Microblog(sources []Source) []Source {
  var out []Source
  for _, s := range sources {
    if s.IsMicroblog() {
      out = append(out, s)
    }
  }
  return out
}
