package fetch

import "strings"

// DedupItems collapses items whose (source.name, url) matches, or -
// when URL is empty - whose (source.name, text-hash) matches.
func DedupItems(items []CrawledItem) []CrawledItem {
  seen := make(map[string]bool, len(items))
  out := make([]CrawledItem, 0, len(items))

  for _, item := range items {
    key := dedupKey(item)
    if seen[key] {
      continue
    }
    seen[key] = true
    out = append(out, item)
  }
  return out
}

func dedupKey(item CrawledItem) string {
  name := strings.ToLower(strings.TrimSpace(item.Source.Name))
  url := strings.TrimSpace(item.URL)
  if url != "" {
    return name + "|url:" + strings.ToLower(url)
  }
  return name + "|text:" + TextHash(item.Text)
}
