package config

import (
  "time"

  "github.com/regwatch/engine/internal/logger"
  "github.com/regwatch/engine/internal/utils"
)

// Config holds every environment knob recognized by the pipeline, per
// the external-interfaces section of the spec this engine implements.
type Config struct {
  DatabasePath string
  HTTPPort     string
  LogMode      string

  MinimaxAPIKey string
  XBearerToken  string

  AnalysisConcurrency int
  FetchConcurrency    int

  XAPITimeout     time.Duration
  XAPIMaxRetries  int
  XAPIBaseBackoff time.Duration
  XAPIMaxBackoff  time.Duration

  CrawlIntervalMinutes int
}

func Load(log *logger.Logger) *Config {
  analysisConcurrency := utils.GetEnvAsInt("ANALYSIS_CONCURRENCY", 12, log)
  if analysisConcurrency < 10 {
    analysisConcurrency = 10
  }

  return &Config{
    DatabasePath:         utils.GetEnv("DATABASE_PATH", "regwatch.db", log),
    HTTPPort:             utils.GetEnv("HTTP_PORT", "8080", log),
    LogMode:              utils.GetEnv("LOG_MODE", "development", log),
    MinimaxAPIKey:        utils.GetEnv("MINIMAX_API_KEY", "", log),
    XBearerToken:         utils.GetEnv("X_BEARER_TOKEN", "", log),
    AnalysisConcurrency:  analysisConcurrency,
    FetchConcurrency:     utils.GetEnvAsInt("FETCH_CONCURRENCY", 5, log),
    XAPITimeout:          time.Duration(utils.GetEnvAsInt("X_API_TIMEOUT_MS", 60000, log)) * time.Millisecond,
    XAPIMaxRetries:       utils.GetEnvAsInt("X_API_MAX_RETRIES", 4, log),
    XAPIBaseBackoff:      time.Duration(utils.GetEnvAsInt("X_API_BASE_BACKOFF_MS", 1500, log)) * time.Millisecond,
    XAPIMaxBackoff:       time.Duration(utils.GetEnvAsInt("X_API_MAX_BACKOFF_MS", 30000, log)) * time.Millisecond,
    CrawlIntervalMinutes: utils.GetEnvAsInt("CRAWL_INTERVAL_MINUTES", 360, log),
  }
}

// HasAnalyzer reports whether the analyzer can be started; absent the
// pipeline refuses to start a run (§6).
func (c *Config) HasAnalyzer() bool {
  return c.MinimaxAPIKey != ""
}

// HasMicroblog reports whether microblog_search sources should be
// included; absent they are silently skipped (§6).
func (c *Config) HasMicroblog() bool {
  return c.XBearerToken != ""
}
