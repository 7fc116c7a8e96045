package main

import (
  "context"
  "fmt"
  "os"

  "github.com/robfig/cron"

  "github.com/regwatch/engine/internal/backfill"
  "github.com/regwatch/engine/internal/config"
  "github.com/regwatch/engine/internal/coordinator"
  "github.com/regwatch/engine/internal/fetch"
  "github.com/regwatch/engine/internal/handlers"
  "github.com/regwatch/engine/internal/llm"
  "github.com/regwatch/engine/internal/logger"
  "github.com/regwatch/engine/internal/notify"
  "github.com/regwatch/engine/internal/query"
  "github.com/regwatch/engine/internal/registry"
  "github.com/regwatch/engine/internal/server"
  "github.com/regwatch/engine/internal/store"
)

func main() {
  log, err := logger.New(os.Getenv("LOG_MODE"))
  if err != nil {
    fmt.Printf("failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  log.Info("loading configuration...")
  cfg := config.Load(log)

  db, err := store.New(cfg.DatabasePath, log)
  if err != nil {
    log.Error("failed to open store", "error", err)
    os.Exit(1)
  }

  log.Info("running startup backfill...")
  if _, err := backfill.Run(db.DB(), log); err != nil {
    log.Warn("startup backfill failed", "error", err)
  }

  pageFetcher := fetch.NewPageFetcher(log)
  rssFetcher := fetch.NewRSSFetcher(log)

  var microblogFetcher *fetch.MicroblogFetcher
  if cfg.HasMicroblog() {
    microblogFetcher = fetch.NewMicroblogFetcher(log, cfg.XBearerToken, cfg.XAPITimeout, cfg.XAPIMaxRetries, cfg.XAPIBaseBackoff, cfg.XAPIMaxBackoff)
  } else {
    log.Warn("X_BEARER_TOKEN not set, microblog sources will be skipped")
  }

  dispatcher := fetch.NewDispatcher(log, pageFetcher, rssFetcher, microblogFetcher, cfg.FetchConcurrency)

  var analyzer *llm.Analyzer
  if cfg.HasAnalyzer() {
    client := llm.NewClient(log, "", cfg.MinimaxAPIKey, "", 0, cfg.XAPITimeout, cfg.XAPIMaxRetries, cfg.XAPIBaseBackoff, cfg.XAPIMaxBackoff)
    analyzer = llm.NewAnalyzer(client)
  } else {
    log.Warn("MINIMAX_API_KEY not set, crawl triggers will be refused")
  }

  notifier := notify.New(db.DB(), log)
  coord := coordinator.New(db, dispatcher, analyzer, notifier, cfg.AnalysisConcurrency, log)

  querySurface := query.New(db)

  briefHandler := handlers.NewBriefHandler(querySurface)
  eventsHandler := handlers.NewEventsHandler(querySurface)
  lawsHandler := handlers.NewLawsHandler(querySurface)
  crawlHandler := handlers.NewCrawlHandler(coord, db, log)

  router := server.NewRouter(server.RouterConfig{
    BriefHandler:  briefHandler,
    EventsHandler: eventsHandler,
    LawsHandler:   lawsHandler,
    CrawlHandler:  crawlHandler,
    Log:           log,
  })

  scheduler := cron.New()
  spec := fmt.Sprintf("@every %dm", cfg.CrawlIntervalMinutes)
  if err := scheduler.AddFunc(spec, func() {
    log.Info("periodic recrawl firing")
    if _, err := coord.TriggerAsync(context.Background(), registry.All()); err != nil {
      log.Warn("periodic recrawl not started", "error", err)
    }
  }); err != nil {
    log.Warn("failed to schedule periodic recrawl", "error", err)
  } else {
    scheduler.Start()
    defer scheduler.Stop()
  }

  log.Info("server listening", "port", cfg.HTTPPort)
  if err := router.Run(":" + cfg.HTTPPort); err != nil {
    log.Error("server failed", "error", err)
    os.Exit(1)
  }
}
