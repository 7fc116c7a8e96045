package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/regwatch/engine/internal/handlers"
  "github.com/regwatch/engine/internal/logger"
  "github.com/regwatch/engine/internal/middleware"
)

type RouterConfig struct {
  BriefHandler  *handlers.BriefHandler
  EventsHandler *handlers.EventsHandler
  LawsHandler   *handlers.LawsHandler
  CrawlHandler  *handlers.CrawlHandler
  Log           *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.New()
  router.Use(gin.Recovery())
  router.Use(middleware.RequestLogger(cfg.Log))

  router.Use(cors.New(cors.Config{
    AllowOrigins:     []string{"*"},
    AllowMethods:     []string{"GET", "POST", "OPTIONS"},
    AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
    AllowCredentials: false,
  }))

  router.GET("/healthcheck", handlers.HealthCheck)

  api := router.Group("/api")
  {
    api.GET("/brief", cfg.BriefHandler.Get)

    api.GET("/events", cfg.EventsHandler.List)
    api.GET("/events/:id", cfg.EventsHandler.Detail)

    api.GET("/laws/:lawKey", cfg.LawsHandler.Detail)
    api.POST("/laws/rebuild", cfg.CrawlHandler.RebuildLaws)

    api.POST("/crawl/trigger", cfg.CrawlHandler.Trigger)
    api.GET("/crawl/status", cfg.CrawlHandler.Status)
  }

  return router
}
