package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"

  "github.com/regwatch/engine/internal/query"
)

type BriefHandler struct {
  query *query.Surface
}

func NewBriefHandler(q *query.Surface) *BriefHandler {
  return &BriefHandler{query: q}
}

// Get handles GET /api/brief?limit=20
func (h *BriefHandler) Get(c *gin.Context) {
  limit := 20
  if raw := c.Query("limit"); raw != "" {
    if parsed, err := strconv.Atoi(raw); err == nil {
      limit = parsed
    }
  }

  result, err := h.query.Brief(limit)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "brief_failed", err)
    return
  }
  RespondOK(c, result)
}
