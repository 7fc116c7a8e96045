package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/regwatch/engine/internal/query"
)

type LawsHandler struct {
  query *query.Surface
}

func NewLawsHandler(q *query.Surface) *LawsHandler {
  return &LawsHandler{query: q}
}

// Detail handles GET /api/laws/:lawKey
func (h *LawsHandler) Detail(c *gin.Context) {
  lawKey := c.Param("lawKey")
  detail, err := h.query.LawDetail(lawKey)
  if err != nil {
    RespondError(c, http.StatusNotFound, "law_not_found", err)
    return
  }
  RespondOK(c, detail)
}
