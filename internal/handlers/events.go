package handlers

import (
  "net/http"
  "strconv"
  "strings"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/regwatch/engine/internal/query"
  "github.com/regwatch/engine/internal/store"
)

type EventsHandler struct {
  query *query.Surface
}

func NewEventsHandler(q *query.Surface) *EventsHandler {
  return &EventsHandler{query: q}
}

// List handles GET /api/events with the filter/sort/pagination
// contract of §4.8.
func (h *EventsHandler) List(c *gin.Context) {
  filter := store.EventFilter{
    Jurisdictions: splitCSV(c.Query("jurisdictions")),
    Stages:        splitCSV(c.Query("stages")),
    AgeBracket:    c.Query("age_bracket"),
    Q:             c.Query("q"),
    SortBy:        c.DefaultQuery("sort_by", "updated_at"),
    SortDir:       c.DefaultQuery("sort_dir", "desc"),
    Page:          atoiOr(c.Query("page"), 1),
    Limit:         atoiOr(c.Query("limit"), 100),
  }
  if raw := c.Query("min_risk"); raw != "" {
    if v, err := strconv.Atoi(raw); err == nil {
      filter.MinRisk = &v
    }
  }
  if raw := c.Query("max_risk"); raw != "" {
    if v, err := strconv.Atoi(raw); err == nil {
      filter.MaxRisk = &v
    }
  }
  if raw := c.Query("date_from"); raw != "" {
    filter.DateFrom = &raw
  }
  if raw := c.Query("date_to"); raw != "" {
    filter.DateTo = &raw
  }

  page, err := h.query.Events(filter)
  if err != nil {
    RespondError(c, http.StatusInternalServerError, "events_query_failed", err)
    return
  }

  c.Header("X-Total-Count", strconv.Itoa(page.Total))
  c.Header("X-Total-Pages", strconv.Itoa(page.TotalPages))
  c.Header("X-Current-Page", strconv.Itoa(page.Page))
  RespondOK(c, page)
}

// Detail handles GET /api/events/:id
func (h *EventsHandler) Detail(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_id", err)
    return
  }

  detail, err := h.query.EventDetail(id)
  if err != nil {
    RespondError(c, http.StatusNotFound, "event_not_found", err)
    return
  }
  RespondOK(c, detail)
}

func splitCSV(raw string) []string {
  if strings.TrimSpace(raw) == "" {
    return nil
  }
  parts := strings.Split(raw, ",")
  out := make([]string, 0, len(parts))
  for _, p := range parts {
    p = strings.TrimSpace(p)
    if p != "" {
      out = append(out, p)
    }
  }
  return out
}

func atoiOr(raw string, def int) int {
  if raw == "" {
    return def
  }
  v, err := strconv.Atoi(raw)
  if err != nil {
    return def
  }
  return v
}
