// Package query is a thin wrapper over internal/store's read paths.
// It returns plain structs; internal/handlers is the only place that
// knows about HTTP status codes and header names.
package query

import (
  "github.com/google/uuid"

  "github.com/regwatch/engine/internal/store"
)

type Surface struct {
  store *store.Store
}

func New(s *store.Store) *Surface {
  return &Surface{store: s}
}

func (s *Surface) Brief(limit int) (store.BriefResult, error) {
  return s.store.Brief(limit)
}

func (s *Surface) Events(filter store.EventFilter) (store.EventsPage, error) {
  return s.store.Events(filter)
}

func (s *Surface) EventDetail(id uuid.UUID) (store.EventDetailResult, error) {
  return s.store.EventDetail(id)
}

func (s *Surface) LawDetail(lawKey string) (store.LawDetailResult, error) {
  return s.store.LawDetail(lawKey)
}
