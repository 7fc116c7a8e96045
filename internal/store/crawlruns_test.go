package store

import (
  "testing"

  "github.com/stretchr/testify/require"
)

func TestStartRun_SingleFlight(t *testing.T) {
  s := newTestStore(t)

  first, err := s.StartRun()
  require.NoError(t, err)
  require.Equal(t, "running", first.Status)

  _, err = s.StartRun()
  require.ErrorIs(t, err, ErrRunInProgress)

  var runningCount int64
  s.db.Model(&CrawlRun{}).Where("status = ?", "running").Count(&runningCount)
  require.EqualValues(t, 1, runningCount)

  require.NoError(t, s.CompleteRun(first.ID, 5, 3, 1))

  second, err := s.StartRun()
  require.NoError(t, err)
  require.NotEqual(t, first.ID, second.ID)
}

func TestReconcileOrphanedRuns(t *testing.T) {
  s := newTestStore(t)

  run, err := s.StartRun()
  require.NoError(t, err)

  require.NoError(t, s.reconcileOrphanedRuns())

  var reloaded CrawlRun
  require.NoError(t, s.db.Where("id = ?", run.ID).First(&reloaded).Error)
  require.Equal(t, "failed", reloaded.Status)
  require.Equal(t, "interrupted by restart", reloaded.ErrorMessage)
}
