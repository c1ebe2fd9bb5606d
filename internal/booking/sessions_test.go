package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsStartGetDrop(t *testing.T) {
	s := NewSessions(Deps{}, time.Hour)

	id, f := s.Start()
	require.NotEmpty(t, id)
	require.NotNil(t, f)
	assert.Equal(t, StateSelectingService, f.State())

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Same(t, f, got)

	_, ok = s.Get("unknown")
	assert.False(t, ok)

	s.Drop(id)
	_, ok = s.Get(id)
	assert.False(t, ok)
}

func TestSweepDropsIdleSessions(t *testing.T) {
	s := NewSessions(Deps{}, time.Hour)
	base := time.Date(2025, time.June, 10, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	idleID, _ := s.Start()
	activeID, _ := s.Start()

	// The active session is touched just before the sweep.
	s.now = func() time.Time { return base.Add(59 * time.Minute) }
	_, ok := s.Get(activeID)
	require.True(t, ok)

	s.now = func() time.Time { return base.Add(61 * time.Minute) }
	dropped := s.Sweep()
	assert.Equal(t, 1, dropped)

	_, ok = s.Get(idleID)
	assert.False(t, ok)
	_, ok = s.Get(activeID)
	assert.True(t, ok)
}
