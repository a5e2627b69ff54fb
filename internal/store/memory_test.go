package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/mindless-backend/internal/engine"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_, err := m.Get(ctx, "ABC123")
	require.ErrorIs(t, err, ErrNotFound)

	s := engine.NewEmptyState("ABC123")
	s.Players = append(s.Players, engine.Player{ID: "p1", Name: "Ana", Words: []engine.Word{}})
	now := time.Now()
	require.NoError(t, m.Put(ctx, NewRecord(s, now)))

	// callers own their copy
	s.Players[0].Name = "Changed"

	rec, err := m.Get(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "Ana", rec.State.Players[0].Name)
	assert.Equal(t, engine.PhaseWaiting, rec.Phase)
	assert.True(t, rec.UpdatedAt.Equal(now))

	rec.State.Players[0].Name = "Mutated"
	again, err := m.Get(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "Ana", again.State.Players[0].Name)

	require.NoError(t, m.Delete(ctx, "ABC123"))
	assert.Equal(t, 0, m.Len())
	require.NoError(t, m.Delete(ctx, "ABC123"))
}

func TestMemoryStore_ListExpired(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Now()
	old := now.Add(-25 * time.Hour)

	put := func(code string, phase engine.Phase, at time.Time) {
		s := engine.NewEmptyState(code)
		s.Phase = phase
		require.NoError(t, m.Put(ctx, NewRecord(s, at)))
	}
	put("WAIT01", engine.PhaseWaiting, old)
	put("DONE01", engine.PhaseFinished, old)
	put("PLAY01", engine.PhasePlaying, old)
	put("VOTE01", engine.PhaseVoting, old)
	put("WAIT02", engine.PhaseWaiting, now)

	codes, err := m.ListExpired(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"WAIT01", "DONE01"}, codes)
}

func TestCloseAll(t *testing.T) {
	assert.NoError(t, CloseAll(NewMemoryStore(), NopArchive{}))
	assert.NoError(t, CloseAll(nil, nil))
}
