package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/mindless-backend/internal/engine"
)

// databaseURL skips the test unless a scratch database is configured.
func databaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("MINDLESS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MINDLESS_TEST_DATABASE_URL not set")
	}
	return url
}

func TestPostgresStore(t *testing.T) {
	url := databaseURL(t)
	ctx := context.Background()

	p, err := NewPostgresStore(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	code := "PG" + time.Now().Format("0405")
	t.Cleanup(func() { _ = p.Delete(ctx, code) })

	_, err = p.Get(ctx, code)
	require.ErrorIs(t, err, ErrNotFound)

	s := engine.NewEmptyState(code)
	s.Players = append(s.Players, engine.Player{ID: "p1", Name: "Ana", Status: engine.StatusActive, Words: []engine.Word{}})
	old := time.Now().Add(-48 * time.Hour).UTC().Truncate(time.Microsecond)
	require.NoError(t, p.Put(ctx, NewRecord(s, old)))

	rec, err := p.Get(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseWaiting, rec.Phase)
	assert.True(t, rec.UpdatedAt.Equal(old))
	require.Len(t, rec.State.Players, 1)
	assert.Equal(t, "Ana", rec.State.Players[0].Name)

	codes, err := p.ListExpired(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Contains(t, codes, code)

	s.Phase = engine.PhasePlaying
	require.NoError(t, p.Put(ctx, NewRecord(s, old)))
	codes, err = p.ListExpired(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.NotContains(t, codes, code)

	require.NoError(t, p.Delete(ctx, code))
	_, err = p.Get(ctx, code)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryArchive(t *testing.T) {
	url := databaseURL(t)
	ctx := context.Background()

	a, err := NewHistoryArchive(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	code := "AR" + time.Now().Format("0405")
	t.Cleanup(func() { a.db.Where("room_code = ?", code).Delete(&RoundRecord{}) })

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, a.Append(ctx, code, nil))
	require.NoError(t, a.Append(ctx, code, []engine.HistoryEntry{
		{Theme: "Animals", Kind: engine.OutcomeTie, MindlessID: "p3", MindlessName: "Cy", At: at},
		{Theme: "Animals", Kind: engine.OutcomeMindlessFound, EliminatedID: "p3", EliminatedName: "Cy", MindlessID: "p3", MindlessName: "Cy", GameEnded: true, At: at.Add(time.Minute)},
	}))

	rounds, err := a.Rounds(ctx, code)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, "tie", rounds[0].Kind)
	assert.Empty(t, rounds[0].EliminatedID)
	assert.True(t, rounds[1].GameEnded)
}
