package lobby

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/mindless-backend/internal/engine"
	"github.com/DoyleJ11/mindless-backend/internal/store"
	"github.com/DoyleJ11/mindless-backend/internal/themes"
	"github.com/DoyleJ11/mindless-backend/pkg/types"
)

const within = 500 * time.Millisecond

// helper: receive one broadcast with a timeout so tests never hang
func recvMsg(t *testing.T, ch <-chan types.ServerMessage) types.ServerMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for broadcast")
		return types.ServerMessage{} // unreachable
	}
}

func recvNoMsg(t *testing.T, ch <-chan types.ServerMessage) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no broadcast, but got: %+v", msg)
	case <-time.After(50 * time.Millisecond):
		// good: nothing pending
	}
}

func recvClosed(t *testing.T, ch <-chan types.ServerMessage) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("outbox was not closed")
		}
	}
}

type fixture struct {
	lobby   *Lobby
	store   *store.MemoryStore
	emptied chan string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := fixture{store: store.NewMemoryStore(), emptied: make(chan string, 1)}
	f.lobby = NewLobby(ctx, engine.NewEmptyState("ROOM01"), Deps{
		Engine:  engine.NewEngine(themes.Default(), engine.WithRand(rand.New(rand.NewSource(5)))),
		Store:   f.store,
		Logger:  zaptest.NewLogger(t),
		OnEmpty: func(l *Lobby) { f.emptied <- l.Code() },
	})
	return f
}

// seat joins n players p1..pn and drains the join broadcasts.
func seat(t *testing.T, l *Lobby, n int) []chan types.ServerMessage {
	t.Helper()
	ctx := context.Background()
	outs := make([]chan types.ServerMessage, n)
	for i := range outs {
		outs[i] = make(chan types.ServerMessage, 16)
		_, err := l.Join(ctx, fmt.Sprintf("p%d", i+1), fmt.Sprintf("Player%d", i+1), outs[i])
		require.NoError(t, err)
	}
	for i, out := range outs {
		for j := i; j < n; j++ {
			assert.Equal(t, types.EventRoomUpdate, recvMsg(t, out).Type)
		}
	}
	return outs
}

func TestLobby_JoinBroadcastsPerViewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out1 := make(chan types.ServerMessage, 4)
	snap, err := f.lobby.Join(ctx, "p1", "Ana", out1)
	require.NoError(t, err)
	assert.Equal(t, "p1", snap.ViewerID)
	require.Len(t, snap.Players, 1)
	assert.True(t, snap.Players[0].IsHost)

	first := recvMsg(t, out1)
	assert.Equal(t, types.EventRoomUpdate, first.Type)
	require.NotNil(t, first.State)
	assert.Equal(t, "p1", first.State.ViewerID)

	out2 := make(chan types.ServerMessage, 4)
	_, err = f.lobby.Join(ctx, "p2", "Bo", out2)
	require.NoError(t, err)

	m1, m2 := recvMsg(t, out1), recvMsg(t, out2)
	assert.Equal(t, "p1", m1.State.ViewerID)
	assert.Equal(t, "p2", m2.State.ViewerID)
	assert.Len(t, m2.State.Players, 2)

	rec, err := f.store.Get(ctx, "ROOM01")
	require.NoError(t, err)
	assert.Len(t, rec.State.Players, 2)
}

func TestLobby_RejectedCommandBroadcastsNothing(t *testing.T) {
	f := newFixture(t)
	outs := seat(t, f.lobby, 2)

	_, err := f.lobby.Do(context.Background(), engine.Command{Type: engine.CmdStartGame, PlayerID: "p1"})
	require.ErrorIs(t, err, engine.ErrInsufficientPlayers)

	_, err = f.lobby.Join(context.Background(), "p3", "Player1", make(chan types.ServerMessage, 1))
	require.ErrorIs(t, err, engine.ErrNameTaken)

	for _, out := range outs {
		recvNoMsg(t, out)
	}
}

func TestLobby_StartGameHidesOtherRoles(t *testing.T) {
	f := newFixture(t)
	outs := seat(t, f.lobby, 4)

	snap, err := f.lobby.Do(context.Background(), engine.Command{Type: engine.CmdStartGame, PlayerID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, string(engine.PhasePlaying), snap.Phase)

	mindless := 0
	for i, out := range outs {
		msg := recvMsg(t, out)
		require.Equal(t, types.EventGameStarted, msg.Type)
		assert.Equal(t, fmt.Sprintf("p%d", i+1), msg.State.ViewerID)
		if msg.State.ViewerRole == string(engine.RoleMindless) {
			mindless++
			assert.Empty(t, msg.State.ViewerConcept)
		} else {
			assert.NotEmpty(t, msg.State.ViewerConcept)
		}
	}
	assert.Equal(t, 1, mindless)
}

func TestLobby_VotingUpdateCarriesProgress(t *testing.T) {
	f := newFixture(t)
	outs := seat(t, f.lobby, 4)
	ctx := context.Background()

	_, err := f.lobby.Do(ctx, engine.Command{Type: engine.CmdStartGame, PlayerID: "p1"})
	require.NoError(t, err)
	for round := 0; round < engine.MaxRounds; round++ {
		for i := 1; i <= 4; i++ {
			_, err := f.lobby.Do(ctx, engine.Command{Type: engine.CmdSubmitWord, PlayerID: fmt.Sprintf("p%d", i), Word: "word"})
			require.NoError(t, err)
		}
	}
	for _, out := range outs {
		for i := 0; i < 1+2*4-1; i++ {
			recvMsg(t, out)
		}
		assert.Equal(t, types.EventVotingPhase, recvMsg(t, out).Type)
	}

	_, err = f.lobby.Do(ctx, engine.Command{Type: engine.CmdVote, PlayerID: "p1", SuspectID: "p2"})
	require.NoError(t, err)
	for _, out := range outs {
		msg := recvMsg(t, out)
		assert.Equal(t, types.EventVotingUpdate, msg.Type)
		require.NotNil(t, msg.Progress)
		assert.Equal(t, types.VotingProgress{VotedCount: 1, TotalPlayers: 4}, *msg.Progress)
		assert.Nil(t, msg.State)
	}
}

func TestLobby_SlowClientIsDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slow := make(chan types.ServerMessage) // unbuffered and never read
	_, err := f.lobby.Join(ctx, "p1", "Slow", slow)
	require.NoError(t, err)

	fast := make(chan types.ServerMessage, 4)
	_, err = f.lobby.Join(ctx, "p2", "Fast", fast)
	require.NoError(t, err)

	recvClosed(t, slow)
	msg := recvMsg(t, fast)
	assert.Equal(t, types.EventRoomUpdate, msg.Type)
	// dropping the connection does not unseat the player
	assert.Len(t, msg.State.Players, 2)
	recvNoMsg(t, fast)
}

func TestLobby_LeaveHandsOffHostAndEmptiesRoom(t *testing.T) {
	f := newFixture(t)
	outs := seat(t, f.lobby, 2)
	ctx := context.Background()

	require.NoError(t, f.lobby.Leave(ctx, "p1"))
	msg := recvMsg(t, outs[1])
	assert.Equal(t, types.EventRoomUpdate, msg.Type)
	require.Len(t, msg.State.Players, 1)
	assert.True(t, msg.State.Players[0].IsHost)

	require.NoError(t, f.lobby.Leave(ctx, "p2"))
	select {
	case code := <-f.emptied:
		assert.Equal(t, "ROOM01", code)
	case <-time.After(within):
		t.Fatalf("OnEmpty never ran")
	}
	<-f.lobby.Done()

	_, err := f.store.Get(ctx, "ROOM01")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.lobby.Snapshot(ctx, "p1")
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestLobby_GetStateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	seat(t, f.lobby, 4)
	ctx := context.Background()

	a, err := f.lobby.Snapshot(ctx, "p2")
	require.NoError(t, err)
	b, err := f.lobby.Snapshot(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	sum, err := f.lobby.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.RoomSummary{Code: "ROOM01", Phase: "waiting", Players: 4}, sum)
}

func TestLobby_ShutdownClosesOutboxes(t *testing.T) {
	f := newFixture(t)
	outs := seat(t, f.lobby, 2)

	f.lobby.Stop()
	for _, out := range outs {
		recvClosed(t, out)
	}
	_, err := f.lobby.Do(context.Background(), engine.Command{Type: engine.CmdStartGame, PlayerID: "p1"})
	assert.ErrorIs(t, err, ErrRoomClosed)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Get(ctx context.Context, code string) (store.Record, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(store.Record), args.Error(1)
}

func (m *mockStore) Put(ctx context.Context, rec store.Record) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func (m *mockStore) ListExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) Close() error { return m.Called().Error(0) }

func TestLobby_PersistFailureKeepsOldState(t *testing.T) {
	ms := new(mockStore)
	ms.On("Put", mock.Anything, mock.MatchedBy(func(r store.Record) bool { return len(r.State.Players) == 1 })).Return(nil).Once()
	ms.On("Put", mock.Anything, mock.Anything).Return(errors.New("disk on fire")).Once()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewLobby(ctx, engine.NewEmptyState("ROOM02"), Deps{Store: ms, Logger: zaptest.NewLogger(t)})

	out := make(chan types.ServerMessage, 4)
	_, err := l.Join(ctx, "p1", "Ana", out)
	require.NoError(t, err)
	recvMsg(t, out)

	_, err = l.Join(ctx, "p2", "Bo", make(chan types.ServerMessage, 4))
	require.ErrorIs(t, err, ErrInternal)
	recvNoMsg(t, out)

	snap, err := l.Snapshot(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, snap.Players, 1)
	ms.AssertExpectations(t)
}

type recordingArchive struct {
	appended chan []engine.HistoryEntry
}

func (a recordingArchive) Append(_ context.Context, _ string, entries []engine.HistoryEntry) error {
	if len(entries) > 0 {
		a.appended <- entries
	}
	return nil
}

func (recordingArchive) Close() error { return nil }

func TestLobby_ArchivesResolvedRounds(t *testing.T) {
	archive := recordingArchive{appended: make(chan []engine.HistoryEntry, 4)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, engine.NewEmptyState("ROOM03"), Deps{
		Engine:  engine.NewEngine(themes.Default(), engine.WithRand(rand.New(rand.NewSource(9)))),
		Archive: archive,
		Logger:  zaptest.NewLogger(t),
	})
	seat(t, l, 4)

	_, err := l.Do(ctx, engine.Command{Type: engine.CmdStartGame, PlayerID: "p1"})
	require.NoError(t, err)
	for round := 0; round < engine.MaxRounds; round++ {
		for i := 1; i <= 4; i++ {
			_, err := l.Do(ctx, engine.Command{Type: engine.CmdSubmitWord, PlayerID: fmt.Sprintf("p%d", i), Word: "word"})
			require.NoError(t, err)
		}
	}
	// p1 and p2 split the vote evenly.
	for _, b := range [][2]string{{"p1", "p2"}, {"p2", "p1"}, {"p3", "p1"}, {"p4", "p2"}} {
		_, err := l.Do(ctx, engine.Command{Type: engine.CmdVote, PlayerID: b[0], SuspectID: b[1]})
		require.NoError(t, err)
	}

	select {
	case entries := <-archive.appended:
		require.Len(t, entries, 1)
		assert.Equal(t, engine.OutcomeTie, entries[0].Kind)
		assert.Empty(t, entries[0].EliminatedID)
	case <-time.After(within):
		t.Fatalf("round was not archived")
	}
}

func TestLobby_Expire(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ms := store.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, engine.NewEmptyState("ROOM04"), Deps{Store: ms, Clock: clock, Logger: zaptest.NewLogger(t)})
	out := make(chan types.ServerMessage, 4)
	_, err := l.Join(ctx, "p1", "Ana", out)
	require.NoError(t, err)

	gone, err := l.Expire(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, gone, "recently touched room must survive")

	gone, err = l.Expire(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, gone)
	<-l.Done()
	recvClosed(t, out)
	assert.Equal(t, 0, ms.Len())
}
