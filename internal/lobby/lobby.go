package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/mindless-backend/internal/engine"
	"github.com/DoyleJ11/mindless-backend/internal/store"
	"github.com/DoyleJ11/mindless-backend/internal/themes"
	"github.com/DoyleJ11/mindless-backend/pkg/types"
)

var ErrRoomClosed = errors.New("room is closed")
var ErrInternal = errors.New("internal error")

const storeTimeout = 3 * time.Second

type Msg interface{ isLobbyMsg() }

// Result answers Join and FromClient with the caller's own view.
type Result struct {
	State types.Snapshot
	Err   error
}

type Join struct {
	PlayerID string
	Name     string
	Outbox   chan types.ServerMessage // where this player receives broadcasts
	Reply    chan Result
}

func (Join) isLobbyMsg() {}

type FromClient struct {
	Cmd   engine.Command
	Reply chan Result
}

func (FromClient) isLobbyMsg() {}

// Leave is a disconnect. It never fails from the caller's side.
type Leave struct{ PlayerID string }

func (Leave) isLobbyMsg() {}

type GetState struct {
	ViewerID string
	Reply    chan types.Snapshot
}

func (GetState) isLobbyMsg() {}

type Peek struct {
	Reply chan types.RoomSummary
}

func (Peek) isLobbyMsg() {}

// Expire shuts the room down if it sits in a sweepable phase and has not
// changed since Cutoff.
type Expire struct {
	Cutoff time.Time
	Reply  chan bool
}

func (Expire) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

// Deps are the collaborators every lobby shares.
type Deps struct {
	Engine  *engine.Engine
	Store   store.RoomStore
	Archive store.Archive
	Logger  *zap.Logger
	Clock   func() time.Time
	// OnEmpty runs once, on its own goroutine, after the last player leaves.
	OnEmpty func(*Lobby)
}

// Lobby owns one room. Every read and write of the room's state happens on
// the loop goroutine, so commands for one room are strictly serial.
type Lobby struct {
	code    string
	inbox   chan Msg
	state   engine.State
	updated time.Time
	clients map[string]chan types.ServerMessage

	engine  *engine.Engine
	store   store.RoomStore
	archive store.Archive
	log     *zap.Logger
	now     func() time.Time
	onEmpty func(*Lobby)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLobby(parent context.Context, initial engine.State, deps Deps) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		code:    initial.Code,
		inbox:   make(chan Msg, 64),
		state:   initial,
		clients: make(map[string]chan types.ServerMessage),
		engine:  deps.Engine,
		store:   deps.Store,
		archive: deps.Archive,
		log:     deps.Logger,
		now:     deps.Clock,
		onEmpty: deps.OnEmpty,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	if l.engine == nil {
		l.engine = engine.NewEngine(themes.Default())
	}
	if l.store == nil {
		l.store = store.NewMemoryStore()
	}
	if l.archive == nil {
		l.archive = store.NopArchive{}
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	l.log = l.log.With(zap.String("room", l.code))
	if l.now == nil {
		l.now = time.Now
	}
	l.updated = l.now()

	go l.loop()
	return l
}

func (l *Lobby) Code() string { return l.code }

// Done is closed once the loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Expose the inbox so tests or the WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- l.join(msg)

			case FromClient:
				msg.Reply <- l.fromClient(msg.Cmd)

			case Leave:
				if l.leave(msg.PlayerID) {
					l.shutdown()
					if l.onEmpty != nil {
						go l.onEmpty(l)
					}
					return
				}

			case GetState:
				msg.Reply <- engine.SnapshotFor(l.state, msg.ViewerID)

			case Peek:
				msg.Reply <- types.RoomSummary{
					Code:    l.code,
					Phase:   string(l.state.Phase),
					Players: len(l.state.Players),
				}

			case Expire:
				if l.expired(msg.Cutoff) {
					msg.Reply <- true
					l.shutdown()
					return
				}
				msg.Reply <- false

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) join(msg Join) Result {
	events, err := l.apply(engine.Command{Type: engine.CmdJoin, PlayerID: msg.PlayerID, Name: msg.Name})
	if err != nil {
		return Result{Err: err}
	}
	l.clients[msg.PlayerID] = msg.Outbox
	l.log.Info("player joined", zap.String("player", msg.PlayerID), zap.Int("players", len(l.state.Players)))
	l.broadcast(events)
	return Result{State: engine.SnapshotFor(l.state, msg.PlayerID)}
}

func (l *Lobby) fromClient(cmd engine.Command) Result {
	events, err := l.apply(cmd)
	if err != nil {
		return Result{Err: err}
	}
	l.broadcast(events)
	return Result{State: engine.SnapshotFor(l.state, cmd.PlayerID)}
}

// leave reports whether the room is now empty.
func (l *Lobby) leave(playerID string) bool {
	delete(l.clients, playerID)
	if !l.state.HasPlayer(playerID) {
		return len(l.state.Players) == 0
	}

	events, next, err := l.engine.Apply(l.state, engine.Command{Type: engine.CmdLeave, PlayerID: playerID})
	if err != nil {
		l.log.Error("leave rejected", zap.String("player", playerID), zap.Error(err))
		return false
	}
	l.log.Info("player left", zap.String("player", playerID), zap.Int("players", len(next.Players)))

	if len(next.Players) == 0 {
		l.state = next
		ctx, cancel := context.WithTimeout(l.ctx, storeTimeout)
		defer cancel()
		if err := l.store.Delete(ctx, l.code); err != nil {
			l.log.Error("delete empty room", zap.Error(err))
		}
		return true
	}

	// A departure cannot be refused, so a failed write only costs durability.
	if err := l.commit(next); err != nil {
		l.log.Error("persist after leave", zap.Error(err))
		l.state = next
	}
	l.broadcast(events)
	return false
}

// apply runs cmd through the engine and commits the result. The in-memory
// state only moves after the store accepted the new state.
func (l *Lobby) apply(cmd engine.Command) ([]engine.Event, error) {
	events, next, err := l.engine.Apply(l.state, cmd)
	if err != nil {
		return nil, err
	}
	if err := l.commit(next); err != nil {
		l.log.Error("persist room", zap.String("cmd", string(cmd.Type)), zap.Error(err))
		return nil, ErrInternal
	}
	return events, nil
}

func (l *Lobby) commit(next engine.State) error {
	ctx, cancel := context.WithTimeout(l.ctx, storeTimeout)
	defer cancel()

	at := l.now()
	if err := l.store.Put(ctx, store.NewRecord(next, at)); err != nil {
		return err
	}
	l.updated = at

	var fresh []engine.HistoryEntry
	if n := len(l.state.History); len(next.History) > n {
		fresh = next.History[n:]
	}
	l.state = next

	if err := l.archive.Append(ctx, l.code, fresh); err != nil {
		l.log.Warn("archive rounds", zap.Int("rounds", len(fresh)), zap.Error(err))
	}
	return nil
}

func (l *Lobby) expired(cutoff time.Time) bool {
	if !l.state.Phase.Sweepable() || !l.updated.Before(cutoff) {
		return false
	}
	ctx, cancel := context.WithTimeout(l.ctx, storeTimeout)
	defer cancel()
	if err := l.store.Delete(ctx, l.code); err != nil {
		l.log.Error("delete expired room", zap.Error(err))
	}
	l.log.Info("room expired", zap.Time("updated", l.updated), zap.Int("players", len(l.state.Players)))
	return true
}

// broadcast renders one snapshot per recipient, since role and concept are
// private to each viewer.
func (l *Lobby) broadcast(events []engine.Event) {
	for _, ev := range events {
		for id, ch := range l.clients {
			msg := types.ServerMessage{Type: string(ev.Type)}
			if ev.Progress != nil {
				progress := *ev.Progress
				msg.Progress = &progress
			} else {
				snap := engine.SnapshotFor(l.state, id)
				msg.State = &snap
			}

			select {
			case ch <- msg:
				// ok
			default:
				// Client is slow/full - drop them.
				l.log.Warn("dropping slow client", zap.String("player", id))
				close(ch)
				delete(l.clients, id)
			}
		}
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more broadcasts
		delete(l.clients, id)
	}
	l.cancel()
}
