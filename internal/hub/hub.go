package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/mindless-backend/internal/engine"
	"github.com/DoyleJ11/mindless-backend/internal/lobby"
	"github.com/DoyleJ11/mindless-backend/internal/store"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrNoFreeCode = errors.New("could not allocate a room code")
var ErrHubClosed = errors.New("hub is closed")

const (
	codeLength      = 6
	codeCharset     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 32
)

func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

// NormalizeCode is how user-typed codes are matched against issued ones.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type HubMsg interface{ isHubMsg() }

type createResult struct {
	lobby *lobby.Lobby
	err   error
}

type CreateLobby struct {
	Reply chan createResult
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby drops the mapping only if it still points at Lobby.
type RemoveLobby struct {
	Lobby *lobby.Lobby
}

type ListLobbies struct {
	Reply chan []*lobby.Lobby
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (RemoveLobby) isHubMsg() {}
func (ListLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Option func(*Hub)

// WithCodeGenerator replaces the random room code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(h *Hub) { h.newCode = gen }
}

// Hub is the room registry: the only owner of the code -> lobby map.
type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	deps    lobby.Deps
	log     *zap.Logger
	newCode func() (string, error)
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context, deps lobby.Deps, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		log:     deps.Logger,
		newCode: GenerateCode,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	deps.OnEmpty = h.release
	h.deps = deps
	for _, opt := range opts {
		opt(h)
	}

	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				lb, err := h.create()
				msg.Reply <- createResult{lobby: lb, err: err}

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				if cur := h.lobbies[msg.Lobby.Code()]; cur == msg.Lobby {
					delete(h.lobbies, msg.Lobby.Code())
					h.log.Info("room removed", zap.String("room", msg.Lobby.Code()), zap.Int("rooms", len(h.lobbies)))
				}

			case ListLobbies:
				all := make([]*lobby.Lobby, 0, len(h.lobbies))
				for _, lb := range h.lobbies {
					all = append(all, lb)
				}
				msg.Reply <- all

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create() (*lobby.Lobby, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := h.newCode()
		if err != nil {
			return nil, err
		}
		if _, taken := h.lobbies[code]; taken {
			h.log.Debug("collision on code, regenerating", zap.String("room", code))
			continue
		}
		lb := lobby.NewLobby(h.ctx, engine.NewEmptyState(code), h.deps)
		h.lobbies[code] = lb
		h.log.Info("room created", zap.String("room", code), zap.Int("rooms", len(h.lobbies)))
		return lb, nil
	}
	return nil, ErrNoFreeCode
}

func (h *Hub) shutdown() {
	for code, lb := range h.lobbies {
		lb.Stop()
		delete(h.lobbies, code)
	}
	h.cancel()
}

// release is the lobbies' OnEmpty hook.
func (h *Hub) release(lb *lobby.Lobby) {
	select {
	case h.inbox <- RemoveLobby{Lobby: lb}:
	case <-h.done:
	}
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, h *Hub, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Create opens an empty room under a fresh code.
func (h *Hub) Create(ctx context.Context) (*lobby.Lobby, error) {
	reply := make(chan createResult, 1)
	if err := h.send(ctx, CreateLobby{Reply: reply}); err != nil {
		return nil, err
	}
	res, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	return res.lobby, res.err
}

// Get looks up a live room. The code is matched case-insensitively.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetLobby{Code: NormalizeCode(code), Reply: reply}); err != nil {
		return nil, err
	}
	lb, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, ErrRoomNotFound
	}
	return lb, nil
}

func (h *Hub) Remove(ctx context.Context, lb *lobby.Lobby) error {
	return h.send(ctx, RemoveLobby{Lobby: lb})
}

func (h *Hub) Lobbies(ctx context.Context) ([]*lobby.Lobby, error) {
	reply := make(chan []*lobby.Lobby, 1)
	if err := h.send(ctx, ListLobbies{Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, h, reply)
}

// Sweep closes rooms that sat in Waiting or Finished for longer than maxAge
// and purges expired store rows that no live room owns. It returns the number
// of rooms removed.
func (h *Hub) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := h.deps.Clock().Add(-maxAge)

	live, err := h.Lobbies(ctx)
	if err != nil {
		return 0, err
	}
	owned := make(map[string]bool, len(live))
	removed := 0
	for _, lb := range live {
		owned[lb.Code()] = true
		gone, err := lb.Expire(ctx, cutoff)
		if errors.Is(err, lobby.ErrRoomClosed) {
			continue
		}
		if err != nil {
			return removed, err
		}
		if gone {
			removed++
			if err := h.Remove(ctx, lb); err != nil {
				return removed, err
			}
		}
	}

	stale, err := h.deps.Store.ListExpired(ctx, cutoff)
	if err != nil {
		return removed, err
	}
	for _, code := range stale {
		if owned[code] {
			continue
		}
		if err := h.deps.Store.Delete(ctx, code); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		h.log.Info("swept rooms", zap.Int("removed", removed), zap.Duration("maxAge", maxAge))
	}
	return removed, nil
}

// Shutdown stops every room and then the hub itself.
func (h *Hub) Shutdown(ctx context.Context) error {
	if err := h.send(ctx, ShutdownHub{}); err != nil {
		if errors.Is(err, ErrHubClosed) {
			return nil
		}
		return err
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
