package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/mindless-backend/internal/engine"
	"github.com/DoyleJ11/mindless-backend/internal/hub"
	"github.com/DoyleJ11/mindless-backend/internal/lobby"
	"github.com/DoyleJ11/mindless-backend/pkg/types"
)

const (
	readLimit    = 4 << 10
	outboxSize   = 32
	pingInterval = 30 * time.Second
)

type Options struct {
	// RateLimit is the sustained inbound messages per second per connection.
	RateLimit rate.Limit
	RateBurst int
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// OriginPatterns is passed to websocket.Accept; empty means same-origin only.
	OriginPatterns []string
	Logger         *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.RateLimit <= 0 {
		o.RateLimit = 10
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 20
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Handler upgrades to a WebSocket. Each connection is one player; its id
// lives exactly as long as the socket.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
		if err != nil {
			opts.Logger.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		conn.SetReadLimit(readLimit)

		s := &session{
			id:      uuid.NewString(),
			conn:    conn,
			hub:     h,
			outbox:  make(chan types.ServerMessage, outboxSize),
			limiter: rate.NewLimiter(opts.RateLimit, opts.RateBurst),
			opts:    opts,
		}
		s.log = opts.Logger.With(zap.String("conn", s.id))
		s.log.Debug("connected", zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		defer s.leave()

		go s.writeLoop(ctx, cancel)
		go s.pingLoop(ctx)
		s.readLoop(ctx)
	}
}

type session struct {
	id      string
	conn    *websocket.Conn
	hub     *hub.Hub
	lobby   *lobby.Lobby // set once by the read loop
	outbox  chan types.ServerMessage
	limiter *rate.Limiter
	opts    Options
	log     *zap.Logger
}

func (s *session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				s.log.Debug("closed by peer")
			default:
				s.log.Debug("read ended", zap.Error(err))
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			s.reply(ctx, cm, types.ServerMessage{}, errBadRequest)
			continue
		}
		if !s.limiter.Allow() {
			s.reply(ctx, cm, types.ServerMessage{}, errRateLimited)
			continue
		}

		msg, err := s.dispatch(ctx, cm)
		s.reply(ctx, cm, msg, err)
	}
}

// writeLoop forwards room broadcasts. A closed outbox means the room dropped
// us or shut down, and the connection goes with it.
func (s *session) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.outbox:
			if !ok {
				s.conn.Close(websocket.StatusGoingAway, "room closed")
				cancel()
				return
			}
			if err := s.write(ctx, msg); err != nil {
				s.log.Debug("write broadcast", zap.Error(err))
				cancel()
				return
			}
		}
	}
}

func (s *session) pingLoop(ctx context.Context) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := s.conn.Ping(pctx)
			cancel()
			if err != nil {
				s.log.Debug("ping failed", zap.Error(err))
				s.conn.Close(websocket.StatusPolicyViolation, "ping timeout")
				return
			}
		}
	}
}

func (s *session) write(ctx context.Context, msg types.ServerMessage) error {
	wctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, s.conn, msg)
}

func (s *session) reply(ctx context.Context, cm types.ClientMessage, msg types.ServerMessage, err error) {
	msg.RequestID = cm.RequestID
	if err != nil {
		code := ErrorCode(err)
		if code == types.ErrCodeInternal {
			s.log.Error("request failed", zap.String("type", cm.Type), zap.Error(err))
		}
		msg = types.ServerMessage{Type: types.ReplyError, RequestID: cm.RequestID, Error: code}
	} else {
		msg.Type = types.ReplyAck
	}
	if werr := s.write(ctx, msg); werr != nil {
		s.log.Debug("write reply", zap.Error(werr))
	}
}

func (s *session) dispatch(ctx context.Context, cm types.ClientMessage) (types.ServerMessage, error) {
	switch cm.Type {
	case types.ActionCreateRoom:
		return s.createRoom(ctx, cm.Name)
	case types.ActionJoinRoom:
		return s.joinRoom(ctx, cm.Code, cm.Name)
	case types.ActionGetState:
		if s.lobby == nil {
			return types.ServerMessage{}, engine.ErrNotInRoom
		}
		return stateReply(s.lobby.Snapshot(ctx, s.id))
	}

	cmd, err := toEngineCommand(cm)
	if err != nil {
		return types.ServerMessage{}, err
	}
	if s.lobby == nil {
		return types.ServerMessage{}, engine.ErrNotInRoom
	}
	cmd.PlayerID = s.id
	return stateReply(s.lobby.Do(ctx, cmd))
}

func (s *session) createRoom(ctx context.Context, name string) (types.ServerMessage, error) {
	if s.lobby != nil {
		return types.ServerMessage{}, engine.ErrAlreadyInRoom
	}
	if _, err := engine.ValidateName(name); err != nil {
		return types.ServerMessage{}, err
	}

	lb, err := s.hub.Create(ctx)
	if err != nil {
		return types.ServerMessage{}, err
	}
	snap, err := lb.Join(ctx, s.id, name, s.outbox)
	if err != nil {
		// nobody else can know the code yet
		lb.Stop()
		_ = s.hub.Remove(context.WithoutCancel(ctx), lb)
		return types.ServerMessage{}, err
	}
	s.lobby = lb
	s.log.Info("room created", zap.String("room", lb.Code()))
	return types.ServerMessage{Code: lb.Code(), State: &snap}, nil
}

func (s *session) joinRoom(ctx context.Context, code, name string) (types.ServerMessage, error) {
	if s.lobby != nil {
		return types.ServerMessage{}, engine.ErrAlreadyInRoom
	}
	lb, err := s.hub.Get(ctx, code)
	if err != nil {
		return types.ServerMessage{}, err
	}
	snap, err := lb.Join(ctx, s.id, name, s.outbox)
	if err != nil {
		return types.ServerMessage{}, err
	}
	s.lobby = lb
	s.log.Info("joined room", zap.String("room", lb.Code()))
	return types.ServerMessage{Code: lb.Code(), State: &snap}, nil
}

// leave tells the room this player is gone. The request context is already
// cancelled by now, so it gets its own deadline.
func (s *session) leave() {
	if s.lobby == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()
	if err := s.lobby.Leave(ctx, s.id); err != nil && !errors.Is(err, lobby.ErrRoomClosed) {
		s.log.Warn("leave room", zap.String("room", s.lobby.Code()), zap.Error(err))
	}
}

func stateReply(snap types.Snapshot, err error) (types.ServerMessage, error) {
	if err != nil {
		return types.ServerMessage{}, err
	}
	return types.ServerMessage{State: &snap}, nil
}

func toEngineCommand(m types.ClientMessage) (engine.Command, error) {
	switch m.Type {
	case types.ActionStartGame:
		return engine.Command{Type: engine.CmdStartGame}, nil
	case types.ActionNextRound:
		return engine.Command{Type: engine.CmdNextRound}, nil
	case types.ActionVote:
		return engine.Command{Type: engine.CmdVote, SuspectID: m.SuspectID}, nil
	case types.ActionSubmitWord:
		return engine.Command{Type: engine.CmdSubmitWord, Word: wordText(m.Word)}, nil
	default:
		return engine.Command{}, errBadRequest
	}
}

// wordText accepts only JSON strings; anything else reads as empty.
func wordText(raw json.RawMessage) string {
	var w string
	if len(raw) == 0 || json.Unmarshal(raw, &w) != nil {
		return ""
	}
	return w
}
