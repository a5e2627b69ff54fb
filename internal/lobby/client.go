package lobby

import (
	"context"
	"time"

	"github.com/DoyleJ11/mindless-backend/internal/engine"
	"github.com/DoyleJ11/mindless-backend/pkg/types"
)

// send hands m to the loop unless the room is gone or ctx ends first.
func (l *Lobby) send(ctx context.Context, m Msg) error {
	select {
	case l.inbox <- m:
		return nil
	case <-l.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, l *Lobby, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		// The loop may have answered just before exiting.
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrRoomClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Join seats playerID and registers outbox for broadcasts.
func (l *Lobby) Join(ctx context.Context, playerID, name string, outbox chan types.ServerMessage) (types.Snapshot, error) {
	reply := make(chan Result, 1)
	if err := l.send(ctx, Join{PlayerID: playerID, Name: name, Outbox: outbox, Reply: reply}); err != nil {
		return types.Snapshot{}, err
	}
	res, err := await(ctx, l, reply)
	if err != nil {
		return types.Snapshot{}, err
	}
	return res.State, res.Err
}

// Do runs a game command on behalf of cmd.PlayerID.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) (types.Snapshot, error) {
	reply := make(chan Result, 1)
	if err := l.send(ctx, FromClient{Cmd: cmd, Reply: reply}); err != nil {
		return types.Snapshot{}, err
	}
	res, err := await(ctx, l, reply)
	if err != nil {
		return types.Snapshot{}, err
	}
	return res.State, res.Err
}

func (l *Lobby) Leave(ctx context.Context, playerID string) error {
	return l.send(ctx, Leave{PlayerID: playerID})
}

func (l *Lobby) Snapshot(ctx context.Context, viewerID string) (types.Snapshot, error) {
	reply := make(chan types.Snapshot, 1)
	if err := l.send(ctx, GetState{ViewerID: viewerID, Reply: reply}); err != nil {
		return types.Snapshot{}, err
	}
	return await(ctx, l, reply)
}

func (l *Lobby) Summary(ctx context.Context) (types.RoomSummary, error) {
	reply := make(chan types.RoomSummary, 1)
	if err := l.send(ctx, Peek{Reply: reply}); err != nil {
		return types.RoomSummary{}, err
	}
	return await(ctx, l, reply)
}

// Expire reports whether the room was idle since cutoff and has shut down.
func (l *Lobby) Expire(ctx context.Context, cutoff time.Time) (bool, error) {
	reply := make(chan bool, 1)
	if err := l.send(ctx, Expire{Cutoff: cutoff, Reply: reply}); err != nil {
		return false, err
	}
	return await(ctx, l, reply)
}

// Stop asks the loop to exit and waits for it.
func (l *Lobby) Stop() {
	select {
	case l.inbox <- Shutdown{}:
	case <-l.done:
	}
	<-l.done
}
