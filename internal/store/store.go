package store

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/mindless-backend/internal/engine"
)

var ErrNotFound = errors.New("room not found")
var ErrUnexpected = errors.New("unexpected storage error")

// Record is the persisted form of one room.
type Record struct {
	Code      string
	Phase     engine.Phase
	UpdatedAt time.Time
	State     engine.State
}

func NewRecord(s engine.State, at time.Time) Record {
	return Record{Code: s.Code, Phase: s.Phase, UpdatedAt: at, State: s}
}

// RoomStore is the key-value room table behind the hub. Implementations must
// be safe for concurrent use; every lobby writes its own key.
type RoomStore interface {
	Get(ctx context.Context, code string) (Record, error)
	Put(ctx context.Context, rec Record) error
	Delete(ctx context.Context, code string) error
	// ListExpired returns codes of rooms in a sweepable phase whose last
	// write is older than cutoff.
	ListExpired(ctx context.Context, cutoff time.Time) ([]string, error)
	Close() error
}

// Archive keeps resolved voting rounds after their room is gone.
type Archive interface {
	Append(ctx context.Context, code string, entries []engine.HistoryEntry) error
	Close() error
}

type NopArchive struct{}

func (NopArchive) Append(context.Context, string, []engine.HistoryEntry) error { return nil }
func (NopArchive) Close() error                                              { return nil }
