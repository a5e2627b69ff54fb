package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DoyleJ11/mindless-backend/internal/engine"
)

const roomsSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	code       TEXT PRIMARY KEY,
	phase      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	state      JSONB NOT NULL
)`

// PostgresStore keeps room state as jsonb, one row per room.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, roomsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create rooms table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Get(ctx context.Context, code string) (Record, error) {
	rec := Record{Code: code}
	var phase string
	var raw []byte

	row := p.pool.QueryRow(ctx, "SELECT phase, updated_at, state FROM rooms WHERE code = $1", code)
	if err := row.Scan(&phase, &rec.UpdatedAt, &raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, wrap(err)
	}
	rec.Phase = engine.Phase(phase)
	if err := json.Unmarshal(raw, &rec.State); err != nil {
		return Record{}, fmt.Errorf("%w: decode room %s: %w", ErrUnexpected, code, err)
	}
	return rec, nil
}

func (p *PostgresStore) Put(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", rec.Code, err)
	}
	_, err = p.pool.Exec(ctx, `
INSERT INTO rooms (code, phase, updated_at, state) VALUES ($1, $2, $3, $4)
ON CONFLICT (code) DO UPDATE SET phase = EXCLUDED.phase, updated_at = EXCLUDED.updated_at, state = EXCLUDED.state`,
		rec.Code, string(rec.Phase), rec.UpdatedAt, raw)
	return wrap(err)
}

func (p *PostgresStore) Delete(ctx context.Context, code string) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM rooms WHERE code = $1", code)
	return wrap(err)
}

func (p *PostgresStore) ListExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT code FROM rooms WHERE updated_at < $1 AND phase = ANY($2)",
		cutoff, []string{string(engine.PhaseWaiting), string(engine.PhaseFinished)})
	if err != nil {
		return nil, wrap(err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrap(err)
	}
	return codes, nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w: %s (%s): %w", ErrUnexpected, pgErr.Message, pgErr.Code, err)
	}
	return fmt.Errorf("%w: %w", ErrUnexpected, err)
}
