package journal

import (
	"context"
	"errors"
	"fmt"

	"repute/internal/ledger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists the chain's history in Postgres: an append-only event table
// plus the latest JSON snapshot per component for fast recovery at boot.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the journal tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS ledger_events (
            seq        BIGINT PRIMARY KEY,
            op         TEXT NOT NULL,
            account    TEXT NOT NULL,
            payload    JSONB,
            applied_at TIMESTAMPTZ NOT NULL
        )
    `)
	if err != nil {
		return fmt.Errorf("create ledger_events: %w", err)
	}
	_, err = s.db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS component_snapshots (
            component TEXT PRIMARY KEY,
            seq       BIGINT NOT NULL,
            state     JSONB NOT NULL,
            saved_at  TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `)
	if err != nil {
		return fmt.Errorf("create component_snapshots: %w", err)
	}
	return nil
}

// Append writes one accepted transition. The table is append-only; nothing
// ever updates or deletes an event row.
func (s *Store) Append(ctx context.Context, ev ledger.Event) error {
	query := `
        INSERT INTO ledger_events (seq, op, account, payload, applied_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err := s.db.Exec(ctx, query, ev.Seq, ev.Op, ev.Account, ev.Payload, ev.AppliedAt)
	return err
}

// Events returns transitions in descending sequence order.
func (s *Store) Events(ctx context.Context, limit, offset int) ([]ledger.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
        SELECT seq, op, account, payload, applied_at
        FROM ledger_events
        ORDER BY seq DESC
        LIMIT $1 OFFSET $2
    `
	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ledger.Event
	for rows.Next() {
		var ev ledger.Event
		if err := rows.Scan(&ev.Seq, &ev.Op, &ev.Account, &ev.Payload, &ev.AppliedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SaveSnapshot stores the latest state of one component, replacing any
// previous snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, component string, seq uint64, state []byte) error {
	query := `
        INSERT INTO component_snapshots (component, seq, state, saved_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (component) DO UPDATE
        SET seq = EXCLUDED.seq, state = EXCLUDED.state, saved_at = now()
    `
	_, err := s.db.Exec(ctx, query, component, seq, state)
	return err
}

// LoadSnapshot returns the stored state for component, or ErrNotFound when no
// snapshot has been saved yet.
func (s *Store) LoadSnapshot(ctx context.Context, component string) (uint64, []byte, error) {
	var (
		seq   uint64
		state []byte
	)
	query := `SELECT seq, state FROM component_snapshots WHERE component = $1`
	err := s.db.QueryRow(ctx, query, component).Scan(&seq, &state)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, ledger.ErrNotFound
	}
	if err != nil {
		return 0, nil, err
	}
	return seq, state, nil
}
