package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mbd888/botdesk/internal/plan"
)

// PostgresStore persists sessions in PostgreSQL. The bot registry is kept as
// a JSONB array next to the quota counters so one row holds the whole state.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed session store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Get(ctx context.Context, userID string) (*State, error) {
	st := &State{UserID: userID}
	var (
		planName string
		botsJSON []byte
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT plan, url_pages_used, monthly_messages_used, bots_created, bots, version, updated_at
		FROM sessions WHERE user_id = $1`, userID).Scan(
		&planName,
		&st.Counters.URLPagesUsed,
		&st.Counters.MonthlyMessagesUsed,
		&st.Counters.BotsCreated,
		&botsJSON,
		&st.Version,
		&st.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	st.Counters.Plan = plan.Plan(planName)
	if len(botsJSON) > 0 {
		if err := json.Unmarshal(botsJSON, &st.Bots); err != nil {
			return nil, fmt.Errorf("decode bots for %s: %w", userID, err)
		}
	}
	return st, nil
}

func (p *PostgresStore) Save(ctx context.Context, st *State, expectedVersion int64) error {
	botsJSON, err := json.Marshal(st.Bots)
	if err != nil {
		return err
	}

	var result sql.Result
	if expectedVersion == 0 {
		result, err = p.db.ExecContext(ctx, `
			INSERT INTO sessions (user_id, plan, url_pages_used, monthly_messages_used, bots_created, bots, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (user_id) DO NOTHING`,
			st.UserID, string(st.Counters.Plan), st.Counters.URLPagesUsed,
			st.Counters.MonthlyMessagesUsed, st.Counters.BotsCreated, botsJSON,
			st.Version, st.UpdatedAt,
		)
	} else {
		result, err = p.db.ExecContext(ctx, `
			UPDATE sessions SET plan = $1, url_pages_used = $2, monthly_messages_used = $3,
				bots_created = $4, bots = $5, version = $6, updated_at = $7
			WHERE user_id = $8 AND version = $9`,
			string(st.Counters.Plan), st.Counters.URLPagesUsed, st.Counters.MonthlyMessagesUsed,
			st.Counters.BotsCreated, botsJSON, st.Version, st.UpdatedAt,
			st.UserID, expectedVersion,
		)
	}
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (p *PostgresStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT user_id FROM sessions ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Migrate creates the sessions table (used in dev/test; prod uses migration files).
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			user_id               TEXT PRIMARY KEY,
			plan                  TEXT NOT NULL DEFAULT 'free',
			url_pages_used        INTEGER NOT NULL DEFAULT 0 CHECK (url_pages_used >= 0),
			monthly_messages_used INTEGER NOT NULL DEFAULT 0 CHECK (monthly_messages_used >= 0),
			bots_created          INTEGER NOT NULL DEFAULT 0 CHECK (bots_created >= 0),
			bots                  JSONB NOT NULL DEFAULT '[]',
			version               BIGINT NOT NULL DEFAULT 0,
			updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

var _ Store = (*PostgresStore)(nil)
