package auth

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mbd888/botdesk/internal/plan"
)

// PostgresDirectory persists plan assignments in the user_plans table.
type PostgresDirectory struct {
	db          *sql.DB
	defaultPlan plan.Plan
}

// NewPostgresDirectory creates a PostgreSQL-backed plan directory.
func NewPostgresDirectory(db *sql.DB, defaultPlan plan.Plan) *PostgresDirectory {
	return &PostgresDirectory{db: db, defaultPlan: defaultPlan}
}

// PlanFor returns the stored plan, falling back to the default plan for
// unknown users and unrecognised stored values.
func (p *PostgresDirectory) PlanFor(ctx context.Context, userID string) (plan.Plan, error) {
	var raw string
	err := p.db.QueryRowContext(ctx,
		`SELECT plan FROM user_plans WHERE user_id = $1`, userID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return p.defaultPlan, nil
	}
	if err != nil {
		return "", fmt.Errorf("query plan: %w", err)
	}
	parsed, err := plan.Parse(raw)
	if err != nil {
		return p.defaultPlan, nil
	}
	return parsed, nil
}

// SetPlan assigns a plan, replacing any previous assignment.
func (p *PostgresDirectory) SetPlan(ctx context.Context, userID string, pl plan.Plan) error {
	if !plan.Valid(pl) {
		return plan.ErrUnknownPlan
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO user_plans (user_id, plan, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET plan = EXCLUDED.plan, updated_at = NOW()
	`, userID, string(pl))
	return err
}

// Migrate creates the user_plans table if it does not exist.
func (p *PostgresDirectory) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_plans (
			user_id    VARCHAR(128) PRIMARY KEY,
			plan       VARCHAR(32)  NOT NULL,
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

var _ Directory = (*PostgresDirectory)(nil)
