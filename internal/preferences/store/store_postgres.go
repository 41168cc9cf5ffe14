// Package store persists notification preferences.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"procura/internal/preferences"
	txcontext "procura/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const prefColumns = `
	user_id, email_enabled, in_app_enabled, request_status_changes,
	manager_assignments, system_alerts, weekly_digest, created_at, updated_at
`

// GetOrCreate relies on the user_id primary key: concurrent first accesses
// race on the INSERT, one wins, and every caller reads the winning row.
func (s *PostgresStore) GetOrCreate(ctx context.Context, defaults *preferences.Preferences) (*preferences.Preferences, error) {
	exec := txcontext.Pick(ctx, s.db)
	if err := insertDefaults(ctx, exec, defaults); err != nil {
		return nil, err
	}
	row := exec.QueryRowContext(ctx, `SELECT`+prefColumns+`FROM notification_preferences WHERE user_id = $1`, defaults.UserID)
	return scanPreferences(row)
}

func (s *PostgresStore) Update(ctx context.Context, defaults *preferences.Preferences, mutate func(*preferences.Preferences)) (*preferences.Preferences, error) {
	var out *preferences.Preferences
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.Pick(ctx, s.db)
		if err := insertDefaults(ctx, exec, defaults); err != nil {
			return err
		}
		row := exec.QueryRowContext(ctx,
			`SELECT`+prefColumns+`FROM notification_preferences WHERE user_id = $1 FOR UPDATE`, defaults.UserID)
		p, err := scanPreferences(row)
		if err != nil {
			return err
		}
		mutate(p)
		_, err = exec.ExecContext(ctx, `
			UPDATE notification_preferences
			SET email_enabled = $2, in_app_enabled = $3, request_status_changes = $4,
				manager_assignments = $5, system_alerts = $6, weekly_digest = $7, updated_at = $8
			WHERE user_id = $1
		`, p.UserID, p.EmailEnabled, p.InAppEnabled, p.RequestStatusChanges,
			p.ManagerAssignments, p.SystemAlerts, p.WeeklyDigest, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update preferences: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func insertDefaults(ctx context.Context, exec txcontext.Executor, p *preferences.Preferences) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO notification_preferences (`+prefColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO NOTHING
	`, p.UserID, p.EmailEnabled, p.InAppEnabled, p.RequestStatusChanges,
		p.ManagerAssignments, p.SystemAlerts, p.WeeklyDigest, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert default preferences: %w", err)
	}
	return nil
}

func scanPreferences(row *sql.Row) (*preferences.Preferences, error) {
	var p preferences.Preferences
	err := row.Scan(&p.UserID, &p.EmailEnabled, &p.InAppEnabled, &p.RequestStatusChanges,
		&p.ManagerAssignments, &p.SystemAlerts, &p.WeeklyDigest, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan preferences: %w", err)
	}
	return &p, nil
}
