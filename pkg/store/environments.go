package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
)

// SyncEnvironments upserts envs. With deactivateMissing every cached
// environment not in envs is marked inactive.
func (s *Store) SyncEnvironments(ctx context.Context, envs []entity.Environment, at time.Time, deactivateMissing bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range envs {
			status := e.Status
			if status == "" {
				status = entity.Active
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO environments (project_id, environment_id, status, updated_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(project_id, environment_id)
				DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at
			`, e.ProjectID, e.EnvironmentID, status, at.Unix())
			if err != nil {
				return fleeterrors.WrapAndTrace(err, string(e.ID()))
			}
		}
		if !deactivateMissing {
			return nil
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE environments SET status = ? WHERE updated_at < ?
		`, entity.Inactive, at.Unix())
		if err != nil {
			return fleeterrors.WrapAndTrace(err)
		}
		return nil
	})
}

func (s *Store) ListEnvironments(ctx context.Context, activeOnly bool) ([]entity.Environment, error) {
	query := `SELECT project_id, environment_id, status, updated_at FROM environments`
	args := []any{}
	if activeOnly {
		query += ` WHERE status = ?`
		args = append(args, entity.Active)
	}
	query += ` ORDER BY project_id, environment_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fleeterrors.WrapAndTrace(err)
	}
	defer rows.Close() //nolint:errcheck // read only

	envs := []entity.Environment{}
	for rows.Next() {
		var e entity.Environment
		var updated int64
		if err := rows.Scan(&e.ProjectID, &e.EnvironmentID, &e.Status, &updated); err != nil {
			return nil, fleeterrors.WrapAndTrace(err)
		}
		e.UpdatedAt = time.Unix(updated, 0).UTC()
		envs = append(envs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fleeterrors.WrapAndTrace(err)
	}
	return envs, nil
}
