package store

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
)

// ReplaceHostAssignments overwrites the whole mapping. Host ids are only
// stable within one cotenancy run, so rows from older runs must never survive
// next to new ones.
func (s *Store) ReplaceHostAssignments(ctx context.Context, envToHost map[string]int, at time.Time) error {
	envs := lo.Keys(envToHost)
	sort.Strings(envs)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM host_assignments`); err != nil {
			return fleeterrors.WrapAndTrace(err)
		}
		for _, env := range envs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO host_assignments (environment_id, host_id, updated_at)
				VALUES (?, ?, ?)
			`, env, envToHost[env], at.Unix())
			if err != nil {
				return fleeterrors.WrapAndTrace(err, env)
			}
		}
		return nil
	})
}

func (s *Store) ListHostAssignments(ctx context.Context) ([]entity.HostAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT environment_id, host_id, updated_at
		FROM host_assignments
		ORDER BY host_id, environment_id
	`)
	if err != nil {
		return nil, fleeterrors.WrapAndTrace(err)
	}
	defer rows.Close() //nolint:errcheck // read only

	assignments := []entity.HostAssignment{}
	for rows.Next() {
		var a entity.HostAssignment
		var envID string
		var updated int64
		if err := rows.Scan(&envID, &a.HostID, &updated); err != nil {
			return nil, fleeterrors.WrapAndTrace(err)
		}
		a.EnvironmentID = entity.EnvironmentID(envID)
		a.UpdatedAt = time.Unix(updated, 0).UTC()
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fleeterrors.WrapAndTrace(err)
	}
	return assignments, nil
}
