package store

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
)

func (s *Store) WriteObservations(ctx context.Context, obs []entity.Observation) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO host_signatures (check_id, environment_id, boot_time, cpus, ip, checked_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fleeterrors.WrapAndTrace(err)
		}
		defer stmt.Close() //nolint:errcheck // closed with tx

		for _, o := range obs {
			_, err := stmt.ExecContext(ctx,
				o.CheckID,
				string(o.EnvironmentID),
				o.Signature.BootTime.Unix(),
				o.Signature.CPUs,
				o.Signature.IP,
				o.CheckedAt.Unix(),
			)
			if err != nil {
				return fleeterrors.WrapAndTrace(err, string(o.EnvironmentID))
			}
		}
		return nil
	})
}

// ListObservations returns env's observations, newest first.
func (s *Store) ListObservations(ctx context.Context, env entity.EnvironmentID) ([]entity.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT check_id, environment_id, boot_time, cpus, ip, checked_at
		FROM host_signatures
		WHERE environment_id = ?
		ORDER BY checked_at DESC, id DESC
	`, string(env))
	if err != nil {
		return nil, fleeterrors.WrapAndTrace(err)
	}
	defer rows.Close() //nolint:errcheck // read only

	obs := []entity.Observation{}
	for rows.Next() {
		var o entity.Observation
		var envID string
		var boot, checked int64
		if err := rows.Scan(&o.CheckID, &envID, &boot, &o.Signature.CPUs, &o.Signature.IP, &checked); err != nil {
			return nil, fleeterrors.WrapAndTrace(err)
		}
		o.EnvironmentID = entity.EnvironmentID(envID)
		o.Signature.BootTime = time.Unix(boot, 0).UTC()
		o.CheckedAt = time.Unix(checked, 0).UTC()
		obs = append(obs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fleeterrors.WrapAndTrace(err)
	}
	return obs, nil
}

// ObservationGroups returns, per distinct exact (boot_time, cpus, ip)
// signature seen since since, the comma-joined environment ids that reported
// it. Groups are ordered by signature and members by id. A zero since reads
// all history.
func (s *Store) ObservationGroups(ctx context.Context, since time.Time) ([]string, error) {
	var from int64
	if !since.IsZero() {
		from = since.Unix()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT group_concat(environment_id, ',')
		FROM (
			SELECT DISTINCT environment_id, boot_time, cpus, ip
			FROM host_signatures
			WHERE checked_at >= ?
		)
		GROUP BY boot_time, cpus, ip
		ORDER BY boot_time, cpus, ip
	`, from)
	if err != nil {
		return nil, fleeterrors.WrapAndTrace(err)
	}
	defer rows.Close() //nolint:errcheck // read only

	groups := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fleeterrors.WrapAndTrace(err)
		}
		// group_concat order is unspecified
		members := strings.Split(g, ",")
		sort.Strings(members)
		groups = append(groups, strings.Join(members, ","))
	}
	if err := rows.Err(); err != nil {
		return nil, fleeterrors.WrapAndTrace(err)
	}
	return groups, nil
}
