package usage

import (
	"context"
	"database/sql"
	"fmt"
)

type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB) *pgStore {
	return &pgStore{DB: db}
}

func (s *pgStore) Counts(ctx context.Context, ownerID, period string) (map[Metric]int, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT kind, used FROM budget_usage WHERE owner_id = $1 AND period = $2`, ownerID, period)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	out := make(map[Metric]int, len(Metrics))
	for _, m := range Metrics {
		out[m] = 0
	}
	for rows.Next() {
		var (
			kind string
			used int
		)
		if err := rows.Scan(&kind, &used); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out[Metric(kind)] = used
	}
	return out, rows.Err()
}

func (s *pgStore) Consume(ctx context.Context, ownerID, period string, m Metric, n, limit int) (used int, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
INSERT INTO budget_usage (owner_id, period, kind, used) VALUES ($1, $2, $3, 0)
ON CONFLICT (owner_id, period, kind) DO NOTHING`, ownerID, period, string(m)); err != nil {
		return 0, err
	}
	if err = tx.QueryRowContext(ctx, `
SELECT used FROM budget_usage WHERE owner_id = $1 AND period = $2 AND kind = $3 FOR UPDATE`,
		ownerID, period, string(m)).Scan(&used); err != nil {
		return 0, err
	}
	if n <= 0 {
		err = tx.Commit()
		return used, err
	}
	if limit > 0 && used+n > limit {
		err = ErrLimitReached
		return used, err
	}
	used += n
	if _, err = tx.ExecContext(ctx, `
UPDATE budget_usage SET used = $1, updated_at = now() WHERE owner_id = $2 AND period = $3 AND kind = $4`,
		used, ownerID, period, string(m)); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return used, nil
}

func (s *pgStore) Reset(ctx context.Context, ownerID, period string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM budget_usage WHERE owner_id = $1 AND period = $2`, ownerID, period)
	return err
}
