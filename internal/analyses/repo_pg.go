package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"budget-analyzer/internal/budget"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const recordColumns = `
id, analysis_id, owner_id, kind, status, file_name, storage_keys, project_type, location,
area_m2, estimated_budget, confidence_score, summary, raw_payload, canonical,
created_at, updated_at`

// Create inserts a new analysis and returns it with its row id.
func (r *PGRepo) Create(ctx context.Context, record Record) (Record, error) {
	const query = `
INSERT INTO budget_analyses (
	analysis_id, owner_id, kind, status, file_name, storage_keys, project_type, location,
	area_m2, estimated_budget, confidence_score, summary, raw_payload, canonical,
	created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
RETURNING id`
	keys := record.StorageKeys
	if keys == nil {
		keys = []string{}
	}
	storageKeys, err := marshalJSONB(keys)
	if err != nil {
		return Record{}, err
	}
	rawPayload, err := marshalJSONB(record.RawPayload)
	if err != nil {
		return Record{}, err
	}
	canonical, err := marshalJSONB(record.Canonical)
	if err != nil {
		return Record{}, err
	}
	err = r.DB.QueryRowContext(ctx, query,
		record.AnalysisID,
		record.OwnerID,
		string(record.Kind),
		record.Status,
		record.FileName,
		storageKeys,
		record.ProjectType,
		record.Location,
		record.AreaM2,
		record.EstimatedBudget,
		record.ConfidenceScore,
		record.Summary,
		rawPayload,
		canonical,
		record.CreatedAt,
	).Scan(&record.RowID)
	if err != nil {
		return Record{}, fmt.Errorf("insert analysis: %w", err)
	}
	record.UpdatedAt = record.CreatedAt
	return record, nil
}

// GetByAnalysisID returns an analysis by its analysis id.
func (r *PGRepo) GetByAnalysisID(ctx context.Context, analysisID string) (Record, error) {
	query := `SELECT` + recordColumns + `
FROM budget_analyses
WHERE analysis_id = $1
LIMIT 1`
	record, err := scanRecord(r.DB.QueryRowContext(ctx, query, analysisID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return record, nil
}

// ListByOwner returns a page of analyses for an owner ordered newest-first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Record, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM budget_analyses WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count analyses: %w", err)
	}
	if offset < 0 {
		offset = 0
	}
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	query := `SELECT` + recordColumns + `
FROM budget_analyses
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, limitArg, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec         Record
		kind        string
		storageKeys []byte
		rawPayload  []byte
		canonical   []byte
	)
	err := row.Scan(
		&rec.RowID,
		&rec.AnalysisID,
		&rec.OwnerID,
		&kind,
		&rec.Status,
		&rec.FileName,
		&storageKeys,
		&rec.ProjectType,
		&rec.Location,
		&rec.AreaM2,
		&rec.EstimatedBudget,
		&rec.ConfidenceScore,
		&rec.Summary,
		&rawPayload,
		&canonical,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Kind = budget.Kind(kind)
	if len(storageKeys) > 0 {
		if err := json.Unmarshal(storageKeys, &rec.StorageKeys); err != nil {
			rec.StorageKeys = nil
		}
	}
	if len(rawPayload) > 0 {
		if p, err := budget.DecodePayload(rawPayload); err == nil {
			rec.RawPayload = p
		}
	}
	if len(canonical) > 0 && string(canonical) != "null" {
		var an budget.Analysis
		if err := json.Unmarshal(canonical, &an); err == nil {
			rec.Canonical = &an
		}
	}
	return rec, nil
}

func marshalJSONB(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case budget.Payload:
		if t == nil {
			return nil, nil
		}
	case *budget.Analysis:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

var _ Repo = (*PGRepo)(nil)
