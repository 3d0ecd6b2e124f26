package analyses

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[string]Record
	byOwner map[string][]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]Record),
		byOwner: make(map[string][]string),
	}
}

// Create stores the record and assigns its row id.
func (r *MemoryRepo) Create(ctx context.Context, record Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	record.RowID = r.nextID
	r.byID[record.AnalysisID] = record
	r.byOwner[record.OwnerID] = append(r.byOwner[record.OwnerID], record.AnalysisID)
	return record, nil
}

// GetByAnalysisID returns a record by its analysis id.
func (r *MemoryRepo) GetByAnalysisID(ctx context.Context, analysisID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.byID[analysisID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return record, nil
}

// ListByOwner returns records for an owner, newest first, with limit/offset.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Record, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	records := make([]Record, 0, len(r.byOwner[ownerID]))
	for _, id := range r.byOwner[ownerID] {
		records = append(records, r.byID[id])
	}
	r.mu.RUnlock()

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].RowID > records[j].RowID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	total := len(records)
	if offset >= total {
		return []Record{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return records[offset:end], total, nil
}

var _ Repo = (*MemoryRepo)(nil)
