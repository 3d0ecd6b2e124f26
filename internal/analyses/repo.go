package analyses

import "context"

// Repo defines persistence operations for analyses.
type Repo interface {
	Create(ctx context.Context, record Record) (Record, error)
	GetByAnalysisID(ctx context.Context, analysisID string) (Record, error)
	// ListByOwner returns a page of records, newest first, and the total count.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Record, int, error)
}
