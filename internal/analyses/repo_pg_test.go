package analyses

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget-analyzer/internal/budget"
)

func newPGRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

var recordColumnNames = []string{
	"id", "analysis_id", "owner_id", "kind", "status", "file_name", "storage_keys", "project_type", "location",
	"area_m2", "estimated_budget", "confidence_score", "summary", "raw_payload", "canonical",
	"created_at", "updated_at",
}

func TestPGRepoCreateReturnsRowID(t *testing.T) {
	repo, mock := newPGRepo(t)
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	an := budget.Analysis{AnalysisID: "a-1", Kind: budget.KindPDF, TotalBudgetCLP: 10}
	rec := newRecord("u1", an, budget.Payload{"ok": true}, created)
	rec.StorageKeys = []string{"plans/x/a-1/plano.pdf"}

	mock.ExpectQuery("INSERT INTO budget_analyses").
		WithArgs(
			"a-1", "u1", "pdf", StatusCompleted, "",
			`["plans/x/a-1/plano.pdf"]`,
			"", "", 0.0, 10.0, 0.0, "",
			`{"ok":true}`,
			sqlmock.AnyArg(), // canonical
			created,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	out, err := repo.Create(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(7), out.RowID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoGetByAnalysisID(t *testing.T) {
	repo, mock := newPGRepo(t)
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM budget_analyses").
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows(recordColumnNames).AddRow(
			int64(3), "a-1", "u1", "quick", StatusCompleted, "", []byte(`[]`), "residential", "Santiago",
			120.0, 5.0, 60.0, "resumen",
			[]byte(`{"resumen_ejecutivo":"resumen"}`),
			[]byte(`{"analysisId":"a-1","kind":"quick","totalBudgetClp":5}`),
			created, created,
		))

	rec, err := repo.GetByAnalysisID(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.RowID)
	assert.Equal(t, budget.KindQuick, rec.Kind)
	assert.Equal(t, "resumen", rec.RawPayload["resumen_ejecutivo"])
	require.NotNil(t, rec.Canonical)
	assert.Equal(t, 5.0, rec.Canonical.TotalBudgetCLP)
	assert.Empty(t, rec.StorageKeys)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoGetByAnalysisIDNotFound(t *testing.T) {
	repo, mock := newPGRepo(t)
	mock.ExpectQuery("FROM budget_analyses").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByAnalysisID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoListByOwner(t *testing.T) {
	repo, mock := newPGRepo(t)
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs("u1", 2, 0).
		WillReturnRows(sqlmock.NewRows(recordColumnNames).
			AddRow(int64(5), "a-5", "u1", "pdf", StatusCompleted, "plano.pdf", []byte(`["k"]`), "", "",
				0.0, 1.0, 0.0, "", nil, nil, created, created).
			AddRow(int64(4), "a-4", "u1", "quick", StatusCompleted, "", []byte(`[]`), "", "",
				0.0, 2.0, 0.0, "", nil, nil, created, created))

	records, total, err := repo.ListByOwner(context.Background(), "u1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, records, 2)
	assert.Equal(t, "a-5", records[0].AnalysisID)
	assert.Equal(t, []string{"k"}, records[0].StorageKeys)
	assert.Nil(t, records[1].Canonical)
	require.NoError(t, mock.ExpectationsWereMet())
}
