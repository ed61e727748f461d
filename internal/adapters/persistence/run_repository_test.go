package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"batchingest/internal/ports"
)

func newMockRepository(t *testing.T) (*RunRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return NewRunRepository(gdb), mock
}

func TestRecordInsertsRun(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "ingest_runs"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	now := time.Now()
	err := repo.Record(context.Background(), ports.RunRecord{
		Bucket:        "uploads",
		Object:        "transactions.csv",
		DataType:      "transaction",
		Success:       true,
		TotalRows:     3,
		ProcessedRows: 3,
		StartedAt:     now.Add(-time.Second),
		FinishedAt:    now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordWrapsDatabaseError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "ingest_runs"`)).
		WillReturnError(errors.New("connection reset"))

	err := repo.Record(context.Background(), ports.RunRecord{Bucket: "uploads", Object: "a.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploads/a.csv")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentMapsRows(t *testing.T) {
	repo, mock := newMockRepository(t)

	finished := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "bucket", "object", "data_type", "success", "total_rows", "processed_rows",
		"error_count", "published_count", "failed_count", "error", "started_at", "finished_at",
	}).AddRow(
		"3f1c2f0e-4a7e-4f37-9f55-0d8e0b1f1a11", "uploads", "shops.csv", "shop", false, 5, 4,
		1, 4, 0, "", finished.Add(-time.Minute), finished,
	)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "ingest_runs" ORDER BY finished_at DESC LIMIT`)).
		WillReturnRows(rows)

	runs, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "shops.csv", runs[0].Object)
	assert.Equal(t, "shop", runs[0].DataType)
	assert.Equal(t, 1, runs[0].ErrorCount)
	assert.False(t, runs[0].Success)
	assert.True(t, finished.Equal(runs[0].FinishedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
