package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"batchingest/internal/ports"
)

type ingestRun struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	Bucket         string
	Object         string
	DataType       string
	Success        bool
	TotalRows      int
	ProcessedRows  int
	ErrorCount     int
	PublishedCount int
	FailedCount    int
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

func (ingestRun) TableName() string { return "ingest_runs" }

// RunRepository implements ports.RunLedger on postgres through gorm.
type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Record(ctx context.Context, run ports.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	row := ingestRun{
		ID:             run.ID,
		Bucket:         run.Bucket,
		Object:         run.Object,
		DataType:       run.DataType,
		Success:        run.Success,
		TotalRows:      run.TotalRows,
		ProcessedRows:  run.ProcessedRows,
		ErrorCount:     run.ErrorCount,
		PublishedCount: run.PublishedCount,
		FailedCount:    run.FailedCount,
		Error:          run.Error,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record ingest run for %s/%s: %w", run.Bucket, run.Object, err)
	}
	return nil
}

func (r *RunRepository) Recent(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []ingestRun
	if err := r.db.WithContext(ctx).Order("finished_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingest runs: %w", err)
	}

	runs := make([]ports.RunRecord, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, ports.RunRecord{
			ID:             row.ID,
			Bucket:         row.Bucket,
			Object:         row.Object,
			DataType:       row.DataType,
			Success:        row.Success,
			TotalRows:      row.TotalRows,
			ProcessedRows:  row.ProcessedRows,
			ErrorCount:     row.ErrorCount,
			PublishedCount: row.PublishedCount,
			FailedCount:    row.FailedCount,
			Error:          row.Error,
			StartedAt:      row.StartedAt,
			FinishedAt:     row.FinishedAt,
		})
	}
	return runs, nil
}
