package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/icco/catalog/lib/syncer"
)

// SyncRun is one finished sync of a target.
type SyncRun struct {
	ID         uint `gorm:"primaryKey"`
	Target     string
	Status     string
	Count      int
	Message    string
	StartedAt  time.Time
	FinishedAt time.Time
	DurationMS int64
}

// History persists sync runs.
type History struct {
	db *gorm.DB
}

func NewHistory(db *gorm.DB) *History {
	return &History{db: db}
}

// RecordSync stores a finished sync report.
func (h *History) RecordSync(ctx context.Context, r syncer.Report) error {
	run := SyncRun{
		Target:     r.Target,
		Status:     string(r.Status),
		Count:      r.Count,
		Message:    r.Message,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMS: r.Duration.Milliseconds(),
	}
	if err := h.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first. An empty target matches all.
func (h *History) Recent(ctx context.Context, target string, limit int) ([]SyncRun, error) {
	q := h.db.WithContext(ctx).Order("started_at DESC, id DESC").Limit(limit)
	if target != "" {
		q = q.Where("target = ?", target)
	}
	var runs []SyncRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runs, nil
}
