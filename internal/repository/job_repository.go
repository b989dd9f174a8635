package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type GormJobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

func (r *GormJobRepository) Claim(ctx context.Context, name, period string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO job_runs (name, period, ran_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name, period) DO NOTHING
	`, name, period, at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormJobRepository) HasRun(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.WithContext(ctx).Raw(`
		SELECT EXISTS (SELECT 1 FROM job_runs WHERE name = ?)
	`, name).Scan(&exists).Error
	return exists, err
}
