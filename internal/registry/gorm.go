package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// GormFactorRepository implements FactorRepository using GORM.
type GormFactorRepository struct {
	db *gorm.DB
}

// NewGormFactorRepository creates a new GormFactorRepository.
func NewGormFactorRepository(db *gorm.DB) *GormFactorRepository {
	return &GormFactorRepository{db: db}
}

func (r *GormFactorRepository) Create(ctx context.Context, name, expression, description string) (*FactorDefinition, error) {
	def := &FactorDefinition{
		Name:        name,
		Expression:  expression,
		Description: description,
	}
	if err := r.db.WithContext(ctx).Create(def).Error; err != nil {
		return nil, fmt.Errorf("failed to create factor definition: %w", err)
	}
	return def, nil
}

func (r *GormFactorRepository) GetByName(ctx context.Context, name string) (*FactorDefinition, error) {
	var def FactorDefinition
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("factor definition not found: %s", name)
		}
		return nil, fmt.Errorf("failed to get factor definition: %w", err)
	}
	return &def, nil
}

func (r *GormFactorRepository) List(ctx context.Context) ([]*FactorDefinition, error) {
	var defs []*FactorDefinition
	err := r.db.WithContext(ctx).Order("updated_at DESC").Find(&defs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list factor definitions: %w", err)
	}
	return defs, nil
}

func (r *GormFactorRepository) Delete(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Where("name = ?", name).Delete(&FactorDefinition{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete factor definition: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("factor definition not found: %s", name)
	}
	return nil
}

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

func (r *GormRunRepository) StartRun(ctx context.Context, runID string, factorCount, batchCount int) (*ReplayRun, error) {
	run := &ReplayRun{
		RunID:       runID,
		Status:      RunStatusRunning,
		FactorCount: factorCount,
		BatchCount:  batchCount,
		StartedAt:   time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to start replay run: %w", err)
	}
	return run, nil
}

func (r *GormRunRepository) CompleteRun(ctx context.Context, runID string, failedCount int, storageKey, errSummary string) error {
	status := RunStatusCompleted
	if errSummary != "" {
		status = RunStatusFailed
	}

	result := r.db.WithContext(ctx).
		Model(&ReplayRun{}).
		Where("run_id = ?", runID).
		Updates(map[string]interface{}{
			"status":        status,
			"failed_count":  failedCount,
			"storage_key":   storageKey,
			"error_summary": errSummary,
			"completed_at":  completedAt(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete replay run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("replay run not found: %s", runID)
	}
	return nil
}

func (r *GormRunRepository) GetRun(ctx context.Context, runID string) (*ReplayRun, error) {
	var run ReplayRun
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("replay run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get replay run: %w", err)
	}
	return &run, nil
}

func (r *GormRunRepository) ListRuns(ctx context.Context, limit int) ([]*ReplayRun, error) {
	q := r.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []*ReplayRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list replay runs: %w", err)
	}
	return runs, nil
}
