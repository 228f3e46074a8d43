package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// EvaluationResultRepository persists result rows written by the database sink.
type EvaluationResultRepository interface {
	CreateBatch(ctx context.Context, rows []models.EvaluationResult) error
	ListByJob(ctx context.Context, jobID string) ([]models.EvaluationResult, error)
	CountByVerdict(ctx context.Context, jobID string) (map[string]int64, error)
}

type evaluationResultRepository struct {
	db *gorm.DB
}

// NewEvaluationResultRepository constructs a repository backed by GORM.
func NewEvaluationResultRepository(db *gorm.DB) EvaluationResultRepository {
	return &evaluationResultRepository{db: db}
}

// CreateBatch inserts all rows in one transaction so a job never leaves a
// partial row set.
func (r *evaluationResultRepository) CreateBatch(ctx context.Context, rows []models.EvaluationResult) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, 200).Error
	})
}

func (r *evaluationResultRepository) ListByJob(ctx context.Context, jobID string) ([]models.EvaluationResult, error) {
	var rows []models.EvaluationResult
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *evaluationResultRepository) CountByVerdict(ctx context.Context, jobID string) (map[string]int64, error) {
	type verdictCount struct {
		Verdict string
		Total   int64
	}

	var counts []verdictCount
	if err := r.db.WithContext(ctx).
		Model(&models.EvaluationResult{}).
		Select("verdict, COUNT(*) AS total").
		Where("job_id = ?", jobID).
		Group("verdict").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(counts))
	for _, c := range counts {
		result[c.Verdict] = c.Total
	}
	return result, nil
}
