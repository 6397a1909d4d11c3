package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/lab-eval-api/internal/models"
)

// EvaluationFilter allows narrowing evaluation queries.
type EvaluationFilter struct {
	StudentID  *uint
	QuestionID *uint
	TAID       *uint
}

// EvaluationRepository defines data operations for evaluations.
type EvaluationRepository interface {
	List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, error)
	GetByID(ctx context.Context, id uint) (models.Evaluation, error)
	ExistsTriple(ctx context.Context, studentID, questionID, taID uint) (bool, error)
	CountByQuestions(ctx context.Context, questionIDs []uint) (int64, error)
	CountByAccount(ctx context.Context, accountID uint) (int64, error)
	CountByEnrollment(ctx context.Context, studentID, subjectID uint) (int64, error)
	Create(ctx context.Context, evaluation *models.Evaluation) error
	Update(ctx context.Context, evaluation *models.Evaluation) error
	Delete(ctx context.Context, id uint) error
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository instantiates the repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, error) {
	query := r.db.WithContext(ctx).Model(&models.Evaluation{})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.QuestionID != nil {
		query = query.Where("question_id = ?", *filter.QuestionID)
	}

	if filter.TAID != nil {
		query = query.Where("ta_id = ?", *filter.TAID)
	}

	var evaluations []models.Evaluation
	if err := query.Order("created_at DESC, id DESC").Find(&evaluations).Error; err != nil {
		return nil, err
	}

	return evaluations, nil
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.db.WithContext(ctx).First(&evaluation, id).Error; err != nil {
		return models.Evaluation{}, err
	}

	return evaluation, nil
}

func (r *evaluationRepository) ExistsTriple(ctx context.Context, studentID, questionID, taID uint) (bool, error) {
	var evaluation models.Evaluation
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("question_id = ?", questionID).
		Where("ta_id = ?", taID).
		Take(&evaluation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *evaluationRepository) CountByQuestions(ctx context.Context, questionIDs []uint) (int64, error) {
	if len(questionIDs) == 0 {
		return 0, nil
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("question_id IN ?", questionIDs).
		Count(&total).Error; err != nil {
		return 0, err
	}

	return total, nil
}

// CountByAccount counts evaluations naming the account as student or as TA.
func (r *evaluationRepository) CountByAccount(ctx context.Context, accountID uint) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("student_id = ? OR ta_id = ?", accountID, accountID).
		Count(&total).Error; err != nil {
		return 0, err
	}

	return total, nil
}

// CountByEnrollment counts the student's evaluations on questions of the subject, i.e. the
// rows that depend on the (student, subject) enrollment.
func (r *evaluationRepository) CountByEnrollment(ctx context.Context, studentID, subjectID uint) (int64, error) {
	questions := r.db.Model(&models.Question{}).Select("id").Where("subject_id = ?", subjectID)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("student_id = ?", studentID).
		Where("question_id IN (?)", questions).
		Count(&total).Error; err != nil {
		return 0, err
	}

	return total, nil
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *evaluationRepository) Update(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Save(evaluation).Error
}

func (r *evaluationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Evaluation{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
