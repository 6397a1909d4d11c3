package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories so that a check-then-write sequence can run inside a
// single transaction.
type Store interface {
	Accounts() AccountRepository
	Subjects() SubjectRepository
	Questions() QuestionRepository
	Enrollments() EnrollmentRepository
	Evaluations() EvaluationRepository
	Activity() ActivityLogRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore builds a gorm-backed store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Accounts() AccountRepository {
	return NewAccountRepository(s.db)
}

func (s *gormStore) Subjects() SubjectRepository {
	return NewSubjectRepository(s.db)
}

func (s *gormStore) Questions() QuestionRepository {
	return NewQuestionRepository(s.db)
}

func (s *gormStore) Enrollments() EnrollmentRepository {
	return NewEnrollmentRepository(s.db)
}

func (s *gormStore) Evaluations() EvaluationRepository {
	return NewEvaluationRepository(s.db)
}

func (s *gormStore) Activity() ActivityLogRepository {
	return NewActivityLogRepository(s.db)
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
