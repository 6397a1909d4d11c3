package models

import "time"

// Enrollment links a student account to a subject. The pair is unique.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_enrollments_user_subject" json:"user_id"`
	SubjectID uint      `gorm:"not null;uniqueIndex:idx_enrollments_user_subject;index" json:"subject_id"`
	CreatedAt time.Time `json:"created_at"`
}
