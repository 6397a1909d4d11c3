package models

import "time"

// Evaluation is a TA's assessment of one student on one question.
type Evaluation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StudentID  uint      `gorm:"not null;uniqueIndex:idx_evaluations_triple;index" json:"student_id"`
	QuestionID uint      `gorm:"not null;uniqueIndex:idx_evaluations_triple;index" json:"question_id"`
	TAID       uint      `gorm:"column:ta_id;not null;uniqueIndex:idx_evaluations_triple;index" json:"ta_id"`
	Marking    Marking   `gorm:"size:16;not null" json:"marking"`
	Remarks    *string   `gorm:"type:text" json:"remarks"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
