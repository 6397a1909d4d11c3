package models

import "time"

// Subject is a course owning its questions and enrollments.
type Subject struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:128;not null" json:"name"`
	Description *string      `gorm:"size:256" json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Questions   []Question   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Enrollments []Enrollment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Question belongs to exactly one subject.
type Question struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SubjectID uint      `gorm:"not null;index" json:"subject_id"`
	Text      string    `gorm:"size:512;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
