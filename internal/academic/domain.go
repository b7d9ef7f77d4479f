// Package academic tracks student grades.
package academic

import "time"

// Grade is one recorded score for a student in a subject.
type Grade struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	Subject    string    `json:"subject"`
	Score      float64   `json:"score"`
	Term       string    `json:"term"`
	RecordedBy int64     `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// StudentRef identifies the student profile a user maps to.
type StudentRef struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	GradeLevel int    `json:"grade_level"`
	ClassName  string `json:"class_name"`
}
