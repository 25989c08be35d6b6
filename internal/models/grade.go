package models

import "time"

// LetterGrade is the A–F band derived from the 30-point total.
type LetterGrade string

const (
	GradeA LetterGrade = "A"
	GradeB LetterGrade = "B"
	GradeC LetterGrade = "C"
	GradeD LetterGrade = "D"
	GradeF LetterGrade = "F"
)

// SupervisorGrade is the finalized placement grade, written once by the
// grading engine. Re-grading requires an explicit admin unlock first.
type SupervisorGrade struct {
	ID                      string      `db:"id" json:"id"`
	StudentID               string      `db:"student_id" json:"student_id"`
	GradedBy                string      `db:"graded_by" json:"graded_by"`
	AttendanceScore         float64     `db:"attendance_score" json:"attendance_score"`
	WeeklyReportsScore      float64     `db:"weekly_reports_score" json:"weekly_reports_score"`
	SupervisorApprovalScore float64     `db:"supervisor_approval_score" json:"supervisor_approval_score"`
	TotalScore              float64     `db:"total_score" json:"total_score"`
	Grade                   LetterGrade `db:"grade" json:"grade"`
	Remarks                 *string     `db:"remarks" json:"remarks,omitempty"`
	CreatedAt               time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time   `db:"updated_at" json:"updated_at"`
}

// GradingStats are the raw counts feeding the score calculator.
type GradingStats struct {
	AttendanceDays    int `json:"attendance_days"`
	MaxAttendanceDays int `json:"max_attendance_days"`
	SubmittedWeeks    int `json:"submitted_weeks"`
	ApprovedWeeks     int `json:"approved_weeks"`
	TotalWeeks        int `json:"total_weeks"`
}

// GradingBreakdown carries the weighted sub-scores summing to the total.
type GradingBreakdown struct {
	Attendance         float64 `json:"attendance"`
	WeeklyReports      float64 `json:"weekly_reports"`
	SupervisorApproval float64 `json:"supervisor_approval"`
	Total              float64 `json:"total"`
}

// GradingResult is the payload shared by the preview and commit endpoints.
type GradingResult struct {
	StudentID string           `json:"student_id"`
	Stats     GradingStats     `json:"stats"`
	Breakdown GradingBreakdown `json:"breakdown"`
	Grade     LetterGrade      `json:"grade"`
	Committed bool             `json:"committed"`
}
