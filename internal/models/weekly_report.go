package models

import "time"

// ReportStatus mirrors the weekly_report_status enum in PostgreSQL.
//
// Valid status graph:
//
//	DRAFT ──► SUBMITTED ──► APPROVED
//	  ▲            │
//	  └────────────┴──► REJECTED ──► SUBMITTED (resubmission)
//
// APPROVED is terminal. A locked student freezes every report regardless
// of its individual status.
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "DRAFT"
	ReportStatusSubmitted ReportStatus = "SUBMITTED"
	ReportStatusApproved  ReportStatus = "APPROVED"
	ReportStatusRejected  ReportStatus = "REJECTED"
)

// Valid reports whether the status is a known enum value.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusDraft, ReportStatusSubmitted, ReportStatusApproved, ReportStatusRejected:
		return true
	}
	return false
}

var reportTransitions = map[ReportStatus][]ReportStatus{
	ReportStatusDraft:     {ReportStatusSubmitted},
	ReportStatusSubmitted: {ReportStatusApproved, ReportStatusRejected},
	ReportStatusRejected:  {ReportStatusSubmitted, ReportStatusDraft},
	// APPROVED is terminal
}

// CanTransition returns true when moving from → to is permitted by the
// report lifecycle.
func CanTransition(from, to ReportStatus) bool {
	for _, allowed := range reportTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// MinWeekNumber and MaxWeekNumber bound the weekly logbook.
const (
	MinWeekNumber = 1
	MaxWeekNumber = 24
)

// WeeklyReport is one week of a student's logbook. At most one row exists
// per (student_id, week_number); rows are created lazily on first save.
type WeeklyReport struct {
	ID                       string       `db:"id" json:"id"`
	StudentID                string       `db:"student_id" json:"student_id"`
	WeekNumber               int          `db:"week_number" json:"week_number"`
	MondayActivity           string       `db:"monday_activity" json:"monday_activity"`
	TuesdayActivity          string       `db:"tuesday_activity" json:"tuesday_activity"`
	WednesdayActivity        string       `db:"wednesday_activity" json:"wednesday_activity"`
	ThursdayActivity         string       `db:"thursday_activity" json:"thursday_activity"`
	FridayActivity           string       `db:"friday_activity" json:"friday_activity"`
	SaturdayActivity         string       `db:"saturday_activity" json:"saturday_activity"`
	Status                   ReportStatus `db:"status" json:"status"`
	Score                    *float64     `db:"score" json:"score,omitempty"`
	SchoolSupervisorComments *string      `db:"school_supervisor_comments" json:"school_supervisor_comments,omitempty"`
	RejectionReason          *string      `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ForwardedToSchool        bool         `db:"forwarded_to_school" json:"forwarded_to_school"`
	SubmittedAt              *time.Time   `db:"submitted_at" json:"submitted_at,omitempty"`
	ApprovedAt               *time.Time   `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt                time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time    `db:"updated_at" json:"updated_at"`
}

// WeeklyReportFilter captures list query criteria for weekly reports.
type WeeklyReportFilter struct {
	StudentID  string
	Status     ReportStatus
	WeekNumber int
}

// WeeklyReportCounts aggregates per-student logbook progress for grading.
type WeeklyReportCounts struct {
	SubmittedWeeks int `db:"submitted_weeks" json:"submitted_weeks"`
	ApprovedWeeks  int `db:"approved_weeks" json:"approved_weeks"`
}
