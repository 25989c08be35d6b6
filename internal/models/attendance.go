package models

import "time"

// AttendanceRecord is one calendar day of placement attendance. A given
// date admits at most one check-in and one check-out per student.
type AttendanceRecord struct {
	ID           string     `db:"id" json:"id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	Date         time.Time  `db:"date" json:"date"`
	CheckInTime  time.Time  `db:"check_in_time" json:"check_in_time"`
	CheckOutTime *time.Time `db:"check_out_time" json:"check_out_time,omitempty"`
	Verified     bool       `db:"verified" json:"verified"`
	VerifiedBy   *string    `db:"verified_by" json:"verified_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter captures list query criteria for attendance records.
type AttendanceFilter struct {
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Verified  *bool
}

// AttendanceSummary aggregates a student's attendance for dashboards and
// grading.
type AttendanceSummary struct {
	StudentID       string    `json:"student_id"`
	CheckedInDays   int       `json:"checked_in_days"`
	VerifiedDays    int       `json:"verified_days"`
	MaxExpectedDays int       `json:"max_expected_days"`
	GeneratedAt     time.Time `json:"generated_at"`
}
