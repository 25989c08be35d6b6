package models

import "time"

// PreRegistrationStatus mirrors the preregistration_status enum in PostgreSQL.
// PENDING → APPROVED | REJECTED; REJECTED → PENDING on resubmission.
type PreRegistrationStatus string

const (
	PreRegistrationPending  PreRegistrationStatus = "PENDING"
	PreRegistrationApproved PreRegistrationStatus = "APPROVED"
	PreRegistrationRejected PreRegistrationStatus = "REJECTED"
)

// Valid reports whether the status is a known enum value.
func (s PreRegistrationStatus) Valid() bool {
	switch s {
	case PreRegistrationPending, PreRegistrationApproved, PreRegistrationRejected:
		return true
	}
	return false
}

// PreRegistration is the intake record gating a student's entry into the
// weekly report workflow. One row per (student, academic session).
type PreRegistration struct {
	ID                  string                `db:"id" json:"id"`
	StudentID           string                `db:"student_id" json:"student_id"`
	SessionID           string                `db:"session_id" json:"session_id"`
	OrganisationName    string                `db:"organisation_name" json:"organisation_name"`
	OrganisationAddress string                `db:"organisation_address" json:"organisation_address"`
	Status              PreRegistrationStatus `db:"status" json:"status"`
	Remark              *string               `db:"remark" json:"remark,omitempty"`
	ReviewedBy          *string               `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time            `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt           time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time             `db:"updated_at" json:"updated_at"`
}
