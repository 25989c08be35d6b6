package models

import "time"

// Student represents one SIWES trainee and their placement details.
type Student struct {
	ID                   string    `db:"id" json:"id"`
	UserID               string    `db:"user_id" json:"user_id"`
	FullName             string    `db:"full_name" json:"full_name"`
	MatricNumber         string    `db:"matric_number" json:"matric_number"`
	Department           string    `db:"department" json:"department"`
	Faculty              string    `db:"faculty" json:"faculty"`
	OrganisationName     string    `db:"organisation_name" json:"organisation_name"`
	OrganisationAddress  string    `db:"organisation_address" json:"organisation_address"`
	IndustrySupervisorID *string   `db:"industry_supervisor_id" json:"industry_supervisor_id,omitempty"`
	SchoolSupervisorID   *string   `db:"school_supervisor_id" json:"school_supervisor_id,omitempty"`
	Active               bool      `db:"active" json:"active"`
	SiwesLocked          bool      `db:"siwes_locked" json:"siwes_locked"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures list query criteria for students.
type StudentFilter struct {
	SchoolSupervisorID string
	Department         string
	Active             *bool
	Locked             *bool
	Search             string
	Page               int
	PageSize           int
}
