// Package grading computes the 30-point SIWES placement grade from raw
// attendance and logbook counts. Every function here is pure: the same
// inputs always produce the same breakdown, which is what keeps the
// preview and commit endpoints in agreement.
package grading

import (
	"github.com/noah-isme/siwes-portal-api/internal/models"
	"github.com/noah-isme/siwes-portal-api/pkg/config"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
)

// Inputs are the raw counts feeding the calculator.
type Inputs struct {
	CheckedInDays   int
	MaxExpectedDays int
	SubmittedWeeks  int
	ApprovedWeeks   int
	TotalWeeks      int
	// WeeklyReportsOverride, when set, replaces the computed weekly
	// reports sub-score. Must lie in [0, MaxWeeklyReportsScore].
	WeeklyReportsOverride *float64
}

// Compute derives the weighted sub-scores and clamped total from the
// inputs. Ratios above 1 are clamped to each component's maximum, and
// zero denominators yield a zero sub-score rather than an error.
func Compute(cfg config.GradingConfig, in Inputs) (models.GradingBreakdown, error) {
	if in.WeeklyReportsOverride != nil {
		if *in.WeeklyReportsOverride < 0 || *in.WeeklyReportsOverride > cfg.MaxWeeklyReportsScore {
			return models.GradingBreakdown{}, appErrors.Clone(appErrors.ErrValidation, "weekly reports override out of range")
		}
	}

	attendance := 0.0
	if in.MaxExpectedDays > 0 {
		attendance = clamp(float64(in.CheckedInDays)/float64(in.MaxExpectedDays)*cfg.MaxAttendanceScore, cfg.MaxAttendanceScore)
	}

	weekly := 0.0
	if in.TotalWeeks > 0 {
		weekly = clamp(float64(in.SubmittedWeeks)/float64(in.TotalWeeks)*cfg.MaxWeeklyReportsScore, cfg.MaxWeeklyReportsScore)
	}
	if in.WeeklyReportsOverride != nil {
		weekly = *in.WeeklyReportsOverride
	}

	approval := 0.0
	if in.SubmittedWeeks > 0 {
		approval = clamp(float64(in.ApprovedWeeks)/float64(in.SubmittedWeeks)*cfg.MaxSupervisorApprovalScore, cfg.MaxSupervisorApprovalScore)
	}

	total := clamp(attendance+weekly+approval, cfg.MaxTotalScore)

	return models.GradingBreakdown{
		Attendance:         attendance,
		WeeklyReports:      weekly,
		SupervisorApproval: approval,
		Total:              total,
	}, nil
}

// Letter maps a total score to its letter band.
// Closed-open intervals: A [25,30], B [20,25), C [15,20), D [12,15), F [0,12).
func Letter(total float64) models.LetterGrade {
	switch {
	case total >= 25:
		return models.GradeA
	case total >= 20:
		return models.GradeB
	case total >= 15:
		return models.GradeC
	case total >= 12:
		return models.GradeD
	default:
		return models.GradeF
	}
}

func clamp(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
