package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/grading"
	"github.com/noah-isme/siwes-portal-api/internal/models"
	"github.com/noah-isme/siwes-portal-api/pkg/config"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
)

type attendanceCounter interface {
	CountCheckedInDays(ctx context.Context, studentID string) (checkedIn, verified int, err error)
}

type reportCounter interface {
	Counts(ctx context.Context, studentID string) (*models.WeeklyReportCounts, error)
}

type supervisorGradeRepo interface {
	FindByStudent(ctx context.Context, studentID string) (*models.SupervisorGrade, error)
	Upsert(ctx context.Context, grade *models.SupervisorGrade) error
}

type studentLocker interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	SetLocked(ctx context.Context, studentID string, locked bool) (bool, error)
}

type previewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type gradingMetrics interface {
	RecordGradeCommit()
	RecordCacheOperation(hit bool)
}

// CommitGradeRequest finalizes a student's placement grade.
type CommitGradeRequest struct {
	StudentID             string   `json:"student_id" validate:"required"`
	WeeklyReportsOverride *float64 `json:"weekly_reports_override"`
	Remarks               *string  `json:"remarks"`
}

// GradingService derives the 30-point placement grade. Preview and commit
// share one computation path (grading.Compute with the configured
// constants), so what the supervisor sees is exactly what gets persisted.
type GradingService struct {
	attendance attendanceCounter
	reports    reportCounter
	grades     supervisorGradeRepo
	students   studentLocker
	audit      auditEmitter
	cache      previewCache
	metrics    gradingMetrics
	cfg        config.GradingConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradingService constructs GradingService.
func NewGradingService(attendance attendanceCounter, reports reportCounter, grades supervisorGradeRepo, students studentLocker, audit auditEmitter, cache previewCache, cfg config.GradingConfig, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingService{
		attendance: attendance,
		reports:    reports,
		grades:     grades,
		students:   students,
		audit:      audit,
		cache:      cache,
		cfg:        cfg,
		validator:  validate,
		logger:     logger,
	}
}

// WithMetrics enables the grade-commit and preview-cache counters.
func (s *GradingService) WithMetrics(metrics gradingMetrics) *GradingService {
	s.metrics = metrics
	return s
}

// Preview computes the grade payload without persisting anything. Results
// are cached briefly; the cache key carries no override so commit-time
// overrides never leak into previews.
func (s *GradingService) Preview(ctx context.Context, actor *models.JWTClaims, studentID string) (*models.GradingResult, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireGrader(actor, student); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("grading:preview:%s", studentID)
	if s.cache != nil {
		var cached models.GradingResult
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.countCacheOp(true)
			return &cached, nil
		}
		s.countCacheOp(false)
	}

	result, err := s.compute(ctx, studentID, nil)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, s.cfg.PreviewCacheTTL); err != nil {
			s.logger.Warn("failed to cache grading preview", zap.Error(err))
		}
	}
	return result, nil
}

// Commit finalizes the grade: recomputes with the same formulas, persists
// the SupervisorGrade, and locks the student. The lock flips first so a
// submission racing the commit either lands before the counts are read or
// fails with the locked error.
func (s *GradingService) Commit(ctx context.Context, actor *models.JWTClaims, req CommitGradeRequest) (*models.GradingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commit payload")
	}
	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireGrader(actor, student); err != nil {
		return nil, err
	}
	if student.SiwesLocked {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student has already been graded; unlock to re-grade")
	}

	locked, err := s.students.SetLocked(ctx, req.StudentID, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock student")
	}
	// The lock flip is a CAS on siwes_locked = false. Losing it means a
	// concurrent commit won between our read and here; their grade stands.
	if !locked {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student was graded concurrently")
	}

	result, err := s.compute(ctx, req.StudentID, req.WeeklyReportsOverride)
	if err != nil {
		// Roll the lock back so the student is not stranded ungraded.
		if _, unlockErr := s.students.SetLocked(ctx, req.StudentID, false); unlockErr != nil {
			s.logger.Error("failed to unlock student after aborted commit",
				zap.String("student_id", req.StudentID), zap.Error(unlockErr))
		}
		return nil, err
	}

	grade := &models.SupervisorGrade{
		StudentID:               req.StudentID,
		GradedBy:                actor.UserID,
		AttendanceScore:         result.Breakdown.Attendance,
		WeeklyReportsScore:      result.Breakdown.WeeklyReports,
		SupervisorApprovalScore: result.Breakdown.SupervisorApproval,
		TotalScore:              result.Breakdown.Total,
		Grade:                   result.Grade,
		Remarks:                 req.Remarks,
	}
	if err := s.grades.Upsert(ctx, grade); err != nil {
		if _, unlockErr := s.students.SetLocked(ctx, req.StudentID, false); unlockErr != nil {
			s.logger.Error("failed to unlock student after failed grade write",
				zap.String("student_id", req.StudentID), zap.Error(unlockErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist grade")
	}

	result.Committed = true
	if s.cache != nil {
		if err := s.cache.Delete(ctx, fmt.Sprintf("grading:preview:%s", req.StudentID)); err != nil {
			s.logger.Warn("failed to invalidate grading preview", zap.Error(err))
		}
	}
	if s.audit != nil {
		s.audit.Record(AuditEntry{
			ActorID:    actor.UserID,
			Action:     models.AuditActionGradeCommit,
			Resource:   "supervisor_grades",
			ResourceID: req.StudentID,
			New:        result,
		})
	}
	if s.metrics != nil {
		s.metrics.RecordGradeCommit()
	}
	return result, nil
}

func (s *GradingService) countCacheOp(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}

// GetCommitted returns the persisted grade for a student.
func (s *GradingService) GetCommitted(ctx context.Context, studentID string) (*models.SupervisorGrade, error) {
	grade, err := s.grades.FindByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student has not been graded")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

// Unlock clears the lock so an admin can trigger re-grading.
func (s *GradingService) Unlock(ctx context.Context, actor *models.JWTClaims, studentID string) error {
	if actor == nil || actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins may unlock students")
	}
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return err
	}
	changed, err := s.students.SetLocked(ctx, studentID, false)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlock student")
	}
	if changed && s.audit != nil {
		s.audit.Record(AuditEntry{
			ActorID:    actor.UserID,
			Action:     models.AuditActionStudentUnlock,
			Resource:   "students",
			ResourceID: studentID,
			New:        map[string]interface{}{"siwes_locked": false},
		})
	}
	return nil
}

func (s *GradingService) compute(ctx context.Context, studentID string, override *float64) (*models.GradingResult, error) {
	checkedIn, _, err := s.attendance.CountCheckedInDays(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	counts, err := s.reports.Counts(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count reports")
	}

	breakdown, err := grading.Compute(s.cfg, grading.Inputs{
		CheckedInDays:         checkedIn,
		MaxExpectedDays:       s.cfg.MaxExpectedDays,
		SubmittedWeeks:        counts.SubmittedWeeks,
		ApprovedWeeks:         counts.ApprovedWeeks,
		TotalWeeks:            s.cfg.TotalWeeks,
		WeeklyReportsOverride: override,
	})
	if err != nil {
		return nil, err
	}

	return &models.GradingResult{
		StudentID: studentID,
		Stats: models.GradingStats{
			AttendanceDays:    checkedIn,
			MaxAttendanceDays: s.cfg.MaxExpectedDays,
			SubmittedWeeks:    counts.SubmittedWeeks,
			ApprovedWeeks:     counts.ApprovedWeeks,
			TotalWeeks:        s.cfg.TotalWeeks,
		},
		Breakdown: breakdown,
		Grade:     grading.Letter(breakdown.Total),
	}, nil
}

func (s *GradingService) loadStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *GradingService) requireGrader(actor *models.JWTClaims, student *models.Student) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role != models.RoleSchoolSupervisor {
		return appErrors.Clone(appErrors.ErrForbidden, "only school supervisors may grade")
	}
	if student.SchoolSupervisorID == nil || *student.SchoolSupervisorID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "student is not assigned to you")
	}
	return nil
}
