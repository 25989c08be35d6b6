package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	"github.com/noah-isme/siwes-portal-api/internal/repository"
	"github.com/noah-isme/siwes-portal-api/pkg/config"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
)

type attendanceRepo interface {
	FindByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	CheckIn(ctx context.Context, record *models.AttendanceRecord) error
	CheckOut(ctx context.Context, studentID string, date time.Time, checkOutTime time.Time) (bool, error)
	SetVerified(ctx context.Context, recordID, verifierID string) error
	CountCheckedInDays(ctx context.Context, studentID string) (checkedIn, verified int, err error)
}

// CheckInRequest records a student's arrival for the day.
type CheckInRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// CheckOutRequest stamps the departure time on today's record.
type CheckOutRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// VerifyAttendanceRequest marks a record as confirmed by the industry
// supervisor.
type VerifyAttendanceRequest struct {
	RecordID string `json:"record_id" validate:"required"`
}

// AttendanceService records daily check-ins and check-outs and feeds the
// attendance component of the placement grade.
type AttendanceService struct {
	attendance attendanceRepo
	students   studentReader
	audit      auditEmitter
	cache      previewCache
	cfg        config.AttendanceConfig
	grading    config.GradingConfig
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(attendance attendanceRepo, students studentReader, audit auditEmitter, cache previewCache, cfg config.AttendanceConfig, grading config.GradingConfig, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		attendance: attendance,
		students:   students,
		audit:      audit,
		cache:      cache,
		cfg:        cfg,
		grading:    grading,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// CheckIn creates today's attendance record for the student. A second
// check-in on the same day conflicts.
func (s *AttendanceService) CheckIn(ctx context.Context, actor *models.JWTClaims, req CheckInRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}
	student, err := s.loadOwnedStudent(ctx, actor, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student.SiwesLocked {
		return nil, appErrors.Clone(appErrors.ErrLocked, "student records are locked")
	}

	now := s.now().UTC()
	record := &models.AttendanceRecord{
		StudentID:   req.StudentID,
		Date:        now.Truncate(24 * time.Hour),
		CheckInTime: now,
	}
	if err := s.attendance.CheckIn(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateCheckIn) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already checked in today")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check in")
	}
	s.invalidateSummary(ctx, req.StudentID)
	return record, nil
}

// CheckOut stamps the departure time on today's record. Checking out twice,
// or without a prior check-in, fails the precondition.
func (s *AttendanceService) CheckOut(ctx context.Context, actor *models.JWTClaims, req CheckOutRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-out payload")
	}
	student, err := s.loadOwnedStudent(ctx, actor, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student.SiwesLocked {
		return nil, appErrors.Clone(appErrors.ErrLocked, "student records are locked")
	}

	now := s.now().UTC()
	date := now.Truncate(24 * time.Hour)
	ok, err := s.attendance.CheckOut(ctx, req.StudentID, date, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check out")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no open check-in for today")
	}
	record, err := s.attendance.FindByStudentAndDate(ctx, req.StudentID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload attendance record")
	}
	return record, nil
}

// Verify marks a record confirmed by the student's industry supervisor (or
// an admin) and emits an audit entry.
func (s *AttendanceService) Verify(ctx context.Context, actor *models.JWTClaims, req VerifyAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verify payload")
	}
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleIndustrySupervisor {
		return appErrors.Clone(appErrors.ErrForbidden, "only industry supervisors verify attendance")
	}
	if err := s.attendance.SetVerified(ctx, req.RecordID, actor.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify attendance")
	}
	if s.audit != nil {
		s.audit.Record(AuditEntry{
			ActorID:    actor.UserID,
			Action:     models.AuditActionAttendanceVerify,
			Resource:   "attendance_records",
			ResourceID: req.RecordID,
			New:        map[string]interface{}{"verified": true},
		})
	}
	return nil
}

// List returns attendance records for the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	records, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// Summary aggregates checked-in and verified day counts. The result is
// cached briefly since the grading preview hits it repeatedly.
func (s *AttendanceService) Summary(ctx context.Context, studentID string) (*models.AttendanceSummary, error) {
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}

	cacheKey := s.summaryKey(studentID)
	if s.cache != nil {
		var cached models.AttendanceSummary
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	checkedIn, verified, err := s.attendance.CountCheckedInDays(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	summary := &models.AttendanceSummary{
		StudentID:       studentID,
		CheckedInDays:   checkedIn,
		VerifiedDays:    verified,
		MaxExpectedDays: s.grading.MaxExpectedDays,
		GeneratedAt:     s.now().UTC(),
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.SummaryCacheTTL); err != nil {
			s.logger.Warn("failed to cache attendance summary", zap.Error(err))
		}
	}
	return summary, nil
}

func (s *AttendanceService) summaryKey(studentID string) string {
	return fmt.Sprintf("attendance:summary:%s", studentID)
}

func (s *AttendanceService) invalidateSummary(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.summaryKey(studentID)); err != nil {
		s.logger.Warn("failed to invalidate attendance summary", zap.Error(err))
	}
}

func (s *AttendanceService) loadStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *AttendanceService) loadOwnedStudent(ctx context.Context, actor *models.JWTClaims, studentID string) (*models.Student, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && (actor.Role != models.RoleStudent || student.UserID != actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "attendance belongs to another student")
	}
	return student, nil
}
