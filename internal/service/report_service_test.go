package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
)

type mockReportRepo struct {
	reports map[string]models.WeeklyReport
	// casFail forces conditional updates to report zero affected rows,
	// simulating a concurrent reviewer winning the race.
	casFail bool
}

func (m *mockReportRepo) FindByID(ctx context.Context, id string) (*models.WeeklyReport, error) {
	if r, ok := m.reports[id]; ok {
		copy := r
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportRepo) FindByStudentAndWeek(ctx context.Context, studentID string, weekNumber int) (*models.WeeklyReport, error) {
	for _, r := range m.reports {
		if r.StudentID == studentID && r.WeekNumber == weekNumber {
			copy := r
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportRepo) List(ctx context.Context, filter models.WeeklyReportFilter) ([]models.WeeklyReport, error) {
	var out []models.WeeklyReport
	for _, r := range m.reports {
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// UpsertDraft mirrors the repository contract: only DRAFT and REJECTED rows
// are writable, a rejected row re-enters DRAFT, and its rejection reason is
// left in place as history.
func (m *mockReportRepo) UpsertDraft(ctx context.Context, report *models.WeeklyReport) (bool, error) {
	if m.casFail {
		return false, nil
	}
	if m.reports == nil {
		m.reports = make(map[string]models.WeeklyReport)
	}
	if report.ID == "" {
		report.ID = "generated"
	}
	if existing, ok := m.reports[report.ID]; ok {
		if existing.Status != models.ReportStatusDraft && existing.Status != models.ReportStatusRejected {
			return false, nil
		}
		report.RejectionReason = existing.RejectionReason
	}
	report.Status = models.ReportStatusDraft
	m.reports[report.ID] = *report
	return true, nil
}

func (m *mockReportRepo) MarkSubmitted(ctx context.Context, reportID string, submittedAt time.Time) (bool, error) {
	return m.transition(reportID, models.ReportStatusSubmitted, func(r *models.WeeklyReport) {
		r.SubmittedAt = &submittedAt
		r.ForwardedToSchool = true
	})
}

func (m *mockReportRepo) MarkApproved(ctx context.Context, reportID string, score *float64, comments *string, approvedAt time.Time) (bool, error) {
	return m.transition(reportID, models.ReportStatusApproved, func(r *models.WeeklyReport) {
		r.Score = score
		r.ApprovedAt = &approvedAt
	})
}

func (m *mockReportRepo) MarkRejected(ctx context.Context, reportID, reason string, rejectedAt time.Time) (bool, error) {
	return m.transition(reportID, models.ReportStatusRejected, func(r *models.WeeklyReport) {
		r.RejectionReason = &reason
	})
}

func (m *mockReportRepo) transition(reportID string, to models.ReportStatus, apply func(*models.WeeklyReport)) (bool, error) {
	if m.casFail {
		return false, nil
	}
	r, ok := m.reports[reportID]
	if !ok {
		return false, nil
	}
	apply(&r)
	r.Status = to
	m.reports[reportID] = r
	return true, nil
}

type mockStudentReader struct {
	students map[string]models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		copy := s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentReader) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	for _, s := range m.students {
		if s.UserID == userID {
			copy := s
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockGate struct {
	allowed bool
}

func (m *mockGate) CanEnterReportWorkflow(ctx context.Context, studentID, sessionID string) (bool, error) {
	return m.allowed, nil
}

type mockAuditEmitter struct {
	entries []AuditEntry
}

func (m *mockAuditEmitter) Record(entry AuditEntry) {
	m.entries = append(m.entries, entry)
}

func supervisorID() *string {
	id := "sup-1"
	return &id
}

func reportFixtures(status models.ReportStatus, locked bool) (*mockReportRepo, *mockStudentReader) {
	reports := &mockReportRepo{reports: map[string]models.WeeklyReport{
		"rep-1": {ID: "rep-1", StudentID: "stu-1", WeekNumber: 3, Status: status},
	}}
	students := &mockStudentReader{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", UserID: "user-1", SchoolSupervisorID: supervisorID(), SiwesLocked: locked},
	}}
	return reports, students
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}
}

func supervisorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "sup-1", Role: models.RoleSchoolSupervisor}
}

func TestReportServiceSaveDraftCreatesWeek(t *testing.T) {
	reports := &mockReportRepo{reports: map[string]models.WeeklyReport{}}
	students := &mockStudentReader{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", UserID: "user-1"},
	}}
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	report, err := svc.SaveDraft(context.Background(), studentClaims(), SaveDraftRequest{
		StudentID:      "stu-1",
		WeekNumber:     3,
		MondayActivity: "installed sensors",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusDraft, report.Status)
	assert.Equal(t, 3, report.WeekNumber)
}

func TestReportServiceSaveDraftRejectsForeignStudent(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusDraft, false)
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	_, err := svc.SaveDraft(context.Background(), &models.JWTClaims{UserID: "other", Role: models.RoleStudent}, SaveDraftRequest{
		StudentID:  "stu-1",
		WeekNumber: 3,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportServiceSaveDraftLockedStudent(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusDraft, true)
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	_, err := svc.SaveDraft(context.Background(), studentClaims(), SaveDraftRequest{StudentID: "stu-1", WeekNumber: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLocked.Code, appErrors.FromError(err).Code)
}

func TestReportServiceSaveDraftRevisesRejectedWeek(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusRejected, false)
	reason := "entries too vague"
	rejected := reports.reports["rep-1"]
	rejected.RejectionReason = &reason
	reports.reports["rep-1"] = rejected
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	report, err := svc.SaveDraft(context.Background(), studentClaims(), SaveDraftRequest{
		StudentID:      "stu-1",
		WeekNumber:     3,
		MondayActivity: "recalibrated the torque rig",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusDraft, report.Status)
	assert.Equal(t, "recalibrated the torque rig", report.MondayActivity)
	// The last rejection reason stays on the row until the next rejection.
	require.NotNil(t, report.RejectionReason)
	assert.Equal(t, reason, *report.RejectionReason)
}

func TestReportServiceSaveDraftApprovedWeekNotEditable(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusApproved, false)
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	_, err := svc.SaveDraft(context.Background(), studentClaims(), SaveDraftRequest{StudentID: "stu-1", WeekNumber: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestReportServiceSubmitRequiresApprovedPreRegistration(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusDraft, false)
	svc := NewReportService(reports, students, &mockGate{allowed: false}, nil, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), studentClaims(), SubmitReportRequest{ReportID: "rep-1", SessionID: "2025"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestReportServiceSubmitFromDraft(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusDraft, false)
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	report, err := svc.Submit(context.Background(), studentClaims(), SubmitReportRequest{ReportID: "rep-1", SessionID: "2025"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusSubmitted, report.Status)
	assert.True(t, report.ForwardedToSchool)
	assert.NotNil(t, report.SubmittedAt)
}

func TestReportServiceSubmitFromRejected(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusRejected, false)
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	report, err := svc.Submit(context.Background(), studentClaims(), SubmitReportRequest{ReportID: "rep-1", SessionID: "2025"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusSubmitted, report.Status)
}

func TestReportServiceSubmitApprovedIsTerminal(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusApproved, false)
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	_, err := svc.Submit(context.Background(), studentClaims(), SubmitReportRequest{ReportID: "rep-1", SessionID: "2025"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestReportServiceApproveBySupervisor(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusSubmitted, false)
	audit := &mockAuditEmitter{}
	svc := NewReportService(reports, students, &mockGate{allowed: true}, audit, validator.New(), zap.NewNop())

	score := 8.5
	report, err := svc.Approve(context.Background(), supervisorClaims(), ApproveReportRequest{ReportID: "rep-1", Score: &score})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusApproved, report.Status)
	require.NotNil(t, report.Score)
	assert.Equal(t, 8.5, *report.Score)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionReportApprove, audit.entries[0].Action)
}

func TestReportServiceApproveByUnassignedSupervisor(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusSubmitted, false)
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	_, err := svc.Approve(context.Background(), &models.JWTClaims{UserID: "sup-other", Role: models.RoleSchoolSupervisor}, ApproveReportRequest{ReportID: "rep-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportServiceApproveLosesRace(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusSubmitted, false)
	reports.casFail = true
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	_, err := svc.Approve(context.Background(), supervisorClaims(), ApproveReportRequest{ReportID: "rep-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReportServiceRejectRequiresReason(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusSubmitted, false)
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	_, err := svc.Reject(context.Background(), supervisorClaims(), RejectReportRequest{ReportID: "rep-1", Reason: "   "})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceRejectStoresReason(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusSubmitted, false)
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	report, err := svc.Reject(context.Background(), supervisorClaims(), RejectReportRequest{ReportID: "rep-1", Reason: "week 3 entries are empty"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusRejected, report.Status)
	require.NotNil(t, report.RejectionReason)
	assert.Equal(t, "week 3 entries are empty", *report.RejectionReason)
}

func TestReportServiceReviewLockedStudent(t *testing.T) {
	reports, students := reportFixtures(models.ReportStatusSubmitted, true)
	svc := NewReportService(reports, students, &mockGate{allowed: true}, nil, validator.New(), zap.NewNop())

	_, err := svc.Approve(context.Background(), supervisorClaims(), ApproveReportRequest{ReportID: "rep-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLocked.Code, appErrors.FromError(err).Code)
}
