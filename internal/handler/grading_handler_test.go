package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siwes-portal-api/internal/middleware"
	"github.com/noah-isme/siwes-portal-api/internal/models"
	"github.com/noah-isme/siwes-portal-api/internal/service"
	"github.com/noah-isme/siwes-portal-api/pkg/config"
)

type fakeAttendanceCounter struct {
	checkedIn int
	verified  int
}

func (f *fakeAttendanceCounter) CountCheckedInDays(context.Context, string) (int, int, error) {
	return f.checkedIn, f.verified, nil
}

type fakeReportCounter struct {
	counts models.WeeklyReportCounts
}

func (f *fakeReportCounter) Counts(context.Context, string) (*models.WeeklyReportCounts, error) {
	copy := f.counts
	return &copy, nil
}

type fakeGradeRepo struct {
	grades map[string]models.SupervisorGrade
}

func (f *fakeGradeRepo) FindByStudent(_ context.Context, studentID string) (*models.SupervisorGrade, error) {
	if g, ok := f.grades[studentID]; ok {
		copy := g
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeGradeRepo) Upsert(_ context.Context, grade *models.SupervisorGrade) error {
	if f.grades == nil {
		f.grades = make(map[string]models.SupervisorGrade)
	}
	f.grades[grade.StudentID] = *grade
	return nil
}

type fakeStudentLocker struct {
	students map[string]models.Student
}

func (f *fakeStudentLocker) FindByID(_ context.Context, id string) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		copy := s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentLocker) SetLocked(_ context.Context, studentID string, locked bool) (bool, error) {
	s, ok := f.students[studentID]
	if !ok {
		return false, sql.ErrNoRows
	}
	changed := s.SiwesLocked != locked
	s.SiwesLocked = locked
	f.students[studentID] = s
	return changed, nil
}

func newGradingHandler(locked bool) *GradingHandler {
	supID := "sup-1"
	svc := service.NewGradingService(
		&fakeAttendanceCounter{checkedIn: 60, verified: 40},
		&fakeReportCounter{counts: models.WeeklyReportCounts{SubmittedWeeks: 12, ApprovedWeeks: 6}},
		&fakeGradeRepo{grades: map[string]models.SupervisorGrade{}},
		&fakeStudentLocker{students: map[string]models.Student{
			"stu-1": {ID: "stu-1", UserID: "user-1", SchoolSupervisorID: &supID, SiwesLocked: locked},
		}},
		nil, nil,
		config.GradingConfig{
			MaxAttendanceScore:         10,
			MaxWeeklyReportsScore:      15,
			MaxSupervisorApprovalScore: 5,
			MaxTotalScore:              30,
			TotalWeeks:                 24,
			MaxExpectedDays:            120,
		},
		nil, nil,
	)
	return NewGradingHandler(svc)
}

func gradingTestContext(t *testing.T, method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
		c.Request = httptest.NewRequest(method, target, reader)
		c.Request.Header.Set("Content-Type", "application/json")
	} else {
		c.Request = httptest.NewRequest(method, target, nil)
	}
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func TestGradingHandlerPreview(t *testing.T) {
	handler := newGradingHandler(false)
	c, rec := gradingTestContext(t, http.MethodGet, "/students/stu-1/grade/preview", "",
		&models.JWTClaims{UserID: "sup-1", Role: models.RoleSchoolSupervisor})

	handler.Preview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.GradingResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, models.GradeC, envelope.Data.Grade)
	assert.InDelta(t, 15.0, envelope.Data.Breakdown.Total, 1e-9)
}

func TestGradingHandlerCommitAlreadyGraded(t *testing.T) {
	handler := newGradingHandler(true)
	c, rec := gradingTestContext(t, http.MethodPost, "/students/stu-1/grade/commit", "{}",
		&models.JWTClaims{UserID: "sup-1", Role: models.RoleSchoolSupervisor})

	handler.Commit(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGradingHandlerCommitSuccess(t *testing.T) {
	handler := newGradingHandler(false)
	c, rec := gradingTestContext(t, http.MethodPost, "/students/stu-1/grade/commit",
		`{"remarks":"solid placement"}`,
		&models.JWTClaims{UserID: "sup-1", Role: models.RoleSchoolSupervisor})

	handler.Commit(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.GradingResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Committed)
}

func TestGradingHandlerGetNotGraded(t *testing.T) {
	handler := newGradingHandler(false)
	c, rec := gradingTestContext(t, http.MethodGet, "/students/stu-1/grade", "", nil)

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGradingHandlerUnlockRequiresAdmin(t *testing.T) {
	handler := newGradingHandler(true)
	c, rec := gradingTestContext(t, http.MethodPost, "/students/stu-1/grade/unlock", "",
		&models.JWTClaims{UserID: "sup-1", Role: models.RoleSchoolSupervisor})

	handler.Unlock(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = gradingTestContext(t, http.MethodPost, "/students/stu-1/grade/unlock", "",
		&models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	handler.Unlock(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
