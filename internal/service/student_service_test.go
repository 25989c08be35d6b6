package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
)

type mockStudentRepo struct {
	students   map[string]models.Student
	lastFilter models.StudentFilter
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		copy := s
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	for _, s := range m.students {
		if s.UserID == userID {
			copy := s
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	m.lastFilter = filter
	var out []models.Student
	for _, s := range m.students {
		if filter.SchoolSupervisorID != "" && (s.SchoolSupervisorID == nil || *s.SchoolSupervisorID != filter.SchoolSupervisorID) {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	student.ID = uuid.NewString()
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) AssignSupervisors(ctx context.Context, studentID string, schoolSupervisorID, industrySupervisorID *string) error {
	s, ok := m.students[studentID]
	if !ok {
		return sql.ErrNoRows
	}
	if schoolSupervisorID != nil {
		s.SchoolSupervisorID = schoolSupervisorID
	}
	if industrySupervisorID != nil {
		s.IndustrySupervisorID = industrySupervisorID
	}
	m.students[studentID] = s
	return nil
}

func (m *mockStudentRepo) SetLocked(ctx context.Context, studentID string, locked bool) (bool, error) {
	s, ok := m.students[studentID]
	if !ok {
		return false, sql.ErrNoRows
	}
	changed := s.SiwesLocked != locked
	s.SiwesLocked = locked
	m.students[studentID] = s
	return changed, nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, studentID string) error {
	if _, ok := m.students[studentID]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, studentID)
	return nil
}

func studentServiceFixture() (*StudentService, *mockStudentRepo, *mockAuditEmitter) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"stu-1": {
			ID:           "stu-1",
			UserID:       "user-1",
			FullName:     "Ngozi Okafor",
			MatricNumber: "ENG/2021/044",
			Department:   "Mechanical Engineering",
			Faculty:      "Engineering",
			Active:       true,
		},
	}}
	audit := &mockAuditEmitter{}
	return NewStudentService(repo, audit, validator.New(), zap.NewNop()), repo, audit
}

func TestStudentServiceCreate(t *testing.T) {
	svc, repo, audit := studentServiceFixture()

	student, err := svc.Create(context.Background(), adminClaims(), CreateStudentRequest{
		UserID:       "user-2",
		FullName:     "Ibrahim Musa",
		MatricNumber: "ENG/2021/045",
		Department:   "Civil Engineering",
		Faculty:      "Engineering",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.True(t, student.Active)
	assert.Len(t, repo.students, 2)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionStudentCreate, audit.entries[0].Action)
}

func TestStudentServiceCreateDuplicateUser(t *testing.T) {
	svc, _, _ := studentServiceFixture()

	_, err := svc.Create(context.Background(), adminClaims(), CreateStudentRequest{
		UserID:       "user-1",
		FullName:     "Someone Else",
		MatricNumber: "ENG/2021/099",
		Department:   "Civil Engineering",
		Faculty:      "Engineering",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateRequiresAdmin(t *testing.T) {
	svc, _, _ := studentServiceFixture()

	_, err := svc.Create(context.Background(), studentClaims(), CreateStudentRequest{
		UserID:       "user-2",
		FullName:     "Ibrahim Musa",
		MatricNumber: "ENG/2021/045",
		Department:   "Civil Engineering",
		Faculty:      "Engineering",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateLockedStudent(t *testing.T) {
	svc, repo, _ := studentServiceFixture()
	s := repo.students["stu-1"]
	s.SiwesLocked = true
	repo.students["stu-1"] = s

	_, err := svc.Update(context.Background(), adminClaims(), UpdateStudentRequest{
		StudentID:    "stu-1",
		FullName:     "Ngozi Okafor",
		MatricNumber: "ENG/2021/044",
		Department:   "Mechanical Engineering",
		Faculty:      "Engineering",
		Active:       true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLocked.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceAssignSupervisors(t *testing.T) {
	svc, repo, audit := studentServiceFixture()

	school := "sup-1"
	industry := "ind-1"
	student, err := svc.AssignSupervisors(context.Background(), adminClaims(), AssignSupervisorsRequest{
		StudentID:            "stu-1",
		SchoolSupervisorID:   &school,
		IndustrySupervisorID: &industry,
	})
	require.NoError(t, err)
	require.NotNil(t, student.SchoolSupervisorID)
	assert.Equal(t, "sup-1", *student.SchoolSupervisorID)
	require.NotNil(t, repo.students["stu-1"].IndustrySupervisorID)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionSupervisorAssign, audit.entries[0].Action)
}

func TestStudentServiceAssignSupervisorsNeedsAtLeastOne(t *testing.T) {
	svc, _, _ := studentServiceFixture()

	_, err := svc.AssignSupervisors(context.Background(), adminClaims(), AssignSupervisorsRequest{StudentID: "stu-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceListScopesSupervisorToOwnCohort(t *testing.T) {
	svc, repo, _ := studentServiceFixture()

	_, _, err := svc.List(context.Background(), supervisorClaims(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, "sup-1", repo.lastFilter.SchoolSupervisorID)

	_, _, err = svc.List(context.Background(), adminClaims(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilter.SchoolSupervisorID)
}

func TestStudentServiceLockUnlockAuditsOnlyOnChange(t *testing.T) {
	svc, repo, audit := studentServiceFixture()

	require.NoError(t, svc.Lock(context.Background(), adminClaims(), "stu-1"))
	assert.True(t, repo.students["stu-1"].SiwesLocked)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionStudentLock, audit.entries[0].Action)

	// Locking again is a no-op and must not produce a second entry.
	require.NoError(t, svc.Lock(context.Background(), adminClaims(), "stu-1"))
	assert.Len(t, audit.entries, 1)

	require.NoError(t, svc.Unlock(context.Background(), adminClaims(), "stu-1"))
	assert.False(t, repo.students["stu-1"].SiwesLocked)
	require.Len(t, audit.entries, 2)
	assert.Equal(t, models.AuditActionStudentUnlock, audit.entries[1].Action)
}

func TestStudentServiceDelete(t *testing.T) {
	svc, repo, audit := studentServiceFixture()

	require.NoError(t, svc.Delete(context.Background(), adminClaims(), "stu-1"))
	assert.Empty(t, repo.students)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionStudentDelete, audit.entries[0].Action)

	err := svc.Delete(context.Background(), adminClaims(), "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
