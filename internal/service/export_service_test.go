package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
)

func exportFixtures() (*mockReportRepo, *mockGradeRepo, *mockStudentReader) {
	score := 8.5
	reports := &mockReportRepo{reports: map[string]models.WeeklyReport{
		"rep-1": {ID: "rep-1", StudentID: "stu-1", WeekNumber: 1, Status: models.ReportStatusApproved,
			MondayActivity: "workshop induction", Score: &score},
		"rep-2": {ID: "rep-2", StudentID: "stu-1", WeekNumber: 2, Status: models.ReportStatusSubmitted,
			TuesdayActivity: "welding practice"},
	}}
	grades := &mockGradeRepo{grades: map[string]models.SupervisorGrade{
		"stu-1": {
			StudentID:               "stu-1",
			AttendanceScore:         5,
			WeeklyReportsScore:      7.5,
			SupervisorApprovalScore: 2.5,
			TotalScore:              15,
			Grade:                   models.GradeC,
		},
	}}
	students := &mockStudentReader{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", UserID: "user-1", FullName: "Ngozi Okafor",
			MatricNumber: "ENG-2021-044", OrganisationName: "Acme Engineering Ltd"},
	}}
	return reports, grades, students
}

func TestExportServiceLogbookCSV(t *testing.T) {
	reports, grades, students := exportFixtures()
	svc := NewExportService(reports, grades, students, zap.NewNop())

	file, err := svc.LogbookCSV(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.FileName, "logbook_ENG-2021-044_"))

	content := string(file.Content)
	assert.Contains(t, content, "Week,Monday,Tuesday,Wednesday,Thursday,Friday,Saturday,Status,Score,Comments")
	assert.Contains(t, content, "workshop induction")
	assert.Contains(t, content, "welding practice")
	assert.Contains(t, content, "8.50")
}

func TestExportServiceLogbookCSVUnknownStudent(t *testing.T) {
	reports, grades, students := exportFixtures()
	svc := NewExportService(reports, grades, students, zap.NewNop())

	_, err := svc.LogbookCSV(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceGradeSlipPDF(t *testing.T) {
	reports, grades, students := exportFixtures()
	svc := NewExportService(reports, grades, students, zap.NewNop())

	file, err := svc.GradeSlipPDF(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, "grade_slip_ENG-2021-044.pdf", file.FileName)
	assert.True(t, strings.HasPrefix(string(file.Content), "%PDF"))
}

func TestExportServiceGradeSlipRequiresCommittedGrade(t *testing.T) {
	reports, _, students := exportFixtures()
	svc := NewExportService(reports, &mockGradeRepo{}, students, zap.NewNop())

	_, err := svc.GradeSlipPDF(context.Background(), "stu-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
