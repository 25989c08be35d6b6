package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/siwes-portal-api/internal/models"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
	"github.com/noah-isme/siwes-portal-api/pkg/export"
)

type reportLister interface {
	List(ctx context.Context, filter models.WeeklyReportFilter) ([]models.WeeklyReport, error)
}

type gradeReader interface {
	FindByStudent(ctx context.Context, studentID string) (*models.SupervisorGrade, error)
}

// ExportFile is a rendered document ready to stream to the client.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders a student's logbook as CSV and their finalized
// grade slip as PDF.
type ExportService struct {
	reports  reportLister
	grades   gradeReader
	students studentReader
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(reports reportLister, grades gradeReader, students studentReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reports:  reports,
		grades:   grades,
		students: students,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// LogbookCSV renders every week of the student's logbook, one row per week.
func (s *ExportService) LogbookCSV(ctx context.Context, studentID string) (*ExportFile, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	reports, err := s.reports.List(ctx, models.WeeklyReportFilter{StudentID: studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load logbook")
	}

	headers := []string{"Week", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Status", "Score", "Comments"}
	rows := make([]map[string]string, 0, len(reports))
	for _, report := range reports {
		score := ""
		if report.Score != nil {
			score = strconv.FormatFloat(*report.Score, 'f', 2, 64)
		}
		comments := ""
		if report.SchoolSupervisorComments != nil {
			comments = *report.SchoolSupervisorComments
		}
		rows = append(rows, map[string]string{
			"Week":      strconv.Itoa(report.WeekNumber),
			"Monday":    report.MondayActivity,
			"Tuesday":   report.TuesdayActivity,
			"Wednesday": report.WednesdayActivity,
			"Thursday":  report.ThursdayActivity,
			"Friday":    report.FridayActivity,
			"Saturday":  report.SaturdayActivity,
			"Status":    string(report.Status),
			"Score":     score,
			"Comments":  comments,
		})
	}

	content, err := s.csv.Render(export.Dataset{Headers: headers, Rows: rows})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render logbook csv")
	}
	return &ExportFile{
		FileName:    fmt.Sprintf("logbook_%s_%s.csv", student.MatricNumber, time.Now().UTC().Format("20060102")),
		ContentType: "text/csv",
		Content:     content,
	}, nil
}

// GradeSlipPDF renders the finalized grade breakdown for one student.
func (s *ExportService) GradeSlipPDF(ctx context.Context, studentID string) (*ExportFile, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	grade, err := s.grades.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student has not been graded")
	}

	headers := []string{"Component", "Score"}
	rows := []map[string]string{
		{"Component": "Student", "Score": fmt.Sprintf("%s (%s)", student.FullName, student.MatricNumber)},
		{"Component": "Organisation", "Score": student.OrganisationName},
		{"Component": "Attendance", "Score": strconv.FormatFloat(grade.AttendanceScore, 'f', 2, 64)},
		{"Component": "Weekly Reports", "Score": strconv.FormatFloat(grade.WeeklyReportsScore, 'f', 2, 64)},
		{"Component": "Supervisor Approval", "Score": strconv.FormatFloat(grade.SupervisorApprovalScore, 'f', 2, 64)},
		{"Component": "Total", "Score": strconv.FormatFloat(grade.TotalScore, 'f', 2, 64)},
		{"Component": "Grade", "Score": string(grade.Grade)},
	}

	content, err := s.pdf.Render(export.Dataset{Headers: headers, Rows: rows}, "SIWES Grade Slip")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render grade slip")
	}
	return &ExportFile{
		FileName:    fmt.Sprintf("grade_slip_%s.pdf", student.MatricNumber),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}
