package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/siwes-portal-api/internal/middleware"
	"github.com/noah-isme/siwes-portal-api/internal/models"
	"github.com/noah-isme/siwes-portal-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth            *AuthHandler
	Students        *StudentHandler
	Reports         *ReportHandler
	PreRegistration *PreRegistrationHandler
	Attendance      *AttendanceHandler
	Grading         *GradingHandler
	Notifications   *NotificationHandler
	Exports         *ExportHandler
	Audit           *AuditHandler
	Metrics         *MetricsHandler
}

// RegisterRoutes mounts the API under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, auth *service.AuthService, audit *service.AuditService) {
	api := r.Group(prefix)

	admin := string(models.RoleAdmin)
	student := string(models.RoleStudent)
	schoolSup := string(models.RoleSchoolSupervisor)
	industrySup := string(models.RoleIndustrySupervisor)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", middleware.JWT(auth), h.Auth.Logout)
		authGroup.POST("/change-password", middleware.JWT(auth), h.Auth.ChangePassword)
		authGroup.GET("/me", middleware.JWT(auth), h.Auth.Me)
	}

	students := api.Group("/students", middleware.JWT(auth))
	{
		students.GET("", middleware.RBAC(admin, schoolSup), h.Students.List)
		students.POST("", middleware.RBAC(admin), h.Students.Create)
		students.GET("/me", middleware.RBAC(student), h.Students.Me)
		students.GET("/:id", h.Students.Get)
		students.PUT("/:id", middleware.RBAC(admin), h.Students.Update)
		students.DELETE("/:id", middleware.RBAC(admin), h.Students.Delete)
		students.PUT("/:id/supervisors", middleware.RBAC(admin), h.Students.AssignSupervisors)
		students.POST("/:id/lock", middleware.RBAC(admin), h.Students.Lock)
		students.POST("/:id/unlock", middleware.RBAC(admin), h.Students.Unlock)

		students.GET("/:id/attendance/summary", h.Attendance.Summary)

		students.GET("/:id/grade", h.Grading.Get)
		students.GET("/:id/grade/preview", middleware.RBAC(admin, schoolSup), h.Grading.Preview)
		students.POST("/:id/grade/commit", middleware.RBAC(admin, schoolSup), h.Grading.Commit)
		students.POST("/:id/grade/unlock", middleware.RBAC(admin), h.Grading.Unlock)

		// Downloads have no service-level audit; the middleware records them.
		exportAudit := middleware.Audit(audit, models.AuditActionExportDownload, "exports")
		students.GET("/:id/export/logbook", exportAudit, h.Exports.LogbookCSV)
		students.GET("/:id/export/grade-slip", exportAudit, h.Exports.GradeSlipPDF)
	}

	reports := api.Group("/reports", middleware.JWT(auth))
	{
		reports.GET("", h.Reports.List)
		reports.GET("/:id", h.Reports.Get)
		reports.PUT("/draft", middleware.RBAC(student, admin), h.Reports.SaveDraft)
		reports.POST("/:id/submit", middleware.RBAC(student, admin), h.Reports.Submit)
		reports.POST("/:id/approve", middleware.RBAC(schoolSup, admin), h.Reports.Approve)
		reports.POST("/:id/reject", middleware.RBAC(schoolSup, admin), h.Reports.Reject)
	}

	preregs := api.Group("/preregistrations", middleware.JWT(auth))
	{
		preregs.POST("", middleware.RBAC(student, admin), h.PreRegistration.Create)
		preregs.GET("/pending", middleware.RBAC(admin), h.PreRegistration.ListPending)
		preregs.GET("/:id", h.PreRegistration.Get)
		preregs.POST("/:id/approve", middleware.RBAC(admin), h.PreRegistration.Approve)
		preregs.POST("/:id/reject", middleware.RBAC(admin), h.PreRegistration.Reject)
		preregs.POST("/:id/resubmit", middleware.RBAC(student, admin), h.PreRegistration.Resubmit)
	}

	attendance := api.Group("/attendance", middleware.JWT(auth))
	{
		attendance.GET("", h.Attendance.List)
		attendance.POST("/check-in", middleware.RBAC(student, admin), h.Attendance.CheckIn)
		attendance.POST("/check-out", middleware.RBAC(student, admin), h.Attendance.CheckOut)
		attendance.POST("/:id/verify", middleware.RBAC(industrySup, admin), h.Attendance.Verify)
	}

	notifications := api.Group("/notifications", middleware.JWT(auth), middleware.RBAC(admin))
	{
		notifications.GET("", h.Notifications.List)
		notifications.GET("/unread-count", h.Notifications.UnreadCount)
		notifications.POST("/:id/read", h.Notifications.MarkRead)
	}

	api.GET("/audit-logs", middleware.JWT(auth), middleware.RBAC(admin), h.Audit.List)
}
