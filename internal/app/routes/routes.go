package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/placeintern/backend/internal/app/controllers"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/middleware"
	"github.com/placeintern/backend/internal/pkg/websocket"
)

// Controllers groups every HTTP handler the router mounts
type Controllers struct {
	Auth         *controllers.AuthController
	Institution  *controllers.InstitutionController
	User         *controllers.UserController
	Audit        *controllers.AuditController
	Job          *controllers.JobController
	Student      *controllers.StudentController
	Staff        *controllers.StaffController
	Mentor       *controllers.MentorController
	Internship   *controllers.InternshipController
	Grievance    *controllers.GrievanceController
	Document     *controllers.DocumentController
	Report       *controllers.ReportController
	Dashboard    *controllers.DashboardController
	Notification *controllers.NotificationController
	WebSocket    *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	c Controllers,
	authMiddleware *middleware.AuthMiddleware,
	audit gin.HandlerFunc,
) {
	// API version group
	v1 := router.Group("/api/v1")
	if audit != nil {
		v1.Use(audit)
	}

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/login", c.Auth.Login)
		auth.POST("/refresh", c.Auth.RefreshToken)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	authProtected := authenticated.Group("/auth")
	{
		authProtected.POST("/logout", c.Auth.Logout)
		authProtected.GET("/me", c.Auth.Me)
		authProtected.PUT("/password", c.Auth.ChangePassword)
		authProtected.GET("/session", c.Auth.Session)
		authProtected.POST("/session/extend", c.Auth.ExtendSession)
	}

	// System administrator console
	admin := authenticated.Group("/system-admin")
	admin.Use(authMiddleware.RoleRequired(models.RoleSystemAdmin))
	{
		institutions := admin.Group("/institutions")
		{
			institutions.GET("", c.Institution.ListInstitutions)
			institutions.POST("", c.Institution.CreateInstitution)
			institutions.GET("/:id", c.Institution.GetInstitution)
			institutions.PUT("/:id", c.Institution.UpdateInstitution)
			institutions.DELETE("/:id", c.Institution.DeleteInstitution)
		}

		users := admin.Group("/users")
		{
			users.GET("", c.User.ListUsers)
			users.POST("", c.User.CreateUser)
			users.GET("/:id", c.User.GetUser)
			users.PUT("/:id", c.User.UpdateUser)
			users.DELETE("/:id", c.User.DeleteUser)
			users.PATCH("/:id/active", c.User.SetActive)
			users.POST("/:id/reset-password", c.User.ResetPassword)
		}

		admin.GET("/audit-logs", c.Audit.ListAuditLogs)
		admin.GET("/grievances", c.Grievance.List)
		admin.GET("/grievances/:id", c.Grievance.Get)

		jobs := admin.Group("/jobs")
		{
			jobs.GET("", c.Job.List)
			jobs.GET("/stats", c.Job.Stats)
			jobs.GET("/:id", c.Job.Get)
			jobs.POST("/:id/retry", c.Job.Retry)
		}
	}

	// Principal console, scoped to the principal's institution
	principal := authenticated.Group("/principal")
	principal.Use(authMiddleware.RoleRequired(models.RolePrincipal))
	{
		principal.GET("/dashboard", c.Dashboard.Principal)

		branches := principal.Group("/branches")
		{
			branches.GET("", c.Institution.ListBranches)
			branches.POST("", c.Institution.CreateBranch)
			branches.PUT("/:id", c.Institution.UpdateBranch)
			branches.DELETE("/:id", c.Institution.DeleteBranch)
		}

		batches := principal.Group("/batches")
		{
			batches.GET("", c.Institution.ListBatches)
			batches.POST("", c.Institution.CreateBatch)
			batches.PUT("/:id", c.Institution.UpdateBatch)
			batches.DELETE("/:id", c.Institution.DeleteBatch)
		}

		students := principal.Group("/students")
		{
			students.GET("", c.Student.List)
			students.POST("", c.Student.Create)
			students.POST("/import", c.Student.Import)
			students.GET("/:id", c.Student.Get)
			students.PUT("/:id", c.Student.Update)
			students.DELETE("/:id", c.Student.Deactivate)
			students.GET("/:id/documents", c.Document.ListForStudent)
		}

		staff := principal.Group("/staff")
		{
			staff.GET("", c.Staff.List)
			staff.POST("", c.Staff.Create)
			staff.GET("/:id", c.Staff.Get)
			staff.PUT("/:id", c.Staff.Update)
			staff.DELETE("/:id", c.Staff.Deactivate)
		}

		assignments := principal.Group("/mentor-assignments")
		{
			assignments.GET("", c.Mentor.List)
			assignments.POST("", c.Mentor.Assign)
			assignments.POST("/auto-assign", c.Mentor.AutoAssign)
			assignments.DELETE("/:id", c.Mentor.Remove)
		}

		mountReviews(principal, c)
		mountGrievanceHandling(principal, c)
		principal.POST("/grievances/:id/escalate", c.Grievance.Escalate)
	}

	// Faculty supervisor console, scoped to the mentor's mentees
	faculty := authenticated.Group("/faculty")
	faculty.Use(authMiddleware.RoleRequired(models.RoleFacultySupervisor))
	{
		faculty.GET("/dashboard", c.Dashboard.Faculty)

		mentees := faculty.Group("/mentees")
		{
			mentees.GET("", c.Mentor.Mentees)
			mentees.GET("/:id", c.Student.Get)
			mentees.GET("/:id/documents", c.Document.ListForStudent)
		}

		mountReviews(faculty, c)
		mountGrievanceHandling(faculty, c)
		faculty.POST("/grievances/:id/escalate", c.Grievance.Escalate)
	}

	// Student self-service
	student := authenticated.Group("/student")
	student.Use(authMiddleware.RoleRequired(models.RoleStudent))
	{
		student.GET("/dashboard", c.Dashboard.Student)
		student.GET("/profile", c.Student.Profile)
		student.PUT("/profile/phone", c.User.UpdateMyPhone)
		student.GET("/mentor", c.Mentor.CurrentMentor)

		applications := student.Group("/applications")
		{
			applications.GET("", c.Internship.ListApplications)
			applications.POST("", c.Internship.CreateApplication)
			applications.GET("/:id", c.Internship.GetApplication)
			applications.PUT("/:id", c.Internship.UpdateApplication)
			applications.POST("/:id/withdraw", c.Internship.WithdrawApplication)
		}

		reports := student.Group("/monthly-reports")
		{
			reports.GET("", c.Internship.ListReports)
			reports.POST("", c.Internship.SubmitReport)
			reports.GET("/:id", c.Internship.GetReport)
			reports.PUT("/:id/resubmit", c.Internship.ResubmitReport)
		}

		grievances := student.Group("/grievances")
		{
			grievances.GET("", c.Grievance.List)
			grievances.POST("", c.Grievance.File)
			grievances.GET("/:id", c.Grievance.Get)
			grievances.POST("/:id/close", c.Grievance.Close)
		}

		documents := student.Group("/documents")
		{
			documents.GET("", c.Document.ListMine)
			documents.POST("", c.Document.Upload)
			documents.DELETE("/:id", c.Document.Delete)
		}
	}

	// State directorate, read access across institutions
	state := authenticated.Group("/state")
	state.Use(authMiddleware.RoleRequired(models.RoleStateDirectorate))
	{
		state.GET("/overview", c.Dashboard.StateOverview)
		state.GET("/institutions/:id", c.Dashboard.Institution)
		state.GET("/audit-logs", c.Audit.ListAuditLogs)
		mountGrievanceHandling(state, c)
	}

	// Endpoints every role shares
	shared := authenticated.Group("/shared")
	{
		notifications := shared.Group("/notifications")
		{
			notifications.GET("", c.Notification.List)
			notifications.GET("/unread-count", c.Notification.UnreadCount)
			notifications.PUT("/read-all", c.Notification.MarkAllRead)
			notifications.PUT("/:id/read", c.Notification.MarkRead)
			if c.WebSocket != nil {
				notifications.GET("/ws", c.WebSocket.HandleConnection)
			}
		}

		shared.GET("/documents/:id/download", c.Document.Download)

		reports := shared.Group("/reports")
		reports.Use(authMiddleware.RoleRequired(models.RoleFacultySupervisor, models.RolePrincipal,
			models.RoleStateDirectorate, models.RoleSystemAdmin))
		{
			reports.GET("/catalog", c.Report.Catalog)
			reports.GET("", c.Report.List)
			reports.POST("", c.Report.Request)
			reports.GET("/:id", c.Report.Get)
			reports.GET("/:id/download", c.Report.Download)
		}

		templates := shared.Group("/report-templates")
		templates.Use(authMiddleware.RoleRequired(models.RoleFacultySupervisor, models.RolePrincipal,
			models.RoleStateDirectorate, models.RoleSystemAdmin))
		{
			templates.GET("", c.Report.ListTemplates)
			templates.POST("", c.Report.CreateTemplate)
			templates.GET("/:id", c.Report.GetTemplate)
			templates.PUT("/:id", c.Report.UpdateTemplate)
			templates.DELETE("/:id", c.Report.DeleteTemplate)
		}
	}

	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Route not found")))
	})
}

// mountReviews adds the application, monthly report and document review endpoints
// shared by faculty supervisors and principals
func mountReviews(group *gin.RouterGroup, c Controllers) {
	applications := group.Group("/applications")
	{
		applications.GET("", c.Internship.ListApplications)
		applications.GET("/:id", c.Internship.GetApplication)
		applications.PUT("/:id/review", c.Internship.ReviewApplication)
	}

	reports := group.Group("/monthly-reports")
	{
		reports.GET("", c.Internship.ListReports)
		reports.GET("/:id", c.Internship.GetReport)
		reports.PUT("/:id/review", c.Internship.ReviewReport)
	}

	group.POST("/documents/:id/verify", c.Document.Verify)
}

// mountGrievanceHandling adds the grievance endpoints of the levels that handle grievances
func mountGrievanceHandling(group *gin.RouterGroup, c Controllers) {
	grievances := group.Group("/grievances")
	{
		grievances.GET("", c.Grievance.List)
		grievances.GET("/:id", c.Grievance.Get)
		grievances.POST("/:id/review", c.Grievance.Review)
		grievances.POST("/:id/resolve", c.Grievance.Resolve)
	}
}
