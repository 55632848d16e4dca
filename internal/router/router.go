package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"jobtracker/internal/auth"
	"jobtracker/internal/config"
	"jobtracker/internal/handler"
	"jobtracker/internal/metrics"
	appmw "jobtracker/internal/middleware"
	"jobtracker/internal/model"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth            *handler.AuthHandler
	OAuth           *handler.OAuthHandler
	Profile         *handler.ProfileHandler
	JobApplications *handler.JobApplicationHandler
	JobPostings     *handler.JobPostingHandler
	Recruiters      *handler.RecruiterApplicationHandler
	Admin           *handler.AdminHandler
	Uploads         *handler.UploadHandler
	Health          *handler.HealthHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, jwtService *auth.JWTService, m *metrics.Metrics, h Handlers) {
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(m.Middleware())
	// Slightly above the CV cap so oversized files reach validation and get a clear message.
	e.Use(middleware.BodyLimit("11M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowCredentials: true,
	}))

	e.Validator = NewValidator()

	e.GET("/healthz", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/uploads/:name", h.Uploads.Serve)

	api := e.Group("/api")
	requireAuth := appmw.JWT(jwtService)
	optionalAuth := appmw.OptionalJWT(jwtService)

	// Public routes
	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/verify-email", h.Auth.VerifyEmail)
	authGroup.GET("/verify-email", h.Auth.VerifyEmailLink)
	authGroup.POST("/resend-verification", h.Auth.ResendVerification)
	authGroup.POST("/forgot-password", h.Auth.ForgotPassword)
	authGroup.POST("/reset-password", h.Auth.ResetPassword)
	authGroup.GET("/google-login", h.OAuth.GoogleLogin)
	authGroup.GET("/google-response", h.OAuth.GoogleResponse)
	api.POST("/profile/confirm-email", h.Profile.ConfirmEmail)

	// Active postings are public; a token only widens what an admin or owner sees.
	api.GET("/jobpostings", h.JobPostings.List, optionalAuth)
	api.GET("/jobpostings/:id", h.JobPostings.Get, optionalAuth)

	// Secured routes (require JWT authentication)
	profile := api.Group("/profile", requireAuth)
	profile.GET("", h.Profile.Get)
	profile.PUT("", h.Profile.Update)
	profile.DELETE("", h.Profile.Delete)
	profile.POST("/change-password", h.Profile.ChangePassword)
	profile.POST("/change-email", h.Profile.ChangeEmail)

	apps := api.Group("/jobapplications", requireAuth)
	apps.GET("", h.JobApplications.List)
	apps.POST("", h.JobApplications.Create)
	apps.GET("/:id", h.JobApplications.Get)
	apps.PUT("/:id", h.JobApplications.Update)
	apps.DELETE("/:id", h.JobApplications.Delete)
	apps.POST("/apply/:jobPostingId", h.JobApplications.Apply)
	apps.PUT("/:id/recruiter-status", h.JobApplications.UpdateRecruiterStatus)

	postings := api.Group("/jobpostings", requireAuth)
	postings.GET("/my-postings", h.JobPostings.MyPostings)
	postings.POST("", h.JobPostings.Create)
	postings.PUT("/:id", h.JobPostings.Update)
	postings.DELETE("/:id", h.JobPostings.Delete)
	postings.POST("/:id/toggle-status", h.JobPostings.ToggleStatus)
	postings.GET("/:id/applicants", h.JobPostings.Applicants)

	recruiters := api.Group("/recruiterapplications", requireAuth)
	recruiters.POST("", h.Recruiters.Submit)
	recruiters.GET("/my-application", h.Recruiters.MyApplication)
	recruiters.GET("", h.Recruiters.List)
	recruiters.GET("/:id", h.Recruiters.Get)
	recruiters.POST("/:id/approve", h.Recruiters.Approve)
	recruiters.POST("/:id/reject", h.Recruiters.Reject)

	admin := api.Group("/admin", requireAuth, appmw.RequireRole(model.RoleAdmin))
	admin.GET("/users", h.Admin.ListUsers)
	admin.POST("/users", h.Admin.CreateUser)
	admin.GET("/users/:id", h.Admin.GetUser)
	admin.DELETE("/users/:id", h.Admin.DeleteUser)
	admin.POST("/assign-role", h.Admin.AssignRole)
	admin.POST("/remove-role", h.Admin.RemoveRole)
	admin.GET("/roles", h.Admin.ListRoles)
	admin.POST("/roles", h.Admin.CreateRole)
	admin.DELETE("/roles/:name", h.Admin.DeleteRole)
	admin.GET("/jobs", h.Admin.Jobs)
	admin.GET("/stats", h.Admin.Stats)
}
