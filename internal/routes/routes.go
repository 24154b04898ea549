package routes

import (
	"github.com/gin-gonic/gin"

	"remesas/internal/authz"
	"remesas/internal/handlers"
	"remesas/internal/middleware"
	"remesas/internal/services"
)

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Password *handlers.PasswordHandler
	OAuth    *handlers.OAuthHandler
	KYC      *handlers.KYCHandler
	KYCAdmin *handlers.KYCAdminHandler
	Upload   *handlers.UploadHandler
	Profile  *handlers.ProfileHandler
	Users    *handlers.UserHandler
	Health   *handlers.HealthHandler
}

func SetupRoutes(r *gin.Engine, sessions services.SessionService, secureCookies bool, h Handlers) *gin.Engine {
	if h.Health != nil {
		r.GET("/healthz", h.Health.Health)
	}

	api := r.Group("/api", middleware.LoadSession(sessions, secureCookies))

	// ---- public
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
		auth.POST("/forgot-password", h.Password.Forgot)
		auth.POST("/reset-password", h.Password.Reset)
		auth.GET("/google", h.OAuth.Start)
		auth.GET("/google/callback", h.OAuth.Callback)

		auth.GET("/me", middleware.RequireSession(), h.Auth.Me)
		auth.POST("/password", middleware.RequireSession(), h.Auth.UpdatePassword)
	}

	// ---- session
	authed := api.Group("", middleware.RequireSession())
	{
		authed.POST("/profile/update-request", h.Profile.RequestUpdate)

		kyc := authed.Group("/kyc")
		kyc.GET("", h.KYC.Get)
		kyc.POST("", h.KYC.SubmitPersonalInfo)
		kyc.POST("/phone/send", h.KYC.SendPhoneCode)
		kyc.POST("/phone/verify", h.KYC.VerifyPhone)
		kyc.POST("/documents", h.KYC.UploadDocument)
		kyc.PUT("/documents", h.KYC.SetDocumentURL)
		kyc.POST("/submit", h.KYC.Submit)

		authed.POST("/upload", h.Upload.Upload)
		authed.DELETE("/upload", h.Upload.Delete)
	}

	// ---- back office
	admin := api.Group("/admin", middleware.RequireStaff())
	{
		admin.POST("/users/create", middleware.RequireRoles(authz.RoleManagement), h.Users.Create)
		admin.GET("/users", h.Users.List)

		admin.GET("/kyc/pending", h.KYCAdmin.Pending)
		admin.GET("/kyc/:id", h.KYCAdmin.Detail)
		admin.GET("/kyc/:id/report", h.KYCAdmin.Report)
		admin.POST("/kyc/:id/approve", middleware.RequireRoles(authz.RoleManagement), h.KYCAdmin.Approve)
		admin.POST("/kyc/:id/reject", h.KYCAdmin.Reject)

		admin.GET("/profile-requests", h.Profile.ListPending)
		admin.POST("/profile-requests/:id/approve", middleware.RequireRoles(authz.RoleManagement), h.Profile.Approve)
		admin.POST("/profile-requests/:id/reject", h.Profile.Reject)
	}

	return r
}
