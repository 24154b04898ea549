package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "remesas/docs"
	"remesas/internal/config"
	"remesas/internal/database"
	"remesas/internal/handlers"
	"remesas/internal/logger"
	"remesas/internal/middleware"
	"remesas/internal/pdf"
	"remesas/internal/ratelimit"
	"remesas/internal/repositories"
	"remesas/internal/routes"
	"remesas/internal/services"
	"remesas/internal/session"
	"remesas/internal/sms"
	"remesas/internal/storage"
)

// OTP dispatch throttle per verification.
const (
	otpSendLimit  = 3
	otpSendWindow = 10 * time.Minute
)

// setup loads and validates the configuration and initialises the logger.
func setup(cfgPath string) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Migrate applies the schema and exits.
func Migrate(ctx context.Context, cfgPath string) error {
	cfg, err := setup(cfgPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}
	logger.Info("[app][migrate] schema up to date")
	return nil
}

// Run serves the API until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfgPath string) error {
	cfg, err := setup(cfgPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// === DB ===
	db, err := database.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("[app] close db", logger.Err(err))
		}
	}()
	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}

	router, closeDeps, err := newRouter(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeDeps()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[app] listening",
			logger.String("addr", srv.Addr),
			logger.String("env", cfg.Environment),
			logger.String("public_url", cfg.PublicURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("[app] shutting down", logger.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newRouter builds repositories, services and handlers on top of db.
// The returned func releases connections opened here.
func newRouter(ctx context.Context, cfg *config.Config, db *sql.DB) (*gin.Engine, func(), error) {
	closeDeps := func() {}

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)
	kycRepo := repositories.NewKYCRepository(db)
	profileRepo := repositories.NewProfileUpdateRepository(db)

	// === Adapters ===
	provider, err := sms.New(cfg.SMS)
	if err != nil {
		return nil, nil, fmt.Errorf("sms: %w", err)
	}
	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: %w", err)
	}

	var limiter ratelimit.Limiter = ratelimit.Noop{}
	if cfg.Redis.URL != "" {
		client, err := ratelimit.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			// без redis лимит не применяется, остальное работает
			logger.Warn("[app] redis unavailable, otp throttle disabled", logger.Err(err))
		} else {
			limiter = ratelimit.NewRedis(client, "otp:send:", otpSendLimit, otpSendWindow)
			closeDeps = closer(client)
		}
	}

	// === Services ===
	authService := services.NewAuthService()
	emailService := services.NewEmailService(services.EmailConfig{
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUser:     cfg.Email.SMTPUser,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromEmail:    cfg.Email.FromEmail,
	})
	notifications := services.NewNotificationService(provider)
	reviews := services.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ReviewChatID, cfg.PublicURL)

	sessionService := services.NewSessionService(sessionRepo, userRepo, session.NewCodec(cfg.Session.Secret), cfg.Session.TTL)
	userService := services.NewUserService(userRepo, kycRepo, emailService, authService)
	resetService := services.NewPasswordResetService(userRepo, resetRepo, emailService, authService, cfg.PublicURL)
	kycService := services.NewKYCService(kycRepo, userRepo, notifications, reviews, limiter)
	uploadService := services.NewUploadService(store, kycService, cfg.Files.MaxUploadSize)
	profileService := services.NewProfileService(profileRepo)
	oauthService := services.NewOAuthService(services.GoogleOAuthConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.PublicURL + "/api/auth/google/callback",
	}, userRepo, kycRepo)
	reportService := services.NewReportService(kycService, pdf.NewDocumentGenerator(cfg.Files.FontPath))

	logger.Info("[app] adapters",
		logger.String("sms", provider.Name()),
		logger.String("storage", cfg.Storage.Provider),
		logger.Bool("email", cfg.Email.SMTPHost != ""),
		logger.Bool("google_oauth", oauthService.Enabled()),
		logger.Bool("otp_throttle", cfg.Redis.URL != ""))

	// === Gin ===
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware(cfg))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if cfg.Storage.Provider == "local" {
		router.Static(cfg.Files.PublicPrefix, cfg.Files.RootDir)
	}

	secure := cfg.IsProduction()
	routes.SetupRoutes(router, sessionService, secure, routes.Handlers{
		Auth:     handlers.NewAuthHandler(userService, sessionService, secure),
		Password: handlers.NewPasswordHandler(resetService),
		OAuth:    handlers.NewOAuthHandler(oauthService, sessionService, cfg.PublicURL, secure),
		KYC:      handlers.NewKYCHandler(kycService, uploadService, cfg.Files.MaxUploadSize),
		KYCAdmin: handlers.NewKYCAdminHandler(kycService, reportService),
		Upload:   handlers.NewUploadHandler(uploadService, cfg.Files.MaxUploadSize),
		Profile:  handlers.NewProfileHandler(profileService),
		Users:    handlers.NewUserHandler(userService),
		Health:   handlers.NewHealthHandler(db),
	})

	return router, closeDeps, nil
}

func closer(client *redis.Client) func() {
	return func() {
		if err := client.Close(); err != nil {
			logger.Warn("[app] close redis", logger.Err(err))
		}
	}
}

// corsMiddleware allows the configured frontends with credentials so the
// session cookie travels on cross-origin requests.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{cfg.PublicURL}
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
