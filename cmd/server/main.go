package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"jobtracker/docs"
	"jobtracker/internal/auth"
	"jobtracker/internal/cache"
	"jobtracker/internal/config"
	"jobtracker/internal/db"
	"jobtracker/internal/email"
	"jobtracker/internal/handler"
	"jobtracker/internal/metrics"
	"jobtracker/internal/queue"
	"jobtracker/internal/repository"
	"jobtracker/internal/router"
	"jobtracker/internal/service"
	"jobtracker/internal/storage"
)

// @title Job Tracker API
// @version 1.0
// @description Job application tracker with recruiter postings, role-based access and JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if cfg.ResetDB {
		log.Println("RESET_DB=true detected, dropping all tables...")
		db.Reset(gormDB)
		log.Println("Tables dropped")
	}

	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// An empty REDIS_ADDR keeps the cache and the token ledger in process.
	var cacheStore cache.Store
	pingers := map[string]handler.Pinger{
		"database": handler.PingFunc(func(ctx context.Context) error {
			sqlDB, err := gormDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}
	if cfg.RedisAddr != "" {
		redisClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer redisClient.Close()
		cacheStore = redisClient
		pingers["cache"] = redisClient
	} else {
		cacheStore = cache.NewMemory()
	}

	files, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("storage init: %v", err)
	}

	publisher := queue.NewPublisher(cfg.AMQPURL)
	defer publisher.Close()

	m := metrics.New()
	mailer := email.NewMailer(newSender(cfg, publisher), email.Links{
		VerifyEmail:        cfg.VerifyEmailURL,
		ResetPassword:      cfg.ResetPasswordURL,
		ConfirmEmailChange: cfg.ConfirmEmailChangeURL,
	})

	store := repository.NewStore(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	tokenStore := auth.NewTokenStore(cacheStore)

	// Initialize services
	roleService := service.NewRoleService(store)
	if err := roleService.EnsureRolesCreated(ctx); err != nil {
		log.Fatalf("ensure roles: %v", err)
	}
	if cfg.AdminEmail != "" {
		if err := roleService.BootstrapAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
	}

	deleter := service.NewAccountDeleter(store, files, mailer, publisher, m, cacheStore)
	authService := service.NewAuthService(store, jwtService, tokenStore, mailer, service.AuthOptions{
		RequireConfirmedEmail: cfg.RequireConfirmedEmail,
	})
	profileService := service.NewProfileService(store, jwtService, tokenStore, mailer, deleter, nil)
	jobApplicationService := service.NewJobApplicationService(store, files, mailer, publisher, m, nil)
	jobPostingService := service.NewJobPostingService(store, files, cacheStore, nil)
	recruiterService := service.NewRecruiterService(store, mailer, publisher, m, nil)
	adminService := service.NewAdminService(store, roleService, deleter, nil)

	var google handler.GoogleProfileFetcher
	if cfg.Google.Enabled() {
		google = handler.NewGoogleOAuth(cfg.Google)
	}

	e := echo.New()
	router.Register(e, cfg, jwtService, m, router.Handlers{
		Auth:            handler.NewAuthHandler(authService, cfg.FrontendURL+"/login"),
		OAuth:           handler.NewOAuthHandler(authService, google),
		Profile:         handler.NewProfileHandler(profileService),
		JobApplications: handler.NewJobApplicationHandler(jobApplicationService),
		JobPostings:     handler.NewJobPostingHandler(jobPostingService),
		Recruiters:      handler.NewRecruiterApplicationHandler(recruiterService),
		Admin:           handler.NewAdminHandler(adminService),
		Uploads:         handler.NewUploadHandler(files),
		Health:          handler.NewHealthHandler(pingers),
	})

	base := swaggerBase(cfg)
	docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(base, "https://"), "http://")
	log.Printf("Swagger documentation available at: %s/swagger/index.html", base)

	addr := ":" + cfg.ServerPort
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// newSender picks SendGrid when a key is set, then the broker, then the log.
func newSender(cfg *config.Config, publisher queue.Publisher) email.Sender {
	switch {
	case cfg.SendGridAPIKey != "":
		return email.NewSendGridSender(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	case cfg.AMQPURL != "":
		return email.NewQueueSender(publisher)
	default:
		log.Println("No SENDGRID_API_KEY or AMQP_URL configured, e-mail will only be logged")
		return email.NewLogSender()
	}
}

// swaggerBase accepts SWAGGER_HOST with or without a scheme.
func swaggerBase(cfg *config.Config) string {
	if cfg.SwaggerHost == "" {
		return "http://localhost:" + cfg.ServerPort
	}
	if strings.HasPrefix(cfg.SwaggerHost, "http://") || strings.HasPrefix(cfg.SwaggerHost, "https://") {
		return cfg.SwaggerHost
	}
	return "http://" + cfg.SwaggerHost
}
