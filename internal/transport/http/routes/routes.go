package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/brainlife/auth-sub000/internal/infra/config"
	"github.com/brainlife/auth-sub000/internal/transport/http/handlers"
	"github.com/brainlife/auth-sub000/internal/transport/http/middleware"
	"github.com/brainlife/auth-sub000/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Claims       *usecase.ClaimService
	Registration *usecase.RegistrationService
	Resolution   *usecase.ResolutionService
	Accounts     *usecase.AccountService
	Secrets      *usecase.SecretService
	Groups       *usecase.GroupService
	Admin        *usecase.AdminService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Metrics  *middleware.HTTPMetrics
	Services ServiceSet
	Database DatabaseChecker
	Cache    CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	requireAuth := middleware.RequireAuth(deps.Services.Claims)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	secureCookies := deps.Config.App.Env == "production"

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Claims)
		authHandler.RegisterRoutes(authGroup)

		signupGroup := api.Group("")
		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
		registrationHandler.RegisterRoutes(signupGroup)

		extGroup := api.Group("/ext")
		externalHandler := handlers.NewExternalHandler(deps.Services.Resolution, secureCookies)
		externalHandler.RegisterRoutes(extGroup, requireAuth)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.Accounts, deps.Services.Secrets, secureCookies)
		api.POST("/password/change", requireAuth, passwordHandler.ChangePassword)
		api.POST("/password/reset", passwordHandler.ResetPassword)
		api.POST("/password/reset/confirm", passwordHandler.ConfirmReset)
		api.GET("/confirm_email/:token", passwordHandler.ConfirmEmail)
		api.POST("/confirm_email/resend", passwordHandler.ResendConfirmation)

		userGroup := api.Group("/user")
		userGroup.Use(requireAuth)
		profileHandler := handlers.NewProfileHandler(deps.Services.Accounts)
		profileHandler.RegisterRoutes(userGroup)

		groupGroup := api.Group("/groups")
		groupGroup.Use(requireAuth)
		groupHandler := handlers.NewGroupHandler(deps.Services.Groups)
		groupHandler.RegisterRoutes(groupGroup)

		adminGroup := api.Group("/admin")
		adminGroup.Use(requireAuth, middleware.RequireScope("auth", "admin"))
		adminHandler := handlers.NewAdminHandler(deps.Services.Admin)
		adminHandler.RegisterRoutes(adminGroup)
	}

	return r
}
