package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/infra/config"
	"github.com/brainlife/auth-sub000/internal/infra/database"
	kafkainfra "github.com/brainlife/auth-sub000/internal/infra/kafka"
	"github.com/brainlife/auth-sub000/internal/infra/logger"
	"github.com/brainlife/auth-sub000/internal/infra/mail"
	redisinfra "github.com/brainlife/auth-sub000/internal/infra/redis"
	"github.com/brainlife/auth-sub000/internal/infra/security"
	"github.com/brainlife/auth-sub000/internal/infra/telemetry"
	"github.com/brainlife/auth-sub000/internal/provider"
	postgresrepo "github.com/brainlife/auth-sub000/internal/repository/postgres"
	redisrepo "github.com/brainlife/auth-sub000/internal/repository/redis"
	"github.com/brainlife/auth-sub000/internal/transport/http/middleware"
	"github.com/brainlife/auth-sub000/internal/transport/http/routes"
	"github.com/brainlife/auth-sub000/internal/usecase"
)

// Application owns every long-lived resource of the auth service and knows
// how to start and stop them in order.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	kafka  *kafkainfra.Producer
	tracer *telemetry.TracerProvider
}

// New wires configuration into a runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
	}

	if err := security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	keys, err := security.NewFileKeyProvider(cfg.Claims.KeyDirectory)
	if err != nil {
		return nil, fmt.Errorf("init key provider: %w", err)
	}
	signer := security.NewClaimSigner(keys, cfg.Claims.Issuer)

	registry, err := provider.NewRegistry(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("init provider registry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	var kafkaProducer *kafkainfra.Producer
	var publisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			publisher = kafkainfra.NewStubPublisher(log)
		} else {
			publisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		publisher = kafkainfra.NewStubPublisher(log)
	}

	repos := postgresrepo.NewRepositories(pool)

	limiterPrefix := cfg.Redis.LimiterPrefix
	if limiterPrefix == "" {
		limiterPrefix = "auth:login-fail"
	}
	limitStore := redisrepo.NewLoginLimitRepository(redisClient.Client(), redisrepo.LoginLimiterConfig{
		KeyPrefix: limiterPrefix,
	})
	limiter := usecase.NewLoginLimiter(limitStore, cfg.Limiter, log)

	mailer := mail.NewLogMailer(cfg.Mail, log)

	claimService := usecase.NewClaimService(repos.Accounts, repos.Groups, signer, cfg.Claims)
	authService := usecase.NewAuthService(repos.Accounts, limiter, claimService, publisher, cfg.Limiter, log)
	secretService := usecase.NewSecretService(repos.Accounts, mailer, publisher, cfg.App, log)
	registrationService := usecase.NewRegistrationService(repos.Accounts, repos.Sequence, secretService, signer, publisher, log)
	resolutionService := usecase.NewResolutionService(repos.Accounts, repos.Sequence, claimService, signer, registry, publisher, cfg.Claims, log)
	accountService := usecase.NewAccountService(repos.Accounts, publisher, log)
	groupService := usecase.NewGroupService(repos.Groups)
	adminService := usecase.NewAdminService(repos.Accounts, claimService, limiter, publisher, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics,
		Services: routes.ServiceSet{
			Auth:         authService,
			Claims:       claimService,
			Registration: registrationService,
			Resolution:   resolutionService,
			Accounts:     accountService,
			Secrets:      secretService,
			Groups:       groupService,
			Admin:        adminService,
		},
		Database: pool,
		Cache:    redisClient,
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		kafka:  kafkaProducer,
		tracer: tracer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is cancelled or the
// server fails.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.kafka != nil {
			_ = a.kafka.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
