package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/NeuralTrust/CareGuard/pkg/config"
	"github.com/NeuralTrust/CareGuard/pkg/dependency_container"
	"github.com/NeuralTrust/CareGuard/pkg/infra/auth/jwt"
	infraCache "github.com/NeuralTrust/CareGuard/pkg/infra/cache"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/channel"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
	infraLogger "github.com/NeuralTrust/CareGuard/pkg/infra/logger"
	_ "github.com/NeuralTrust/CareGuard/pkg/infra/migrations"
	"github.com/NeuralTrust/CareGuard/pkg/infra/prometheus"
	"github.com/NeuralTrust/CareGuard/pkg/infra/scheduler"
	"github.com/NeuralTrust/CareGuard/pkg/server"
	"github.com/NeuralTrust/CareGuard/pkg/server/middleware"
	"github.com/NeuralTrust/CareGuard/pkg/server/router"
	"github.com/NeuralTrust/CareGuard/pkg/version"
)

const (
	serverTypeEngine = "engine"
	serverTypeAdmin  = "admin"
	commandToken     = "token"

	shutdownTimeout = 15 * time.Second
)

func main() {
	serverType := getServerType()
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	if err := config.Load("../../config"); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	if serverType == commandToken {
		os.Exit(issueToken(cfg, os.Args[2:]))
	}

	logger, logCloser := infraLogger.NewLogger(serverType)
	defer func() { _ = logCloser.Close() }()
	logger.WithField("version", version.GetInfo().String()).Infof("starting %s", serverType)

	prometheus.Initialize(prometheus.DefaultMetricsConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := dependency_container.NewContainer(ctx, dependency_container.ContainerDI{
		Cfg:                   cfg,
		Logger:                logger,
		EventsRegistry:        event.Registry,
		InitializeMemoryCache: initializeMemoryCache(cfg),
		InstanceID:            uuid.NewString(),
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize dependencies")
	}
	defer container.Close()

	if _, err := container.Dictionary.Refresh(ctx); err != nil {
		logger.WithError(err).Warn("initial dictionary load failed, serving fallback snapshot")
	}

	container.RetryQueue.Start(ctx, cfg.Store.Retry.Workers)
	if cfg.Metrics.Enabled {
		container.MetricsWorker.StartWorkers(cfg.Metrics.Workers)
	}

	jobs := scheduler.New(logger)
	if err := registerJobs(jobs, serverType, cfg, container, logger); err != nil {
		logger.WithError(err).Fatal("failed to schedule background jobs")
	}

	srv := initializeServer(serverType, cfg, logger, container)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(); err != nil {
			return fmt.Errorf("%s server: %w", serverType, err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("starting listening redis events...")
		channels := []channel.Channel{channel.DictionaryChannel}
		if serverType == serverTypeAdmin {
			channels = append(channels, channel.AlertsChannel)
		}
		container.RedisListener.Listen(gctx, channels...)
		return nil
	})
	if serverType == serverTypeAdmin {
		g.Go(func() error {
			if err := container.Feedback.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("feedback aggregator: %w", err)
			}
			return nil
		})
	}
	jobs.Start()

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		jobs.Stop(stopCtx)
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server stopped with error")
		return
	}
	logger.Info("server gracefully stopped")
}

func initializeMemoryCache(cfg *config.Config) func(cacheInstance infraCache.Client) {
	return func(cacheInstance infraCache.Client) {
		_ = cacheInstance.CreateTTLMap(infraCache.SessionHistoryTTLName, cfg.Moderation.SessionTTL)
	}
}

// registerJobs schedules the periodic work. SLA checks and feedback run on
// the admin side only; every instance refreshes its own dictionary.
func registerJobs(
	jobs *scheduler.Scheduler,
	serverType string,
	cfg *config.Config,
	c *dependency_container.Container,
	logger *logrus.Logger,
) error {
	if err := jobs.Add("dictionary_refresh", cfg.Dictionary.RefreshSpec, func(ctx context.Context) {
		if _, err := c.Dictionary.Refresh(ctx); err != nil {
			logger.WithError(err).Warn("scheduled dictionary refresh failed")
		}
	}); err != nil {
		return err
	}
	if err := jobs.Add("audit_compact", cfg.Audit.CompactSpec, func(ctx context.Context) {
		if err := c.AuditLogsService.Compact(ctx); err != nil {
			logger.WithError(err).Warn("audit wal compaction failed")
		}
	}); err != nil {
		return err
	}
	if err := jobs.Add("session_history_sweep", "@every 1m", func(context.Context) {
		if n := c.SessionHistory.Sweep(); n > 0 {
			logger.WithField("expired", n).Debug("swept session history")
		}
	}); err != nil {
		return err
	}
	if serverType != serverTypeAdmin {
		return nil
	}
	return jobs.Add("crisis_sla_monitor", cfg.Crisis.MonitorSpec, func(ctx context.Context) {
		breached, err := c.Workflow.CheckSLA(ctx)
		if err != nil {
			logger.WithError(err).Error("sla monitor failed")
			return
		}
		if breached > 0 {
			logger.WithField("breached", breached).Warn("alerts breached their sla")
		}
	})
}

func getServerType() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return serverTypeEngine
}

func initializeServer(
	serverType string,
	cfg *config.Config,
	logger *logrus.Logger,
	c *dependency_container.Container,
) server.Server {
	switch serverType {
	case serverTypeAdmin:
		adminRouter := router.NewAdminRouter(router.AdminRouterDI{
			MiddlewareTransport: middleware.NewTransport(
				c.PanicRecoverMiddleware,
				c.AdminMetricsMiddleware,
				c.AuthMiddleware,
			),
			HandlerTransport:    c.HandlerTransport,
			WSHandlerTransport:  c.WSHandlerTransport,
			AdminOnly:           c.AdminOnlyMiddleware,
			WebsocketMiddleware: c.WebSocketMiddleware,
		})
		return server.NewAdminServer(server.AdminServerDI{
			Config:       cfg,
			Logger:       logger,
			Routers:      []router.ServerRouter{adminRouter},
			HealthChecks: c.HealthChecks(),
		})
	default:
		engineRouter := router.NewEngineRouter(
			middleware.NewTransport(c.PanicRecoverMiddleware, c.EngineMetricsMiddleware),
			c.HandlerTransport,
		)
		return server.NewEngineServer(server.EngineServerDI{
			Config:       cfg,
			Logger:       logger,
			Routers:      []router.ServerRouter{engineRouter},
			HealthChecks: c.HealthChecks(),
		})
	}
}

// issueToken prints a signed bearer token: guardrails token <responder_id> [responder|admin].
func issueToken(cfg *config.Config, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: guardrails token <responder_id> [responder|admin]")
		return 2
	}
	role := jwt.RoleResponder
	if len(args) > 1 {
		role = jwt.Role(args[1])
	}
	if role != jwt.RoleResponder && role != jwt.RoleAdmin {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", role)
		return 2
	}
	token, err := jwt.NewJwtManager(&cfg.Server).CreateToken(args[0], role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(token)
	return 0
}
