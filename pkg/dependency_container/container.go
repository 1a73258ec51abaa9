package dependency_container

import (
	"context"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/boundary"
	"github.com/NeuralTrust/CareGuard/pkg/app/classifier"
	"github.com/NeuralTrust/CareGuard/pkg/app/crisis"
	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	"github.com/NeuralTrust/CareGuard/pkg/app/feedback"
	"github.com/NeuralTrust/CareGuard/pkg/app/moderation"
	"github.com/NeuralTrust/CareGuard/pkg/config"
	"github.com/NeuralTrust/CareGuard/pkg/domain/alert"
	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
	"github.com/NeuralTrust/CareGuard/pkg/domain/decision"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	domainTelemetry "github.com/NeuralTrust/CareGuard/pkg/domain/telemetry"
	"github.com/NeuralTrust/CareGuard/pkg/domain/verdict"
	"github.com/NeuralTrust/CareGuard/pkg/domain/violation"
	handlers "github.com/NeuralTrust/CareGuard/pkg/handlers/http"
	wsHandlers "github.com/NeuralTrust/CareGuard/pkg/handlers/websocket"
	"github.com/NeuralTrust/CareGuard/pkg/infra/auditlogs"
	"github.com/NeuralTrust/CareGuard/pkg/infra/auth/jwt"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/subscriber"
	"github.com/NeuralTrust/CareGuard/pkg/infra/database"
	"github.com/NeuralTrust/CareGuard/pkg/infra/metrics"
	"github.com/NeuralTrust/CareGuard/pkg/infra/repository"
	"github.com/NeuralTrust/CareGuard/pkg/infra/repository/inmemory"
	"github.com/NeuralTrust/CareGuard/pkg/infra/resilience"
	infraTelemetry "github.com/NeuralTrust/CareGuard/pkg/infra/telemetry"
	"github.com/NeuralTrust/CareGuard/pkg/infra/telemetry/kafka"
	"github.com/NeuralTrust/CareGuard/pkg/infra/telemetry/logexporter"
	"github.com/NeuralTrust/CareGuard/pkg/server/middleware"
	"github.com/NeuralTrust/CareGuard/pkg/version"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Container struct {
	Cache              cache.Client
	DB                 *database.DB
	RedisListener      cache.EventListener
	RedisPublisher     cache.EventPublisher
	VerdictQueue       cache.VerdictQueue
	SessionHistory     *cache.TTLMap
	RetryQueue         resilience.RetryQueue
	Dictionary         dictionary.Service
	Workflow           crisis.Workflow
	Feed               *crisis.Feed
	Pipeline           moderation.Pipeline
	Feedback           feedback.Service
	AuditLogsService   auditlogs.Service
	MetricsWorker      metrics.Worker
	JWTManager         jwt.Manager
	HandlerTransport   handlers.HandlerTransport
	WSHandlerTransport wsHandlers.HandlerTransport

	PanicRecoverMiddleware  middleware.Middleware
	EngineMetricsMiddleware middleware.Middleware
	AdminMetricsMiddleware  middleware.Middleware
	AuthMiddleware          middleware.Middleware
	AdminOnlyMiddleware     middleware.Middleware
	WebSocketMiddleware     middleware.Middleware

	logger    *logrus.Logger
	exporters []domainTelemetry.Exporter
}

type ContainerDI struct {
	Cfg                   *config.Config
	Logger                *logrus.Logger
	EventsRegistry        map[string]reflect.Type
	InitializeMemoryCache func(cacheInstance cache.Client)
	// InstanceID tags pub/sub events so an instance ignores its own.
	InstanceID string
}

// repositories is the storage surface the services need, whichever driver
// backs it.
type repositories struct {
	patterns   pattern.Repository
	decisions  decision.Repository
	alerts     alert.Repository
	violations violation.Repository
	verdicts   verdict.Repository
	proposals  verdict.ProposalRepository
	audit      audit.Repository
}

func NewContainer(ctx context.Context, di ContainerDI) (*Container, error) {
	cfg := di.Cfg
	c := &Container{logger: di.Logger}

	cacheInstance, err := cache.NewClient(cache.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TLS:      cfg.Redis.TLS,
	}, di.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.Cache = cacheInstance
	if di.InitializeMemoryCache != nil {
		di.InitializeMemoryCache(cacheInstance)
	}
	c.SessionHistory = cacheInstance.GetTTLMap(cache.SessionHistoryTTLName)
	if c.SessionHistory == nil {
		c.SessionHistory = cacheInstance.CreateTTLMap(cache.SessionHistoryTTLName, cfg.Moderation.SessionTTL)
	}

	c.RedisPublisher = cache.NewRedisEventPublisher(cacheInstance)
	c.RedisListener = cache.NewRedisEventListener(di.Logger, cacheInstance, di.EventsRegistry)
	c.VerdictQueue = cache.NewVerdictQueue(cacheInstance, cfg.Feedback.QueueKey)

	repos, db, err := newRepositories(di.Logger, cfg)
	if err != nil {
		return nil, err
	}
	c.DB = db

	// exporters
	exporterLocator := infraTelemetry.NewExporterLocator(
		infraTelemetry.WithExporter(kafka.ExporterName, kafka.NewKafkaExporter()),
		infraTelemetry.WithExporter(logexporter.ExporterName, logexporter.NewLogExporter(di.Logger)),
	)
	notifierExporter, err := c.exporter(di.Logger, exporterLocator, cfg, "notifier", cfg.Kafka.NotificationsTopic)
	if err != nil {
		return nil, err
	}
	var auditExporter domainTelemetry.Exporter
	if cfg.Audit.Export {
		if auditExporter, err = c.exporter(di.Logger, exporterLocator, cfg, "audit", cfg.Kafka.AuditTopic); err != nil {
			return nil, err
		}
	}

	retryPolicy := resilience.RetryPolicy{
		QueueSize:         cfg.Store.Retry.QueueSize,
		CriticalQueueSize: cfg.Store.Retry.CriticalQueueSize,
		CriticalWorkers:   cfg.Store.Retry.CriticalWorkers,
		InitialInterval:   cfg.Store.Retry.InitialInterval,
		MaxInterval:       cfg.Store.Retry.MaxInterval,
		MaxElapsedTime:    cfg.Store.Retry.MaxElapsedTime,
		DrainTimeout:      cfg.Store.Retry.DrainTimeout,
	}
	c.AuditLogsService, err = auditlogs.NewService(ctx, di.Logger, repos.audit, auditlogs.Options{
		WALDir:   cfg.Audit.WALDir,
		Workers:  cfg.Audit.Workers,
		Retry:    resilience.RetryPolicy{QueueSize: cfg.Audit.QueueSize, InitialInterval: retryPolicy.InitialInterval, MaxInterval: retryPolicy.MaxInterval},
		Exporter: auditExporter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	c.RetryQueue = resilience.NewRetryQueue(di.Logger, retryPolicy)
	c.MetricsWorker = metrics.NewWorker(di.Logger)

	c.Dictionary = dictionary.NewService(dictionary.Deps{
		Logger:     di.Logger,
		Repo:       repos.patterns,
		Publisher:  c.RedisPublisher,
		Audit:      c.AuditLogsService,
		InstanceID: di.InstanceID,
	})

	locks := crisis.NewSessionLocks()
	c.Feed = crisis.NewFeed()
	c.Workflow = crisis.NewWorkflow(crisis.Deps{
		Logger:    di.Logger,
		Alerts:    repos.alerts,
		Locks:     locks,
		Notifier:  crisis.NewExporterNotifier(notifierExporter),
		Feed:      c.Feed,
		Publisher: c.RedisPublisher,
		Audit:     c.AuditLogsService,
		Queue:     c.RetryQueue,
		Config: crisis.Config{
			SLA:         cfg.Crisis.SLA,
			Cooldown:    cfg.Crisis.Cooldown,
			MaxAttempts: cfg.Crisis.MaxAttempts,
		},
		InstanceID: di.InstanceID,
	})

	classifierConfig := classifier.Config{
		CrisisThreshold: cfg.Moderation.CrisisThreshold,
		ReviewThreshold: cfg.Moderation.ReviewThreshold,
		RecencyWeight:   cfg.Moderation.RecencyWeight,
		RecencyWindow:   cfg.Moderation.RecencyWindow,
		TrendWeight:     cfg.Moderation.TrendWeight,
		HistorySize:     cfg.Moderation.HistorySize,
	}
	c.Pipeline = moderation.NewPipeline(moderation.Deps{
		Logger:     di.Logger,
		Dictionary: c.Dictionary,
		Classifier: classifier.New(classifierConfig),
		History:    classifier.NewSessionHistory(c.SessionHistory, classifierConfig.HistorySize),
		Enforcer:   boundary.NewEnforcer(boundary.DefaultFallbacks()),
		Crisis:     c.Workflow,
		Locks:      locks,
		Decisions:  repos.decisions,
		Violations: repos.violations,
		Audit:      c.AuditLogsService,
		Queue:      c.RetryQueue,
		Metrics:    c.MetricsWorker,
		Config: moderation.Config{
			MaxTextBytes: cfg.Moderation.MaxTextBytes,
			CrisisReply:  cfg.Moderation.CrisisReply,
			BlockedReply: cfg.Moderation.BlockedReply,
		},
	})

	c.Feedback = feedback.NewService(feedback.Deps{
		Logger:     di.Logger,
		Verdicts:   repos.verdicts,
		Proposals:  repos.proposals,
		Decisions:  repos.decisions,
		Dictionary: c.Dictionary,
		Queue:      c.VerdictQueue,
		Audit:      c.AuditLogsService,
		Config: feedback.Config{
			Rules: feedback.Rules{
				MinSamples:           cfg.Feedback.MinSamples,
				FalsePositiveCeiling: cfg.Feedback.FalsePositiveCeiling,
				ReductionStep:        cfg.Feedback.ReductionStep,
				CrisisWeightFloor:    cfg.Feedback.CrisisWeightFloor,
			},
			Window:     cfg.Feedback.Window,
			AutoApply:  cfg.Feedback.AutoApply,
			PopTimeout: cfg.Feedback.PopTimeout,
		},
	})

	// subscribers
	dictionarySubscriber := subscriber.NewDictionaryUpdatedEventSubscriber(di.Logger, c.Dictionary, di.InstanceID)
	alertSubscriber := subscriber.NewAlertChangedEventSubscriber(di.Logger, c.Feed, di.InstanceID)
	cache.RegisterEventSubscriber[event.DictionaryUpdatedEvent](c.RedisListener, dictionarySubscriber)
	cache.RegisterEventSubscriber[event.AlertChangedEvent](c.RedisListener, alertSubscriber)

	c.JWTManager = jwt.NewJwtManager(&cfg.Server)

	// middlewares
	c.PanicRecoverMiddleware = middleware.NewPanicRecoverMiddleware(di.Logger)
	c.EngineMetricsMiddleware = middleware.NewMetricsMiddleware(di.Logger, "engine")
	c.AdminMetricsMiddleware = middleware.NewMetricsMiddleware(di.Logger, "admin")
	c.AuthMiddleware = middleware.NewAuthMiddleware(di.Logger, c.JWTManager)
	c.AdminOnlyMiddleware = middleware.NewRoleMiddleware(di.Logger, jwt.RoleAdmin)
	c.WebSocketMiddleware = middleware.NewWebsocketMiddleware(di.Logger, cfg.Crisis.Feed.MaxConnections)

	c.WSHandlerTransport = &wsHandlers.HandlerTransportDTO{
		AlertFeedHandler: wsHandlers.NewAlertFeedHandler(di.Logger, c.Feed, cfg.Crisis.Feed),
	}

	c.HandlerTransport = &handlers.HandlerTransportDTO{
		// Engine
		InspectHandler:    handlers.NewInspectHandler(di.Logger, c.Pipeline),
		GetVersionHandler: handlers.NewGetVersionHandler(di.Logger, c.Dictionary),
		// Alerts
		ListAlertsHandler:    handlers.NewListAlertsHandler(di.Logger, c.Workflow),
		GetAlertHandler:      handlers.NewGetAlertHandler(di.Logger, c.Workflow),
		ClaimAlertHandler:    handlers.NewClaimAlertHandler(di.Logger, c.Workflow),
		ResolveAlertHandler:  handlers.NewResolveAlertHandler(di.Logger, c.Workflow),
		EscalateAlertHandler: handlers.NewEscalateAlertHandler(di.Logger, c.Workflow),
		// Decisions
		ListDecisionsHandler:   handlers.NewListDecisionsHandler(di.Logger, repos.decisions),
		GetDecisionHandler:     handlers.NewGetDecisionHandler(di.Logger, repos.decisions),
		CorrectDecisionHandler: handlers.NewCorrectDecisionHandler(di.Logger, c.Pipeline),
		ListViolationsHandler:  handlers.NewListViolationsHandler(di.Logger, repos.violations),
		// Feedback
		CreateVerdictHandler:   handlers.NewCreateVerdictHandler(di.Logger, c.Feedback),
		ListProposalsHandler:   handlers.NewListProposalsHandler(di.Logger, c.Feedback),
		ApproveProposalHandler: handlers.NewApproveProposalHandler(di.Logger, c.Feedback),
		RejectProposalHandler:  handlers.NewRejectProposalHandler(di.Logger, c.Feedback),
		// Dictionary
		ListPatternsHandler:      handlers.NewListPatternsHandler(di.Logger, c.Dictionary),
		AddPatternVersionHandler: handlers.NewAddPatternVersionHandler(di.Logger, c.Dictionary),
		RefreshDictionaryHandler: handlers.NewRefreshDictionaryHandler(di.Logger, c.Dictionary),
		// Audit
		QueryAuditHandler: handlers.NewQueryAuditHandler(di.Logger, c.AuditLogsService),
	}

	return c, nil
}

func newRepositories(logger *logrus.Logger, cfg *config.Config) (repositories, *database.DB, error) {
	switch cfg.Store.Driver {
	case StoreDriverMemory:
		logger.Warn("using in-memory store, records are lost on restart")
		store := inmemory.NewStore()
		store.Seed(pattern.Defaults()...)
		return repositories{
			patterns:   store.Patterns(),
			decisions:  store.Decisions(),
			alerts:     store.Alerts(),
			violations: store.Violations(),
			verdicts:   store.Verdicts(),
			proposals:  store.Proposals(),
			audit:      store.Audit(),
		}, nil, nil
	case StoreDriverPostgres:
		db, err := database.NewDB(logger, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return repositories{}, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		guard := resilience.NewGuard(resilience.BreakerSettings{
			Name:             "store",
			MaxRequests:      cfg.Store.Breaker.MaxRequests,
			Interval:         cfg.Store.Breaker.Interval,
			Timeout:          cfg.Store.Breaker.Timeout,
			FailureThreshold: cfg.Store.Breaker.FailureThreshold,
			Passthrough:      repository.Passthrough,
		}, cfg.Store.Timeout)
		store := repository.NewStore(db.DB, guard)
		return repositories{
			patterns:   repository.NewPatternRepository(store),
			decisions:  repository.NewDecisionRepository(store),
			alerts:     repository.NewAlertRepository(store),
			violations: repository.NewViolationRepository(store),
			verdicts:   repository.NewVerdictRepository(store),
			proposals:  repository.NewProposalRepository(store),
			audit:      repository.NewAuditRepository(store),
		}, db, nil
	default:
		return repositories{}, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// exporter returns a Kafka producer for topic when Kafka is enabled and the
// log exporter otherwise.
func (c *Container) exporter(
	logger *logrus.Logger,
	locator *infraTelemetry.ExporterLocator,
	cfg *config.Config,
	component string,
	topic string,
) (domainTelemetry.Exporter, error) {
	if !cfg.Kafka.Enabled {
		return locator.GetExporter(logexporter.ExporterName, nil)
	}
	exp, err := locator.GetExporter(kafka.ExporterName, map[string]interface{}{
		"brokers":   cfg.Kafka.Brokers,
		"topic":     topic,
		"client_id": version.ClientID(component),
		"producer":  cfg.Kafka.Settings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka exporter for %s: %w", topic, err)
	}
	logger.WithField("topic", topic).Info("kafka exporter ready")
	c.exporters = append(c.exporters, exp)
	return exp, nil
}

// Close releases what the container opened, in reverse dependency order.
func (c *Container) Close() {
	c.RetryQueue.Close()
	if err := c.AuditLogsService.Close(); err != nil {
		c.logger.WithError(err).Warn("failed to close audit log")
	}
	c.MetricsWorker.Shutdown()
	for _, exp := range c.exporters {
		exp.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
	_ = c.Cache.Close()
}
