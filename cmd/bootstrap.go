package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/BuildFund/New-Main-sub000/config"
	"github.com/BuildFund/New-Main-sub000/internal/api"
	"github.com/BuildFund/New-Main-sub000/internal/cache"
	"github.com/BuildFund/New-Main-sub000/internal/db"
	"github.com/BuildFund/New-Main-sub000/internal/messaging"
	"github.com/BuildFund/New-Main-sub000/internal/metrics"
	"github.com/BuildFund/New-Main-sub000/internal/repository"
	"github.com/BuildFund/New-Main-sub000/internal/search"
	"github.com/BuildFund/New-Main-sub000/internal/service"
	"github.com/BuildFund/New-Main-sub000/internal/tracing"

	"gorm.io/gorm"
)

// application holds everything a command needs after wiring
type application struct {
	cfg      config.Config
	db       *gorm.DB
	cache    *cache.RedisCache
	tracer   tracing.Tracer
	metrics  *metrics.Metrics
	services api.Services
}

// bootstrap loads configuration, connects infrastructure and wires the
// repositories and services. Optional infrastructure (cache, tracer,
// search, service bus) degrades to disabled on failure; the database is
// required.
func bootstrap(clientType string) (*application, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	database, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		return nil, err
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without audit indexing")
		elasticClient = nil
	}

	var bus messaging.ServiceBusClient
	if cfg.ServiceBus.ConnectionString != "" {
		bus, err = messaging.NewServiceBusClient(cfg.ServiceBus, clientType)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Service Bus client, continuing without notifications")
			bus = nil
		}
	}

	metricsCollector := metrics.GetMetricsCollector()

	dealRepo := repository.NewDealRepository(database)
	partyRepo := repository.NewPartyRepository(database)
	stageRepo := repository.NewStageRepository(database)
	taskRepo := repository.NewTaskRepository(database)
	cpRepo := repository.NewConditionRepository(database)
	reqRepo := repository.NewRequisitionRepository(database)
	drawdownRepo := repository.NewDrawdownRepository(database)
	threadRepo := repository.NewThreadRepository(database)
	providerRepo := repository.NewProviderRepository(database)
	auditRepo := repository.NewAuditRepository(database)

	audit := service.NewAuditRecorder(auditRepo, dealRepo, elasticClient, metricsCollector)
	notifier := service.NewNotifier(bus, metricsCollector)
	readiness := service.NewReadinessService(dealRepo, stageRepo, taskRepo, partyRepo, cpRepo, reqRepo, providerRepo, redisCache)

	svcs := api.Services{
		Deals:        service.NewDealService(dealRepo, partyRepo, readiness, audit, notifier, redisCache, tracer, metricsCollector, cfg.Workflow),
		Parties:      service.NewPartyService(dealRepo, partyRepo, readiness, audit, notifier),
		Stages:       service.NewStageService(dealRepo, stageRepo, taskRepo, readiness, audit, notifier, metricsCollector),
		Conditions:   service.NewConditionService(dealRepo, cpRepo, threadRepo, readiness, audit, metricsCollector),
		Requisitions: service.NewRequisitionService(dealRepo, partyRepo, reqRepo, readiness, audit, notifier, metricsCollector),
		Drawdowns:    service.NewDrawdownService(dealRepo, partyRepo, drawdownRepo, readiness, audit, notifier, metricsCollector),
		Providers:    service.NewProviderService(dealRepo, partyRepo, providerRepo, readiness, audit),
		Messages:     service.NewMessageService(dealRepo, partyRepo, threadRepo),
		Readiness:    readiness,
		Audit:        audit,
	}

	return &application{
		cfg:      cfg,
		db:       database,
		cache:    redisCache,
		tracer:   tracer,
		metrics:  metricsCollector,
		services: svcs,
	}, nil
}

func (a *application) close() {
	if a.tracer != nil {
		a.tracer.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}
}
