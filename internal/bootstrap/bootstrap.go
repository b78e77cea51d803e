package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/card-catalog/internal/config"
	"github.com/kirillkom/card-catalog/internal/core/ports"
	"github.com/kirillkom/card-catalog/internal/core/usecase"
	"github.com/kirillkom/card-catalog/internal/infrastructure/enrichment/local"
	"github.com/kirillkom/card-catalog/internal/infrastructure/pricing/tcgapi"
	"github.com/kirillkom/card-catalog/internal/infrastructure/process"
	"github.com/kirillkom/card-catalog/internal/infrastructure/queue/nats"
	"github.com/kirillkom/card-catalog/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/card-catalog/internal/infrastructure/resilience"
	"github.com/kirillkom/card-catalog/internal/infrastructure/workspace/localfs"
	"github.com/kirillkom/card-catalog/internal/observability/metrics"
)

const priceHandlerTimeout = 5 * time.Minute

// App is the API process: upload pipeline, catalog reads and enrichment.
type App struct {
	Config config.Config

	Uploads    *usecase.UploadCardUseCase
	Catalog    *usecase.CatalogUseCase
	Enrichment *usecase.PriceEnrichmentUseCase
	Metrics    *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	commands, err := parseCommands(cfg)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, true)
	if err != nil {
		return nil, err
	}

	workspaces, err := localfs.New(cfg.WorkspaceRoot)
	if err != nil {
		store.close()
		return nil, fmt.Errorf("init workspace root: %w", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	pipeline := httpMetrics.Pipeline()

	runner := process.ExecRunner{}
	classifier := process.NewClassifier(runner, commands.classifier, cfg.ClassifierNoCardCode)
	inserter := process.NewInserter(runner, commands.inserter)
	lookup := process.NewPriceLookup(runner, commands.priceLookup)

	closers := []func(){store.close}
	var dispatcher ports.PriceDispatcher
	switch cfg.EnrichMode {
	case config.EnrichModeNATS:
		executor := resilience.NewExecutor(resilienceConfig(cfg)).WithStateListener(pipeline.ObserveBreaker)
		queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			store.close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		closers = append([]func(){queue.Close}, closers...)
		dispatcher = queue
	default:
		dispatcher = local.NewDispatcher(lookup, cfg.EnrichConcurrency)
	}

	enrichment := usecase.NewPriceEnrichmentUseCase(dispatcher, lookup, store.users, store.catalogs, store.cards, pipeline)
	uploads := usecase.NewUploadCardUseCase(
		workspaces,
		classifier,
		inserter,
		store.users,
		store.catalogs,
		store.cards,
		enrichment,
		pipeline,
	)
	catalog := usecase.NewCatalogUseCase(store.users, store.catalogs, store.cards)

	return &App{
		Config:     cfg,
		Uploads:    uploads,
		Catalog:    catalog,
		Enrichment: enrichment,
		Metrics:    httpMetrics,
		closeFn: func() {
			for _, closeFn := range closers {
				closeFn()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// Worker consumes price refresh requests published by the API.
type Worker struct {
	Config config.Config

	Queue      *nats.Queue
	Enrichment *usecase.PriceEnrichmentUseCase
	Metrics    *metrics.WorkerMetrics

	closeFn func()
}

func NewWorker(ctx context.Context, cfg config.Config) (*Worker, error) {
	commands, err := parseCommands(cfg)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, true)
	if err != nil {
		return nil, err
	}

	workerMetrics := metrics.NewWorkerMetrics("worker")
	executor := resilience.NewExecutor(resilienceConfig(cfg)).WithStateListener(workerMetrics.ObserveBreaker)
	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		HandlerTimeout:     priceHandlerTimeout,
		ResilienceExecutor: executor,
	})
	if err != nil {
		store.close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	lookup := process.NewPriceLookup(process.ExecRunner{}, commands.priceLookup)
	enrichment := usecase.NewPriceEnrichmentUseCase(queue, lookup, store.users, store.catalogs, store.cards, nil)

	return &Worker{
		Config:     cfg,
		Queue:      queue,
		Enrichment: enrichment,
		Metrics:    workerMetrics,
		closeFn: func() {
			queue.Close()
			store.close()
		},
	}, nil
}

func (w *Worker) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Tools backs the cardctl subcommands that write to the catalog directly.
type Tools struct {
	Writer   *usecase.CardWriterUseCase
	Prices   *usecase.PriceRefreshUseCase
	Accounts *usecase.AccountUseCase

	db *sql.DB
}

func NewTools(ctx context.Context, cfg config.Config) (*Tools, error) {
	store, err := openStore(ctx, cfg, false)
	if err != nil {
		return nil, err
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg))
	reference := tcgapi.New(cfg.PriceAPIURL, cfg.PriceAPIKey, executor)

	return &Tools{
		Writer:   usecase.NewCardWriterUseCase(store.cards, reference),
		Prices:   usecase.NewPriceRefreshUseCase(store.cards, reference),
		Accounts: usecase.NewAccountUseCase(store.users),
		db:       store.db,
	}, nil
}

func (t *Tools) Close() {
	if t.db != nil {
		_ = t.db.Close()
	}
}

// Migrate applies the schema and returns.
func Migrate(ctx context.Context, cfg config.Config) error {
	store, err := openStore(ctx, cfg, true)
	if err != nil {
		return err
	}
	store.close()
	return nil
}

type store struct {
	db       *sql.DB
	users    *postgres.UserRepository
	catalogs *postgres.CatalogRepository
	cards    *postgres.CardRepository
}

// openStore connects to Postgres. Long-running processes and migrate apply
// the schema; cardctl children spawned per upload skip it.
func openStore(ctx context.Context, cfg config.Config, ensureSchema bool) (*store, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s, err := newStore(ctx, db, ensureSchema)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func newStore(ctx context.Context, db *sql.DB, ensureSchema bool) (*store, error) {
	if ensureSchema {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return &store{
		db:       db,
		users:    postgres.NewUserRepository(db),
		catalogs: postgres.NewCatalogRepository(db),
		cards:    postgres.NewCardRepository(db),
	}, nil
}

func (s *store) close() {
	_ = s.db.Close()
}

type commands struct {
	classifier  process.Command
	inserter    process.Command
	priceLookup process.Command
}

func parseCommands(cfg config.Config) (commands, error) {
	classifier, err := process.ParseCommand(cfg.ClassifierCmd, 0)
	if err != nil {
		return commands{}, fmt.Errorf("CLASSIFIER_CMD: %w", err)
	}
	inserter, err := process.ParseCommand(cfg.InserterCmd, 0)
	if err != nil {
		return commands{}, fmt.Errorf("INSERTER_CMD: %w", err)
	}
	priceLookup, err := process.ParseCommand(cfg.PriceLookupCmd, cfg.PriceLookupTimeout)
	if err != nil {
		return commands{}, fmt.Errorf("PRICE_LOOKUP_CMD: %w", err)
	}
	return commands{classifier: classifier, inserter: inserter, priceLookup: priceLookup}, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	if cfg.RetryMaxAttempts > 0 {
		out.Retry.MaxAttempts = cfg.RetryMaxAttempts
	}
	out.Breaker.Enabled = cfg.BreakerEnabled
	return out
}
