// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"listing-search-workers/internal/api"
	"listing-search-workers/internal/common/camunda"
	"listing-search-workers/internal/common/config"
	"listing-search-workers/internal/common/database"
	"listing-search-workers/internal/common/logger"
	"listing-search-workers/internal/common/observability"
	"listing-search-workers/internal/search"
	"listing-search-workers/internal/store/cache"
	"listing-search-workers/internal/store/elastic"
	"listing-search-workers/internal/store/memory"
	"listing-search-workers/internal/store/postgres"
	"listing-search-workers/pkg/registry"

	nlq "listing-search-workers/internal/workers/search/normalize-listing-query"
	sl "listing-search-workers/internal/workers/search/search-listings"
)

// resources collects everything that must be released on shutdown.
type resources struct {
	closers []func() error
	checks  map[string]api.ReadinessCheck
}

func (r *resources) onClose(fn func() error) {
	r.closers = append(r.closers, fn)
}

func (r *resources) close(log logger.Logger) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			log.Error("failed to release resource", map[string]interface{}{"error": err.Error()})
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting worker manager", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"backend":     cfg.Store.Backend,
	})

	if err := run(cfg, log); err != nil {
		zapLog.Fatal("worker manager failed", zap.Error(err))
	}
	log.Info("worker manager stopped", nil)
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obsOpts := observability.Options{}
	if cfg.Tracing.Enabled {
		sp, err := observability.JaegerSpanProcessor(cfg.Tracing.JaegerEndpoint)
		if err != nil {
			return err
		}
		obsOpts.SpanProcessors = append(obsOpts.SpanProcessors, sp)
	}
	obs, err := observability.New(cfg.App.Name, obsOpts)
	if err != nil {
		return fmt.Errorf("observability init: %w", err)
	}

	res := &resources{checks: map[string]api.ReadinessCheck{}}
	defer res.close(log)
	res.onClose(func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return obs.Shutdown(shutdownCtx)
	})

	store, err := openStore(ctx, cfg, res, log)
	if err != nil {
		return err
	}
	if cfg.Store.Cache.Enabled {
		store, err = wrapCache(ctx, cfg, store, res, log)
		if err != nil {
			return err
		}
	}

	service := search.NewService(store, cfg.Search.ToSearchConfig(), log)

	if cfg.Camunda.Enabled {
		if err := startWorkers(ctx, cfg, service, obs, res, log); err != nil {
			return err
		}
	}

	var server *http.Server
	serverErr := make(chan error, 1)
	if cfg.HTTP.Enabled {
		server = newHTTPServer(cfg, service, res.checks, log)
		go func() {
			log.Info("http server listening", map[string]interface{}{"address": cfg.HTTP.Address})
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("http server shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

// openStore connects the configured listing backend.
func openStore(ctx context.Context, cfg *config.Config, res *resources, log logger.Logger) (search.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		var pg *database.PostgresClient
		err := camunda.RetryWithBackoff(ctx, func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				pg.Close()
				return err
			}
			return nil
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		res.onClose(pg.Close)
		res.checks["postgres"] = pg.Ping
		log.Info("PostgreSQL connected", nil)
		return postgres.NewListingStore(pg.GetDB(), log), nil

	case config.BackendElasticsearch:
		var es *database.ElasticsearchClient
		err := camunda.RetryWithBackoff(ctx, func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			return nil, err
		}
		res.checks["elasticsearch"] = es.Ping
		store := elastic.NewListingStore(es.GetClient(), cfg.Database.Elasticsearch.Index, log)
		if err := store.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("ensure elasticsearch index: %w", err)
		}
		log.Info("Elasticsearch connected", map[string]interface{}{"index": cfg.Database.Elasticsearch.Index})
		return store, nil

	case config.BackendMemory:
		if cfg.Store.SeedFile == "" {
			return memory.NewListingStore(), nil
		}
		store, err := memory.LoadFile(cfg.Store.SeedFile)
		if err != nil {
			return nil, err
		}
		log.Info("memory store seeded", map[string]interface{}{
			"file":     cfg.Store.SeedFile,
			"listings": store.Len(),
		})
		return store, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func wrapCache(ctx context.Context, cfg *config.Config, inner search.Store, res *resources, log logger.Logger) (search.Store, error) {
	var rdb *database.RedisClient
	err := camunda.RetryWithBackoff(ctx, func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		return nil, err
	}
	res.onClose(rdb.Close)
	res.checks["redis"] = rdb.Ping
	log.Info("Redis connected, listing cache enabled", map[string]interface{}{"ttl_ms": cfg.Store.Cache.TTL})
	return cache.NewCachedStore(inner, rdb.GetClient(), config.GetDuration(cfg.Store.Cache.TTL), log), nil
}

func startWorkers(
	ctx context.Context,
	cfg *config.Config,
	service *search.Service,
	obs *observability.Observability,
	res *resources,
	log logger.Logger,
) error {
	var zb *camunda.Client
	err := camunda.RetryWithBackoff(ctx, func() error {
		var err error
		zb, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		return err
	}
	res.onClose(zb.Close)
	res.checks["zeebe"] = zb.HealthCheck
	log.Info("Zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	var workers []worker.JobWorker

	normalizeCfg := nlq.LoadConfig()
	if wcfg := config.GetWorkerConfig(cfg, nlq.TaskType); wcfg.Timeout > 0 {
		normalizeCfg.Timeout = config.GetDuration(wcfg.Timeout)
	}
	normalize := nlq.NewHandler(normalizeCfg, log)
	workers = append(workers, camunda.StartWorker(zb.GetClient(), nlq.TaskType,
		config.GetWorkerConfig(cfg, nlq.TaskType),
		camunda.Instrument(nlq.TaskType, normalize.Handle, obs), log))

	searchCfg := sl.LoadConfig()
	if wcfg := config.GetWorkerConfig(cfg, sl.TaskType); wcfg.Timeout > 0 {
		searchCfg.Timeout = config.GetDuration(wcfg.Timeout)
	}
	if schema := registryInputSchema(cfg.Registry.Path, sl.TaskType, log); schema != nil {
		searchCfg.InputSchema = schema
	}
	searchHandler, err := sl.NewHandler(searchCfg, service, log)
	if err != nil {
		return err
	}
	workers = append(workers, camunda.StartWorker(zb.GetClient(), sl.TaskType,
		config.GetWorkerConfig(cfg, sl.TaskType),
		camunda.Instrument(sl.TaskType, searchHandler.Handle, obs), log))

	res.onClose(func() error {
		for _, w := range workers {
			if w != nil {
				w.Close()
				w.AwaitClose()
			}
		}
		return nil
	})
	return nil
}

// registryInputSchema returns the registry's input schema for taskType, or
// nil when the registry is not configured or has none.
func registryInputSchema(path, taskType string, log logger.Logger) map[string]interface{} {
	if path == "" {
		return nil
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		log.Warn("activity registry not loaded, using built-in schema", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}
	activity, ok := reg.FindByTaskType(taskType)
	if !ok || len(activity.InputSchema) == 0 {
		return nil
	}
	return activity.InputSchema
}

func newHTTPServer(cfg *config.Config, service *search.Service, checks map[string]api.ReadinessCheck, log logger.Logger) *http.Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.NewAPI(service, checks, cfg.App.Name, log))
	return &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}
}
