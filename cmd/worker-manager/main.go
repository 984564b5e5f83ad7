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

	"agri-evidence-workers/internal/common/camunda"
	"agri-evidence-workers/internal/common/config"
	"agri-evidence-workers/internal/common/database"
	"agri-evidence-workers/internal/common/logger"
	"agri-evidence-workers/internal/common/observability"
)

// retryWithBackoff runs operation until it succeeds, doubling the delay
// between attempts.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log.Info("starting worker manager", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	if err := run(cfg, log); err != nil {
		log.Error("worker manager stopped with error", map[string]interface{}{"error": err})
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	obs := observability.New("agri-evidence-workers")
	defer obs.Shutdown()

	ctx := context.Background()

	zeebe, err := camunda.NewClientWithConfig(camunda.ConfigFromApp(cfg.Camunda))
	if err != nil {
		return err
	}
	defer zeebe.Close()

	readyCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	err = zeebe.WaitReady(readyCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("zeebe gateway not ready: %w", err)
	}
	log.Info("zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})

	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		if pg == nil {
			if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
				return err
			}
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		return err
	}
	log.Info("postgres connected", nil)

	var es *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		if es == nil {
			if es, err = database.NewElasticsearch(cfg.Database.Elasticsearch); err != nil {
				return err
			}
		}
		return es.Ping(ctx)
	}, 15, 2*time.Second, log, "Elasticsearch connection")
	if err != nil {
		return err
	}
	if ok, err := es.IndexExists(ctx, cfg.Evidence.Retrieval.Index); err != nil || !ok {
		log.Warn("document index not available yet", map[string]interface{}{
			"index": cfg.Evidence.Retrieval.Index,
			"error": err,
		})
	}
	log.Info("elasticsearch connected", nil)

	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		if rdb == nil {
			if rdb, err = database.NewRedis(cfg.Database.Redis); err != nil {
				return err
			}
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		return err
	}
	defer rdb.Close()
	log.Info("redis connected", nil)

	deps, err := buildDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	deps.db = pg.DB
	deps.search = es.Client
	deps.cache = rdb.Client

	workers := camunda.NewWorkerSet(zeebe.GetClient(), log).WithRecorder(obs)
	registerWorkers(workers, cfg, deps, log)
	defer workers.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           newServeMux(zeebe, workers, activityRegistry(cfg)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err})
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received, stopping workers", nil)

	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", map[string]interface{}{"error": err})
	}
	return nil
}
