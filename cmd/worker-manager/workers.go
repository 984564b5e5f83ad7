package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	awsclient "agri-evidence-workers/internal/common/aws"
	"agri-evidence-workers/internal/common/camunda"
	"agri-evidence-workers/internal/common/config"
	"agri-evidence-workers/internal/common/logger"
	"agri-evidence-workers/internal/evidence"
	"agri-evidence-workers/internal/workers/advisory"
	"agri-evidence-workers/pkg/registry"

	aa "agri-evidence-workers/internal/workers/advisory/assemble-advisory"
	fc "agri-evidence-workers/internal/workers/advisory/format-citations"
	ga "agri-evidence-workers/internal/workers/advisory/generate-answer"
	rc "agri-evidence-workers/internal/workers/advisory/reconcile-sources"
	re "agri-evidence-workers/internal/workers/advisory/record-evidence"
	rs "agri-evidence-workers/internal/workers/advisory/retrieve-sources"
)

type dependencies struct {
	db         *sql.DB
	search     *elasticsearch.Client
	cache      *redis.Client
	reconciler *evidence.Reconciler
	formatter  *evidence.CitationFormatter
	alerts     awsclient.SNSPublisher
}

// buildDependencies loads the trust tables and the optional alert publisher.
func buildDependencies(ctx context.Context, cfg *config.Config, log logger.Logger) (*dependencies, error) {
	tables := evidence.DefaultTrustTables()
	if path := cfg.Evidence.TrustTablesPath; path != "" {
		loaded, err := evidence.LoadTrustTables(path)
		if err != nil {
			return nil, fmt.Errorf("trust tables: %w", err)
		}
		tables = loaded
		log.Info("trust tables loaded", map[string]interface{}{"path": path})
	}

	deps := &dependencies{
		reconciler: evidence.NewReconciler(tables, cfg.Evidence.Config),
		formatter:  evidence.NewCitationFormatter(tables, cfg.Evidence.Config),
	}

	if cfg.Alerts.Enabled {
		client, err := awsclient.NewSNSClient(ctx, cfg.Alerts.Region)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		deps.alerts = client
	}
	return deps, nil
}

func handlerTimeout(cfg *config.Config, taskType string, fallback time.Duration) time.Duration {
	if ms := config.GetWorkerConfig(cfg, taskType).Timeout; ms > 0 {
		return config.GetDuration(ms)
	}
	return fallback
}

func registerWorkers(set *camunda.WorkerSet, cfg *config.Config, deps *dependencies, log logger.Logger) {
	{
		c := rs.LoadConfig()
		c.Timeout = handlerTimeout(cfg, rs.TaskType, c.Timeout)
		c.Index = cfg.Evidence.Retrieval.Index
		c.TopK = cfg.Evidence.Retrieval.TopK
		c.ScoreThreshold = cfg.Evidence.Retrieval.ScoreThreshold
		handler := rs.NewHandler(c, deps.search, log)
		set.Start(rs.TaskType, config.GetWorkerConfig(cfg, rs.TaskType), handler.Handle)
	}

	{
		c := rc.LoadConfig()
		c.Timeout = handlerTimeout(cfg, rc.TaskType, c.Timeout)
		c.MinSources = cfg.Evidence.MinSources
		c.CacheTTL = time.Duration(cfg.Evidence.CacheTTL) * time.Second
		handler := rc.NewHandler(c, deps.reconciler, deps.cache, log)
		set.Start(rc.TaskType, config.GetWorkerConfig(cfg, rc.TaskType), handler.Handle)
	}

	{
		c := fc.LoadConfig()
		c.Timeout = handlerTimeout(cfg, fc.TaskType, c.Timeout)
		handler := fc.NewHandler(c, deps.formatter, log)
		set.Start(fc.TaskType, config.GetWorkerConfig(cfg, fc.TaskType), handler.Handle)
	}

	{
		genai := cfg.APIs.GenAI
		c := ga.LoadConfig()
		c.GenAIBaseURL = genai.BaseURL
		c.APIKey = genai.APIKey
		if genai.Model != "" {
			c.Model = genai.Model
		}
		c.Timeout = config.GetDuration(genai.Timeout)
		c.MaxTokens = genai.MaxTokens
		if genai.Temperature > 0 {
			c.Temperature = genai.Temperature
		}
		c.MaxRetries = config.GetWorkerConfig(cfg, ga.TaskType).MaxRetries
		c.ExtensionService = cfg.Evidence.ExtensionService
		handler := ga.NewHandler(c, deps.formatter, log)
		set.Start(ga.TaskType, config.GetWorkerConfig(cfg, ga.TaskType), handler.Handle)
	}

	{
		c := aa.LoadConfig()
		c.Timeout = handlerTimeout(cfg, aa.TaskType, c.Timeout)
		c.AppVersion = cfg.App.Version
		handler := aa.NewHandler(c, log)
		set.Start(aa.TaskType, config.GetWorkerConfig(cfg, aa.TaskType), handler.Handle)
	}

	{
		c := re.LoadConfig()
		c.Timeout = handlerTimeout(cfg, re.TaskType, c.Timeout)
		c.AlertsEnabled = cfg.Alerts.Enabled
		c.TopicARN = cfg.Alerts.TopicARN
		handler := re.NewHandler(c, deps.db, deps.alerts, log)
		set.Start(re.TaskType, config.GetWorkerConfig(cfg, re.TaskType), handler.Handle)
	}
}

func activityRegistry(cfg *config.Config) *registry.ActivityRegistry {
	return registry.New(cfg.App.Version, advisory.Activities(func(taskType string) bool {
		return config.IsWorkerEnabled(cfg, taskType)
	})...)
}
