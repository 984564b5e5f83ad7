package reconcilesources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "agri-evidence-workers/internal/common/errors"
	"agri-evidence-workers/internal/common/logger"
	"agri-evidence-workers/internal/common/metrics"
	"agri-evidence-workers/internal/common/validation"
	"agri-evidence-workers/internal/evidence"
)

const (
	TaskType = "reconcile-sources"
)

var (
	ErrInvalidInput         = errors.New("INPUT_VALIDATION_FAILED")
	ErrReconciliationFailed = errors.New("RECONCILIATION_FAILED")
)

var schema = validation.MustCompile(inputSchema)

type Handler struct {
	config     *Config
	reconciler *evidence.Reconciler
	cache      *reportCache
	tracer     trace.Tracer
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
}

// NewHandler builds the worker. A nil redis client disables caching.
func NewHandler(config *Config, reconciler *evidence.Reconciler, rdb *redis.Client, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	h := &Handler{
		config:     config,
		reconciler: reconciler,
		tracer:     otel.Tracer("agri-evidence-workers/" + TaskType),
		errors:     apperrors.NewErrorHandler(scoped),
		logger:     scoped,
	}
	if rdb != nil {
		h.cache = &reportCache{client: rdb, ttl: config.CacheTTL}
	}
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	if result := schema.ValidateJSON(variables); !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, result.Error())
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Sources) < h.config.MinSources {
		h.logger.Info("reconciliation skipped", map[string]interface{}{
			"sourceCount": len(input.Sources),
			"minSources":  h.config.MinSources,
		})
		return &Output{
			Reconciled:    false,
			SkippedReason: fmt.Sprintf("at least %d sources are required, got %d", h.config.MinSources, len(input.Sources)),
		}, nil
	}

	ctx, span := h.tracer.Start(ctx, "reconcile-sources.reconcile", trace.WithAttributes(
		attribute.Int("evidence.sources", len(input.Sources)),
	))
	defer span.End()

	key, err := CacheKey(h.config.CachePrefix, input.Query, input.Sources)
	if err != nil {
		return nil, fmt.Errorf("%w: cache key: %v", ErrReconciliationFailed, err)
	}

	if report, ok := h.lookup(ctx, key); ok {
		span.SetAttributes(attribute.Bool("evidence.cache_hit", true))
		return newOutput(report, true), nil
	}

	report := h.reconciler.Reconcile(input.Sources, input.Query)
	for _, c := range report.Conflicts {
		metrics.ConflictsDetected.WithLabelValues(string(c.ConflictType), string(c.Severity)).Inc()
	}
	span.SetAttributes(
		attribute.Bool("evidence.cache_hit", false),
		attribute.Int("evidence.conflicts", report.ConflictsFound),
	)

	h.store(ctx, key, report)

	h.logger.Info("sources reconciled", map[string]interface{}{
		"totalRecommendations": report.TotalRecommendations,
		"conflictsFound":       report.ConflictsFound,
		"highSeverity":         report.HighSeverityConflicts(),
	})

	return newOutput(report, false), nil
}

// lookup treats cache failures as misses.
func (h *Handler) lookup(ctx context.Context, key string) (*evidence.ReconciliationReport, bool) {
	if h.cache == nil {
		return nil, false
	}
	report, err := h.cache.get(ctx, key)
	switch {
	case err != nil:
		metrics.ReconcileCache.WithLabelValues("error").Inc()
		h.logger.Warn("reconcile cache read failed", map[string]interface{}{"error": err})
		return nil, false
	case report == nil:
		metrics.ReconcileCache.WithLabelValues("miss").Inc()
		return nil, false
	default:
		metrics.ReconcileCache.WithLabelValues("hit").Inc()
		return report, true
	}
}

func (h *Handler) store(ctx context.Context, key string, report *evidence.ReconciliationReport) {
	if h.cache == nil {
		return
	}
	if err := h.cache.set(ctx, key, report); err != nil {
		h.logger.Warn("reconcile cache write failed", map[string]interface{}{"error": err})
	}
}

func newOutput(report *evidence.ReconciliationReport, cacheHit bool) *Output {
	return &Output{
		Reconciled:            true,
		Reconciliation:        report,
		HasConflicts:          report.HasConflicts,
		HighSeverityConflicts: report.HighSeverityConflicts(),
		CacheHit:              cacheHit,
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	var stdErr *apperrors.StandardError
	switch {
	case errors.Is(err, ErrInvalidInput):
		stdErr = apperrors.NewInputValidationError(err.Error())
	default:
		stdErr = apperrors.NewReconciliationFailedError(err)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
