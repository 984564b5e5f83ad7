package retrievesources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "agri-evidence-workers/internal/common/errors"
	"agri-evidence-workers/internal/common/logger"
	"agri-evidence-workers/internal/common/metrics"
)

const (
	TaskType = "retrieve-sources"
)

var (
	ErrInvalidInput    = errors.New("INPUT_VALIDATION_FAILED")
	ErrSearchFailed    = errors.New("SOURCE_RETRIEVAL_FAILED")
	ErrSearchTimeout   = errors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound   = errors.New("INDEX_NOT_FOUND")
	errEmptyQuery      = errors.New("query is required")
	errTopKOutOfBounds = errors.New("topK must be between 1 and 50")
)

type Handler struct {
	config *Config
	client *elasticsearch.Client
	tracer trace.Tracer
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		client: client,
		tracer: otel.Tracer("agri-evidence-workers/" + TaskType),
		errors: apperrors.NewErrorHandler(scoped),
		logger: scoped,
	}
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

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, fmt.Errorf("%w: parse input: %v", ErrInvalidInput, err))
		return
	}

	output, err := h.execute(ctx, &input)
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	input.Query = strings.TrimSpace(input.Query)
	if input.Query == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, errEmptyQuery)
	}
	topK := h.config.TopK
	if input.TopK != 0 {
		if input.TopK < 1 || input.TopK > 50 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, errTopKOutOfBounds)
		}
		topK = input.TopK
	}

	ctx, span := h.tracer.Start(ctx, "retrieve-sources.search", trace.WithAttributes(
		attribute.String("es.index", h.config.Index),
		attribute.Int("retrieval.top_k", topK),
	))
	defer span.End()

	hits, total, err := h.search(ctx, input, topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sources := toSources(hits, h.config.ScoreThreshold, topK)
	span.SetAttributes(attribute.Int("retrieval.sources", len(sources)))

	h.logger.Info("sources retrieved", map[string]interface{}{
		"totalHits":   total,
		"sourceCount": len(sources),
	})

	return &Output{
		Sources:     sources,
		SourceCount: len(sources),
		TotalHits:   total,
	}, nil
}

func (h *Handler) search(ctx context.Context, input *Input, size int) ([]searchHit, int, error) {
	req, err := buildSearchRequest(h.config.Index, input, size)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	res, err := req.Do(ctx, h.client)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, 0, ErrSearchTimeout
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, 0, fmt.Errorf("%w: %s", ErrIndexNotFound, h.config.Index)
	}
	if res.IsError() {
		return nil, 0, fmt.Errorf("%w: %s", ErrSearchFailed, res.Status())
	}

	var body searchResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, 0, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}
	return body.Hits.Hits, body.Hits.Total.Value, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := h.toStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) toStandardError(err error) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInputValidationError(err.Error())
	case errors.Is(err, ErrSearchTimeout):
		return apperrors.NewSearchTimeoutError(h.config.Timeout)
	case errors.Is(err, ErrIndexNotFound):
		return apperrors.NewIndexNotFoundError(h.config.Index)
	default:
		return apperrors.NewSourceRetrievalFailedError(err)
	}
}

// Execute runs a search outside the job lifecycle.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
