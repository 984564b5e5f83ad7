package formatcitations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "agri-evidence-workers/internal/common/errors"
	"agri-evidence-workers/internal/common/logger"
	"agri-evidence-workers/internal/common/metrics"
	"agri-evidence-workers/internal/evidence"
)

const (
	TaskType = "format-citations"
)

var (
	ErrInvalidInput = errors.New("INPUT_VALIDATION_FAILED")
)

type Handler struct {
	config    *Config
	formatter *evidence.CitationFormatter
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, formatter *evidence.CitationFormatter, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		formatter: formatter,
		errors:    apperrors.NewErrorHandler(scoped),
		logger:    scoped,
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

	output, err := h.execute(&input)
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

func (h *Handler) execute(input *Input) (*Output, error) {
	if input.Agreement != nil && (*input.Agreement < 0 || *input.Agreement > 1) {
		return nil, fmt.Errorf("%w: agreement must be in [0,1], got %v", ErrInvalidInput, *input.Agreement)
	}

	report := h.formatter.Format(input.Sources, false)
	output := &Output{
		Citations:    report.Sources,
		TotalSources: report.TotalSources,
	}

	if input.IncludeConfidence == nil || *input.IncludeConfidence {
		agreement := h.formatter.DefaultAgreement()
		if input.Agreement != nil {
			agreement = *input.Agreement
		}
		confidence := h.formatter.ConfidenceScore(input.Sources, agreement)
		output.Confidence = &confidence
		if len(input.Sources) > 0 {
			metrics.ConfidenceScore.Observe(confidence.Score)
		}

		h.logger.Info("citations formatted", map[string]interface{}{
			"totalSources":    report.TotalSources,
			"confidenceScore": confidence.Score,
			"rating":          string(confidence.Rating),
		})
	}

	return output, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	var stdErr *apperrors.StandardError
	if errors.Is(err, ErrInvalidInput) {
		stdErr = apperrors.NewInputValidationError(err.Error())
	} else {
		stdErr = apperrors.NewCitationFormattingFailedError(err)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(input *Input) (*Output, error) {
	return h.execute(input)
}
