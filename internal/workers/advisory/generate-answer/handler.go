package generateanswer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "agri-evidence-workers/internal/common/errors"
	commonhttp "agri-evidence-workers/internal/common/http"
	"agri-evidence-workers/internal/common/logger"
	"agri-evidence-workers/internal/common/metrics"
	"agri-evidence-workers/internal/evidence"
)

const (
	TaskType = "generate-answer"

	noEvidenceAnswer = "No relevant sources were found for this question. Please contact your local extension officer for advice."
	emptyAnswer      = "I don't have enough information to answer that question."
)

var (
	ErrInvalidInput       = errors.New("INPUT_VALIDATION_FAILED")
	ErrLLMTimeout         = errors.New("LLM_TIMEOUT")
	ErrLLMSynthesisFailed = errors.New("LLM_SYNTHESIS_FAILED")
)

type Handler struct {
	config    *Config
	client    *commonhttp.Client
	formatter *evidence.CitationFormatter
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

// NewHandler relies on the job context for deadlines; the HTTP client has
// no timeout of its own.
func NewHandler(config *Config, formatter *evidence.CitationFormatter, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		client:    commonhttp.NewClient(0),
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
		h.fail(client, job, fmt.Errorf("%w: parse input: %v", ErrInvalidInput, err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(client, job, err)
		return
	}

	// the generation deadline may be spent; reporting gets a fresh one
	sendCtx, sendCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer sendCancel()

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(sendCtx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if len(input.Sources) == 0 {
		return &Output{Answer: noEvidenceAnswer, Grounded: false}, nil
	}

	req := generateRequest{
		Model:       h.config.Model,
		Prompt:      buildPrompt(input, h.formatter, h.config.ExtensionService),
		MaxTokens:   h.config.MaxTokens,
		Temperature: h.config.Temperature,
	}
	headers := map[string]string{}
	if h.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + h.config.APIKey
	}

	var resp generateResponse
	var lastErr error
	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(200*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrLLMTimeout
			}
		}

		lastErr = h.client.PostJSON(ctx, h.config.GenAIBaseURL+"/api/ai/generate", headers, req, &resp)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ErrLLMTimeout
		}
		var statusErr *commonhttp.StatusError
		if errors.As(lastErr, &statusErr) && !statusErr.Retryable() {
			break
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMSynthesisFailed, lastErr)
	}

	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		answer = emptyAnswer
	}

	h.logger.Info("answer generated", map[string]interface{}{
		"sourceCount":  len(input.Sources),
		"answerLength": len(answer),
	})

	return &Output{
		Answer:   answer,
		Model:    resp.Model,
		Grounded: true,
	}, nil
}

// fail reports on a fresh context; the job deadline may already be spent.
func (h *Handler) fail(client worker.JobClient, job entities.Job, err error) {
	var stdErr *apperrors.StandardError
	switch {
	case errors.Is(err, ErrInvalidInput):
		stdErr = apperrors.NewInputValidationError(err.Error())
	case errors.Is(err, ErrLLMTimeout):
		stdErr = apperrors.NewLLMTimeoutError(h.config.Timeout)
	default:
		stdErr = apperrors.NewLLMSynthesisFailedError(err)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()

	reportCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h.errors.HandleJobError(reportCtx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
