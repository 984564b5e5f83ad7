package assembleadvisory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "agri-evidence-workers/internal/common/errors"
	"agri-evidence-workers/internal/common/logger"
	"agri-evidence-workers/internal/common/metrics"
	"agri-evidence-workers/internal/common/validation"
	"agri-evidence-workers/internal/evidence"
)

const (
	TaskType = "assemble-advisory"
)

var (
	ErrInvalidInput   = errors.New("INPUT_VALIDATION_FAILED")
	ErrAssemblyFailed = errors.New("RESPONSE_ASSEMBLY_FAILED")
)

var (
	citationMarker = regexp.MustCompile(`\[\d+\]`)
	schema         = validation.MustCompile(advisorySchema)
)

type Handler struct {
	config *Config
	now    func() time.Time
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		now:    time.Now,
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
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.Answer) == "" {
		return nil, fmt.Errorf("%w: answer is required", ErrInvalidInput)
	}

	citations := input.Citations
	if citations == nil {
		citations = []evidence.Citation{}
	}

	response := strings.TrimSpace(input.Answer)
	if !citationMarker.MatchString(response) {
		response = evidence.InlineCitations(response, len(citations))
	}

	notices := []string{}
	hasConflicts := false
	if r := input.Reconciliation; r != nil {
		hasConflicts = r.HasConflicts
		for _, c := range r.Conflicts {
			if c.Display != "" {
				notices = append(notices, c.Display)
			}
		}
	}

	advisory := &Advisory{
		Query:          input.Query,
		Response:       response,
		Sources:        citations,
		Confidence:     input.Confidence,
		Reconciliation: input.Reconciliation,
		Notices:        notices,
		Metadata: Metadata{
			GeneratedAt:    h.now().UTC().Format(time.RFC3339),
			SourceCount:    len(citations),
			HasConflicts:   hasConflicts,
			ServiceVersion: h.config.AppVersion,
		},
	}
	if input.Confidence != nil {
		advisory.Metadata.ConfidenceRating = string(input.Confidence.Rating)
	}

	if result := schema.Validate(advisory); !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrAssemblyFailed, result.Error())
	}

	h.logger.Info("advisory assembled", map[string]interface{}{
		"sourceCount":  len(citations),
		"hasConflicts": hasConflicts,
		"notices":      len(notices),
	})

	return &Output{Advisory: advisory}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	var stdErr *apperrors.StandardError
	if errors.Is(err, ErrInvalidInput) {
		stdErr = apperrors.NewInputValidationError(err.Error())
	} else {
		stdErr = apperrors.NewResponseAssemblyFailedError(err.Error())
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(input *Input) (*Output, error) {
	return h.execute(input)
}
