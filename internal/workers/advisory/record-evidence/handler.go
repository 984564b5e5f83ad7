package recordevidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	awsclient "agri-evidence-workers/internal/common/aws"
	apperrors "agri-evidence-workers/internal/common/errors"
	"agri-evidence-workers/internal/common/logger"
	"agri-evidence-workers/internal/common/metrics"
	"agri-evidence-workers/internal/evidence"
)

const (
	TaskType = "record-evidence"
)

var (
	ErrInvalidInput       = errors.New("INPUT_VALIDATION_FAILED")
	ErrRecordFailed       = errors.New("EVIDENCE_RECORD_FAILED")
	ErrAlertPublishFailed = errors.New("ALERT_PUBLISH_FAILED")
)

var recordNamespace = uuid.MustParse("6f1c2b0e-4d7a-4f5e-9b1a-3c8d2e7f9a40")

const insertRecord = `
	INSERT INTO evidence_records (
		id, process_key, query, total_sources, conflicts_found, high_severity,
		confidence_score, confidence_rating, report, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO NOTHING`

type Handler struct {
	config    *Config
	db        *sql.DB
	publisher awsclient.SNSPublisher
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

// NewHandler builds the worker. publisher may be nil when alerts are off.
func NewHandler(config *Config, db *sql.DB, publisher awsclient.SNSPublisher, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		db:        db,
		publisher: publisher,
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

	output, err := h.execute(ctx, &input, JobRef{JobKey: job.Key, ProcessKey: job.ProcessInstanceKey})
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

func (h *Handler) execute(ctx context.Context, input *Input, ref JobRef) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	// reconcile-sources skips below its source minimum; record an empty report
	if input.Reconciliation == nil {
		input.Reconciliation = &evidence.ReconciliationReport{
			ConsensusRecommendations: []evidence.ConsensusEntry{},
			Conflicts:                []evidence.Conflict{},
		}
	}

	report, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("%w: encode report: %v", ErrRecordFailed, err)
	}

	id := RecordID(ref)
	high := input.Reconciliation.HighSeverityConflicts()

	var score sql.NullFloat64
	var rating sql.NullString
	if input.Confidence != nil {
		score = sql.NullFloat64{Float64: input.Confidence.Score, Valid: true}
		rating = sql.NullString{String: string(input.Confidence.Rating), Valid: true}
	}

	_, err = h.db.ExecContext(ctx, insertRecord,
		id.String(),
		ref.ProcessKey,
		input.Query,
		input.Reconciliation.TotalSources,
		input.Reconciliation.ConflictsFound,
		high,
		score,
		rating,
		string(report),
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordFailed, err)
	}

	h.logger.Info("evidence recorded", map[string]interface{}{
		"evidenceRecordId": id.String(),
		"conflictsFound":   input.Reconciliation.ConflictsFound,
		"highSeverity":     high,
	})

	output := &Output{EvidenceRecordID: id.String(), HighSeverityConflicts: high}

	if high > 0 && h.config.AlertsEnabled && h.publisher != nil {
		if err := h.publishAlert(ctx, id.String(), ref, input, high); err != nil {
			return nil, err
		}
		output.AlertSent = true
	}

	return output, nil
}

func (h *Handler) publishAlert(ctx context.Context, id string, ref JobRef, input *Input, high int) error {
	msg := alertMessage{
		EvidenceRecordID: id,
		ProcessKey:       ref.ProcessKey,
		Query:            input.Query,
		HighSeverity:     high,
		Conflicts:        []string{},
	}
	for _, c := range input.Reconciliation.Conflicts {
		if c.Display != "" {
			msg.Conflicts = append(msg.Conflicts, c.Display)
		}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAlertPublishFailed, err)
	}

	_, err = h.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.config.TopicARN),
		Subject:  aws.String(fmt.Sprintf("%d high-severity evidence conflict(s)", high)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"high_severity": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.Itoa(high)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAlertPublishFailed, err)
	}

	h.logger.Warn("high-severity conflict alert published", map[string]interface{}{
		"evidenceRecordId": id,
		"highSeverity":     high,
	})
	return nil
}

// RecordID derives the row id from the job identity; retries map to the same row.
func RecordID(ref JobRef) uuid.UUID {
	name := strconv.FormatInt(ref.ProcessKey, 10) + ":" + strconv.FormatInt(ref.JobKey, 10)
	return uuid.NewSHA1(recordNamespace, []byte(name))
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	var stdErr *apperrors.StandardError
	switch {
	case errors.Is(err, ErrInvalidInput):
		stdErr = apperrors.NewInputValidationError(err.Error())
	case errors.Is(err, ErrAlertPublishFailed):
		stdErr = apperrors.NewAlertPublishFailedError(err)
	default:
		stdErr = apperrors.NewEvidenceRecordFailedError(err)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input, ref JobRef) (*Output, error) {
	return h.execute(ctx, input, ref)
}
