package camunda

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agri-evidence-workers/internal/common/config"
	"agri-evidence-workers/internal/common/logger"
	"agri-evidence-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// WorkerSet tracks the job workers opened by the manager so they can be
// closed together on shutdown.
type WorkerSet struct {
	client   zbc.Client
	logger   logger.Logger
	recorder JobRecorder
	mu       sync.Mutex
	workers  map[string]worker.JobWorker
}

// JobRecorder receives one observation per handled job.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, status string)
	RecordJobDuration(ctx context.Context, duration time.Duration, status string)
}

func NewWorkerSet(client zbc.Client, log logger.Logger) *WorkerSet {
	return &WorkerSet{
		client:  client,
		logger:  log,
		workers: make(map[string]worker.JobWorker),
	}
}

// WithRecorder attaches r to every worker started afterwards.
func (s *WorkerSet) WithRecorder(r JobRecorder) *WorkerSet {
	s.recorder = r
	return s
}

// Start opens a job worker for taskType unless it is disabled.
func (s *WorkerSet) Start(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) {
	if !wcfg.Enabled {
		s.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return
	}

	jw := s.client.NewJobWorker().
		JobType(taskType).
		Handler(Guard(taskType, Observe(s.recorder, handler), s.logger)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	s.mu.Lock()
	s.workers[taskType] = jw
	s.mu.Unlock()

	s.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})
}

// Running lists the task types with an open worker.
func (s *WorkerSet) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.workers))
	for taskType := range s.workers {
		out = append(out, taskType)
	}
	return out
}

// Close stops polling on every worker and waits for in-flight jobs.
func (s *WorkerSet) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for taskType, jw := range s.workers {
		jw.Close()
		jw.AwaitClose()
		s.logger.Info("worker stopped", map[string]interface{}{"taskType": taskType})
	}
	s.workers = make(map[string]worker.JobWorker)
}

// Guard keeps a panicking handler from taking down the poller. The job is
// left to time out and be re-activated by the broker.
func Guard(taskType string, handler worker.JobHandler, log logger.Logger) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				metrics.WorkerJobsFailed.WithLabelValues(taskType, "PANIC").Inc()
				log.Error("handler panicked", map[string]interface{}{
					"taskType": taskType,
					"jobKey":   job.Key,
					"panic":    fmt.Sprint(r),
					"elapsed":  time.Since(start).String(),
				})
			}
		}()
		handler(client, job)
	}
}

// Observe reports the outcome and duration of each job to rec. A job whose
// handler panicked is reported as "panicked".
func Observe(rec JobRecorder, handler worker.JobHandler) worker.JobHandler {
	if rec == nil {
		return handler
	}
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		status := "panicked"
		defer func() {
			ctx := context.Background()
			rec.RecordJobProcessed(ctx, status)
			rec.RecordJobDuration(ctx, time.Since(start), status)
		}()
		handler(client, job)
		status = "handled"
	}
}
