// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"listing-search-workers/internal/common/config"
	"listing-search-workers/internal/common/logger"
	"listing-search-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandlerFunc is the Zeebe job handler signature every worker exposes.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// JobRecorder receives per-job telemetry. *observability.Observability
// satisfies it.
type JobRecorder interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration)
}

// Job outcomes, as recorded by Instrument.
const (
	JobStatusCompleted   = "completed"
	JobStatusFailed      = "failed"
	JobStatusErrorThrown = "error_thrown"
	JobStatusUnanswered  = "unanswered"
)

// outcomeClient remembers the last command a handler issued for its job.
type outcomeClient struct {
	worker.JobClient
	status string
}

func (c *outcomeClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.status = JobStatusCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *outcomeClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.status = JobStatusFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *outcomeClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.status = JobStatusErrorThrown
	return c.JobClient.NewThrowErrorCommand()
}

// Instrument wraps handler with the active-jobs gauge, duration histograms,
// a job span and an outcome-labelled job counter. recorder may be nil.
func Instrument(taskType string, handler HandlerFunc, recorder JobRecorder) HandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		oc := &outcomeClient{JobClient: client, status: JobStatusUnanswered}

		ctx := context.Background()
		var span trace.Span
		if recorder != nil {
			ctx, span = recorder.StartSpan(ctx, "job "+taskType,
				attribute.String("job.task_type", taskType),
				attribute.Int64("job.key", job.GetKey()),
			)
		}

		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer func() {
			metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
			elapsed := time.Since(start)
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
			if recorder == nil {
				return
			}
			recorder.RecordJobDuration(ctx, taskType, elapsed)
			recorder.RecordJobProcessed(ctx, taskType, oc.status)
			span.SetAttributes(attribute.String("job.status", oc.status))
			if oc.status != JobStatusCompleted {
				span.SetStatus(codes.Error, oc.status)
			}
			span.End()
		}()
		handler(oc, job)
	}
}

// StartWorker opens a job worker for taskType. It returns nil when the
// worker is disabled in configuration.
func StartWorker(
	client zbc.Client,
	taskType string,
	wcfg config.WorkerConfig,
	handler HandlerFunc,
	log logger.Logger,
) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jobWorker
}
