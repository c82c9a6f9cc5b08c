// cmd/tools/worker-generator/templates.go
package main

const configTemplate = `package {{ .PackageName }}

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	timeout, err := time.ParseDuration("{{ .Timeout }}")
	if err != nil {
		timeout = 10 * time.Second
	}
	return &Config{Timeout: timeout}
}
`

const modelsTemplate = `package {{ .PackageName }}

type Input struct {
{{ .InputFields }}
}

type Output struct {
{{ .OutputFields }}
}
`

const handlerTemplate = `package {{ .PackageName }}

import (
	"context"
	"encoding/json"

	"listing-search-workers/internal/common/errors"
	"listing-search-workers/internal/common/logger"
	"listing-search-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// TaskType is the Zeebe job type for {{ .Name }}.
{{- if .Description }}
// {{ .Description }}
{{- end }}
const TaskType = "{{ .TaskType }}"

type Handler struct {
	config     *Config
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		logger:     l,
		errHandler: errors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.ErrCodeParseError)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, errors.NewParseError(err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}
	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(_ context.Context, _ *Input) (*Output, error) {
	return &Output{}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}
`

const testTemplate = `package {{ .PackageName }}

import (
	"testing"

	"listing-search-workers/internal/common/camunda/zeebetest"
	"listing-search-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Job Handling Tests
// ==========================

func TestHandler_Handle_Completes(t *testing.T) {
	h := NewHandler(nil, logger.NewTestLogger(t))
	client := zeebetest.NewJobClient()

	h.Handle(client, zeebetest.NewJob(1, TaskType, map[string]interface{}{}))

	require.Len(t, client.Completed(), 1)
}

func TestHandler_Handle_BadPayload(t *testing.T) {
	h := NewHandler(nil, logger.NewTestLogger(t))
	client := zeebetest.NewJobClient()

	h.Handle(client, zeebetest.NewJob(2, TaskType, "{not json"))

	assert.Empty(t, client.Completed())
	require.Len(t, client.Thrown(), 1)
	assert.Equal(t, "PARSE_ERROR", client.Thrown()[0].ErrorCode)
}
`
