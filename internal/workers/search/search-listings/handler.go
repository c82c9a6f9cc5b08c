// internal/workers/search/search-listings/handler.go
package searchlistings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"listing-search-workers/internal/common/errors"
	"listing-search-workers/internal/common/logger"
	"listing-search-workers/internal/common/metrics"
	"listing-search-workers/internal/common/validation"
	"listing-search-workers/internal/search"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "search-listings"

// Searcher runs one listing search. *search.Service satisfies it.
type Searcher interface {
	Search(ctx context.Context, q search.Query) *search.Response
}

type Handler struct {
	config     *Config
	searcher   Searcher
	schema     *validation.Schema
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, searcher Searcher, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = LoadConfig()
	}
	cfg := *config
	if cfg.InputSchema == nil {
		cfg.InputSchema = DefaultInputSchema()
	}

	schema, err := validation.CompileSchema(cfg.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("%s input schema: %w", TaskType, err)
	}

	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     &cfg,
		searcher:   searcher,
		schema:     schema,
		logger:     l,
		errHandler: errors.NewErrorHandler(l),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job.Variables)
	if err != nil {
		if stdErr, ok := errors.AsStandardError(err); ok {
			metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		}
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output := h.execute(ctx, input)
	h.completeJob(ctx, client, job, output)
}

// parseInput validates the variables against the schema before decoding.
func (h *Handler) parseInput(variables string) (*Input, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &doc); err != nil {
		return nil, errors.NewParseError(err)
	}

	result, err := h.schema.Validate(doc)
	if err != nil {
		return nil, errors.NewParseError(err)
	}
	if !result.Valid {
		return nil, errors.NewInvalidQueryParamsError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewParseError(err)
	}
	return &input, nil
}

// execute never fails: store errors surface as a type "error" response so
// the process can branch on searchResult.type.
func (h *Handler) execute(ctx context.Context, input *Input) *Output {
	query := search.Normalize(search.RawParamsFromVariables(input.RawParams))
	resp := h.searcher.Search(ctx, query)

	h.logger.Info("search finished", map[string]interface{}{
		"resultType": string(resp.Type),
		"returned":   len(resp.Listings),
	})
	return &Output{SearchResult: resp}
}

// Execute exposes execute for tests.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	return h.execute(ctx, input)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}
