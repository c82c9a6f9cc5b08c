// internal/search/service.go
package search

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"listing-search-workers/internal/common/errors"
	"listing-search-workers/internal/common/logger"
	"listing-search-workers/internal/common/metrics"
	"listing-search-workers/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "listing-search-workers/internal/search"

// Fallback reasons, used as metric labels.
const (
	ReasonNoCandidates = "no_candidates"
	ReasonGeoFiltered  = "geo_filtered"
)

// ResultType classifies a Response.
type ResultType string

const (
	ResultExact   ResultType = "exact"
	ResultClosest ResultType = "closest"
	ResultError   ResultType = "error"
)

// FindOptions carries the read limit. Stores always order by createdAt desc
// and include rooms and images.
type FindOptions struct {
	Take int `json:"take"`
}

// Store is the read side of listing persistence.
type Store interface {
	FindMany(ctx context.Context, filter Filter, opts FindOptions) ([]models.Listing, error)
}

// ScoredListing is a listing with its score for one search.
type ScoredListing struct {
	models.Listing
	Score         int     `json:"score"`
	DistanceKm    float64 `json:"distanceKm"`
	EmbeddingText string  `json:"embeddingText"`
}

func newScoredListing(l models.Listing, score int, distanceKm float64) ScoredListing {
	return ScoredListing{
		Listing:       l,
		Score:         score,
		DistanceKm:    distanceKm,
		EmbeddingText: EmbeddingText(l),
	}
}

// Response is the result of one search, shared by the HTTP API and the
// search-listings worker.
type Response struct {
	Type       ResultType      `json:"type"`
	Message    string          `json:"message,omitempty"`
	Listings   []ScoredListing `json:"listings"`
	NextCursor *string         `json:"nextCursor"`
}

// ErrorResponse is the body returned for any failed search.
func ErrorResponse() *Response {
	return &Response{
		Type:     ResultError,
		Message:  "Failed to fetch listings.",
		Listings: []ScoredListing{},
	}
}

// Service runs listing searches against a Store.
type Service struct {
	store  Store
	cfg    Config
	logger logger.Logger
	tracer trace.Tracer
}

// NewService builds a Service; zero Config fields take their defaults.
func NewService(store Store, cfg Config, log logger.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg.withDefaults(),
		logger: log.WithFields(map[string]interface{}{"component": "search"}),
		tracer: otel.Tracer(tracerName),
	}
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Search runs the primary stage and, when it finds nothing, the fallback
// stage. It never returns an error: failures become a ResultError response.
func (s *Service) Search(ctx context.Context, q Query) (resp *Response) {
	searchID := uuid.NewString()
	log := s.logger.WithFields(map[string]interface{}{"searchId": searchID})
	if fields := logger.FieldsFromContext(ctx); len(fields) > 0 {
		log = log.WithFields(fields)
	}

	ctx, span := s.tracer.Start(ctx, "listing.search", trace.WithAttributes(
		attribute.String("search.id", searchID),
		attribute.Bool("search.cursor", q.Cursor != ""),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("search panicked: %v", r)
			log.Error("listing search failed", map[string]interface{}{"error": err.Error()})
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			resp = ErrorResponse()
		}
		metrics.SearchDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
		metrics.SearchTotal.WithLabelValues(string(resp.Type)).Inc()
		span.SetAttributes(
			attribute.String("search.result_type", string(resp.Type)),
			attribute.Int("search.returned", len(resp.Listings)),
		)
	}()

	resp, err := s.search(ctx, q, log)
	if err != nil {
		log.Error("listing search failed", map[string]interface{}{
			"error":     err.Error(),
			"errorCode": string(errorCode(err)),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ErrorResponse()
	}

	log.Info("listing search completed", map[string]interface{}{
		"resultType": string(resp.Type),
		"returned":   len(resp.Listings),
		"hasNext":    resp.NextCursor != nil,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return resp
}

func (s *Service) search(ctx context.Context, q Query, log logger.Logger) (*Response, error) {
	stageStart := time.Now()
	candidates, err := s.find(ctx, StrictFilter(q), s.cfg.PrimaryTake)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return s.fallback(ctx, q, ReasonNoCandidates, log)
	}

	ranked := s.rankPrimary(q, candidates)
	if len(ranked) == 0 {
		return s.fallback(ctx, q, ReasonGeoFiltered, log)
	}

	resultType := ResultClosest
	if hasPerfectScore(ranked) {
		resultType = ResultExact
	}
	page, next := paginate(ranked, q.Cursor, s.cfg.BatchSize)
	metrics.SearchDuration.WithLabelValues("primary").Observe(time.Since(stageStart).Seconds())

	log.Debug("primary stage ranked candidates", map[string]interface{}{
		"candidates": len(candidates),
		"ranked":     len(ranked),
	})

	return &Response{Type: resultType, Listings: page, NextCursor: next}, nil
}

func (s *Service) fallback(ctx context.Context, q Query, reason string, log logger.Logger) (*Response, error) {
	metrics.SearchFallbacks.WithLabelValues(reason).Inc()
	ctx, span := s.tracer.Start(ctx, "listing.search.fallback", trace.WithAttributes(
		attribute.String("search.fallback_reason", reason),
	))
	defer span.End()

	stageStart := time.Now()
	candidates, err := s.find(ctx, RelaxedFilter(q), s.cfg.FallbackTake)
	if err != nil {
		return nil, err
	}

	ranked := s.rankFallback(q, candidates)
	page, next := paginate(ranked, q.Cursor, s.cfg.BatchSize)
	metrics.SearchDuration.WithLabelValues("fallback").Observe(time.Since(stageStart).Seconds())

	log.Debug("fallback stage ranked candidates", map[string]interface{}{
		"reason":     reason,
		"candidates": len(candidates),
		"ranked":     len(ranked),
	})

	return &Response{
		Type:       ResultClosest,
		Message:    FallbackMessage,
		Listings:   page,
		NextCursor: next,
	}, nil
}

func (s *Service) find(ctx context.Context, f Filter, take int) ([]models.Listing, error) {
	if s.cfg.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.StoreTimeout)
		defer cancel()
	}

	listings, err := s.store.FindMany(ctx, f, FindOptions{Take: take})
	if err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}
	if len(listings) > take {
		listings = listings[:take]
	}
	return listings, nil
}

func (s *Service) origin(q Query) Point {
	if p, ok := q.Origin(); ok {
		return p
	}
	return s.cfg.DefaultOrigin
}

// errorCode classifies a failed search for logs.
func errorCode(err error) errors.ErrorCode {
	if stdErr, ok := errors.AsStandardError(err); ok {
		return stdErr.Code
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.ErrCodeSearchTimeout
	}
	return errors.ErrCodeSearchQueryFailed
}
