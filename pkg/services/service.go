package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/skiffdb/skiff/pkg/cache"
	"github.com/skiffdb/skiff/pkg/errors"
	"github.com/skiffdb/skiff/pkg/infrastructure/converter"
	"github.com/skiffdb/skiff/pkg/models"
	"github.com/skiffdb/skiff/pkg/repositories"
)

// queryService implements QueryService by composing the launcher, the
// poller, and the retriever. All cached state is scoped to one
// execution's lifetime, so the service is safe for concurrent use across
// independent queries.
type queryService struct {
	launcher   Launcher
	poller     Poller
	retriever  Retriever
	classifier *StatementClassifier
	logger     Logger
	metrics    MetricsCollector
}

// NewQueryService wires the orchestration pipeline. Both collaborator
// handles are required; their absence is a configuration error surfaced
// synchronously, before any network activity.
func NewQueryService(
	engine repositories.QueryEngine,
	store repositories.ObjectStore,
	zlog zerolog.Logger,
	logger Logger,
	metrics MetricsCollector,
) (QueryService, error) {
	if engine == nil {
		return nil, errors.ErrMissingEngine
	}
	if store == nil {
		return nil, errors.ErrMissingStore
	}

	schemas := cache.NewSchemaCache()
	materializer := converter.NewMaterializer(zlog)

	return &queryService{
		launcher:   NewLauncher(engine, logger, metrics),
		poller:     NewPoller(engine, schemas, logger, metrics),
		retriever:  NewRetriever(engine, store, materializer, schemas, logger, metrics),
		classifier: NewStatementClassifier(),
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Query runs the full pipeline for one query: submit, await completion,
// fetch results. Submission strictly precedes polling, which strictly
// precedes retrieval; the schema warmed on success is handed to the
// retriever explicitly through the completion result.
func (s *queryService) Query(ctx context.Context, req *models.ExecutionRequest, opts QueryOptions) (*models.Result, error) {
	timer := s.metrics.StartTimer("query_total")
	defer timer.Stop()

	if req == nil {
		return nil, errors.New(errors.CodeInvalidRequest, "execution request cannot be nil")
	}
	if err := s.classifier.ValidateStatement(req.Query); err != nil {
		return nil, err
	}
	opts.Fetch.Statement = s.classifier.ClassifyStatement(req.Query)

	start := time.Now()
	handle, err := s.launcher.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	completed, err := s.poller.AwaitCompletion(ctx, handle, opts.PollInterval)
	if err != nil {
		return nil, err
	}

	result, err := s.retriever.Fetch(ctx, handle, completed, opts.Fetch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("query pipeline finished",
		"handle", handle,
		"statement_type", opts.Fetch.Statement.String(),
		"elapsed", time.Since(start))
	return result, nil
}
