package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/nyaya/internal/answer"
	"github.com/hyperjump/nyaya/internal/confidence"
	"github.com/hyperjump/nyaya/internal/config"
	"github.com/hyperjump/nyaya/internal/embedding"
	"github.com/hyperjump/nyaya/internal/indexer"
	"github.com/hyperjump/nyaya/internal/intent"
	"github.com/hyperjump/nyaya/internal/keyword"
	"github.com/hyperjump/nyaya/internal/llm"
	"github.com/hyperjump/nyaya/internal/proof"
	"github.com/hyperjump/nyaya/internal/ranking"
	"github.com/hyperjump/nyaya/internal/retrieval"
	"github.com/hyperjump/nyaya/internal/storage"
	"github.com/hyperjump/nyaya/internal/store"
	"github.com/hyperjump/nyaya/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services. Clients are built once here and shared.
type Components struct {
	Store        store.VectorStore
	Local        *store.LocalStore // nil for the pgvector backend
	Indexer      *indexer.Indexer
	Orchestrator *answer.Orchestrator
}

// Close releases the store and everything it owns.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// initOptions.withGeneration is off for index, delete and status so they run
// without LLM credentials.
type initOptions struct {
	withGeneration bool
	debug          bool
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts initOptions) (*Components, error) {
	embedder, err := embedding.NewEmbedder(ctx, cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	c := &Components{}
	var sources storage.Storage
	switch cfg.Storage.Backend {
	case "pgvector":
		pg, err := store.NewPGVectorStore(ctx, cfg.Storage.PostgresURL, cfg.Storage.PostgresTable, embedder, logger)
		if err != nil {
			_ = embedder.Close()
			return nil, fmt.Errorf("failed to initialize pgvector store: %w", err)
		}
		c.Store = pg
	default:
		local, st, err := openLocalStore(ctx, cfg, embedder, logger)
		if err != nil {
			return nil, err
		}
		c.Store, c.Local, sources = local, local, st
	}
	logger.Info("vector store initialized",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("embedder", cfg.Embedding.Provider),
		zap.Int("dimensions", embedder.Dimensions()))

	idxOpts := []indexer.IndexerOption{}
	if opts.debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	if sources != nil {
		idxOpts = append(idxOpts, indexer.WithSourceTracking(sources))
	}
	c.Indexer = indexer.NewIndexer(c.Store, idxOpts...)

	if opts.withGeneration {
		generator, err := llm.NewGenerator(ctx, cfg.Generation, logger)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
		c.Orchestrator = newOrchestrator(cfg, c.Store, generator, logger)
	}
	return c, nil
}

func openLocalStore(ctx context.Context, cfg *config.Config, embedder embedding.Embedder, logger *zap.Logger) (*store.LocalStore, storage.Storage, error) {
	st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		_ = embedder.Close()
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	meta, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = errors.Join(st.Close(), embedder.Close())
		return nil, nil, fmt.Errorf("failed to initialize metadata index: %w", err)
	}
	vectors, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		_ = errors.Join(meta.Close(), st.Close(), embedder.Close())
		return nil, nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	local, err := store.NewLocalStore(ctx, st, meta, vectors, embedder,
		store.WithLogger(logger),
		store.WithSnapshotPath(cfg.Storage.VectorIndexPath),
		store.WithDiskPaths(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath, cfg.Storage.VectorIndexPath),
	)
	if err != nil {
		_ = errors.Join(vectors.Close(), meta.Close(), st.Close(), embedder.Close())
		return nil, nil, fmt.Errorf("failed to open local store: %w", err)
	}
	return local, st, nil
}

func newOrchestrator(cfg *config.Config, st store.VectorStore, generator llm.Generator, logger *zap.Logger) *answer.Orchestrator {
	lex := cfg.Lexicon
	ranker := ranking.NewRanker(&ranking.RankingConfig{FinalK: cfg.Retrieval.FinalK}, lex.PunishmentAnchors)
	return answer.NewOrchestrator(
		intent.NewClassifier(lex),
		retrieval.NewRetriever(st, ranker, cfg.Retrieval, retrieval.WithLogger(logger)),
		confidence.NewScorer(cfg.Confidence, lex.ConfidenceTerms),
		proof.NewBuilder(cfg.Generation.SnippetChars),
		generator,
		cfg.Generation,
		answer.WithLogger(logger),
	)
}
