// Package engine wires the analyzer, index, document store, and searcher into
// the operations the server and CLI expose: rebuild, search, optimize, and
// status.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kensaku/internal/analysis"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/crawler"
	"github.com/hyperjump/kensaku/internal/extract"
	"github.com/hyperjump/kensaku/internal/index"
	"github.com/hyperjump/kensaku/internal/metrics"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/storage"
)

// textCacheSize bounds the snippet text cache in documents.
const textCacheSize = 512

// Engine owns the index lifecycle and evaluates queries.
type Engine struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *storage.CachedStore
	index     *index.Index
	analyzer  *analysis.Analyzer
	extractor *extract.Extractor
	searcher  *search.Searcher
	metrics   *metrics.Metrics
}

// SearchResponse is the result of one query.
type SearchResponse struct {
	Query       string       `json:"query"`
	Results     []search.Hit `json:"results"`
	Total       int          `json:"total"`
	QueryTimeMS float64      `json:"query_time_ms"`
}

// Status describes the current state of the index.
type Status struct {
	Documents   int     `json:"documents"`
	Segments    int     `json:"segments"`
	Terms       int     `json:"terms"`
	DiskBytes   int64   `json:"disk_bytes"`
	AvgDocLen   float64 `json:"avg_doc_length"`
	CorpusRoot  string  `json:"corpus_root"`
	ScorerName  string  `json:"scorer"`
	WatchActive bool    `json:"watch_active"`
}

// New builds an Engine from the configuration. The index directory is locked
// for the lifetime of the engine.
func New(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	sqlStore, err := storage.NewSQLiteStore(cfg.Index.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}
	store, err := storage.NewCachedStore(sqlStore, textCacheSize)
	if err != nil {
		_ = sqlStore.Close()
		return nil, err
	}

	analyzer := analysis.New(cfg.Analysis.Stopwords, cfg.Analysis.MinTokenLength)
	ix, err := index.Open(cfg.Index.Dir, store, analyzer,
		index.WithLogger(logger),
		index.WithMaxDocuments(cfg.Index.MaxDocuments),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	scorer, err := search.NewScorer(cfg.Search.Scorer)
	if err != nil {
		_ = ix.Close()
		_ = store.Close()
		return nil, err
	}

	m := metrics.New()
	eng := &Engine{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		index:     ix,
		analyzer:  analyzer,
		extractor: extract.NewExtractor(),
		searcher: search.NewSearcher(analyzer, scorer, store, cfg.Search.SnippetWindow,
			search.WithLogger(logger)),
		metrics: m,
	}
	eng.syncGauges()
	return eng, nil
}

// Search evaluates query against the current snapshot. limit <= 0 uses the
// configured default; limits above the configured maximum are clamped.
func (e *Engine) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	if limit <= 0 {
		limit = e.cfg.Search.DefaultLimit
	}
	if e.cfg.Search.MaxLimit > 0 && limit > e.cfg.Search.MaxLimit {
		limit = e.cfg.Search.MaxLimit
	}

	start := time.Now()
	sn := e.index.Acquire()
	defer sn.Close()
	hits, err := e.searcher.Search(ctx, sn, query, limit)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	e.metrics.SearchesTotal.Inc()
	e.metrics.SearchDuration.Observe(elapsed.Seconds())
	return &SearchResponse{
		Query:       query,
		Results:     hits,
		Total:       len(hits),
		QueryTimeMS: float64(elapsed.Microseconds()) / 1000,
	}, nil
}

// Rebuild crawls the corpus root, extracts every file, and replaces the index
// contents in one atomic swap. Queries keep hitting the previous index until
// the swap. Returns the number of documents indexed.
func (e *Engine) Rebuild(ctx context.Context) (int, error) {
	start := time.Now()
	paths, err := crawler.Crawl(e.cfg.Corpus.Root, e.cfg.Corpus.Extensions)
	if err != nil {
		return 0, err
	}
	e.logger.Info("rebuild started",
		zap.String("root", e.cfg.Corpus.Root),
		zap.Int("files", len(paths)),
	)

	rb := e.index.BeginRebuild()
	total := 0
	batchSize := e.cfg.Index.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	for off := 0; off < len(paths); off += batchSize {
		end := off + batchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch, err := e.extractBatch(ctx, paths[off:end])
		if err != nil {
			rb.Abort()
			return 0, err
		}
		if err := rb.Commit(ctx, batch); err != nil {
			rb.Abort()
			return 0, err
		}
		total += len(batch)
	}
	if err := rb.Apply(); err != nil {
		return 0, err
	}

	e.metrics.RebuildsTotal.Inc()
	e.metrics.RebuildDuration.Observe(time.Since(start).Seconds())
	e.syncGauges()
	e.logger.Info("rebuild finished",
		zap.Int("documents", total),
		zap.Duration("elapsed", time.Since(start)),
	)
	return total, nil
}

// extractBatch extracts the batch in parallel, preserving path order so
// document IDs are deterministic for a given file list. A file that fails to
// extract is indexed with empty text so one corrupt document never aborts a
// commit.
func (e *Engine) extractBatch(ctx context.Context, paths []string) ([]index.Doc, error) {
	texts := make([]string, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := e.extractor.Extract(path)
			if err != nil {
				e.logger.Warn("extraction failed, indexing empty text",
					zap.String("path", path), zap.Error(err))
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	docs := make([]index.Doc, 0, len(paths))
	for i, path := range paths {
		docs = append(docs, index.Doc{Path: path, Text: texts[i]})
	}
	return docs, nil
}

// AddFiles extracts the given files and commits them as one new segment
// without touching existing documents. Returns the number of documents added.
func (e *Engine) AddFiles(ctx context.Context, paths []string) (int, error) {
	batch, err := e.extractBatch(ctx, paths)
	if err != nil {
		return 0, err
	}
	n, err := e.index.Commit(ctx, batch)
	if err != nil {
		return 0, err
	}
	e.metrics.CommitsTotal.Inc()
	e.syncGauges()
	return n, nil
}

// Optimize merges all segments into one.
func (e *Engine) Optimize(ctx context.Context) error {
	before := e.index.SegmentCount()
	if err := e.index.Optimize(ctx); err != nil {
		return err
	}
	if before > 1 {
		e.metrics.MergesTotal.Inc()
	}
	e.syncGauges()
	return nil
}

// Status reports index statistics.
func (e *Engine) Status() (*Status, error) {
	sn := e.index.Acquire()
	defer sn.Close()
	disk, err := e.index.DiskUsageBytes()
	if err != nil {
		return nil, err
	}
	return &Status{
		Documents:   sn.DocCount(),
		Segments:    len(sn.Segments()),
		Terms:       sn.TermCount(),
		DiskBytes:   disk,
		AvgDocLen:   sn.AvgDocLength(),
		CorpusRoot:  e.cfg.Corpus.Root,
		ScorerName:  e.cfg.Search.Scorer,
		WatchActive: e.cfg.Watch.Enabled,
	}, nil
}

// Metrics exposes the engine's Prometheus collectors.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// Document returns stored metadata for a document ID.
func (e *Engine) Document(ctx context.Context, docID uint32) (*storage.Document, error) {
	return e.store.Get(ctx, docID)
}

// CorpusRoot returns the configured corpus root.
func (e *Engine) CorpusRoot() string { return e.cfg.Corpus.Root }

// Close releases the index lock and the document store.
func (e *Engine) Close() error {
	err := e.index.Close()
	if cerr := e.store.Close(); err == nil {
		err = cerr
	}
	return err
}

func (e *Engine) syncGauges() {
	e.metrics.DocumentsTotal.Set(float64(e.index.DocCount()))
	e.metrics.SegmentsTotal.Set(float64(e.index.SegmentCount()))
}
