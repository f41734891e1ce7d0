// Package index maintains the live set of segments: the append-only commit
// path, the merge swap, full rebuilds, and copy-on-write snapshots for
// readers. A single mutation lock serializes all writers; readers acquire
// snapshots without blocking and keep seeing retired segments until they
// close.
package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/analysis"
	"github.com/hyperjump/kensaku/internal/segment"
	"github.com/hyperjump/kensaku/internal/storage"
)

// ErrIndexFull is returned when a commit would exceed the configured document
// cap. All postings are held in memory, so the cap bounds resident memory.
var ErrIndexFull = errors.New("index document cap reached")

// ErrLocked is returned when another process holds the index directory.
var ErrLocked = errors.New("index directory locked by another process")

// Doc is one document in a commit batch: its source path and extracted text.
type Doc struct {
	Path string
	Text string
}

// Index is the live segment set. Writers (Commit, Optimize, rebuilds) are
// mutually exclusive; readers acquire snapshots at any time.
type Index struct {
	dir      string
	store    storage.Store
	analyzer *analysis.Analyzer
	logger   *zap.Logger
	maxDocs  int
	flk      *flock.Flock

	mutation sync.Mutex // serializes Commit, Optimize, rebuilds

	mu        sync.RWMutex // guards live and nextDocID
	live      []*segment.Segment
	nextDocID uint32
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets a logger for commit/merge/release events.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// WithMaxDocuments caps the number of documents the index will hold
// (0 = unlimited).
func WithMaxDocuments(n int) Option {
	return func(ix *Index) { ix.maxDocs = n }
}

// Open loads the index in dir, creating it if empty. It takes an OS-level
// file lock on the directory so only one process mutates it; returns
// ErrLocked if another process already holds it.
func Open(dir string, store storage.Store, analyzer *analysis.Analyzer, opts ...Option) (*Index, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	flk := flock.New(filepath.Join(dir, "index.lock"))
	locked, err := flk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking index directory: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	ix := &Index{
		dir:      dir,
		store:    store,
		analyzer: analyzer,
		logger:   zap.NewNop(),
		flk:      flk,
	}
	for _, opt := range opts {
		opt(ix)
	}

	m, err := readManifest(dir)
	if err != nil {
		_ = flk.Unlock()
		return nil, err
	}
	for _, name := range m.Segments {
		seg, err := segment.Open(filepath.Join(dir, name))
		if err != nil {
			_ = flk.Unlock()
			return nil, err
		}
		ix.live = append(ix.live, seg)
	}
	ix.nextDocID = m.NextDocID
	ix.logger.Info("index opened",
		zap.String("dir", dir),
		zap.Int("segments", len(ix.live)),
		zap.Uint32("next_doc_id", ix.nextDocID),
	)
	return ix, nil
}

// Commit analyzes the batch, builds exactly one new immutable segment for it,
// persists segment and document texts, and atomically appends the segment to
// the live set. On any error nothing is appended and the set is unchanged.
// Returns the number of documents committed.
func (ix *Index) Commit(ctx context.Context, docs []Doc) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	ix.mutation.Lock()
	defer ix.mutation.Unlock()

	if err := ix.checkCapacity(len(docs)); err != nil {
		return 0, err
	}
	seg, next, err := ix.buildSegment(ctx, docs, ix.currentNextDocID())
	if err != nil {
		return 0, err
	}
	newLive := append(ix.copyLive(), seg)
	if err := ix.publish(newLive, next); err != nil {
		ix.discardSegment(ctx, seg)
		return 0, err
	}
	ix.logger.Info("segment committed",
		zap.String("segment", seg.ID()),
		zap.Int("documents", len(docs)),
	)
	return len(docs), nil
}

// Optimize merges all live segments into one and atomically swaps them for
// the merged result. Snapshots taken before the swap keep seeing the inputs;
// input files are deleted once the last such snapshot closes. An interrupted
// merge leaves the live set unchanged.
func (ix *Index) Optimize(ctx context.Context) error {
	ix.mutation.Lock()
	defer ix.mutation.Unlock()

	inputs := ix.copyLive()
	if len(inputs) < 2 {
		return nil
	}
	entries, docs := segment.Merge(inputs)
	id := uuid.New().String()
	file, err := segment.Write(ix.dir, id, entries, docs)
	if err != nil {
		return fmt.Errorf("writing merged segment: %w", err)
	}
	merged := segment.New(id, file, entries, docs)
	if err := ix.publish([]*segment.Segment{merged}, ix.currentNextDocID()); err != nil {
		_ = os.Remove(filepath.Join(ix.dir, file))
		return err
	}
	// The merged segment now owns the documents; retiring the inputs must
	// only delete their files, never purge stored text.
	for _, s := range inputs {
		s.Retire(ix.releaseFile)
	}
	ix.logger.Info("segments merged",
		zap.Int("inputs", len(inputs)),
		zap.String("segment", merged.ID()),
		zap.Int("documents", merged.DocCount()),
	)
	return nil
}

// Acquire returns a snapshot of the current live set. It never blocks on
// writers. The caller must Close the snapshot.
func (ix *Index) Acquire() *Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	segs := append([]*segment.Segment(nil), ix.live...)
	for _, s := range segs {
		s.AddRef()
	}
	return &Snapshot{segs: segs}
}

// DocCount returns the number of documents in the live set.
func (ix *Index) DocCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.liveDocCount()
}

// SegmentCount returns the number of live segments.
func (ix *Index) SegmentCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.live)
}

// NextDocID returns the next document ID to be assigned.
func (ix *Index) NextDocID() uint32 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.nextDocID
}

// DiskUsageBytes returns the total size of the segment files and manifest.
func (ix *Index) DiskUsageBytes() (int64, error) {
	var total int64
	entries, err := os.ReadDir(ix.dir)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// Close releases the directory lock. In-flight snapshots stay valid.
func (ix *Index) Close() error {
	return ix.flk.Unlock()
}

func (ix *Index) liveDocCount() int {
	n := 0
	for _, s := range ix.live {
		n += s.DocCount()
	}
	return n
}

func (ix *Index) checkCapacity(adding int) error {
	if ix.maxDocs <= 0 {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.liveDocCount()+adding > ix.maxDocs {
		return ErrIndexFull
	}
	return nil
}

func (ix *Index) currentNextDocID() uint32 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.nextDocID
}

func (ix *Index) copyLive() []*segment.Segment {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]*segment.Segment(nil), ix.live...)
}

// buildSegment assigns document IDs starting at firstID, analyzes the batch,
// writes the segment file, and stores the document texts transactionally.
// Returns the in-memory segment and the next unassigned ID.
func (ix *Index) buildSegment(ctx context.Context, docs []Doc, firstID uint32) (*segment.Segment, uint32, error) {
	b := segment.NewBuilder(ix.analyzer)
	stored := make([]storage.Document, 0, len(docs))
	next := firstID
	for _, doc := range docs {
		info := b.Add(next, doc.Path, doc.Text)
		stored = append(stored, storage.Document{
			DocID:   info.DocID,
			Path:    info.Path,
			Length:  info.Length,
			Content: doc.Text,
		})
		next++
	}
	id := uuid.New().String()
	entries := b.Entries()
	docInfos := b.Docs()
	file, err := segment.Write(ix.dir, id, entries, docInfos)
	if err != nil {
		return nil, 0, fmt.Errorf("writing segment: %w", err)
	}
	if err := ix.store.SaveDocuments(ctx, stored); err != nil {
		_ = os.Remove(filepath.Join(ix.dir, file))
		return nil, 0, fmt.Errorf("storing documents: %w", err)
	}
	return segment.New(id, file, entries, docInfos), next, nil
}

// publish writes the manifest for the new live set and, only on success,
// swaps it in. A manifest failure leaves the previous set live.
func (ix *Index) publish(newLive []*segment.Segment, nextDocID uint32) error {
	files := make([]string, len(newLive))
	for i, s := range newLive {
		files[i] = s.File()
	}
	if err := writeManifest(ix.dir, &manifest{Segments: files, NextDocID: nextDocID}); err != nil {
		return err
	}
	ix.mu.Lock()
	ix.live = newLive
	ix.nextDocID = nextDocID
	ix.mu.Unlock()
	return nil
}

// discardSegment undoes a built-but-unpublished segment: file and stored
// texts are removed. The ID counter never advanced, so the batch leaves no
// trace.
func (ix *Index) discardSegment(ctx context.Context, seg *segment.Segment) {
	if seg.File() != "" {
		_ = os.Remove(filepath.Join(ix.dir, seg.File()))
	}
	if err := ix.store.DeleteDocuments(ctx, bitmapIDs(seg)); err != nil {
		ix.logger.Warn("discard segment: purging documents failed",
			zap.String("segment", seg.ID()), zap.Error(err))
	}
}

// releaseFile deletes a retired segment's file. Used after a merge, where the
// merged segment still owns the documents.
func (ix *Index) releaseFile(s *segment.Segment) {
	if s.File() == "" {
		return
	}
	if err := os.Remove(filepath.Join(ix.dir, s.File())); err != nil && !errors.Is(err, os.ErrNotExist) {
		ix.logger.Warn("segment release: removing file failed",
			zap.String("segment", s.ID()), zap.Error(err))
		return
	}
	ix.logger.Debug("segment released", zap.String("segment", s.ID()))
}

// releaseFileAndDocs deletes a retired segment's file and purges its stored
// document texts. Used after a rebuild, where the documents left the index
// entirely.
func (ix *Index) releaseFileAndDocs(s *segment.Segment) {
	ix.releaseFile(s)
	if err := ix.store.DeleteDocuments(context.Background(), bitmapIDs(s)); err != nil {
		ix.logger.Warn("segment release: purging documents failed",
			zap.String("segment", s.ID()), zap.Error(err))
	}
}

func bitmapIDs(s *segment.Segment) []uint32 {
	ids := make([]uint32, 0, s.DocCount())
	it := s.DocIDs().Iterator()
	for it.HasNext() {
		ids = append(ids, it.Next())
	}
	return ids
}
