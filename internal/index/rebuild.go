package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/segment"
)

// Rebuild stages a full re-index. Segments committed through it stay hidden
// from readers until Apply swaps them in as the entire live set in one step;
// until then every query sees the previous index. Abort discards all staged
// work. The rebuild holds the index's mutation lock for its whole lifetime,
// so exactly one of Apply or Abort must be called.
type Rebuild struct {
	ix      *Index
	pending []*segment.Segment
	next    uint32
	done    bool
}

// BeginRebuild starts a staged rebuild. No other mutation can run until the
// returned handle is applied or aborted.
func (ix *Index) BeginRebuild() *Rebuild {
	ix.mutation.Lock()
	return &Rebuild{ix: ix, next: ix.currentNextDocID()}
}

// Commit builds one hidden segment from the batch and persists it. Document
// IDs continue from the live index's counter, so staged and live IDs never
// collide. An empty batch is a no-op.
func (rb *Rebuild) Commit(ctx context.Context, docs []Doc) error {
	if rb.done {
		return fmt.Errorf("rebuild already finished")
	}
	if len(docs) == 0 {
		return nil
	}
	if rb.ix.maxDocs > 0 && rb.docCount()+len(docs) > rb.ix.maxDocs {
		return ErrIndexFull
	}
	seg, next, err := rb.ix.buildSegment(ctx, docs, rb.next)
	if err != nil {
		return err
	}
	rb.pending = append(rb.pending, seg)
	rb.next = next
	return nil
}

// Apply atomically replaces the live set with the staged segments. The old
// segments are retired; their files and stored texts are reclaimed once the
// last snapshot referencing them closes. If the manifest write fails, the
// staged work is discarded and the previous index stays live.
func (rb *Rebuild) Apply() error {
	if rb.done {
		return fmt.Errorf("rebuild already finished")
	}
	rb.done = true
	defer rb.ix.mutation.Unlock()

	newLive := append([]*segment.Segment(nil), rb.pending...)
	old := rb.ix.copyLive()
	if err := rb.ix.publish(newLive, rb.next); err != nil {
		rb.discard()
		return err
	}
	// Rebuilt documents replace the old corpus wholesale, so retired
	// segments purge their stored texts along with their files.
	for _, s := range old {
		s.Retire(rb.ix.releaseFileAndDocs)
	}
	rb.ix.logger.Info("rebuild applied",
		zap.Int("segments", len(newLive)),
		zap.Int("retired", len(old)),
	)
	return nil
}

// Abort discards all staged segments and their stored texts. The live index
// is untouched.
func (rb *Rebuild) Abort() {
	if rb.done {
		return
	}
	rb.done = true
	rb.discard()
	rb.ix.mutation.Unlock()
}

func (rb *Rebuild) discard() {
	ctx := context.Background()
	for _, seg := range rb.pending {
		if seg.File() != "" {
			_ = os.Remove(filepath.Join(rb.ix.dir, seg.File()))
		}
		if err := rb.ix.store.DeleteDocuments(ctx, bitmapIDs(seg)); err != nil {
			rb.ix.logger.Warn("rebuild discard: purging documents failed", zap.Error(err))
		}
	}
	rb.pending = nil
}

func (rb *Rebuild) docCount() int {
	n := 0
	for _, seg := range rb.pending {
		n += seg.DocCount()
	}
	return n
}
