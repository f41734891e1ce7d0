// Package storage persists original document text and metadata. The segment
// index stores only terms and positions; snippet extraction needs the original
// text back, so every indexed document's content lives here for as long as a
// segment references its ID.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document ID is absent from the store.
var ErrNotFound = errors.New("document not found")

// Document is one stored document: its engine-assigned ID, source path,
// raw token count, and original extracted text.
type Document struct {
	DocID   uint32 `json:"doc_id"`
	Path    string `json:"path"`
	Length  uint32 `json:"length"`
	Content string `json:"content,omitempty"`
}

// Store defines document persistence operations.
type Store interface {
	// SaveDocuments inserts a batch transactionally: either every document
	// in the batch is stored or none are.
	SaveDocuments(ctx context.Context, docs []Document) error
	// Text returns the original text of a document, or ErrNotFound.
	Text(ctx context.Context, docID uint32) (string, error)
	// Get returns a stored document without its content, or ErrNotFound.
	Get(ctx context.Context, docID uint32) (*Document, error)
	// DeleteDocuments removes the given IDs. Missing IDs are not an error.
	DeleteDocuments(ctx context.Context, ids []uint32) error
	CountDocuments(ctx context.Context) (int64, error)
	Close() error
}
