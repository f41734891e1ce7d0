package storage

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore wraps a Store with an LRU cache over Text. Snippet extraction
// reads the same few documents repeatedly for every page of results, so the
// cache keeps those reads off the database.
type CachedStore struct {
	Store
	texts *lru.Cache[uint32, string]
}

// NewCachedStore wraps inner with a text cache of the given size.
func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	texts, err := lru.New[uint32, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{Store: inner, texts: texts}, nil
}

// Text returns the document text, from cache when possible.
func (c *CachedStore) Text(ctx context.Context, docID uint32) (string, error) {
	if text, ok := c.texts.Get(docID); ok {
		return text, nil
	}
	text, err := c.Store.Text(ctx, docID)
	if err != nil {
		return "", err
	}
	c.texts.Add(docID, text)
	return text, nil
}

// DeleteDocuments removes the IDs from the store and drops them from the cache.
func (c *CachedStore) DeleteDocuments(ctx context.Context, ids []uint32) error {
	for _, id := range ids {
		c.texts.Remove(id)
	}
	return c.Store.DeleteDocuments(ctx, ids)
}
