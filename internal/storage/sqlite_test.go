package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "documents.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	docs := []Document{
		{DocID: 1, Path: "/corpus/a.txt", Length: 6, Content: "the cat sat on the mat"},
		{DocID: 2, Path: "/corpus/b.txt", Length: 6, Content: "the dog sat on the rug"},
	}
	if err := s.SaveDocuments(ctx, docs); err != nil {
		t.Fatalf("SaveDocuments: %v", err)
	}
	text, err := s.Text(ctx, 1)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "the cat sat on the mat" {
		t.Errorf("text = %q", text)
	}
	n, err := s.CountDocuments(ctx)
	if err != nil || n != 2 {
		t.Errorf("count = %d, err = %v", n, err)
	}
	doc, err := s.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Path != "/corpus/b.txt" || doc.Length != 6 {
		t.Errorf("doc = %+v", doc)
	}
}

func TestTextNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Text(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SaveDocuments(ctx, []Document{
		{DocID: 1, Path: "a", Content: "x"},
		{DocID: 2, Path: "b", Content: "y"},
		{DocID: 3, Path: "c", Content: "z"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteDocuments(ctx, []uint32{1, 3}); err != nil {
		t.Fatalf("DeleteDocuments: %v", err)
	}
	if _, err := s.Text(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Error("doc 1 should be gone")
	}
	if _, err := s.Text(ctx, 2); err != nil {
		t.Errorf("doc 2 should remain: %v", err)
	}
	// Deleting nothing or missing IDs is fine.
	if err := s.DeleteDocuments(ctx, nil); err != nil {
		t.Errorf("empty delete: %v", err)
	}
	if err := s.DeleteDocuments(ctx, []uint32{99}); err != nil {
		t.Errorf("missing delete: %v", err)
	}
}

func TestSaveDuplicateIDFailsWholeBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SaveDocuments(ctx, []Document{{DocID: 1, Path: "a", Content: "x"}}); err != nil {
		t.Fatal(err)
	}
	err := s.SaveDocuments(ctx, []Document{
		{DocID: 2, Path: "b", Content: "y"},
		{DocID: 1, Path: "dup", Content: "z"},
	})
	if err == nil {
		t.Fatal("expected primary key violation")
	}
	// The batch is transactional: doc 2 must not have been stored.
	if _, err := s.Text(ctx, 2); !errors.Is(err, ErrNotFound) {
		t.Error("failed batch leaked a row")
	}
}

func TestCachedStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SaveDocuments(ctx, []Document{{DocID: 1, Path: "a", Content: "hello"}}); err != nil {
		t.Fatal(err)
	}
	c, err := NewCachedStore(s, 8)
	if err != nil {
		t.Fatalf("NewCachedStore: %v", err)
	}
	if text, err := c.Text(ctx, 1); err != nil || text != "hello" {
		t.Fatalf("Text = %q, %v", text, err)
	}
	// Delete under the cache, then make sure the cache does not serve stale text.
	if err := c.DeleteDocuments(ctx, []uint32{1}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Text(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale cache: err = %v", err)
	}
}
