package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		doc_id INTEGER PRIMARY KEY,
		path TEXT NOT NULL,
		length INTEGER NOT NULL,
		content TEXT NOT NULL,
		indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveDocuments inserts a batch of documents in one transaction.
func (s *SQLiteStore) SaveDocuments(ctx context.Context, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (doc_id, path, length, content, indexed_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, doc := range docs {
		if _, err := stmt.ExecContext(ctx, doc.DocID, doc.Path, doc.Length, doc.Content, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert document %d: %w", doc.DocID, err)
		}
	}
	return tx.Commit()
}

// Text returns the original text of a document.
func (s *SQLiteStore) Text(ctx context.Context, docID uint32) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM documents WHERE doc_id = ?`, docID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return content, nil
}

// Get returns a stored document without its content.
func (s *SQLiteStore) Get(ctx context.Context, docID uint32) (*Document, error) {
	var doc Document
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_id, path, length FROM documents WHERE doc_id = ?`, docID,
	).Scan(&doc.DocID, &doc.Path, &doc.Length)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocuments removes the given IDs.
func (s *SQLiteStore) DeleteDocuments(ctx context.Context, ids []uint32) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE doc_id IN (`+placeholders+`)`, args...)
	return err
}

// CountDocuments returns the number of stored documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
