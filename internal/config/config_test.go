package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
corpus:
  root: ./docs
index:
  dir: ./segments
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Search.Scorer != "tfidf" {
		t.Errorf("default scorer = %q", cfg.Search.Scorer)
	}
	if cfg.Analysis.MinTokenLength != 1 {
		t.Errorf("default min token length = %d", cfg.Analysis.MinTokenLength)
	}
	if len(cfg.Analysis.Stopwords) == 0 {
		t.Error("default stopwords empty")
	}
	if !filepath.IsAbs(cfg.Corpus.Root) {
		t.Errorf("corpus root not expanded: %q", cfg.Corpus.Root)
	}
	if cfg.Index.Dir != filepath.Join(dir, "segments") {
		t.Errorf("index dir = %q", cfg.Index.Dir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("corpus: ["), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestExplicitStopwordsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
analysis:
  stopwords: ["foo"]
  min_token_length: 2
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Analysis.Stopwords) != 1 || cfg.Analysis.Stopwords[0] != "foo" {
		t.Errorf("stopwords = %v", cfg.Analysis.Stopwords)
	}
	if cfg.Analysis.MinTokenLength != 2 {
		t.Errorf("min token length = %d", cfg.Analysis.MinTokenLength)
	}
}
