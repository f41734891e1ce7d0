package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/engine"
	"github.com/hyperjump/kensaku/internal/server"
	"github.com/hyperjump/kensaku/internal/watcher"
)

// TestFullLifecycle drives the whole stack the way a deployment would: load a
// YAML config, rebuild from a corpus on disk, query over HTTP, change the
// corpus, rebuild, and verify the index moved with it.
func TestFullLifecycle(t *testing.T) {
	base := t.TempDir()
	corpus := filepath.Join(base, "corpus")
	if err := os.MkdirAll(corpus, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"cats.txt":  "The cat sat on the mat. The cat purred.",
		"dogs.md":   "Dogs chase the mail carrier every morning.",
		"index.txt": "An inverted index maps terms to documents.",
	}
	for name, text := range files {
		if err := os.WriteFile(filepath.Join(corpus, name), []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
	}

	configYAML := `
debug: false
corpus:
  root: ` + corpus + `
index:
  dir: ` + filepath.Join(base, "index") + `
  database_path: ` + filepath.Join(base, "docs.db") + `
  batch_size: 2
analysis:
  stopwords: ["the", "on", "an"]
search:
  scorer: bm25
  snippet_window: 10
`
	configPath := filepath.Join(base, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	eng, err := engine.New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	defer eng.Close()

	ctx := context.Background()
	n, err := eng.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if n != 3 {
		t.Fatalf("indexed = %d, want 3", n)
	}

	ts := httptest.NewServer(server.NewServer(eng, &cfg.Server, zap.NewNop()).Router())
	defer ts.Close()

	searchHTTP := func(query string) *engine.SearchResponse {
		t.Helper()
		body, _ := json.Marshal(map[string]interface{}{"query": query, "limit": 10})
		resp, err := http.Post(ts.URL+"/api/v1/search", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("search %q: %v", query, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("search %q: status %d", query, resp.StatusCode)
		}
		var out engine.SearchResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		return &out
	}

	got := searchHTTP("cat")
	if got.Total != 1 || !strings.HasSuffix(got.Results[0].Path, "cats.txt") {
		t.Fatalf("cat search: %+v", got)
	}
	if !strings.Contains(got.Results[0].Snippet, "<mark>cat</mark>") {
		t.Errorf("snippet = %q", got.Results[0].Snippet)
	}

	// Merge everything down to one segment; results must not change.
	before := searchHTTP("index terms")
	if _, err := http.Post(ts.URL+"/api/v1/optimize", "application/json", nil); err != nil {
		t.Fatal(err)
	}
	after := searchHTTP("index terms")
	if before.Total != after.Total {
		t.Errorf("totals diverged after optimize: %d vs %d", before.Total, after.Total)
	}

	// Change the corpus and rebuild through the watcher path.
	rebuilt := make(chan struct{}, 1)
	w := watcher.New(corpus, nil, func() {
		if _, err := eng.Rebuild(context.Background()); err != nil {
			t.Errorf("watch rebuild: %v", err)
			return
		}
		rebuilt <- struct{}{}
	}, watcher.WithDebounce(100*time.Millisecond))
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(filepath.Join(corpus, "cats.txt")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(corpus, "birds.txt"), []byte("Sparrows and robins sing."), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-rebuilt:
	case <-time.After(10 * time.Second):
		t.Fatal("watcher never rebuilt")
	}

	if got := searchHTTP("cat"); got.Total != 0 {
		t.Errorf("removed document still matches: %+v", got)
	}
	if got := searchHTTP("sparrows"); got.Total != 1 {
		t.Errorf("new document not found: %+v", got)
	}

	// Status over HTTP reflects the rebuilt corpus.
	resp, err := http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var st engine.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Documents != 3 || st.ScorerName != "bm25" {
		t.Errorf("status = %+v", st)
	}
}
