package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func startWatcher(t *testing.T, root string, extensions []string, debounce time.Duration) (*Watcher, chan struct{}) {
	t.Helper()
	rebuilt := make(chan struct{}, 16)
	w := New(root, extensions, func() { rebuilt <- struct{}{} }, WithDebounce(debounce))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)
	return w, rebuilt
}

func waitRebuild(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild was not triggered")
	}
}

func TestWriteTriggersRebuild(t *testing.T) {
	root := t.TempDir()
	_, rebuilt := startWatcher(t, root, []string{".txt"}, 50*time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	waitRebuild(t, rebuilt)
}

func TestBurstCollapsesIntoOneRebuild(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	w := New(root, nil, func() { calls.Add(1) }, WithDebounce(200*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)

	for i := 0; i < 10; i++ {
		name := filepath.Join(root, "f"+string(rune('a'+i))+".txt")
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(time.Second)
	if got := calls.Load(); got != 1 {
		t.Errorf("rebuilds = %d, want 1", got)
	}
}

func TestUnmatchedExtensionIgnored(t *testing.T) {
	root := t.TempDir()
	_, rebuilt := startWatcher(t, root, []string{".txt"}, 50*time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "junk.tmp"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-rebuilt:
		t.Error("rebuild triggered for unmatched extension")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewSubdirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	_, rebuilt := startWatcher(t, root, []string{".txt"}, 50*time.Millisecond)

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	// Directory creation itself schedules a rebuild.
	waitRebuild(t, rebuilt)

	// Files inside the new directory are picked up too.
	if err := os.WriteFile(filepath.Join(sub, "b.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	waitRebuild(t, rebuilt)
}

func TestRemoveTriggersRebuild(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	_, rebuilt := startWatcher(t, root, []string{".txt"}, 50*time.Millisecond)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitRebuild(t, rebuilt)
}

func TestRenamedDirectoryTriggersRebuild(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	// An extension filter is set; the rename event for the directory carries
	// no extension and must still count.
	_, rebuilt := startWatcher(t, root, []string{".txt"}, 50*time.Millisecond)

	if err := os.Rename(sub, filepath.Join(t.TempDir(), "gone")); err != nil {
		t.Fatal(err)
	}
	waitRebuild(t, rebuilt)
}

func TestStopCancelsPendingRebuild(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	w := New(root, nil, func() { calls.Add(1) }, WithDebounce(100*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("rebuild ran after Stop: %d", got)
	}
}

func TestStartMissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope"), nil, func() {})
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Error("expected error for missing root")
	}
}
