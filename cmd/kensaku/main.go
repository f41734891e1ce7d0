// Package main is the Kensaku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/engine"
	"github.com/hyperjump/kensaku/internal/server"
	"github.com/hyperjump/kensaku/internal/watcher"
	"github.com/hyperjump/kensaku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kensaku/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so running from the project dir
// picks up the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "rebuild":
		runRebuild()
	case "add":
		runAdd()
	case "optimize":
		runOptimize()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kensaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedPath),
		zap.Bool("debug", debugMode),
	)

	eng, err := engine.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize engine", zap.Error(err))
	}
	defer eng.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled {
		w := watcher.New(cfg.Corpus.Root, cfg.Corpus.Extensions,
			func() {
				if _, err := eng.Rebuild(context.Background()); err != nil {
					logger.Warn("watch rebuild failed", zap.Error(err))
				}
			},
			watcher.WithLogger(logger),
			watcher.WithDebounce(time.Duration(cfg.Watch.RebuildDelayMS)*time.Millisecond),
		)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(eng, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// openEngine builds a direct-mode engine for commands running without a
// server. The caller must Close it.
func openEngine(configPath string) (*engine.Engine, *zap.Logger, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return eng, logger, nil
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = open the index directly)`)
	limit := fs.Int("limit", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Println("Usage: kensaku search [flags] <query>")
		os.Exit(1)
	}

	var resp *engine.SearchResponse
	if *serverURL != "" {
		r, err := searchViaHTTP(*serverURL, query, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		resp = r
	} else {
		eng, logger, err := openEngine(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		defer eng.Close()
		defer logger.Sync()
		resp, err = eng.Search(context.Background(), query, *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("%d result(s) in %.1f ms\n\n", resp.Total, resp.QueryTimeMS)
		for i, hit := range resp.Results {
			fmt.Printf("%2d. %s (%.3f)\n", i+1, hit.Path, hit.Score)
			if hit.Snippet != "" {
				plain := utils.StripMarks(hit.Snippet, "", "")
				fmt.Printf("    %s\n", utils.Truncate(plain, 200))
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL, query string, limit int) (*engine.SearchResponse, error) {
	body, err := json.Marshal(map[string]interface{}{"query": query, "limit": limit})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out engine.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func runRebuild() {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = rebuild directly)")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		if err := postSimple(*serverURL+"/api/v1/rebuild", http.StatusAccepted); err != nil {
			fmt.Fprintf(os.Stderr, "Rebuild failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Rebuild started")
		return
	}

	eng, logger, err := openEngine(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer eng.Close()
	defer logger.Sync()
	n, err := eng.Rebuild(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Rebuild failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d document(s)\n", n)
}

func runAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kensaku add [flags] <file>...")
		os.Exit(1)
	}
	paths := make([]string, 0, fs.NArg())
	for _, arg := range fs.Args() {
		abs, err := filepath.Abs(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Bad path %q: %v\n", arg, err)
			os.Exit(1)
		}
		paths = append(paths, abs)
	}

	eng, logger, err := openEngine(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer eng.Close()
	defer logger.Sync()
	n, err := eng.AddFiles(context.Background(), paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Add failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Added %d document(s)\n", n)
}

func runOptimize() {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = optimize directly)")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		if err := postSimple(*serverURL+"/api/v1/optimize", http.StatusOK); err != nil {
			fmt.Fprintf(os.Stderr, "Optimize failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Optimized")
		return
	}

	eng, logger, err := openEngine(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer eng.Close()
	defer logger.Sync()
	if err := eng.Optimize(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Optimize failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Optimized")
}

func postSimple(url string, wantStatus int) error {
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = open the index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var st engine.Status
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		eng, logger, err := openEngine(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		defer eng.Close()
		defer logger.Sync()
		s, err := eng.Status()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		st = *s
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(st); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:       %d\n", st.Documents)
		fmt.Printf("segments:        %d\n", st.Segments)
		fmt.Printf("terms:           %d\n", st.Terms)
		fmt.Printf("disk_bytes:      %d\n", st.DiskBytes)
		fmt.Printf("avg_doc_length:  %.1f\n", st.AvgDocLen)
		fmt.Printf("corpus_root:     %s\n", st.CorpusRoot)
		fmt.Printf("scorer:          %s\n", st.ScorerName)
		fmt.Printf("watch_active:    %t\n", st.WatchActive)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`kensaku - local full-text search engine

Usage:
  kensaku server [flags]            Start the HTTP server
  kensaku search [flags] <query>    Search the index
  kensaku rebuild [flags]           Re-index the corpus from scratch
  kensaku add [flags] <file>...     Index additional files incrementally
  kensaku optimize [flags]          Merge all segments into one
  kensaku status [flags]            Show index statistics
  kensaku version                   Show version
  kensaku help                      Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/kensaku/config.yaml;
                     a config.yaml in the current directory takes precedence)
  --server string    Server URL for search/rebuild/optimize/status. Empty opens
                     the index directly, which requires the server to be stopped.

Examples:
  kensaku server
  kensaku search "inverted index"
  kensaku search --limit 20 --output json positional postings
  kensaku rebuild --server http://localhost:8080
  kensaku add notes/today.md
  kensaku status --output json`)
}
