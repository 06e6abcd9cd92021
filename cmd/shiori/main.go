// Package main is the Shiori CLI entry point.
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

	"github.com/tomeworks/shiori/internal/backfill"
	"github.com/tomeworks/shiori/internal/cli"
	"github.com/tomeworks/shiori/internal/config"
	"github.com/tomeworks/shiori/internal/discovery"
	"github.com/tomeworks/shiori/internal/embedding"
	"github.com/tomeworks/shiori/internal/keyword"
	"github.com/tomeworks/shiori/internal/models"
	"github.com/tomeworks/shiori/internal/scoring"
	"github.com/tomeworks/shiori/internal/search"
	"github.com/tomeworks/shiori/internal/server"
	"github.com/tomeworks/shiori/internal/storage"
	"github.com/tomeworks/shiori/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/shiori/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
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
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "backfill":
		runBackfill()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("shiori version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
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
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Embedder,
		components.Aggregator,
		components.Backfiller,
		components.Discoverer,
		components.Storage,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildSearchQuery joins all positional args with spaces so multi-word
// queries work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	mode := fs.String("mode", models.SearchModeChunks, "search mode: chunks, summaries, or hybrid")
	limit := fs.Int("limit", 10, "number of results")
	threshold := fs.Float64("threshold", 0, "minimum similarity score")
	userID := fs.String("user", "", "restrict results to one owner")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		fmt.Fprintln(os.Stderr, "Usage: shiori search [flags] <query>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	req := models.SearchRequest{
		Query:     queryStr,
		Mode:      *mode,
		Limit:     *limit,
		Threshold: *threshold,
		UserID:    *userID,
	}
	var response models.EnhancedSearchResponse
	if err := postJSON(*serverURL+"/api/search", req, &response); err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, &response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runBackfill() {
	fs := flag.NewFlagSet("backfill", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	batchSize := fs.Int("batch-size", 0, "records per scan cycle (default from server)")
	dryRun := fs.Bool("dry-run", false, "report what would be processed without embedding anything")
	userID := fs.String("user", "", "restrict the run to one owner")
	_ = fs.Parse(os.Args[2:])

	cfg := models.BackfillConfig{
		BatchSize: *batchSize,
		DryRun:    *dryRun,
		UserID:    *userID,
	}
	var result models.BackfillResult
	if err := postJSON(*serverURL+"/api/backfill", cfg, &result); err != nil {
		fmt.Fprintf(os.Stderr, "Backfill failed: %v\n", err)
		os.Exit(1)
	}

	label := "Processed"
	if *dryRun {
		label = "Would process"
	}
	fmt.Printf("%s %d records, %d failed, %d skipped (%dms)\n",
		label, result.Processed, result.Failed, result.Skipped, result.DurationMs)
	for _, f := range result.Failures {
		fmt.Printf("  %s: %s\n", f.RecordID, f.Error)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	if *outputFormat == "json" {
		fmt.Println(string(body))
		return
	}
	var status struct {
		PendingEmbeddings   int `json:"pending_embeddings"`
		CompletedEmbeddings int `json:"completed_embeddings"`
		Config              struct {
			Model      string `json:"model"`
			Dimensions int    `json:"dimensions"`
		} `json:"config"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		fmt.Fprintf(os.Stderr, "Decode failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Embeddings: %d completed, %d pending\n", status.CompletedEmbeddings, status.PendingEmbeddings)
	fmt.Printf("Model: %s (%d dimensions)\n", status.Config.Model, status.Config.Dimensions)
}

func postJSON(url string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds the initialized service graph for the server process.
type Components struct {
	Storage      storage.Store
	KeywordIndex keyword.KeywordIndex
	Embedder     *embedding.Client
	Aggregator   *search.Aggregator
	Backfiller   *backfill.Service
	Discoverer   *discovery.Discoverer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	var provider embedding.Provider
	if apiKey := cfg.Embedding.ResolveAPIKey(); apiKey != "" {
		provider, err = embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:     apiKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
		}
	} else {
		logger.Warn("no embedding API key configured, using deterministic mock provider")
		provider = embedding.NewMockProvider(cfg.Embedding.Dimensions)
	}

	embedder := embedding.NewClient(provider, embedding.ClientConfig{
		MaxInputChars: cfg.Embedding.MaxInputChars,
		MaxRetries:    cfg.Embedding.MaxRetries,
		BaseDelay:     time.Duration(cfg.Embedding.BaseDelayMs) * time.Millisecond,
		MaxJitter:     time.Duration(cfg.Embedding.MaxJitterMs) * time.Millisecond,
	},
		embedding.WithLogger(logger),
		embedding.WithCache(embedding.NewCache(cfg.Embedding.CacheSize)),
	)

	aggregator := search.NewAggregator(store, keywordIndex,
		search.WithLogger(logger),
		search.WithWeights(scoring.Weights{
			Semantic: cfg.Search.SemanticWeight,
			Keyword:  cfg.Search.KeywordWeight,
		}),
		search.WithHighlightWindow(cfg.Search.HighlightWindow),
	)
	backfiller := backfill.NewService(store, embedder, backfill.WithLogger(logger))
	discoverer := discovery.NewDiscoverer(discovery.WithLogger(logger))

	return &Components{
		Storage:      store,
		KeywordIndex: keywordIndex,
		Embedder:     embedder,
		Aggregator:   aggregator,
		Backfiller:   backfiller,
		Discoverer:   discoverer,
	}, nil
}

func printUsage() {
	fmt.Println(`shiori - embedding-based retrieval for a personal research library

Usage:
  shiori server [flags]           Start the HTTP server
  shiori search [flags] <query>   Search stored sources
  shiori backfill [flags]         Repair embedding coverage gaps
  shiori status [flags]           Show embedding coverage and config
  shiori version                  Show version
  shiori help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/shiori/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --server string     Server URL (default: http://localhost:8080)
  --mode string       Search mode: chunks, summaries, or hybrid (default: chunks)
  --limit int         Number of results (default: 10)
  --threshold float   Minimum similarity score (default: 0)
  --user string       Restrict results to one owner
  --output string     Output format: text or json (default: text)

Backfill Flags:
  --server string     Server URL (default: http://localhost:8080)
  --batch-size int    Records per scan cycle
  --dry-run           Report what would be processed without embedding anything
  --user string       Restrict the run to one owner

Status Flags:
  --server string     Server URL (default: http://localhost:8080)
  --output string     Output format: text or json (default: text)

Examples:
  shiori server
  shiori search bayesian nonparametrics
  shiori search --mode hybrid "graph neural networks"
  shiori backfill --dry-run
  shiori backfill --batch-size 50
  shiori status --output json`)
}
