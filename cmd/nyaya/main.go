// Package main is the Nyaya CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/nyaya/internal/cli"
	"github.com/hyperjump/nyaya/internal/config"
	"github.com/hyperjump/nyaya/internal/indexer"
	"github.com/hyperjump/nyaya/internal/mcpserver"
	"github.com/hyperjump/nyaya/internal/models"
	"github.com/hyperjump/nyaya/internal/server"
	"github.com/hyperjump/nyaya/internal/store"
	"github.com/hyperjump/nyaya/internal/watcher"
	"github.com/hyperjump/nyaya/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/nyaya/config.yaml"

// loadConfig loads and validates config from path. When path is the default, a
// config.yaml in the current directory wins so "nyaya server" from the project dir
// uses the project's config. A missing default file falls back to built-in defaults.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyEnv(cfg)
			config.ApplyDefaults(cfg)
			return cfg, "", cfg.Validate()
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
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
	case "ask":
		runAsk()
	case "index":
		runIndex()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "corpus":
		runCorpus()
	case "mcp":
		runMCP()
	case "version", "--version", "-v":
		fmt.Printf("nyaya version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config, builds a logger and initializes components, exiting on failure.
func setup(configPath string, debugFlag bool, opts initOptions) (*config.Config, string, *zap.Logger, *Components) {
	cfg, resolvedConfigPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	opts.debug = debugMode
	components, err := initializeComponents(context.Background(), cfg, logger, opts)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, resolvedConfigPath, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (corpus changes, request traces, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, components := setup(*configPath, *debug, initOptions{withGeneration: true})
	defer logger.Sync()
	defer components.Close()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("generation_provider", cfg.Generation.Provider),
	)

	if components.Local != nil {
		if err := components.Local.StartSnapshots(cfg.Storage.SnapshotSchedule); err != nil {
			logger.Fatal("Failed to schedule vector snapshots", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var watchSvc server.WatchService
	if cfg.Corpus.Watch {
		w := watcher.NewWatcher(components.Indexer, cfg.Corpus.Directories,
			watcher.WithLogger(logger),
			watcher.WithDebounce(cfg.Corpus.Debounce),
			watcher.WithExtensions(indexer.DefaultExtensions),
		)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		go w.SyncExistingFiles()
		defer w.Stop()
		watchSvc = w
	} else {
		for _, dir := range cfg.Corpus.Directories {
			n, err := components.Indexer.IndexDirectory(ctx, dir, nil)
			if err != nil {
				logger.Warn("corpus sync failed", zap.String("dir", dir), zap.Error(err))
				continue
			}
			logger.Info("corpus synced", zap.String("dir", dir), zap.Int("files", n))
		}
	}

	srv := server.NewServer(
		components.Orchestrator,
		components.Store,
		&cfg.Server,
		logger,
		watchSvc,
		resolvedConfigPath,
		cfg,
		server.WithSourceRemover(components.Indexer),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// askArgsReorder moves flags before positional args so "nyaya ask what is theft --json" works.
func askArgsReorder(args []string) []string {
	var flags, rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--json" || a == "-json" || a == "--debug" || a == "-debug":
			flags = append(flags, a)
		case strings.HasPrefix(a, "-") && !strings.Contains(a, "=") && i+1 < len(args):
			flags = append(flags, a, args[i+1])
			i++
		case strings.HasPrefix(a, "-"):
			flags = append(flags, a)
		default:
			rest = append(rest, a)
		}
	}
	return append(flags, rest...)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "", "server URL; empty answers in-process")
	asJSON := fs.Bool("json", false, "print the response as JSON")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: nyaya ask [flags] <question>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(askArgsReorder(os.Args[2:]))

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fs.Usage()
		os.Exit(1)
	}
	format := cli.OutputText
	if *asJSON {
		format = cli.OutputJSON
	}

	var resp *models.AskResponse
	if *serverURL != "" {
		r, err := askViaHTTP(*serverURL, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		resp = r
	} else {
		_, _, logger, components := setup(*configPath, *debug, initOptions{withGeneration: true})
		defer logger.Sync()
		defer components.Close()
		res, err := components.Orchestrator.Ask(context.Background(), query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		resp = &res.Response
	}
	if err := cli.WriteAnswer(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL string, query string) (*models.AskResponse, error) {
	body, err := json.Marshal(models.AskRequest{Query: query})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: nyaya index [flags] <chunks.json|directory>")
		os.Exit(1)
	}
	target := fs.Arg(0)

	_, _, logger, components := setup(*configPath, false, initOptions{})
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Index failed: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n, err := components.Indexer.IndexDirectory(ctx, target, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Index failed after %d files: %v\n", n, err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %d chunk files from %s\n", n, target)
		return
	}
	n, err := components.Indexer.IndexFile(ctx, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Index failed: %v\n", err)
		os.Exit(1)
	}
	if n == 0 {
		fmt.Printf("Unchanged: %s\n", target)
		return
	}
	fmt.Printf("Indexed %d passages from %s\n", n, target)
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fmt.Println("Usage: nyaya delete [flags] <chunks.json>")
		os.Exit(1)
	}

	_, _, logger, components := setup(*configPath, false, initOptions{})
	defer logger.Sync()
	defer components.Close()

	n, err := components.Indexer.DeleteSource(context.Background(), fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted %d passages from %s\n", n, fs.Arg(0))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = open the store directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status map[string]interface{}
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = res
	} else {
		cfg, _, logger, components := setup(*configPath, false, initOptions{})
		defer logger.Sync()
		defer components.Close()
		res, err := directStatus(context.Background(), cfg, components.Store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = res
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		cfgInfo, _ := status["config"].(map[string]interface{})
		delete(status, "config")
		cli.WriteStatus(os.Stdout, status)
		if len(cfgInfo) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			cli.WriteStatus(os.Stdout, cfgInfo)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func directStatus(ctx context.Context, cfg *config.Config, st store.VectorStore) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if reporter, ok := st.(store.StatsReporter); ok {
		stats, err := reporter.Stats(ctx)
		if err != nil {
			return nil, err
		}
		out["backend"] = stats.Backend
		out["passages"] = stats.Passages
		out["vector_index_size"] = stats.VectorSize
		out["disk_usage_bytes"] = stats.DiskBytes
		out["sources"] = stats.Sources
	} else {
		n, err := st.Count(ctx)
		if err != nil {
			return nil, err
		}
		out["passages"] = n
	}
	out["config"] = map[string]interface{}{
		"embedding_provider":   cfg.Embedding.Provider,
		"embedding_dimensions": cfg.Embedding.Dimensions,
		"generation_provider":  cfg.Generation.Provider,
		"database_path":        cfg.Storage.DatabasePath,
		"bleve_index_path":     cfg.Storage.BleveIndexPath,
		"vector_index_path":    cfg.Storage.VectorIndexPath,
	}
	return out, nil
}

func statusViaHTTP(serverURL string) (map[string]interface{}, error) {
	resp, err := http.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func runCorpus() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: nyaya corpus <add|remove|list> [path]")
		fmt.Println("  nyaya corpus add <path>     Watch a corpus directory")
		fmt.Println("  nyaya corpus remove <path>  Stop watching a corpus directory")
		fmt.Println("  nyaya corpus list           List watched corpus directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("corpus", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	endpoint := strings.TrimRight(*serverURL, "/") + "/api/v1/corpus/directories"

	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: nyaya corpus add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(endpoint, "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: nyaya corpus remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, endpoint+"?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(endpoint)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown corpus subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	// stdout carries the protocol; zap writes to stderr
	_, _, logger, components := setup(*configPath, false, initOptions{withGeneration: true})
	defer logger.Sync()
	defer components.Close()

	s := mcpserver.New(components.Orchestrator, version, logger)
	if err := mcpserver.Serve(s); err != nil {
		logger.Fatal("MCP server failed", zap.Error(err))
	}
}

func printUsage() {
	fmt.Println(`nyaya - Grounded answers to questions about Indian criminal law

Usage:
  nyaya server [flags]                   Start the HTTP server
  nyaya ask [flags] <question>           Answer a question with citations
  nyaya index [flags] <file|dir>         Index chunk JSON files
  nyaya delete [flags] <file>            Delete passages ingested from a chunk file
  nyaya status [flags]                   Show store and index status
  nyaya corpus <add|remove|list>         Manage watched corpus directories
  nyaya mcp [flags]                      Serve the ask tool over MCP stdio
  nyaya version                          Show version
  nyaya help                             Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/nyaya/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --config string    Config file path (in-process mode)
  --server string    Server URL; when set, the question is sent to a running server
  --json             Print the public JSON response

Status Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to open the store directly.
  --output string    Output format: text or json (default: text)

Corpus Flags:
  --server string    Server URL (default: http://localhost:8080)

Environment:
  GEMINI_API_KEY, ANTHROPIC_API_KEY, LLM_PROVIDER, NYAYA_DATABASE_URL (also read from .env)

Examples:
  nyaya index ./knowledge_base/BNS/v2024/bns_chunks.json
  nyaya ask "What is the punishment for theft under BNS?"
  nyaya ask --json "Section 303 BNS"
  nyaya server
  nyaya status --server ""
  nyaya corpus add ./knowledge_base`)
}
