// Package main is the nikah CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/nikah/internal/cli"
	"github.com/hyperjump/nikah/internal/config"
	"github.com/hyperjump/nikah/internal/models"
	"github.com/hyperjump/nikah/internal/server"
	"github.com/hyperjump/nikah/internal/watcher"
	"github.com/hyperjump/nikah/pkg/apperrors"
	"github.com/hyperjump/nikah/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/nikah/config.yaml"
	defaultServerURL  = "http://localhost:8080"
	cliClientID       = "nikah-cli"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory so that running from a project dir picks up
// the project's config. Returns the config and the path that was actually loaded.
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
	case "rsvp":
		runRSVP()
	case "responses":
		runResponses()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("nikah version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// A failed first load is not fatal; searches retry until the source is reachable.
	if _, err := components.Loader.Refresh(ctx); err != nil {
		logger.Warn("Initial guest list load failed", zap.Error(err))
	}
	go components.RunMaintenance(ctx)

	if cfg.Source.Watch && cfg.Source.Path != "" {
		watchSvc, err := watcher.NewWatcher([]string{cfg.Source.Path}, func(path string) {
			components.ReloadGuestList(ctx, path)
		}, watcher.WithLogger(logger))
		if err != nil {
			logger.Fatal("Failed to create watcher", zap.Error(err))
		}
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	opts := []server.Option{server.WithMetrics(components.Metrics), server.WithVersion(version)}
	if components.Limiter != nil {
		opts = append(opts, server.WithLimiter(components.Limiter))
	}
	srv := server.NewServer(
		components.Engine,
		components.RSVP,
		components.Loader,
		components.Storage,
		&cfg.Server,
		logger,
		opts...,
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

// buildSearchQuery joins all positional args with spaces so multi-word names
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return utils.CollapseSpaces(strings.Join(args, " "))
}

// searchArgsReorder moves flags that appear after the query to the front so that
// flag.Parse() sees them; the flag package stops at the first non-flag argument.
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

// localComponents loads config and builds in-process services for commands run with --server "".
func localComponents(ctx context.Context, configPath string) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	return components, logger
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = search the guest list directly)")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: nikah search [flags] <name>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		fs.Usage()
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	ctx := context.Background()
	query := &models.SearchQuery{Text: queryStr, ClientID: cliClientID}

	var s searcher
	if *serverURL != "" {
		s = newAPIClient(*serverURL, cliClientID)
	} else {
		components, logger := localComponents(ctx, *configPath)
		defer logger.Sync()
		defer components.Close()
		s = components.Engine
	}

	result, err := s.Search(ctx, query)
	if err != nil {
		fatalf("Search failed: %s", apperrors.Message(err))
	}
	if err := cli.WriteSearchResults(os.Stdout, result, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runRSVP() {
	fs := flag.NewFlagSet("rsvp", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = write responses directly)")
	lang := fs.String("lang", "en", "confirmation language: en or ar")
	_ = fs.Parse(os.Args[2:])

	language := models.Language(*lang)
	if !language.Valid() {
		fatalf("Unsupported language %q; use en or ar", *lang)
	}
	ctx := context.Background()

	if *serverURL != "" {
		client := newAPIClient(*serverURL, cliClientID)
		if err := runSession(ctx, os.Stdin, os.Stdout, client, client, language, cliClientID); err != nil {
			os.Exit(1)
		}
		return
	}
	components, logger := localComponents(ctx, *configPath)
	defer logger.Sync()
	defer components.Close()
	if err := runSession(ctx, os.Stdin, os.Stdout, components.Engine, components.RSVP, language, cliClientID); err != nil {
		logger.Debug("rsvp session ended with error", zap.Error(err))
	}
}

func runResponses() {
	fs := flag.NewFlagSet("responses", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the database directly)")
	offset := fs.Int("offset", 0, "number of responses to skip")
	limit := fs.Int("limit", 100, "maximum number of responses")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*outputFormat)
	ctx := context.Background()

	var list *models.ResponseList
	if *serverURL != "" {
		var err error
		list, err = newAPIClient(*serverURL, cliClientID).Responses(ctx, *offset, *limit)
		if err != nil {
			fatalf("Listing responses failed: %v", err)
		}
	} else {
		components, logger := localComponents(ctx, *configPath)
		defer logger.Sync()
		defer components.Close()
		responses, err := components.Storage.ListResponses(ctx, *offset, *limit)
		if err != nil {
			fatalf("Listing responses failed: %v", err)
		}
		summary, err := components.Storage.SummarizeResponses(ctx)
		if err != nil {
			fatalf("Summarizing responses failed: %v", err)
		}
		list = &models.ResponseList{Responses: responses, Summary: summary, Offset: *offset, Limit: *limit}
	}
	if err := cli.WriteResponses(os.Stdout, list, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = inspect directly)")
	refresh := fs.Bool("refresh", false, "force a guest list refresh first")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*outputFormat)
	ctx := context.Background()

	var st *models.Status
	if *serverURL != "" {
		var err error
		st, err = newAPIClient(*serverURL, cliClientID).Status(ctx, *refresh)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		components, logger := localComponents(ctx, *configPath)
		defer logger.Sync()
		defer components.Close()
		if *refresh {
			if _, err := components.Loader.Refresh(ctx); err != nil {
				fatalf("Refresh failed: %s", apperrors.Message(err))
			}
		}
		st = localStatus(ctx, components)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func localStatus(ctx context.Context, c *Components) *models.Status {
	gs := c.Loader.Status()
	st := &models.Status{
		Directory: models.DirectoryStatus{
			Loaded:       gs.Loaded,
			Fresh:        gs.Fresh,
			Guests:       gs.Guests,
			Families:     gs.Families,
			DegradedRows: gs.Degraded,
			Discarded:    gs.Discarded,
			Fingerprint:  gs.Fingerprint,
			LoadedAt:     gs.LoadedAt,
			Source:       gs.Source,
			RefreshEvery: gs.RefreshEvery.String(),
		},
		Version: version,
	}
	if c.Limiter != nil {
		p := c.Limiter.Policy()
		st.RateLimit = models.RateLimitStatus{Enabled: true, MaxSearches: p.MaxSearches, Window: p.Window.String()}
	}
	if summary, err := c.Storage.SummarizeResponses(ctx); err == nil {
		st.Responses = summary
	}
	if n, err := c.Storage.SizeBytes(); err == nil {
		st.DatabaseBytes = n
	}
	return st
}

func printUsage() {
	fmt.Println(`nikah - Wedding guest directory and RSVP service

Usage:
  nikah server [flags]            Start the HTTP server
  nikah search [flags] <name>     Search the guest list (English or Arabic)
  nikah rsvp [flags]              Answer an invitation interactively
  nikah responses [flags]         List recorded responses
  nikah status [flags]            Show guest list and response status
  nikah version                   Show version
  nikah help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/nikah/config.yaml)
  --debug            Enable debug logging

Client Flags (search, rsvp, responses, status):
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to work without a server.
  --output string    Output format: text, compact or json (default: text)

RSVP Flags:
  --lang string      Confirmation language: en or ar (default: en)

Status Flags:
  --refresh          Force a guest list refresh first

Examples:
  nikah server
  nikah search sarah
  nikah search "سارة"
  nikah search --output json hossni
  nikah rsvp --lang ar
  nikah responses --output compact
  nikah status --refresh`)
}
