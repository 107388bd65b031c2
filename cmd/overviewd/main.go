package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/overviewd/internal/api"
	"github.com/mattjoyce/overviewd/internal/config"
	"github.com/mattjoyce/overviewd/internal/dispatch"
	"github.com/mattjoyce/overviewd/internal/events"
	"github.com/mattjoyce/overviewd/internal/journal"
	"github.com/mattjoyce/overviewd/internal/lock"
	"github.com/mattjoyce/overviewd/internal/log"
	"github.com/mattjoyce/overviewd/internal/metrics"
	"github.com/mattjoyce/overviewd/internal/renderer"
	"github.com/mattjoyce/overviewd/internal/storage"
	"github.com/mattjoyce/overviewd/internal/tui/watch"
)

const version = "0.1.0"

const defaultConfigPath = "overviewd.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "status":
		os.Exit(runStatus(args))
	case "submit":
		os.Exit(runSubmit(args))
	case "cancel":
		os.Exit(runCancel(args))
	case "history":
		os.Exit(runHistory(args))
	case "watch":
		os.Exit(runWatch(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "version":
		fmt.Printf("overviewd version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`overviewd - Navigation command dispatch daemon

Usage:
  overviewd <command> [flags]

Daemon:
  start             Run the dispatch daemon in the foreground

Client:
  status            Show daemon health and queue snapshot
  submit <type>     Enqueue a command (show, keyboard_input, hide, toggle, home)
  cancel            Cancel every queued command (the in-flight head is spared)
  history           Show journaled command outcomes
  watch             Live queue and event view

Config:
  config lock       Pin the current config hash (tamper baseline)
  config check      Validate the configuration file

General:
  version           Show version information
  help              Show this help message

Client commands talk to the daemon API. Set --api / --api-key or the
OVERVIEWD_API_KEY environment variable.
`)
}

// --- daemon ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("overviewd starting", "version", version, "config", *configPath)

	pidLock, err := lock.AcquirePIDLock(cfg.Service.PIDFile)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", cfg.Service.PIDFile, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", cfg.Service.PIDFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.Service.JournalPath)
	if err != nil {
		logger.Error("failed to open journal database", "path", cfg.Service.JournalPath, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("journal database opened", "path", cfg.Service.JournalPath)

	jrnl := journal.New(db)
	hub := events.NewHub(256)
	stats := metrics.New()

	var exec dispatch.Executor
	if cfg.Renderer.URL != "" {
		client, err := renderer.New(cfg.Renderer.URL, cfg.Renderer.ConnectTimeout)
		if err != nil {
			logger.Error("failed to connect to renderer", "url", cfg.Renderer.URL, "error", err)
			return 1
		}
		defer client.Close()
		exec = client
		logger.Info("renderer connected", "url", cfg.Renderer.URL)
	} else {
		exec = renderer.NewLoopback()
		logger.Info("no renderer configured, using loopback executor")
	}

	sched := dispatch.New(dispatch.Config{
		Bound:   cfg.Queue.Bound,
		Timeout: cfg.Queue.Timeout,
	}, exec, jrnl, hub, stats)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 2)

	go func() {
		if err := sched.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("scheduler: %w", err)
		}
	}()

	if cfg.API.Enabled {
		apiServer := api.New(api.Config{
			Listen:            cfg.API.Listen,
			APIKey:            cfg.API.Auth.APIKey,
			ConfigFingerprint: cfg.Fingerprint,
		}, sched, hub, stats.Handler(), log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := jrnl.Prune(ctx, cfg.Service.JournalRetention); err != nil {
					logger.Warn("journal prune failed", "error", err)
				}
			}
		}
	}()

	logger.Info("overviewd running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("overviewd stopped")
	return 0
}

// --- client commands ---

func clientFlags(fs *flag.FlagSet) (apiURL, apiKey *string) {
	apiURL = fs.String("api", "http://127.0.0.1:8686", "Daemon API base URL")
	apiKey = fs.String("api-key", os.Getenv("OVERVIEWD_API_KEY"), "API bearer token")
	return apiURL, apiKey
}

func apiRequest(method, url, apiKey string) (*http.Response, error) {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	return client.Do(req)
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	apiURL, apiKey := clientFlags(fs)
	jsonOut := fs.Bool("json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	resp, err := apiRequest("GET", *apiURL+"/healthz", *apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Daemon unreachable: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	var health api.HealthzResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode health response: %v\n", err)
		return 1
	}

	queueResp, err := apiRequest("GET", *apiURL+"/queue", *apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch queue: %v\n", err)
		return 1
	}
	defer queueResp.Body.Close()
	if queueResp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Queue request failed: %s\n", queueResp.Status)
		return 1
	}

	var snap dispatch.Snapshot
	if err := json.NewDecoder(queueResp.Body).Decode(&snap); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode queue snapshot: %v\n", err)
		return 1
	}

	if *jsonOut {
		out := map[string]any{"health": health, "queue": snap}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("Status:          %s\n", health.Status)
	fmt.Printf("Uptime:          %s\n", time.Duration(health.UptimeSeconds)*time.Second)
	fmt.Printf("Queue depth:     %d/%d\n", snap.Depth, snap.Bound)
	fmt.Printf("Toggle in flight: %v\n", snap.ToggleInFlight)
	fmt.Printf("Focus index:     %d\n", snap.FocusIndex)
	if health.ConfigFingerprint != "" {
		fmt.Printf("Config:          %s\n", shortHash(health.ConfigFingerprint))
	}
	if len(snap.Entries) > 0 {
		fmt.Println("\nQueue:")
		for i, e := range snap.Entries {
			fmt.Printf("  %d. %-16s %-11s %s (%dms)\n", i+1, e.Type, e.Status, shortHash(e.ID), e.AgeMS)
		}
	}
	return 0
}

func runSubmit(args []string) int {
	var cmdType string
	var remainingArgs []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") && cmdType == "" {
			cmdType = arg
		} else {
			remainingArgs = append(remainingArgs, arg)
		}
	}

	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	apiURL, apiKey := clientFlags(fs)
	if err := fs.Parse(remainingArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if cmdType == "" {
		fmt.Fprintf(os.Stderr, "Usage: overviewd submit <type> [--api URL] [--api-key KEY]\n")
		fmt.Fprintf(os.Stderr, "Types: show, keyboard_input, hide, toggle, home\n")
		return 1
	}

	resp, err := apiRequest("POST", *apiURL+"/command/"+cmdType, *apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Daemon unreachable: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read response: %v\n", err)
		return 1
	}

	if resp.StatusCode != http.StatusAccepted {
		var e api.ErrorResponse
		if json.Unmarshal(body.Bytes(), &e) == nil && e.Error != "" {
			fmt.Fprintf(os.Stderr, "Submit rejected: %s\n", e.Error)
		} else {
			fmt.Fprintf(os.Stderr, "Submit failed: %s\n", resp.Status)
		}
		return 1
	}

	var result api.SubmitResponse
	if err := json.Unmarshal(body.Bytes(), &result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode response: %v\n", err)
		return 1
	}

	if !result.Accepted {
		fmt.Printf("Dropped (%s): queue is at capacity\n", result.Reason)
		return 0
	}
	fmt.Printf("Accepted %s %s\n", result.Type, result.ID)
	return 0
}

func runCancel(args []string) int {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	apiURL, apiKey := clientFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	resp, err := apiRequest("DELETE", *apiURL+"/queue", *apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Daemon unreachable: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Cancel failed: %s\n", resp.Status)
		return 1
	}
	fmt.Println("Queue canceled (in-flight head left to finish)")
	return 0
}

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	limit := fs.Int("limit", 20, "Maximum entries to show")
	jsonOut := fs.Bool("json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.Service.JournalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open journal: %v\n", err)
		return 1
	}
	defer db.Close()

	entries, err := journal.New(db).Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read journal: %v\n", err)
		return 1
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(data))
		return 0
	}

	if len(entries) == 0 {
		fmt.Println("No journaled commands.")
		return 0
	}
	fmt.Printf("%-10s %-16s %-11s %-11s %s\n", "ID", "TYPE", "STATUS", "REASON", "FINISHED")
	for _, e := range entries {
		reason := e.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Printf("%-10s %-16s %-11s %-11s %s\n",
			shortHash(e.ID), e.Type, e.Status, reason, e.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL, apiKey := clientFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	p := tea.NewProgram(watch.New(*apiURL, *apiKey))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Watch failed: %v\n", err)
		return 1
	}
	return 0
}

// --- config noun ---

func runConfigNoun(args []string) int {
	if len(args) < 1 || isHelpToken(args[0]) {
		fmt.Println("Usage: overviewd config <action> [flags]")
		fmt.Println("Actions: lock, check")
		if len(args) < 1 {
			return 1
		}
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "lock":
		return runConfigLock(actionArgs)
	case "check":
		return runConfigCheck(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	hash, err := config.WriteSum(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}
	fmt.Printf("Locked %s\n  blake3: %s\n", *configPath, hash)
	return 0
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config check FAILED: %v\n", err)
		return 1
	}

	fmt.Printf("Config check PASSED: %s\n", *configPath)
	fmt.Printf("  service:  %s (log %s)\n", cfg.Service.Name, cfg.Service.LogLevel)
	fmt.Printf("  queue:    bound %d, timeout %s\n", cfg.Queue.Bound, cfg.Queue.Timeout)
	fmt.Printf("  api:      enabled=%v listen=%s\n", cfg.API.Enabled, cfg.API.Listen)
	if cfg.Renderer.URL != "" {
		fmt.Printf("  renderer: %s\n", cfg.Renderer.URL)
	} else {
		fmt.Printf("  renderer: loopback\n")
	}
	fmt.Printf("  blake3:   %s\n", cfg.Fingerprint)
	return 0
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func shortHash(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
