// main.go — Entry point for the renderlens CLI binary.
// Replays render traces, diffs prop snapshots, and serves the engine state
// over HTTP, MCP or a Redis relay.
//
// Usage: renderlens <command> [args] [--flags]
//
// Exit codes:
//
//	0 = success
//	1 = error (command failed)
//	2 = usage error (missing args, invalid flags)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/brennhill/renderlens/cmd/renderlens/commands"
	"github.com/brennhill/renderlens/cmd/renderlens/output"
	"github.com/brennhill/renderlens/internal/config"
	"github.com/brennhill/renderlens/internal/dashboard"
	"github.com/brennhill/renderlens/internal/diff"
	"github.com/brennhill/renderlens/internal/engine"
	"github.com/brennhill/renderlens/internal/mcpserver"
	"github.com/brennhill/renderlens/internal/recording"
	"github.com/brennhill/renderlens/internal/relay"
	"github.com/brennhill/renderlens/internal/telemetry"
	"github.com/brennhill/renderlens/internal/timing"
)

// version is set at build time via -ldflags.
var version = "0.1.0"

// Output streams, swapped by tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

const usageText = `renderlens — render tracking for component trees

Usage:
  renderlens <command> [args] [--flags]

Commands:
  replay <trace.jsonl>         Replay a trace and report renders, timings and suggestions
  diff <prev.json> <next.json> Classify the differences between two prop objects
  serve <trace.jsonl>          Replay a trace, then serve it over HTTP (+ /metrics, + redis relay)
  mcp <trace.jsonl>            Replay a trace, then serve it as MCP tools on stdio
  watch                        Print events relayed on the redis channel

Command Flags:
  --component <id>             replay: only report this component
  --limit <n>                  replay: report at most n components
  --session <id>               watch: only print events from this session

Global Flags:
  --format <human|json|csv>    Output format (default: human)
  --threshold <ms>             Slow render threshold (default: 16)
  --max-history <n>            Render history size (default: 1000)
  --strategy <name>            shallow, deep, fast-deep (default: shallow)
  --skip-keys <a,b>            Prop keys never reported as changes
  --verbose                    Log every detected change
  --log-level <level>          trace, debug, info, warn, error (default: info)
  --addr <host:port>           serve: listen address (default: 127.0.0.1:7420)
  --redis <host:port>          serve/watch: redis address for the event relay
  --channel <name>             serve/watch: relay channel (default: renderlens:events)
  --version                    Show version
  --help                       Show this help

Configuration cascade: defaults < ~/.renderlens/config.yaml < .renderlens.yaml
< .env < RENDERLENS_* environment < flags.

Examples:
  renderlens replay session.jsonl --format csv
  renderlens diff before.json after.json --strategy deep
  renderlens serve session.jsonl --addr :7420 --redis localhost:6379
  renderlens watch --redis localhost:6379
`

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the main entry point, separated for testability.
// Returns the exit code.
func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 2
	}

	for _, arg := range args {
		if arg == "--version" || arg == "-v" {
			fmt.Fprintf(stdout, "renderlens %s\n", version)
			return 0
		}
		if arg == "--help" || arg == "-h" {
			fmt.Fprint(stdout, usageText)
			return 0
		}
	}

	command := args[0]
	if command == "help" {
		fmt.Fprint(stdout, usageText)
		return 0
	}

	flags, remaining, err := extractGlobalFlags(args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "Error: cannot determine working directory: %v\n", err)
		return 1
	}
	cfg, err := config.Load(cwd, flags)
	if err != nil {
		fmt.Fprintf(stderr, "Error: configuration: %v\n", err)
		return 2
	}
	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(stderr, "Error: logger: %v\n", err)
		return 2
	}
	logger.SetOutput(stderr)
	formatter := output.GetFormatter(cfg.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "replay":
		return runReplay(ctx, cfg, logger, formatter, remaining)
	case "diff":
		return runDiff(cfg, formatter, remaining)
	case "serve":
		return runServe(ctx, cfg, logger, remaining)
	case "mcp":
		return runMCP(ctx, cfg, logger, remaining)
	case "watch":
		return runWatch(ctx, cfg, logger, remaining)
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q. Valid commands: replay, diff, serve, mcp, watch\n", command)
		return 2
	}
}

func runReplay(ctx context.Context, cfg config.Config, logger *log.Logger, formatter output.Formatter, args []string) int {
	path, opts, err := commands.ReplayArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	_, report, err := commands.Replay(ctx, path, cfg.EngineOptions(logger), opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := formatter.Replay(stdout, report); err != nil {
		fmt.Fprintf(stderr, "Error: format output: %v\n", err)
		return 1
	}
	if !report.OK() {
		return 1
	}
	return 0
}

func runDiff(cfg config.Config, formatter output.Formatter, args []string) int {
	prevPath, nextPath, err := commands.DiffArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	strategy, _ := diff.ParseStrategy(cfg.CompareStrategy)
	report, err := commands.DiffFiles(prevPath, nextPath, diff.Options{
		Strategy: strategy,
		SkipKeys: diff.KeySet(cfg.SkipKeys...),
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := formatter.Diff(stdout, report); err != nil {
		fmt.Fprintf(stderr, "Error: format output: %v\n", err)
		return 1
	}
	return 0
}

// servingEngine builds the engine for serve and mcp. When args name a trace,
// the engine runs on a manual clock and replay feeds it; replay is a no-op
// otherwise. Callers attach subscribers before calling replay.
func servingEngine(cfg config.Config, logger *log.Logger, args []string) (*engine.Engine, func(context.Context) error, error) {
	opts := cfg.EngineOptions(logger)
	if len(args) == 0 {
		return engine.New(opts), func(context.Context) error { return nil }, nil
	}
	path, _, err := commands.ReplayArgs(args)
	if err != nil {
		return nil, nil, err
	}
	steps, err := recording.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	clock := timing.NewManualClock(time.Now())
	opts.Clock = clock
	eng := engine.New(opts)
	replay := func(ctx context.Context) error {
		session, err := recording.Replay(ctx, eng, clock, steps)
		if err != nil {
			return err
		}
		logger.WithFields(log.Fields{
			"trace":  path,
			"status": session.Status(),
			"steps":  len(session.Results),
		}).Info("trace replayed")
		return nil
	}
	return eng, replay, nil
}

func runServe(ctx context.Context, cfg config.Config, logger *log.Logger, args []string) int {
	eng, replay, err := servingEngine(cfg, logger, args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	collector := telemetry.NewCollector(eng.Tracker().ComponentCount)
	defer collector.Attach(eng.Bus())()

	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rc.Close() }()
		pub := relay.NewPublisher(rc, relay.PublisherOptions{
			Channel:   cfg.RedisChannel,
			SessionID: eng.SessionID(),
			Logger:    logger,
		})
		pub.Start(ctx)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = pub.Close(closeCtx)
		}()
		defer pub.Attach(eng.Bus())()
	}

	if err := replay(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: replay: %v\n", err)
		return 1
	}

	srv := dashboard.New(eng, dashboard.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Collector:      collector,
		Logger:         logger,
	})
	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		fmt.Fprintf(stderr, "Error: serve: %v\n", err)
		return 1
	}
	return 0
}

func runMCP(ctx context.Context, cfg config.Config, logger *log.Logger, args []string) int {
	eng, replay, err := servingEngine(cfg, logger, args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if err := replay(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: replay: %v\n", err)
		return 1
	}
	if err := mcpserver.New(eng, version).ServeStdio(); err != nil {
		fmt.Fprintf(stderr, "Error: mcp: %v\n", err)
		return 1
	}
	return 0
}

func runWatch(ctx context.Context, cfg config.Config, logger *log.Logger, args []string) int {
	if cfg.RedisAddr == "" {
		fmt.Fprintln(stderr, "Error: watch needs a redis address (--redis or RENDERLENS_REDIS_ADDR)")
		return 2
	}
	session, _ := extractFlag(args, "--session")

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = rc.Close() }()

	stream := output.StreamFormatter{}
	err := relay.Watch(ctx, rc, relay.WatchOptions{
		Channel:   cfg.RedisChannel,
		SessionID: session,
		Logger:    logger,
	}, func(env relay.Envelope) {
		var payload any
		if err := env.Decode(&payload); err != nil {
			logger.WithError(err).WithField("topic", env.Topic).Warn("undecodable relay payload")
		}
		_ = stream.WriteEvent(stdout, &output.StreamEvent{
			SessionID: env.SessionID,
			Topic:     string(env.Topic),
			At:        env.At,
			Payload:   payload,
		})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "Error: watch: %v\n", err)
		return 1
	}
	return 0
}

// extractGlobalFlags extracts global flags from args and returns FlagOverrides + remaining args.
func extractGlobalFlags(args []string) (*config.FlagOverrides, []string, error) {
	flags := &config.FlagOverrides{}
	remaining := args

	strFlags := []struct {
		name string
		dst  **string
	}{
		{"--format", &flags.Format},
		{"--strategy", &flags.CompareStrategy},
		{"--log-level", &flags.LogLevel},
		{"--addr", &flags.HTTPAddr},
		{"--redis", &flags.RedisAddr},
		{"--channel", &flags.RedisChannel},
	}
	for _, f := range strFlags {
		var val string
		val, remaining = extractFlag(remaining, f.name)
		if val != "" {
			v := val
			*f.dst = &v
		}
	}

	var val string
	val, remaining = extractFlag(remaining, "--threshold")
	if val != "" {
		ms, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("--threshold: %w", err)
		}
		flags.SlowThresholdMs = &ms
	}

	val, remaining = extractFlag(remaining, "--max-history")
	if val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, nil, fmt.Errorf("--max-history: %w", err)
		}
		flags.MaxHistorySize = &n
	}

	val, remaining = extractFlag(remaining, "--skip-keys")
	if val != "" {
		flags.SkipKeys = config.SplitList(val)
	}

	// --verbose (boolean flag)
	for i, a := range remaining {
		if a == "--verbose" {
			verbose := true
			flags.Verbose = &verbose
			remaining = append(remaining[:i:i], remaining[i+1:]...)
			break
		}
	}

	return flags, remaining, nil
}

// extractFlag removes a flag and its value from args, returning the value and remaining args.
func extractFlag(args []string, flag string) (string, []string) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			val := args[i+1]
			remaining := make([]string, 0, len(args)-2)
			remaining = append(remaining, args[:i]...)
			remaining = append(remaining, args[i+2:]...)
			return val, remaining
		}
	}
	return "", args
}
