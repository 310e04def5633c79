// Command storychat runs a fixed roster of agents collaborating on a short
// story, one speaker at a time, and prints the resulting transcript.
//
// Usage:
//
//	storychat run                        # run with defaults
//	storychat run --config config.yaml   # run with a config file
//	storychat run --seed "task"          # override the seed message
//	storychat version                    # show version information
//	storychat health                     # probe the configured provider
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ChinmayBH/Agents-Evaluation/config"
	"github.com/ChinmayBH/Agents-Evaluation/groupchat"
	"github.com/ChinmayBH/Agents-Evaluation/internal/metrics"
	"github.com/ChinmayBH/Agents-Evaluation/internal/telemetry"
	"github.com/ChinmayBH/Agents-Evaluation/llm"
	"github.com/ChinmayBH/Agents-Evaluation/trace"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runChat(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runChat(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	seed := fs.String("seed", "", "Seed message, overrides the configured one")
	fs.Parse(args)

	cfg := loadConfig(*configPath)

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting storychat",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector("storychat", nil, logger)
	stopMetrics := startMetricsServer(cfg.Server, logger)
	defer stopMetrics()

	recorder, err := buildRecorder(cfg.Trace, logger)
	if err != nil {
		logger.Fatal("failed to build trace recorder", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := recorder.Close(ctx); err != nil {
			logger.Warn("trace recorder close failed", zap.Error(err))
		}
	}()

	provider := buildProvider(cfg, logger)
	roster, err := buildRoster(cfg, provider, logger)
	if err != nil {
		logger.Fatal("failed to build roster", zap.Error(err))
	}

	chat, err := groupchat.New(roster,
		groupchat.WithMaxRounds(cfg.Chat.MaxRounds),
		groupchat.WithAbortOnFailure(cfg.Chat.AbortOnFailure),
		groupchat.WithTerminationWords(cfg.Chat.TerminationWords...),
		groupchat.WithHumanInputMode(groupchat.InputMode(cfg.Chat.HumanInputMode)),
		groupchat.WithRecorder(recorder),
		groupchat.WithMetrics(collector),
		groupchat.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("failed to build chat", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	task := cfg.Chat.SeedMessage
	if *seed != "" {
		task = *seed
	}

	res, runErr := chat.Run(ctx, task)
	if res != nil {
		printTranscript(res)
	}
	if runErr != nil {
		logger.Error("run failed", zap.Error(runErr))
		os.Exit(1)
	}
}

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// buildProvider assembles the completion chain: HTTP provider, retries on
// retryable errors, client-side rate limiting, and an optional Redis reply
// cache on the outside so cache hits skip the whole chain.
func buildProvider(cfg *config.Config, logger *zap.Logger) llm.Provider {
	var provider llm.Provider = llm.NewOpenAICompat(llm.OpenAICompatConfig{
		ProviderName: cfg.LLM.Provider,
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		Timeout:      cfg.LLM.Timeout,
	}, logger)

	retryCfg := llm.DefaultRetryConfig()
	retryCfg.MaxRetries = cfg.LLM.MaxRetries
	provider = llm.NewRetryableProvider(provider, retryCfg, logger)

	provider = llm.NewRateLimitedProvider(provider, cfg.LLM.RateLimitRPS, cfg.LLM.RateLimitBurst, logger)

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		provider = llm.NewCachedProvider(provider, client, cfg.Redis.TTL, logger)
		logger.Info("reply cache enabled", zap.String("addr", cfg.Redis.Addr))
	}
	return provider
}

func buildRoster(cfg *config.Config, provider llm.Provider, logger *zap.Logger) ([]groupchat.Agent, error) {
	roster := make([]groupchat.Agent, 0, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		switch ac.Role {
		case "user_proxy":
			proxy, err := groupchat.NewUserProxy(groupchat.UserProxyConfig{
				Name:         ac.Name,
				Description:  ac.Description,
				ExitWord:     cfg.Chat.ExitWord,
				ContextTurns: cfg.Chat.HumanContextMessages,
			}, groupchat.StdinInput(os.Stdin, os.Stdout), logger)
			if err != nil {
				return nil, err
			}
			roster = append(roster, proxy)
		default:
			assistant, err := groupchat.NewAssistant(groupchat.AssistantConfig{
				Name:         ac.Name,
				Description:  ac.Description,
				SystemPrompt: ac.SystemPrompt,
				Model:        cfg.LLM.Model,
				Temperature:  cfg.LLM.Temperature,
				MaxTokens:    cfg.LLM.MaxTokens,
				CacheSeed:    cfg.LLM.CacheSeed,
			}, provider, logger)
			if err != nil {
				return nil, err
			}
			roster = append(roster, assistant)
		}
	}
	return roster, nil
}

func buildRecorder(cfg config.TraceConfig, logger *zap.Logger) (*trace.Recorder, error) {
	var sinks []trace.Sink
	if cfg.Console {
		sinks = append(sinks, trace.NewConsoleSink(logger))
	}
	if cfg.FilePath != "" {
		sink, err := trace.NewFileSink(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if cfg.SQLitePath != "" {
		sink, err := trace.NewSQLiteSink(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if cfg.OTel {
		sinks = append(sinks, trace.NewOTelSink(otel.Tracer("storychat")))
	}
	return trace.NewRecorder(logger, sinks...), nil
}

// startMetricsServer exposes /metrics and /healthz when a port is configured.
// The returned func stops the listener.
func startMetricsServer(cfg config.ServerConfig, logger *zap.Logger) func() {
	if cfg.MetricsPort <= 0 {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: mux,
	}
	go func() {
		logger.Info("metrics listener started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics listener failed", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printTranscript(res *groupchat.RunResult) {
	fmt.Printf("run %s: %s (%d rounds, %d failed turns)\n",
		res.RunID, res.Status, res.Rounds, res.FailedTurns)
	if res.TerminationReason != "" {
		fmt.Printf("ended because: %s\n", res.TerminationReason)
	}
	fmt.Println()
	for _, turn := range res.Transcript.Turns() {
		fmt.Printf("[%d] %s:\n%s\n\n", turn.Index, turn.Sender, turn.Content)
	}
}

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := zap.NewNop()
	provider := llm.NewOpenAICompat(llm.OpenAICompatConfig{
		ProviderName: cfg.LLM.Provider,
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		Timeout:      cfg.LLM.Timeout,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := provider.HealthCheck(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: healthy=%v latency=%s\n", cfg.LLM.Provider, status.Healthy, status.Latency)
}

func printVersion() {
	fmt.Printf("storychat %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`storychat - turn-based multi-agent story writing

Usage:
  storychat <command> [options]

Commands:
  run       Run a story chat and print the transcript
  version   Show version information
  health    Probe the configured completion provider
  help      Show this help message

Options for 'run':
  --config <path>   Path to configuration file (YAML)
  --seed <text>     Seed message, overrides the configured one

Examples:
  storychat run
  storychat run --config /etc/storychat/config.yaml
  storychat run --seed "Write a short story about rocks"
  storychat health --config config.yaml`)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
