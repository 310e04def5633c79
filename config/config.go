// Package config provides unified configuration loading for the story chat
// engine. Precedence: defaults, then YAML file, then environment variables.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("STORYCHAT").
//	    Load()
package config

import (
	"time"

	"github.com/ChinmayBH/Agents-Evaluation/types"
)

// Config is the complete configuration for a story chat run.
type Config struct {
	// Chat controls the turn-taking loop.
	Chat ChatConfig `yaml:"chat" env:"CHAT"`

	// Agents is the ordered roster. Order matters for round-robin selection.
	Agents []AgentConfig `yaml:"agents" env:"-"`

	// LLM configures the model-call collaborator.
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Redis configures the optional reply cache.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Trace selects which trace sinks receive span records.
	Trace TraceConfig `yaml:"trace" env:"TRACE"`

	// Log configures zap.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry configures the OpenTelemetry SDK.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Server configures the metrics/health listener.
	Server ServerConfig `yaml:"server" env:"SERVER"`
}

// ChatConfig controls the orchestration loop.
type ChatConfig struct {
	// MaxRounds is the hard ceiling on turns after the seed message.
	MaxRounds int `yaml:"max_rounds" env:"MAX_ROUNDS"`
	// AbortOnFailure makes a single reply failure fail the whole run.
	AbortOnFailure bool `yaml:"abort_on_failure" env:"ABORT_ON_FAILURE"`
	// TerminationWords end the run when an automated reply equals one of them.
	TerminationWords []string `yaml:"termination_words" env:"TERMINATION_WORDS"`
	// SeedMessage is the task given to the roster.
	SeedMessage string `yaml:"seed_message" env:"SEED_MESSAGE"`
	// HumanInputMode is one of "always", "never", "terminate".
	HumanInputMode string `yaml:"human_input_mode" env:"HUMAN_INPUT_MODE"`
	// HumanContextMessages caps how many trailing messages are shown
	// to the human as prompt context.
	HumanContextMessages int `yaml:"human_context_messages" env:"HUMAN_CONTEXT_MESSAGES"`
	// ExitWord is the human input that terminates the run.
	ExitWord string `yaml:"exit_word" env:"EXIT_WORD"`
}

// AgentConfig describes one roster member.
type AgentConfig struct {
	// Name must be unique within the roster.
	Name string `yaml:"name"`
	// Role is "assistant" or "user_proxy".
	Role string `yaml:"role"`
	// Description is a short human-readable summary, shown in logs.
	Description string `yaml:"description"`
	// SystemPrompt is the behavioral instruction, opaque to the engine.
	SystemPrompt string `yaml:"system_prompt"`
}

// LLMConfig configures the provider used by assistant agents.
type LLMConfig struct {
	Provider       string        `yaml:"provider" env:"PROVIDER"`
	BaseURL        string        `yaml:"base_url" env:"BASE_URL"`
	APIKey         string        `yaml:"api_key" env:"API_KEY"`
	Model          string        `yaml:"model" env:"MODEL"`
	Temperature    float32       `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens      int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Timeout        time.Duration `yaml:"timeout" env:"TIMEOUT"`
	CacheSeed      int64         `yaml:"cache_seed" env:"CACHE_SEED"`
	MaxRetries     int           `yaml:"max_retries" env:"MAX_RETRIES"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// RedisConfig configures the reply cache backend.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" env:"ENABLED"`
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

// TraceConfig selects trace sink backends. Any combination may be active.
type TraceConfig struct {
	// Console logs span lifecycle through zap.
	Console bool `yaml:"console" env:"CONSOLE"`
	// FilePath, when non-empty, appends closed spans as JSON lines.
	FilePath string `yaml:"file_path" env:"FILE_PATH"`
	// SQLitePath, when non-empty, persists closed spans to a SQLite file.
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	// OTel forwards spans to the OpenTelemetry SDK (see Telemetry).
	OTel bool `yaml:"otel" env:"OTEL"`
}

// LogConfig configures zap.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is "json" or "console".
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths are zap output sinks.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig configures the OTel SDK bootstrap.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// ServerConfig configures the metrics/health HTTP listener.
type ServerConfig struct {
	// MetricsPort exposes /metrics and /healthz when > 0.
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
}

// Validate checks cross-field consistency. It is called by the loader and
// again by the binary before a run starts.
func (c *Config) Validate() error {
	if c.Chat.MaxRounds <= 0 {
		return types.Errorf(types.ErrInvalidConfig, "chat.max_rounds must be > 0, got %d", c.Chat.MaxRounds)
	}
	switch c.Chat.HumanInputMode {
	case "always", "never", "terminate":
	default:
		return types.Errorf(types.ErrInvalidConfig, "chat.human_input_mode must be always/never/terminate, got %q", c.Chat.HumanInputMode)
	}
	if len(c.Agents) == 0 {
		return types.NewError(types.ErrInvalidConfig, "at least one agent must be configured")
	}
	seen := make(map[string]struct{}, len(c.Agents))
	assistants := 0
	proxies := 0
	for _, a := range c.Agents {
		if a.Name == "" {
			return types.NewError(types.ErrInvalidConfig, "agent name must not be empty")
		}
		if _, dup := seen[a.Name]; dup {
			return types.Errorf(types.ErrInvalidConfig, "duplicate agent name %q", a.Name)
		}
		seen[a.Name] = struct{}{}
		switch a.Role {
		case "assistant":
			assistants++
		case "user_proxy":
			proxies++
		default:
			return types.Errorf(types.ErrInvalidConfig, "agent %q: role must be assistant or user_proxy, got %q", a.Name, a.Role)
		}
	}
	if assistants == 0 {
		return types.NewError(types.ErrInvalidConfig, "roster needs at least one assistant agent")
	}
	if proxies > 1 {
		return types.Errorf(types.ErrInvalidConfig, "roster allows at most one user proxy, got %d", proxies)
	}
	if proxies == 0 && c.Chat.HumanInputMode != "never" {
		return types.Errorf(types.ErrInvalidConfig,
			"chat.human_input_mode %q requires a user_proxy agent", c.Chat.HumanInputMode)
	}
	if c.LLM.Timeout <= 0 {
		return types.Errorf(types.ErrInvalidConfig, "llm.timeout must be > 0, got %s", c.LLM.Timeout)
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return types.NewError(types.ErrInvalidConfig, "telemetry.otlp_endpoint required when telemetry is enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return types.Errorf(types.ErrInvalidConfig, "telemetry.sample_rate must be in [0,1], got %v", c.Telemetry.SampleRate)
	}
	return nil
}
