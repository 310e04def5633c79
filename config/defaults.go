package config

import "time"

// DefaultConfig returns the full default configuration: a three-writer
// roster plus a user proxy, eight rounds, console tracing only.
func DefaultConfig() *Config {
	return &Config{
		Chat:      DefaultChatConfig(),
		Agents:    DefaultAgents(),
		LLM:       DefaultLLMConfig(),
		Redis:     DefaultRedisConfig(),
		Trace:     DefaultTraceConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Server:    ServerConfig{MetricsPort: 0},
	}
}

// DefaultChatConfig returns the default loop settings.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		MaxRounds:            8,
		AbortOnFailure:       false,
		TerminationWords:     []string{"TERMINATE"},
		SeedMessage:          "Write a short story about rocks, then refine it together.",
		HumanInputMode:       "terminate",
		HumanContextMessages: 5,
		ExitWord:             "exit",
	}
}

// DefaultAgents returns a story-writing roster: writer, critic, editor,
// and a user proxy for the seed message and termination checks.
func DefaultAgents() []AgentConfig {
	return []AgentConfig{
		{
			Name:        "user_proxy",
			Role:        "user_proxy",
			Description: "Relays input from the human at the keyboard.",
		},
		{
			Name:         "story_writer",
			Role:         "assistant",
			SystemPrompt: "You are a creative short-story writer. Draft and revise the story based on the conversation so far.",
		},
		{
			Name:         "critic",
			Role:         "assistant",
			SystemPrompt: "You are a literary critic. Point out weaknesses in plot, pacing, and tone, and suggest concrete improvements.",
		},
		{
			Name:         "editor",
			Role:         "assistant",
			SystemPrompt: "You are an editor. Apply the critic's feedback, tighten the prose, and keep the story coherent. Reply with exactly TERMINATE when the story is final.",
		},
	}
}

// DefaultLLMConfig returns the default provider settings.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:       "openai",
		BaseURL:        "https://api.openai.com",
		Model:          "gpt-4o-mini",
		Temperature:    0.7,
		MaxTokens:      2048,
		Timeout:        120 * time.Second,
		CacheSeed:      42,
		MaxRetries:     3,
		RateLimitRPS:   2,
		RateLimitBurst: 4,
	}
}

// DefaultRedisConfig returns the default cache settings (disabled).
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled: false,
		Addr:    "localhost:6379",
		DB:      0,
		TTL:     time.Hour,
	}
}

// DefaultTraceConfig returns console-only tracing.
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{Console: true}
}

// DefaultLogConfig returns the default logging settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// DefaultTelemetryConfig returns disabled telemetry.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "storychat",
		SampleRate:   1.0,
	}
}
