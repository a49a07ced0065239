// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// TimeoutConfig carries the per-input-type dispatch budgets plus the LLM
// call budget. Every external call gets one of these bounds; on expiry the
// caller proceeds with the documented fallback instead of hanging.
type TimeoutConfig struct {
	DefaultSeconds int `yaml:"default_seconds"`
	ImageSeconds   int `yaml:"image_seconds"`
	AudioSeconds   int `yaml:"audio_seconds"`
	PDFSeconds     int `yaml:"pdf_seconds"`
	LLMSeconds     int `yaml:"llm_seconds"`
}

// ForInputType returns the dispatch budget for an input type.
func (t TimeoutConfig) ForInputType(inputType string) time.Duration {
	seconds := t.DefaultSeconds
	switch inputType {
	case "image":
		seconds = t.ImageSeconds
	case "audio":
		seconds = t.AudioSeconds
	case "pdf":
		seconds = t.PDFSeconds
	}
	return time.Duration(seconds) * time.Second
}

// RLConfig controls the reinforcement-learning arbitration.
type RLConfig struct {
	UseRL           bool    `yaml:"use_rl"`
	ExplorationRate float64 `yaml:"exploration_rate"`
	MemorySize      int     `yaml:"memory_size"`
}

// GroqConfig configures the Groq chat-completions client.
type GroqConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
	RetryDelaySecs float64 `yaml:"retry_delay_seconds"`
}

// OllamaConfig configures the local Ollama client.
type OllamaConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// RAGConfig configures the external knowledge retrieval API client.
type RAGConfig struct {
	APIURL         string `yaml:"api_url"`
	TopK           int    `yaml:"top_k"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// MongoConfig configures the task-log sink.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// Config is the orchestrator service configuration. Values load from an
// optional YAML file, then environment variables override, then defaults
// fill the gaps. Validation fails fast at load.
type Config struct {
	Port         string               `yaml:"port"`
	RegistryPath string               `yaml:"registry_path"`
	DefaultAgent string               `yaml:"default_agent"`
	Thresholds   ConfidenceThresholds `yaml:"confidence_thresholds"`
	RL           RLConfig             `yaml:"rl"`
	Timeouts     TimeoutConfig        `yaml:"timeouts"`
	Groq         GroqConfig           `yaml:"groq"`
	Ollama       OllamaConfig         `yaml:"ollama"`
	RAG          RAGConfig            `yaml:"rag"`
	Mongo        MongoConfig          `yaml:"mongo"`
	PostgresURL  string               `yaml:"postgres_url"`
	RedisURL     string               `yaml:"redis_url"`

	// IntentAgents maps each intent category to the handler the router
	// would use absent any override.
	IntentAgents map[IntentCategory]string `yaml:"intent_agents"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Port:         "8080",
		RegistryPath: "config/agents.yaml",
		DefaultAgent: "edumentor_agent",
		Thresholds:   DefaultConfidenceThresholds(),
		RL: RLConfig{
			UseRL:           true,
			ExplorationRate: 0.2,
			MemorySize:      1000,
		},
		Timeouts: TimeoutConfig{
			DefaultSeconds: 120,
			ImageSeconds:   180,
			AudioSeconds:   240,
			PDFSeconds:     150,
			LLMSeconds:     120,
		},
		Groq: GroqConfig{
			BaseURL:        "https://api.groq.com/openai/v1",
			Model:          "llama-3.1-8b-instant",
			TimeoutSeconds: 30,
			MaxRetries:     3,
			RetryDelaySecs: 1.0,
		},
		Ollama: OllamaConfig{
			Endpoint: "http://localhost:11434",
			Model:    "llama3.1",
		},
		RAG: RAGConfig{
			TopK:           5,
			TimeoutSeconds: 30,
		},
		Mongo: MongoConfig{
			Database:   "bhiv_core",
			Collection: "task_logs",
		},
		IntentAgents: map[IntentCategory]string{
			IntentSummarization: "summarizer_agent",
			IntentPlanning:      "planner_agent",
			IntentFileSearch:    "file_search_agent",
			IntentQnA:           "qna_agent",
		},
	}
}

// LoadConfig builds the effective configuration. path may be empty, in
// which case only env overrides and defaults apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("AGENT_CONFIG_PATH"); v != "" {
		cfg.RegistryPath = v
	}
	if v := os.Getenv("USE_RL"); v != "" {
		cfg.RL.UseRL = v == "true" || v == "1"
	}
	if v, ok := envFloat("RL_EXPLORATION_RATE"); ok {
		cfg.RL.ExplorationRate = v
	}
	if v, ok := envInt("RL_MEMORY_SIZE"); ok {
		cfg.RL.MemorySize = v
	}
	if v, ok := envInt("DEFAULT_TIMEOUT"); ok {
		cfg.Timeouts.DefaultSeconds = v
	}
	if v, ok := envInt("IMAGE_PROCESSING_TIMEOUT"); ok {
		cfg.Timeouts.ImageSeconds = v
	}
	if v, ok := envInt("AUDIO_PROCESSING_TIMEOUT"); ok {
		cfg.Timeouts.AudioSeconds = v
	}
	if v, ok := envInt("PDF_PROCESSING_TIMEOUT"); ok {
		cfg.Timeouts.PDFSeconds = v
	}
	if v, ok := envInt("LLM_TIMEOUT"); ok {
		cfg.Timeouts.LLMSeconds = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.Groq.APIKey = v
	}
	if v := os.Getenv("GROQ_MODEL"); v != "" {
		cfg.Groq.Model = v
	}
	if v, ok := envInt("GROQ_TIMEOUT"); ok {
		cfg.Groq.TimeoutSeconds = v
	}
	if v, ok := envInt("GROQ_MAX_RETRIES"); ok {
		cfg.Groq.MaxRetries = v
	}
	if v, ok := envFloat("GROQ_RETRY_DELAY"); ok {
		cfg.Groq.RetryDelaySecs = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		cfg.Ollama.Endpoint = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.Ollama.Model = v
	}
	if v := os.Getenv("RAG_API_URL"); v != "" {
		cfg.RAG.APIURL = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.PostgresURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(name string) (float64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Validate enforces the configuration invariants.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.RL.ExplorationRate < 0 || c.RL.ExplorationRate > 1 {
		return fmt.Errorf("rl exploration_rate must be in [0,1], got %v", c.RL.ExplorationRate)
	}
	if c.DefaultAgent == "" {
		return fmt.Errorf("default_agent must be configured")
	}
	if c.Timeouts.DefaultSeconds <= 0 {
		return fmt.Errorf("timeouts.default_seconds must be positive")
	}
	return nil
}
