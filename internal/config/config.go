package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/quorumtrade/quorumtrade/internal/models"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	DBPath       string `json:"db_path"`

	LLMProvider string `json:"llm_provider"`
	Model       string `json:"model"`
	BackendURL  string `json:"backend_url"`

	MaxDebateRounds      int     `json:"max_debate_rounds"`
	MaxRiskDiscussRounds int     `json:"max_risk_discuss_rounds"`
	AnalystRoles         string  `json:"analyst_roles"`
	SessionDeadlineSec   int     `json:"session_deadline_sec"`
	MemoryTopK           int     `json:"memory_top_k"`
	NeutralConfidence    float64 `json:"neutral_confidence"`
	CallTimeoutSec       int     `json:"call_timeout_sec"`
	MaxRetries           int     `json:"max_retries"`
	RetryBaseDelayMs     int     `json:"retry_base_delay_ms"`

	OnlineTools  bool `json:"online_tools"`
	CacheEnabled bool `json:"cache_enabled"`
	Debug        bool `json:"debug"`

	OpenAIAPIKey   string `json:"openai_api_key"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`
	FinnhubAPIKey  string `json:"finnhub_api_key"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		ResultsDir:   filepath.Join(currentDir, "results"),
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),
		DBPath:       filepath.Join(currentDir, "data", "quorumtrade.db"),

		LLMProvider: "deepseek",
		Model:       "deepseek-chat",
		BackendURL:  "",

		MaxDebateRounds:      2,
		MaxRiskDiscussRounds: 1,
		AnalystRoles:         "market,fundamentals,news,sentiment",
		SessionDeadlineSec:   900,
		MemoryTopK:           2,
		NeutralConfidence:    0.5,
		CallTimeoutSec:       120,
		MaxRetries:           2,
		RetryBaseDelayMs:     1000,

		OnlineTools:  true,
		CacheEnabled: true,
		Debug:        false,
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("QUORUMTRADE_DB"); val != "" {
		c.DBPath = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.Model = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}

	if val := os.Getenv("MAX_DEBATE_ROUNDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxDebateRounds = v
		}
	}
	if val := os.Getenv("MAX_RISK_ROUNDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxRiskDiscussRounds = v
		}
	}
	if val := os.Getenv("ANALYST_ROLES"); val != "" {
		c.AnalystRoles = val
	}
	if val := os.Getenv("SESSION_DEADLINE_SEC"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.SessionDeadlineSec = v
		}
	}
	if val := os.Getenv("MEMORY_TOP_K"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MemoryTopK = v
		}
	}
	if val := os.Getenv("NEUTRAL_CONFIDENCE"); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			c.NeutralConfidence = v
		}
	}
	if val := os.Getenv("CALL_TIMEOUT_SEC"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.CallTimeoutSec = v
		}
	}
	if val := os.Getenv("MAX_RETRIES"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxRetries = v
		}
	}
	if val := os.Getenv("RETRY_BASE_DELAY_MS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.RetryBaseDelayMs = v
		}
	}

	if val := os.Getenv("ONLINE_TOOLS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.OnlineTools = enabled
		}
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = enabled
		}
	}
	if val := os.Getenv("QUORUMTRADE_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}

	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
}

// SessionConfig builds the per-session options from the app config.
func (c *Config) SessionConfig() models.SessionConfig {
	var roles []models.AnalystRole
	for _, part := range strings.Split(c.AnalystRoles, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		roles = append(roles, models.AnalystRole(part))
	}

	return models.SessionConfig{
		MaxDebateRounds:      c.MaxDebateRounds,
		MaxRiskDiscussRounds: c.MaxRiskDiscussRounds,
		AnalystRoles:         roles,
		SessionDeadline:      time.Duration(c.SessionDeadlineSec) * time.Second,
		MemoryTopK:           c.MemoryTopK,
		NeutralConfidence:    c.NeutralConfidence,
		CallTimeout:          time.Duration(c.CallTimeoutSec) * time.Second,
		MaxRetries:           c.MaxRetries,
		RetryBaseDelay:       time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
	}
}

// Validate rejects a broken configuration before any session starts.
func (c *Config) Validate() error {
	return c.SessionConfig().Validate()
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.ResultsDir, c.DataDir, c.DataCacheDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
