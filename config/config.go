package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	TradingConfig TradingConfig `json:"trading"`
	AIConfig      AIConfig      `json:"ai"`
	LoggingConfig LoggingConfig `json:"logging"`
	ServerConfig  ServerConfig  `json:"server"`
	AuthConfig    AuthConfig    `json:"auth"`
	VaultConfig   VaultConfig   `json:"vault"`
	RedisConfig   RedisConfig   `json:"redis"`
}

type LoggingConfig struct {
	Level       string `json:"level"`        // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output"`       // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format"`  // Output as JSON
	IncludeFile bool   `json:"include_file"` // Include file and line number
}

// TradingConfig is the daemon's configuration surface. Broker and
// market-data credentials are never read from environment here; those
// live in internal/secrets.
type TradingConfig struct {
	Mode                     string  `json:"mode"`                        // "paper" or "live"
	Symbol                   string  `json:"symbol"`                      // fixed: "XAUUSD"
	Timeframe                string  `json:"timeframe"`                   // e.g. "M5"
	RiskPercentage           float64 `json:"risk_percentage"`             // fraction of balance risked per trade
	MaxRiskAmount            float64 `json:"max_risk_amount"`             // hard currency ceiling per trade
	MaxRiskPerTrade          float64 `json:"max_risk_per_trade"`          // fraction-of-balance ceiling per trade
	MaxDailyLoss             float64 `json:"max_daily_loss"`              // currency loss that halts new entries for the day
	MaxPositions             int     `json:"max_positions"`               // concurrent open positions
	MaxTradesPerDay          int     `json:"max_trades_per_day"`
	MaxTradesPerHour         int     `json:"max_trades_per_hour"`
	AnalysisIntervalSeconds  int     `json:"analysis_interval_seconds"`
	HeartbeatIntervalSeconds int     `json:"heartbeat_interval_seconds"`
	MinConfidence            float64 `json:"min_confidence"`
	ShutdownPolicy           string  `json:"shutdown_policy"` // "hold" or "liquidate"
	StartBalance             float64 `json:"start_balance"`   // paper-mode starting equity
}

// AIConfig holds the generative-AI second-opinion validator's
// transport and adjustment settings.
type AIConfig struct {
	Enabled             bool    `json:"enabled"`
	LLMProvider         string  `json:"llm_provider"` // "claude", "openai", or "deepseek"
	ClaudeAPIKey        string  `json:"claude_api_key"`
	OpenAIAPIKey        string  `json:"openai_api_key"`
	DeepSeekAPIKey      string  `json:"deepseek_api_key"`
	LLMModel            string  `json:"llm_model"`
	TimeoutSeconds      int     `json:"timeout_seconds"`
	CacheTTLSeconds     int     `json:"cache_ttl_seconds"`
	RequestsPerMinute   int     `json:"requests_per_minute"`
	MaxRetries          int     `json:"max_retries"`
	ConfidenceBoost     float64 `json:"confidence_boost"`
	ConfidencePenalty   float64 `json:"confidence_penalty"`
	DemoteThreshold     float64 `json:"demote_threshold"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"` // CORS allowed origins
	TLSEnabled      bool   `json:"tls_enabled"`
	TLSCertFile     string `json:"tls_cert_file"`
	TLSKeyFile      string `json:"tls_key_file"`
	ReadTimeout     int    `json:"read_timeout"`     // Seconds
	WriteTimeout    int    `json:"write_timeout"`    // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // Seconds
}

// AuthConfig holds operator authentication configuration for the
// control-surface API.
type AuthConfig struct {
	Enabled             bool          `json:"enabled"`
	JWTSecret           string        `json:"jwt_secret"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
	RefreshTokenDuration time.Duration `json:"refresh_token_duration"`
	MinPasswordLength   int           `json:"min_password_length"`
	OperatorUsername    string        `json:"operator_username"`
	OperatorPasswordHash string       `json:"operator_password_hash"`
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`  // KV secrets engine mount path
	SecretPath string `json:"secret_path"` // Path prefix for API keys
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// RedisConfig holds Redis configuration for the AI response cache.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// PostgresConfig holds the Persistence layer's pgxpool connection
// settings, read directly from environment rather than config.json
// since it is always deployment-specific.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Note: live-broker credentials are NOT read from environment here;
// they are acquired from internal/secrets on daemon start.
func applyEnvOverrides(cfg *Config) {
	// Trading config
	cfg.TradingConfig.Mode = getEnvOrDefault("TRADING_MODE", orDefault(cfg.TradingConfig.Mode, "paper"))
	cfg.TradingConfig.Symbol = getEnvOrDefault("TRADING_SYMBOL", orDefault(cfg.TradingConfig.Symbol, "XAUUSD"))
	cfg.TradingConfig.Timeframe = getEnvOrDefault("TRADING_TIMEFRAME", orDefault(cfg.TradingConfig.Timeframe, "M5"))
	cfg.TradingConfig.RiskPercentage = getEnvFloatOrDefault("TRADING_RISK_PERCENTAGE", orDefaultF(cfg.TradingConfig.RiskPercentage, 0.01))
	cfg.TradingConfig.MaxRiskAmount = getEnvFloatOrDefault("TRADING_MAX_RISK_AMOUNT", orDefaultF(cfg.TradingConfig.MaxRiskAmount, 1000))
	cfg.TradingConfig.MaxRiskPerTrade = getEnvFloatOrDefault("TRADING_MAX_RISK_PER_TRADE", orDefaultF(cfg.TradingConfig.MaxRiskPerTrade, 0.02))
	cfg.TradingConfig.MaxDailyLoss = getEnvFloatOrDefault("TRADING_MAX_DAILY_LOSS", orDefaultF(cfg.TradingConfig.MaxDailyLoss, 500))
	cfg.TradingConfig.MaxPositions = getEnvIntOrDefault("TRADING_MAX_POSITIONS", orDefaultI(cfg.TradingConfig.MaxPositions, 3))
	cfg.TradingConfig.MaxTradesPerDay = getEnvIntOrDefault("TRADING_MAX_TRADES_PER_DAY", orDefaultI(cfg.TradingConfig.MaxTradesPerDay, 4))
	cfg.TradingConfig.MaxTradesPerHour = getEnvIntOrDefault("TRADING_MAX_TRADES_PER_HOUR", orDefaultI(cfg.TradingConfig.MaxTradesPerHour, 2))
	cfg.TradingConfig.AnalysisIntervalSeconds = getEnvIntOrDefault("TRADING_ANALYSIS_INTERVAL_SECONDS", orDefaultI(cfg.TradingConfig.AnalysisIntervalSeconds, 60))
	cfg.TradingConfig.HeartbeatIntervalSeconds = getEnvIntOrDefault("TRADING_HEARTBEAT_INTERVAL_SECONDS", orDefaultI(cfg.TradingConfig.HeartbeatIntervalSeconds, 30))
	cfg.TradingConfig.MinConfidence = getEnvFloatOrDefault("TRADING_MIN_CONFIDENCE", orDefaultF(cfg.TradingConfig.MinConfidence, 0.60))
	cfg.TradingConfig.ShutdownPolicy = getEnvOrDefault("TRADING_SHUTDOWN_POLICY", orDefault(cfg.TradingConfig.ShutdownPolicy, "hold"))
	cfg.TradingConfig.StartBalance = getEnvFloatOrDefault("TRADING_START_BALANCE", orDefaultF(cfg.TradingConfig.StartBalance, 10000))

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", "INFO")
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", "stdout")
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"
	cfg.LoggingConfig.IncludeFile = getEnvOrDefault("LOG_INCLUDE_FILE", "false") == "true"

	// AI config
	cfg.AIConfig.Enabled = getEnvOrDefault("AI_ENABLED", "true") == "true"
	cfg.AIConfig.LLMProvider = getEnvOrDefault("AI_LLM_PROVIDER", "claude")
	cfg.AIConfig.ClaudeAPIKey = getEnvOrDefault("AI_CLAUDE_API_KEY", cfg.AIConfig.ClaudeAPIKey)
	cfg.AIConfig.OpenAIAPIKey = getEnvOrDefault("AI_OPENAI_API_KEY", cfg.AIConfig.OpenAIAPIKey)
	cfg.AIConfig.DeepSeekAPIKey = getEnvOrDefault("AI_DEEPSEEK_API_KEY", cfg.AIConfig.DeepSeekAPIKey)
	cfg.AIConfig.LLMModel = getEnvOrDefault("AI_LLM_MODEL", "claude-sonnet-4-20250514")
	cfg.AIConfig.TimeoutSeconds = getEnvIntOrDefault("AI_TIMEOUT_SECONDS", orDefaultI(cfg.AIConfig.TimeoutSeconds, 20))
	cfg.AIConfig.CacheTTLSeconds = getEnvIntOrDefault("AI_CACHE_TTL_SECONDS", orDefaultI(cfg.AIConfig.CacheTTLSeconds, 300))
	cfg.AIConfig.RequestsPerMinute = getEnvIntOrDefault("AI_REQUESTS_PER_MINUTE", orDefaultI(cfg.AIConfig.RequestsPerMinute, 60))
	cfg.AIConfig.MaxRetries = getEnvIntOrDefault("AI_MAX_RETRIES", orDefaultI(cfg.AIConfig.MaxRetries, 3))
	cfg.AIConfig.ConfidenceBoost = getEnvFloatOrDefault("AI_CONFIDENCE_BOOST", orDefaultF(cfg.AIConfig.ConfidenceBoost, 0.20))
	cfg.AIConfig.ConfidencePenalty = getEnvFloatOrDefault("AI_CONFIDENCE_PENALTY", orDefaultF(cfg.AIConfig.ConfidencePenalty, 0.30))
	cfg.AIConfig.DemoteThreshold = getEnvFloatOrDefault("AI_DEMOTE_THRESHOLD", orDefaultF(cfg.AIConfig.DemoteThreshold, 0.30))

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", 8080)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", "0.0.0.0")
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", "*")
	cfg.ServerConfig.TLSEnabled = getEnvOrDefault("SERVER_TLS_ENABLED", "false") == "true"
	cfg.ServerConfig.TLSCertFile = getEnvOrDefault("SERVER_TLS_CERT", "")
	cfg.ServerConfig.TLSKeyFile = getEnvOrDefault("SERVER_TLS_KEY", "")
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", 30)
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", 30)
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10)

	// Auth config - ALWAYS apply from environment
	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", "false") == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", 15*time.Minute)
	cfg.AuthConfig.RefreshTokenDuration = getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_DURATION", 7*24*time.Hour)
	cfg.AuthConfig.MinPasswordLength = getEnvIntOrDefault("AUTH_MIN_PASSWORD_LENGTH", 8)
	cfg.AuthConfig.OperatorUsername = getEnvOrDefault("AUTH_OPERATOR_USERNAME", "operator")
	cfg.AuthConfig.OperatorPasswordHash = getEnvOrDefault("AUTH_OPERATOR_PASSWORD_HASH", cfg.AuthConfig.OperatorPasswordHash)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", "http://localhost:8200")
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", "secret")
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", "gold-digger/credentials")
	cfg.VaultConfig.TLSEnabled = getEnvOrDefault("VAULT_TLS_ENABLED", "false") == "true"

	// Redis config (AI response cache)
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "false") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", "localhost:6379")
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", 0)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", 10)
}

// LoadPostgresConfig reads the database connection settings directly
// from environment; they are always deployment-specific.
func LoadPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		Port:     getEnvIntOrDefault("POSTGRES_PORT", 5432),
		User:     getEnvOrDefault("POSTGRES_USER", "gold_digger"),
		Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
		Database: getEnvOrDefault("POSTGRES_DB", "gold_digger"),
		SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultF(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDefaultI(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		TradingConfig: TradingConfig{
			Mode:                     "paper",
			Symbol:                   "XAUUSD",
			Timeframe:                "M5",
			RiskPercentage:           0.01,
			MaxRiskAmount:            1000,
			MaxRiskPerTrade:          0.02,
			MaxDailyLoss:             500,
			MaxPositions:             3,
			MaxTradesPerDay:          4,
			MaxTradesPerHour:         2,
			AnalysisIntervalSeconds:  60,
			HeartbeatIntervalSeconds: 30,
			MinConfidence:            0.60,
			ShutdownPolicy:           "hold",
			StartBalance:             10000,
		},
		AIConfig: AIConfig{
			Enabled:           true,
			LLMProvider:       "claude",
			LLMModel:          "claude-sonnet-4-20250514",
			TimeoutSeconds:    20,
			CacheTTLSeconds:   300,
			RequestsPerMinute: 60,
			MaxRetries:        3,
			ConfidenceBoost:   0.20,
			ConfidencePenalty: 0.30,
			DemoteThreshold:   0.30,
		},
		LoggingConfig: LoggingConfig{
			Level:       "INFO",
			Output:      "stdout",
			JSONFormat:  true,
			IncludeFile: false,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
