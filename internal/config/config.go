package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is prepended to every environment variable, e.g. ABPULSE_SERVER_PORT
const EnvPrefix = "ABPULSE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Dataset   DatasetConfig   `yaml:"dataset" envconfig:"DATASET"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST" default:""`
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// Addr is the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatasetConfig selects and refreshes the campaign dataset
type DatasetConfig struct {
	Source          string        `yaml:"source" envconfig:"SOURCE" default:"data/A_B_testing_dataset.csv"`
	Sheet           string        `yaml:"sheet" envconfig:"SHEET"`
	Watch           bool          `yaml:"watch" envconfig:"WATCH" default:"false"`
	WatchDebounce   time.Duration `yaml:"watch_debounce" envconfig:"WATCH_DEBOUNCE" default:"500ms"`
	CredentialsFile string        `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	APIKey          string        `yaml:"api_key" envconfig:"API_KEY"`
	PreviewRows     int           `yaml:"preview_rows" envconfig:"PREVIEW_ROWS" default:"5"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins  []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS      bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	ChartAssetsHost string          `yaml:"chart_assets_host" envconfig:"CHART_ASSETS_HOST" default:"https://go-echarts.github.io/go-echarts-assets/assets/"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"100"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/abpulse.log"`
}

// TelemetryConfig controls OpenTelemetry exporters
type TelemetryConfig struct {
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricsEnabled bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
	MaxMessageSize  int64         `yaml:"max_message_size" envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
}

// Load loads configuration from environment variables and an optional
// YAML file. Environment values win over file values.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file
func LoadFile(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		fileConfig, switches, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configFile, err)
		}
		cfg = mergeConfigs(*fileConfig, switches, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// fileSwitches records the booleans a YAML file sets explicitly; a plain
// bool cannot tell "false" from "absent"
type fileSwitches struct {
	Dataset struct {
		Watch *bool `yaml:"watch"`
	} `yaml:"dataset"`
	Security struct {
		EnableCORS *bool `yaml:"enable_cors"`
		RateLimit  struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Telemetry struct {
		MetricsEnabled *bool `yaml:"metrics_enabled"`
	} `yaml:"telemetry"`
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, fileSwitches, error) {
	var switches fileSwitches

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, switches, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, switches, err
	}
	if err := yaml.Unmarshal(data, &switches); err != nil {
		return nil, switches, err
	}

	return &cfg, switches, nil
}

// envSet reports whether the variable for key was given explicitly
func envSet(key string) bool {
	_, ok := os.LookupEnv(EnvPrefix + "_" + key)
	return ok
}

// mergeConfigs takes each non-zero file value, and each boolean the file
// sets, unless the matching environment variable is set
func mergeConfigs(fileConfig Config, switches fileSwitches, envConfig Config) Config {
	str := func(dst *string, src, key string) {
		if src != "" && !envSet(key) {
			*dst = src
		}
	}
	num := func(dst *int, src int, key string) {
		if src != 0 && !envSet(key) {
			*dst = src
		}
	}
	dur := func(dst *time.Duration, src time.Duration, key string) {
		if src != 0 && !envSet(key) {
			*dst = src
		}
	}
	num64 := func(dst *int64, src int64, key string) {
		if src != 0 && !envSet(key) {
			*dst = src
		}
	}
	flt := func(dst *float64, src float64, key string) {
		if src != 0 && !envSet(key) {
			*dst = src
		}
	}
	flag := func(dst *bool, src *bool, key string) {
		if src != nil && !envSet(key) {
			*dst = *src
		}
	}

	// Server config
	str(&envConfig.Server.Host, fileConfig.Server.Host, "SERVER_HOST")
	num(&envConfig.Server.Port, fileConfig.Server.Port, "SERVER_PORT")
	dur(&envConfig.Server.ReadTimeout, fileConfig.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	dur(&envConfig.Server.WriteTimeout, fileConfig.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	dur(&envConfig.Server.IdleTimeout, fileConfig.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT")
	num(&envConfig.Server.MaxHeaderBytes, fileConfig.Server.MaxHeaderBytes, "SERVER_MAX_HEADER_BYTES")
	dur(&envConfig.Server.ShutdownTimeout, fileConfig.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")
	dur(&envConfig.Server.RequestTimeout, fileConfig.Server.RequestTimeout, "SERVER_REQUEST_TIMEOUT")

	// Dataset config
	str(&envConfig.Dataset.Source, fileConfig.Dataset.Source, "DATASET_SOURCE")
	str(&envConfig.Dataset.Sheet, fileConfig.Dataset.Sheet, "DATASET_SHEET")
	flag(&envConfig.Dataset.Watch, switches.Dataset.Watch, "DATASET_WATCH")
	dur(&envConfig.Dataset.WatchDebounce, fileConfig.Dataset.WatchDebounce, "DATASET_WATCH_DEBOUNCE")
	str(&envConfig.Dataset.CredentialsFile, fileConfig.Dataset.CredentialsFile, "DATASET_CREDENTIALS_FILE")
	str(&envConfig.Dataset.APIKey, fileConfig.Dataset.APIKey, "DATASET_API_KEY")
	num(&envConfig.Dataset.PreviewRows, fileConfig.Dataset.PreviewRows, "DATASET_PREVIEW_ROWS")

	// Security config
	if len(fileConfig.Security.AllowedOrigins) > 0 && !envSet("SECURITY_ALLOWED_ORIGINS") {
		envConfig.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	flag(&envConfig.Security.EnableCORS, switches.Security.EnableCORS, "SECURITY_ENABLE_CORS")
	flag(&envConfig.Security.RateLimit.Enabled, switches.Security.RateLimit.Enabled, "SECURITY_RATE_LIMIT_ENABLED")
	str(&envConfig.Security.ChartAssetsHost, fileConfig.Security.ChartAssetsHost, "SECURITY_CHART_ASSETS_HOST")
	flt(&envConfig.Security.RateLimit.RPS, fileConfig.Security.RateLimit.RPS, "SECURITY_RATE_LIMIT_RPS")
	num(&envConfig.Security.RateLimit.Burst, fileConfig.Security.RateLimit.Burst, "SECURITY_RATE_LIMIT_BURST")

	// Logging config
	str(&envConfig.Logging.Level, fileConfig.Logging.Level, "LOGGING_LEVEL")
	str(&envConfig.Logging.Output, fileConfig.Logging.Output, "LOGGING_OUTPUT")
	str(&envConfig.Logging.FilePath, fileConfig.Logging.FilePath, "LOGGING_FILE_PATH")

	// Telemetry config
	str(&envConfig.Telemetry.TraceExporter, fileConfig.Telemetry.TraceExporter, "TELEMETRY_TRACE_EXPORTER")
	flag(&envConfig.Telemetry.MetricsEnabled, switches.Telemetry.MetricsEnabled, "TELEMETRY_METRICS_ENABLED")
	str(&envConfig.Telemetry.Environment, fileConfig.Telemetry.Environment, "TELEMETRY_ENVIRONMENT")
	flt(&envConfig.Telemetry.SampleRatio, fileConfig.Telemetry.SampleRatio, "TELEMETRY_SAMPLE_RATIO")

	// WebSocket config
	num(&envConfig.WebSocket.ReadBufferSize, fileConfig.WebSocket.ReadBufferSize, "WEBSOCKET_READ_BUFFER_SIZE")
	num(&envConfig.WebSocket.WriteBufferSize, fileConfig.WebSocket.WriteBufferSize, "WEBSOCKET_WRITE_BUFFER_SIZE")
	dur(&envConfig.WebSocket.PingPeriod, fileConfig.WebSocket.PingPeriod, "WEBSOCKET_PING_PERIOD")
	dur(&envConfig.WebSocket.PongWait, fileConfig.WebSocket.PongWait, "WEBSOCKET_PONG_WAIT")
	num64(&envConfig.WebSocket.MaxMessageSize, fileConfig.WebSocket.MaxMessageSize, "WEBSOCKET_MAX_MESSAGE_SIZE")

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if strings.TrimSpace(c.Dataset.Source) == "" {
		return fmt.Errorf("dataset source must be specified")
	}

	if c.Dataset.PreviewRows < 0 {
		return fmt.Errorf("dataset preview rows must not be negative")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %s", c.Logging.Output)
	}

	// logs are always JSON
	c.Logging.Format = "json"

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1]")
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path, ok := os.LookupEnv(EnvPrefix + "_CONFIG_FILE"); ok {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Dataset: DatasetConfig{
			Source:        DefaultDatasetSource,
			WatchDebounce: 500 * time.Millisecond,
			PreviewRows:   DefaultPreviewRows,
		},
		Security: SecurityConfig{
			AllowedOrigins:  []string{"http://localhost:8080"},
			EnableCORS:      true,
			ChartAssetsHost: DefaultChartAssetsHost,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   100,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   "json",
			Output:   "console",
			FilePath: "logs/abpulse.log",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricsEnabled: true,
			Environment:    "development",
			SampleRatio:    1,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
			MaxMessageSize:  4096,
		},
	}
}
