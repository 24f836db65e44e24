package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	Traces       string `yaml:"traces"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind        string   `yaml:"bind"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	MaxUploadMB int      `yaml:"max_upload_mb"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Storage     StorageConfig   `yaml:"storage"`
	Progress    ProgressConfig  `yaml:"progress"`
	STT         STTConfig       `yaml:"stt"`
	LLM         LLMConfig       `yaml:"llm"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// StorageConfig selects the key-value backend that holds the practice logs.
type StorageConfig struct {
	Driver        string `yaml:"driver"` // memory, file, sqlite, redis
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type ProgressConfig struct {
	BasicKey         string `yaml:"basic_key"`
	BasicCapacity    int    `yaml:"basic_capacity"`
	EnhancedKey      string `yaml:"enhanced_key"`
	EnhancedCapacity int    `yaml:"enhanced_capacity"`
}

type STTConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Mode       string `yaml:"mode"` // mock, exec, openai
	Command    string `yaml:"command"`
	ModelPath  string `yaml:"model_path"`
	Endpoint   string `yaml:"endpoint"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	Language   string `yaml:"language"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	TimeoutMS  int    `yaml:"timeout_ms"`
}

// ProviderConfig describes one LLM backend. An empty Mode disables it.
type ProviderConfig struct {
	Mode     string `yaml:"mode"` // mock, ollama, exec, openai, anthropic, gemini
	Endpoint string `yaml:"endpoint"`
	Command  string `yaml:"command"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

type LLMConfig struct {
	Enabled     bool           `yaml:"enabled"`
	Primary     ProviderConfig `yaml:"primary"`
	Failover    ProviderConfig `yaml:"failover"`
	MaxTokens   int            `yaml:"max_tokens"`
	Temperature float64        `yaml:"temperature"`
	TimeoutMS   int            `yaml:"timeout_ms"`
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-coach",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"*"},
			MaxUploadMB: 25,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			Traces:       "none",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "./data/coach.db",
		},
		Progress: ProgressConfig{
			BasicKey:         "interview_progress",
			BasicCapacity:    50,
			EnhancedKey:      "enhanced_interview_progress",
			EnhancedCapacity: 100,
		},
		STT: STTConfig{
			Enabled:    false,
			Mode:       "mock",
			Model:      "whisper-1",
			Language:   "en",
			SampleRate: 16000,
			Channels:   1,
			TimeoutMS:  45000,
		},
		LLM: LLMConfig{
			Enabled: false,
			Primary: ProviderConfig{
				Mode:     "mock",
				Endpoint: "http://localhost:11434",
				Model:    "llama3.2:latest",
			},
			MaxTokens:   1024,
			Temperature: 0.3,
			TimeoutMS:   60000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "COACH_RUNTIME_NAME")
	overrideString(&cfg.Environment, "COACH_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "COACH_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "COACH_HTTP_PORT")
	overrideStringSlice(&cfg.HTTP.CORSOrigins, "COACH_HTTP_CORS_ORIGINS")
	overrideInt(&cfg.HTTP.MaxUploadMB, "COACH_HTTP_MAX_UPLOAD_MB")
	overrideString(&cfg.Telemetry.LogLevel, "COACH_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.Traces, "COACH_TELEMETRY_TRACES")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "COACH_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "COACH_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "COACH_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "COACH_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "COACH_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "COACH_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "COACH_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "COACH_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "COACH_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "COACH_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "COACH_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "COACH_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Storage.Driver, "COACH_STORAGE_DRIVER")
	overrideString(&cfg.Storage.Path, "COACH_STORAGE_PATH")
	overrideString(&cfg.Storage.RedisAddr, "COACH_STORAGE_REDIS_ADDR")
	overrideString(&cfg.Storage.RedisPassword, "COACH_STORAGE_REDIS_PASSWORD")
	overrideInt(&cfg.Storage.RedisDB, "COACH_STORAGE_REDIS_DB")
	overrideBool(&cfg.Storage.VacuumOnStart, "COACH_STORAGE_VACUUM_ON_START")
	overrideString(&cfg.Progress.BasicKey, "COACH_PROGRESS_BASIC_KEY")
	overrideInt(&cfg.Progress.BasicCapacity, "COACH_PROGRESS_BASIC_CAPACITY")
	overrideString(&cfg.Progress.EnhancedKey, "COACH_PROGRESS_ENHANCED_KEY")
	overrideInt(&cfg.Progress.EnhancedCapacity, "COACH_PROGRESS_ENHANCED_CAPACITY")
	overrideBool(&cfg.STT.Enabled, "COACH_STT_ENABLED")
	overrideString(&cfg.STT.Mode, "COACH_STT_MODE")
	overrideString(&cfg.STT.Command, "COACH_STT_COMMAND")
	overrideString(&cfg.STT.ModelPath, "COACH_STT_MODEL_PATH")
	overrideString(&cfg.STT.Endpoint, "COACH_STT_ENDPOINT")
	overrideString(&cfg.STT.Model, "COACH_STT_MODEL")
	overrideString(&cfg.STT.APIKey, "COACH_STT_API_KEY")
	overrideString(&cfg.STT.Language, "COACH_STT_LANGUAGE")
	overrideInt(&cfg.STT.SampleRate, "COACH_STT_SAMPLE_RATE")
	overrideInt(&cfg.STT.Channels, "COACH_STT_CHANNELS")
	overrideInt(&cfg.STT.TimeoutMS, "COACH_STT_TIMEOUT_MS")
	overrideBool(&cfg.LLM.Enabled, "COACH_LLM_ENABLED")
	overrideProvider(&cfg.LLM.Primary, "COACH_LLM_PRIMARY")
	overrideProvider(&cfg.LLM.Failover, "COACH_LLM_FAILOVER")
	overrideInt(&cfg.LLM.MaxTokens, "COACH_LLM_MAX_TOKENS")
	overrideFloat(&cfg.LLM.Temperature, "COACH_LLM_TEMPERATURE")
	overrideInt(&cfg.LLM.TimeoutMS, "COACH_LLM_TIMEOUT_MS")
}

func overrideProvider(target *ProviderConfig, prefix string) {
	overrideString(&target.Mode, prefix+"_MODE")
	overrideString(&target.Endpoint, prefix+"_ENDPOINT")
	overrideString(&target.Command, prefix+"_COMMAND")
	overrideString(&target.Model, prefix+"_MODEL")
	overrideString(&target.APIKey, prefix+"_API_KEY")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.HTTP.MaxUploadMB <= 0 {
		return errors.New("http.max_upload_mb must be positive")
	}
	switch cfg.Telemetry.Traces {
	case "", "none", "stdout":
	case "otlp":
		if cfg.Telemetry.OTLPEndpoint == "" {
			return errors.New("telemetry.otlp_endpoint must be set when traces=otlp")
		}
	default:
		return fmt.Errorf("unknown telemetry.traces %q", cfg.Telemetry.Traces)
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.Storage.Driver {
	case "memory":
	case "file", "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path must be set when driver=%s", cfg.Storage.Driver)
		}
	case "redis":
		if cfg.Storage.RedisAddr == "" {
			return errors.New("storage.redis_addr must be set when driver=redis")
		}
	default:
		return errors.New("storage.driver must be one of memory|file|sqlite|redis")
	}
	if cfg.Progress.BasicKey == "" || cfg.Progress.EnhancedKey == "" {
		return errors.New("progress keys must not be empty")
	}
	if cfg.Progress.BasicKey == cfg.Progress.EnhancedKey {
		return errors.New("progress.basic_key and progress.enhanced_key must differ")
	}
	if cfg.Progress.BasicCapacity <= 0 || cfg.Progress.EnhancedCapacity <= 0 {
		return errors.New("progress capacities must be positive")
	}
	if cfg.STT.Enabled {
		switch cfg.STT.Mode {
		case "mock":
		case "exec":
			if cfg.STT.Command == "" {
				return errors.New("stt.command must be set when mode=exec")
			}
		case "openai":
			if cfg.STT.APIKey == "" {
				return errors.New("stt.api_key must be set when mode=openai")
			}
		default:
			return errors.New("stt.mode must be one of mock|exec|openai")
		}
		if cfg.STT.SampleRate <= 0 {
			return errors.New("stt.sample_rate must be positive")
		}
		if cfg.STT.Channels <= 0 {
			return errors.New("stt.channels must be positive")
		}
	}
	if cfg.LLM.Enabled {
		if cfg.LLM.Primary.Mode == "" {
			return errors.New("llm.primary.mode must be set when llm is enabled")
		}
		if err := validateProvider("llm.primary", cfg.LLM.Primary); err != nil {
			return err
		}
		if cfg.LLM.Failover.Mode != "" {
			if err := validateProvider("llm.failover", cfg.LLM.Failover); err != nil {
				return err
			}
		}
		if cfg.LLM.MaxTokens < 0 {
			return errors.New("llm.max_tokens must be >= 0")
		}
		if cfg.LLM.TimeoutMS <= 0 {
			return errors.New("llm.timeout_ms must be positive")
		}
	}
	return nil
}

func validateProvider(name string, p ProviderConfig) error {
	switch p.Mode {
	case "mock":
	case "ollama":
		if p.Endpoint == "" {
			return fmt.Errorf("%s.endpoint must be set when mode=ollama", name)
		}
	case "exec":
		if p.Command == "" {
			return fmt.Errorf("%s.command must be set when mode=exec", name)
		}
	case "openai", "anthropic", "gemini":
		if p.APIKey == "" {
			return fmt.Errorf("%s.api_key must be set when mode=%s", name, p.Mode)
		}
		if p.Model == "" {
			return fmt.Errorf("%s.model must be set when mode=%s", name, p.Mode)
		}
	default:
		return fmt.Errorf("%s.mode must be one of mock|ollama|exec|openai|anthropic|gemini", name)
	}
	return nil
}
