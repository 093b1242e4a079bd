package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory    = "memory"
	StorageSQLite    = "sqlite"
	StorageFirestore = "firestore"
)

type Config struct {
	BotToken   string `yaml:"bot_token"`
	APIBaseURL string `yaml:"api_base_url"`
	Port       string `yaml:"port"`

	StorageBackend string `yaml:"storage_backend"` // "memory", "sqlite" or "firestore"
	SQLitePath     string `yaml:"sqlite_path"`

	GCPProjectID string `yaml:"gcp_project"`
	GCPLocation  string `yaml:"gcp_location"`
	ModelName    string `yaml:"model_name"`

	UseMockAPI     bool `yaml:"use_mock_api"`
	VisionFallback bool `yaml:"vision_fallback"` // ask Gemini when no code is detected

	DecodeWorkers int    `yaml:"decode_workers"`
	TempDir       string `yaml:"temp_dir"`
	LogLevel      string `yaml:"log_level"`

	LookupTimeout  time.Duration `yaml:"lookup_timeout"`
	TrackTimeout   time.Duration `yaml:"track_timeout"`
	SummaryTimeout time.Duration `yaml:"summary_timeout"`
	DecodeTimeout  time.Duration `yaml:"decode_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		APIBaseURL:     "http://localhost:8000",
		Port:           "8080",
		StorageBackend: StorageMemory,
		SQLitePath:     "kbju.db",
		GCPLocation:    "us-central1",
		ModelName:      "gemini-2.5-flash",
		DecodeWorkers:  runtime.NumCPU(),
		LogLevel:       "info",
		LookupTimeout:  10 * time.Second,
		TrackTimeout:   10 * time.Second,
		SummaryTimeout: 10 * time.Second,
		DecodeTimeout:  15 * time.Second,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Load reads .env, the optional YAML file and env vars (in that order of
// precedence, last wins) and builds the config.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("KBJU_CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.BotToken = getEnv("KBJU_BOT_TOKEN", getEnv("BOT_TOKEN", cfg.BotToken))
	cfg.APIBaseURL = getEnv("API_BASE_URL", cfg.APIBaseURL)
	cfg.Port = getEnv("KBJU_PORT", cfg.Port)

	cfg.StorageBackend = getEnv("KBJU_STORAGE_BACKEND", cfg.StorageBackend)
	cfg.SQLitePath = getEnv("KBJU_SQLITE_PATH", cfg.SQLitePath)

	cfg.GCPProjectID = getEnv("KBJU_GCP_PROJECT", cfg.GCPProjectID)
	cfg.GCPLocation = getEnv("KBJU_GCP_LOCATION", cfg.GCPLocation)
	cfg.ModelName = getEnv("KBJU_MODEL_NAME", cfg.ModelName)

	cfg.UseMockAPI = getBoolEnv("KBJU_USE_MOCK_API", cfg.UseMockAPI)
	cfg.VisionFallback = getBoolEnv("KBJU_VISION_FALLBACK", cfg.VisionFallback)

	cfg.DecodeWorkers = getIntEnv("KBJU_DECODE_WORKERS", cfg.DecodeWorkers)
	cfg.TempDir = getEnv("KBJU_TEMP_DIR", cfg.TempDir)
	cfg.LogLevel = getEnv("KBJU_LOG_LEVEL", cfg.LogLevel)

	cfg.LookupTimeout = getDurationEnv("KBJU_LOOKUP_TIMEOUT", cfg.LookupTimeout)
	cfg.TrackTimeout = getDurationEnv("KBJU_TRACK_TIMEOUT", cfg.TrackTimeout)
	cfg.SummaryTimeout = getDurationEnv("KBJU_SUMMARY_TIMEOUT", cfg.SummaryTimeout)
	cfg.DecodeTimeout = getDurationEnv("KBJU_DECODE_TIMEOUT", cfg.DecodeTimeout)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the combinations Load cannot default away.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageMemory, StorageSQLite:
	case StorageFirestore:
		if c.GCPProjectID == "" {
			return fmt.Errorf("KBJU_GCP_PROJECT must be set for firestore storage")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	if c.VisionFallback && c.GCPProjectID == "" {
		return fmt.Errorf("KBJU_GCP_PROJECT must be set when vision fallback is enabled")
	}
	if c.DecodeWorkers < 1 {
		c.DecodeWorkers = 1
	}
	for name, d := range map[string]time.Duration{
		"lookup":  c.LookupTimeout,
		"track":   c.TrackTimeout,
		"summary": c.SummaryTimeout,
		"decode":  c.DecodeTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s timeout must be positive, got %s", name, d)
		}
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}
