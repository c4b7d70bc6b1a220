// Package config loads service configuration from the environment. A .env
// file in the working directory is merged in first so local development does
// not need exported variables.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/AltairaLabs/speechbench/logger"
	"github.com/AltairaLabs/speechbench/vendors"
)

// Defaults for optional settings.
const (
	DefaultListenAddr      = ":8000"
	DefaultMetricsAddr     = ":9090"
	DefaultDataDir         = "./data"
	DefaultStorageDir      = "./storage"
	DefaultConcurrency     = 4
	DefaultSynthVendor     = "elevenlabs"
	DefaultEvaluatorVendor = "deepgram"
	DefaultLookbackDays    = 7
)

// Config is the resolved service configuration.
type Config struct {
	ListenAddr  string
	MetricsAddr string

	// DataDir holds the SQLite database; StorageDir holds audio and
	// transcript artifacts.
	DataDir    string
	StorageDir string

	Concurrency     int
	SynthVendor     string
	EvaluatorVendor string
	LookbackDays    int

	// OTLPEndpoint enables tracing when set.
	OTLPEndpoint string
	LogLevel     string

	Credentials vendors.Credentials
}

// Load reads configuration from the environment, merging a .env file from the
// working directory when one exists.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env file")
	}

	return &Config{
		ListenAddr:      envString("SPEECHBENCH_LISTEN_ADDR", DefaultListenAddr),
		MetricsAddr:     envString("SPEECHBENCH_METRICS_ADDR", DefaultMetricsAddr),
		DataDir:         envString("SPEECHBENCH_DATA_DIR", DefaultDataDir),
		StorageDir:      envString("SPEECHBENCH_STORAGE_DIR", DefaultStorageDir),
		Concurrency:     envInt("SPEECHBENCH_CONCURRENCY", DefaultConcurrency),
		SynthVendor:     envString("SPEECHBENCH_DEFAULT_SYNTH_VENDOR", DefaultSynthVendor),
		EvaluatorVendor: envString("SPEECHBENCH_DEFAULT_EVALUATOR_VENDOR", DefaultEvaluatorVendor),
		LookbackDays:    envInt("SPEECHBENCH_LOOKBACK_DAYS", DefaultLookbackDays),
		OTLPEndpoint:    os.Getenv("OTLP_ENDPOINT"),
		LogLevel:        envString("LOG_LEVEL", "info"),
		Credentials: vendors.Credentials{
			ElevenLabsKey:       os.Getenv("ELEVENLABS_API_KEY"),
			DeepgramKey:         os.Getenv("DEEPGRAM_API_KEY"),
			OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
			CartesiaKey:         os.Getenv("CARTESIA_API_KEY"),
			AWSRegion:           os.Getenv("AWS_REGION"),
			AzureOpenAIKey:      os.Getenv("AZURE_OPENAI_API_KEY"),
			AzureOpenAIEndpoint: os.Getenv("AZURE_OPENAI_ENDPOINT"),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("invalid integer in environment, using default",
			"key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}
