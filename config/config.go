// Package config loads daemon settings from an optional YAML file,
// overridable by environment variables, continuing infra/paths.go's
// RIV_DATA_DIR convention for the rest of the process's env surface.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full set of daemon-level settings; every field has a
// workable zero-config default so `rivulet server` runs with nothing
// but RIV_DATA_DIR set.
type Config struct {
	APIPort            string `yaml:"apiPort"`
	DataDir            string `yaml:"dataDir"`
	SchedulerTickMs    int    `yaml:"schedulerTickMs"`
	MaxParallel        int    `yaml:"maxParallel"`
	RetryMaxRetries    int    `yaml:"retryMaxRetries"`
	RetryBaseDelayMs   int    `yaml:"retryBaseDelayMs"`
	RetryMaxDelayMs    int    `yaml:"retryMaxDelayMs"`
	OpenAIBaseURL      string `yaml:"openAIBaseURL"`
	OllamaEndpoint     string `yaml:"ollamaEndpoint"`
	PythonBin          string `yaml:"pythonBin"`
	// FilesBackend selects the FileStore implementation: "local" persists
	// to DataDir/files (the default), "memory" keeps uploads in-process
	// only — handy for tests and for the run CLI subcommand, which exits
	// as soon as its one run finishes.
	FilesBackend string `yaml:"filesBackend"`
}

func defaults() Config {
	return Config{
		APIPort:          "8080",
		DataDir:          "data",
		SchedulerTickMs:  2000,
		MaxParallel:      20,
		RetryMaxRetries:  0,
		RetryBaseDelayMs: 200,
		RetryMaxDelayMs:  5000,
		OpenAIBaseURL:    "",
		OllamaEndpoint:   "http://localhost:11434/api/chat",
		PythonBin:        "python3",
		FilesBackend:     "local",
	}
}

// Load reads path if it exists (missing file is not an error — it just
// means "use defaults"), then applies RIV_*-prefixed environment
// overrides on top.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RIV_API_PORT"); v != "" {
		cfg.APIPort = v
	}
	if v := os.Getenv("RIV_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RIV_MAX_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxParallel = n
		}
	}
	if v := os.Getenv("RIV_SCHEDULER_TICK_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SchedulerTickMs = n
		}
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		cfg.OllamaEndpoint = v
	}
	if v := os.Getenv("RIV_PYTHON_BIN"); v != "" {
		cfg.PythonBin = v
	}
	if v := os.Getenv("RIV_FILES_BACKEND"); v != "" {
		cfg.FilesBackend = v
	}
}
