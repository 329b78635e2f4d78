// Package config loads runtime configuration from a JSON config file,
// .env files, and HIRELOOP_* environment variables. Env overrides file
// values; everything has a working default so a bare `hireloop server start`
// just runs.
package config

import (
	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Log        LogConfig
	Evaluation EvaluationConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type EvaluationConfig struct {
	Concurrency int
}

type WorkerConfig struct {
	Enabled      bool
	PollInterval string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4000,
			MCPPort: 4001,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Evaluation: EvaluationConfig{
			Concurrency: 4,
		},
		Worker: WorkerConfig{
			Enabled:      true,
			PollInterval: "500ms",
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/hireloop/config.json, then applies HIRELOOP_*
// environment overrides. A .env file in the working directory is loaded
// first, if present.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
