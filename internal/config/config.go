package config

import (
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"cribbage-server/internal/util"
)

// Config provides configuration for the cribbage server
type Config struct {
	loaded bool
	Log    struct {
		Level string `yaml:"level" envconfig:"log_level"`
	} `yaml:"log"`
	// TurnTimeoutSeconds is how long a seat may sit on its turn
	TurnTimeoutSeconds int `yaml:"turnTimeoutSeconds" envconfig:"turn_timeout_seconds"`
	// ThinkingDelayMillis is the artificial pause before the computer
	// opponent moves
	ThinkingDelayMillis int `yaml:"thinkingDelayMillis" envconfig:"thinking_delay_millis"`
	// RoundEndDelaySeconds is the pause between the crib being counted
	// and the next deal
	RoundEndDelaySeconds int `yaml:"roundEndDelaySeconds" envconfig:"round_end_delay_seconds"`
	// Difficulty selects the computer opponent strategy
	Difficulty string `yaml:"difficulty" envconfig:"difficulty"`
	Simulation struct {
		Games int   `yaml:"games" envconfig:"simulation_games"`
		Seed  int64 `yaml:"seed" envconfig:"simulation_seed"`
	} `yaml:"simulation"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	c := Config{
		TurnTimeoutSeconds:   30,
		ThinkingDelayMillis:  750,
		RoundEndDelaySeconds: 2,
		Difficulty:           "random",
	}
	c.Log.Level = "info"
	c.Simulation.Games = 100

	return c
}

var config Config

// Instance returns a singleton instance
// If the config hasn't been loaded, it will be loaded
func Instance() Config {
	if !config.loaded {
		if err := Load(); err != nil {
			panic(err)
		}
	}

	return config
}

// Load will load the configuration. A missing config file is not an
// error; the defaults and the environment still apply.
func Load() error {
	config = DefaultConfig()

	configFile := util.Getenv("CRIBBAGE_CONFIG_FILE", "config.yaml")
	file, err := os.Open(configFile)
	if err == nil {
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := envconfig.Process("cribbage", &config); err != nil {
		return err
	}

	config.loaded = true
	return nil
}
