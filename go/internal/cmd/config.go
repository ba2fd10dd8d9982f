package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mcdev12/playroom/go/internal/models"
	"gopkg.in/yaml.v3"
)

// Config is the YAML file layout. Game entries override the built-in rules
// per kind; kinds not listed keep their defaults.
type Config struct {
	Games map[string]models.GameRules `yaml:"games"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No file means defaults only.
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

// gameRules merges the file's overrides onto the built-in defaults for every
// known game kind. Unknown kinds in the file are an error, not a silent skip.
func (c *Config) gameRules() (map[models.GameKind]models.GameRules, error) {
	rules := make(map[models.GameKind]models.GameRules)
	for _, kind := range []models.GameKind{models.GameKindNumberGuess, models.GameKindWordGuess, models.GameKindTrivia} {
		defaults, _ := models.DefaultRules(kind)
		rules[kind] = defaults
	}

	for name, override := range c.Games {
		kind := models.GameKind(name)
		defaults, ok := rules[kind]
		if !ok {
			return nil, fmt.Errorf("unknown game kind in config: %s", name)
		}
		rules[kind] = mergeRules(defaults, override)
	}
	return rules, nil
}

// mergeRules overlays non-zero override fields onto the defaults.
func mergeRules(defaults, override models.GameRules) models.GameRules {
	merged := defaults
	if override.MinPlayers > 0 {
		merged.MinPlayers = override.MinPlayers
	}
	if override.MaxPlayers > 0 {
		merged.MaxPlayers = override.MaxPlayers
	}
	if override.TimeLimitSec > 0 {
		merged.TimeLimitSec = override.TimeLimitSec
	}
	if override.MaxAttempts > 0 {
		merged.MaxAttempts = override.MaxAttempts
	}
	if override.QuestionCount > 0 {
		merged.QuestionCount = override.QuestionCount
	}
	return merged
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
