package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Sessions struct {
		Path             string `yaml:"path"`
		MemoryTTLMinutes int64  `yaml:"memory_ttl_minutes"`
		StoreTTLHours    int64  `yaml:"store_ttl_hours"`
		SweepMinutes     int64  `yaml:"sweep_interval_minutes"`
	} `yaml:"sessions"`
	OpenAI struct {
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		RequestTimeout int64  `yaml:"request_timeout_seconds"`
	} `yaml:"openai"`
	SearchAPI struct {
		URL            string `yaml:"url"`
		APIKey         string `yaml:"api_key"`
		RequestTimeout int64  `yaml:"request_timeout_seconds"`
	} `yaml:"search_api"`
	Search struct {
		Mode                string  `yaml:"mode"` // "phased" or "iterative"
		ProfileThreshold    int     `yaml:"profile_score_threshold"`
		GeneralThreshold    int     `yaml:"general_score_threshold"`
		ValidationBatchSize int     `yaml:"validation_batch_size"`
		BatchDelayMillis    int64   `yaml:"batch_delay_ms"`
		QueryDelayMillis    int64   `yaml:"query_delay_ms"`
		MinRounds           int     `yaml:"min_rounds"`
		RoundDelayMillis    int64   `yaml:"round_delay_ms"`
		ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	} `yaml:"search"`
}

// LoadConfig reads configuration from the specified YAML file.
// API keys in the file may be overridden by OPENAI_API_KEY and EXA_API_KEY.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.OpenAI.APIKey = key
	}
	if key := os.Getenv("EXA_API_KEY"); key != "" {
		config.SearchAPI.APIKey = key
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":3001"
	}
	if c.Sessions.Path == "" {
		c.Sessions.Path = "data/sessions.db"
	}
	if c.Sessions.MemoryTTLMinutes == 0 {
		c.Sessions.MemoryTTLMinutes = 30
	}
	if c.Sessions.StoreTTLHours == 0 {
		c.Sessions.StoreTTLHours = 24
	}
	if c.Sessions.SweepMinutes == 0 {
		c.Sessions.SweepMinutes = 10
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.RequestTimeout == 0 {
		c.OpenAI.RequestTimeout = 30
	}
	if c.SearchAPI.URL == "" {
		c.SearchAPI.URL = "https://api.exa.ai"
	}
	if c.SearchAPI.RequestTimeout == 0 {
		c.SearchAPI.RequestTimeout = 20
	}
	if c.Search.Mode == "" {
		c.Search.Mode = "phased"
	}
	if c.Search.ProfileThreshold == 0 {
		c.Search.ProfileThreshold = 5
	}
	if c.Search.GeneralThreshold == 0 {
		c.Search.GeneralThreshold = 6
	}
	if c.Search.ValidationBatchSize == 0 {
		c.Search.ValidationBatchSize = 3
	}
	if c.Search.BatchDelayMillis == 0 {
		c.Search.BatchDelayMillis = 1000
	}
	if c.Search.QueryDelayMillis == 0 {
		c.Search.QueryDelayMillis = 1000
	}
	if c.Search.MinRounds == 0 {
		c.Search.MinRounds = 3
	}
	if c.Search.RoundDelayMillis == 0 {
		c.Search.RoundDelayMillis = 2000
	}
	if c.Search.ConfidenceThreshold == 0 {
		c.Search.ConfidenceThreshold = 0.6
	}
}

// OpenAITimeout returns the completion request timeout as a duration.
func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.RequestTimeout) * time.Second
}

// SearchTimeout returns the search request timeout as a duration.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.SearchAPI.RequestTimeout) * time.Second
}
