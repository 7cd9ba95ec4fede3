package config

import (
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		DataDir string `yaml:"dataDir"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		LockTTL  string `yaml:"lockTTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL      string `yaml:"ttl"`
		Timezone string `yaml:"timezone"`
	} `yaml:"quiz"`
	Leaderboard struct {
		TopN int `yaml:"topN"`
	} `yaml:"leaderboard"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DataDir returns the JSON storage directory, defaulting to "data".
func (c Config) DataDir() string {
	if c.Storage.DataDir == "" {
		return "data"
	}
	return c.Storage.DataDir
}

// Location resolves the quiz timezone; empty or unknown names fall back to UTC.
func (c Config) Location() *time.Location {
	if c.Quiz.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Quiz.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
