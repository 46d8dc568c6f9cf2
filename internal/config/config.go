package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Generator struct {
		APIKey          string `yaml:"api_key"`
		BaseURL         string `yaml:"base_url"`
		Model           string `yaml:"model"`
		Timeout         string `yaml:"timeout"`
		MaxNotesChars   int    `yaml:"max_notes_chars"`
		DefaultLanguage string `yaml:"default_language"`
	} `yaml:"generator"`
	Capture struct {
		Device  string `yaml:"device"`
		Timeout string `yaml:"timeout"`
	} `yaml:"capture"`
	Session struct {
		Tick string `yaml:"tick"`
	} `yaml:"session"`
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
	cfg.applyEnv()
	return cfg, nil
}

// LoadOptional behaves like Load but returns an empty config when path does not exist.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		cfg = Config{}
		cfg.applyEnv()
		return cfg, nil
	}
	return cfg, err
}

func (c *Config) applyEnv() {
	if c.Generator.APIKey == "" {
		c.Generator.APIKey = os.Getenv("OPENAI_API_KEY")
	}
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
