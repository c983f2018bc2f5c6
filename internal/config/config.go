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
	Log struct {
		Env string `yaml:"env"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Corpus struct {
		TTL           string `yaml:"ttl"`
		QuestionsPath string `yaml:"questions_path"`
		TitlesPath    string `yaml:"titles_path"`
	} `yaml:"corpus"`
	Quiz struct {
		QuestionCount int    `yaml:"question_count"`
		OptionCount   int    `yaml:"option_count"`
		RevealLimit   int    `yaml:"reveal_limit"`
		Cadence       string `yaml:"cadence"`
		AdvanceDelay  string `yaml:"advance_delay"`
	} `yaml:"quiz"`
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

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
