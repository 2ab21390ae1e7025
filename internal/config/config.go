package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Notifications struct {
		WorkerInterval int `yaml:"worker_interval"` // seconds between outbox polls
		BatchSize      int `yaml:"batch_size"`      // outbox events per poll
		ResolveTimeout int `yaml:"resolve_timeout"` // seconds for recipient resolution
		MaxAttempts    int `yaml:"max_attempts"`    // outbox retries before giving up
		RetentionDays  int `yaml:"retention_days"`  // purge read rows older than this; 0 disables
	} `yaml:"notifications"`
}

var AppConfig *Config

// LoadConfig populates AppConfig, preferring environment variables
// (DATABASE_URL set means test/container mode), falling back to the yaml
// file at CONFIG_PATH.
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		cfg.applyDefaults()
		AppConfig = &cfg
		return
	}

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.applyDefaults()
	AppConfig = &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 4000
	}
	if c.Notifications.WorkerInterval <= 0 {
		c.Notifications.WorkerInterval = 2
	}
	if c.Notifications.BatchSize <= 0 {
		c.Notifications.BatchSize = 50
	}
	if c.Notifications.ResolveTimeout <= 0 {
		c.Notifications.ResolveTimeout = 5
	}
	if c.Notifications.MaxAttempts <= 0 {
		c.Notifications.MaxAttempts = 5
	}
	if c.Notifications.RetentionDays < 0 {
		c.Notifications.RetentionDays = 0
	}
}

// WorkerInterval returns the outbox poll interval as a duration.
func (c *Config) WorkerInterval() time.Duration {
	return time.Duration(c.Notifications.WorkerInterval) * time.Second
}

// ResolveTimeout returns the recipient-resolution timeout as a duration.
func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.Notifications.ResolveTimeout) * time.Second
}
