// Package config loads the instance configuration from the environment, an
// optional .env file and command line flags, in increasing priority.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iudanet/catalogsync/internal/validation"
)

// envPrefix общий префикс переменных окружения
const envPrefix = "CATALOGSYNC_"

// Config is the configuration of one instance
type Config struct {
	InstanceName   string        `validate:"instance_name"`
	DatabasePath   string        `validate:"required"`
	StatePath      string        `validate:"required"`
	ListenAddr     string        `validate:"required,hostname_port"`
	LogLevel       string        `validate:"oneof=debug info warn error"`
	LogFormat      string        `validate:"oneof=auto text json"`
	Peers          []string      `validate:"dive,url"`
	Cloud          CloudConfig
	RequestTimeout time.Duration `validate:"gt=0"`
	MaxClockDrift  time.Duration `validate:"gt=0"`
	BatchSize      int           `validate:"gt=0,lte=1000"`
	RateLimit      int           `validate:"gte=0"` // запросов в минуту с одного адреса, 0 отключает
	ShowVersion    bool
}

// CloudConfig configures the cloud ingest bridge
type CloudConfig struct {
	Interval  time.Duration `validate:"gt=0"`
	BatchSize int           `validate:"gt=0,lte=1000"`
	Enabled   bool
}

// Load reads the configuration. args are the command line arguments without
// the program name
func Load(args []string) (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}

	if cfg.ShowVersion {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	hostname, _ := os.Hostname()
	cfg := &Config{
		InstanceName: getEnv("INSTANCE_NAME", sanitizeName(hostname)),
		DatabasePath: getEnv("DATABASE", "catalogsync.db"),
		StatePath:    getEnv("STATE", "catalogsync-state.db"),
		ListenAddr:   getEnv("LISTEN", "127.0.0.1:7070"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "auto"),
		Peers:        splitList(getEnv("PEERS", "")),
	}

	var err error
	if cfg.RequestTimeout, err = getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxClockDrift, err = getEnvAsDuration("MAX_CLOCK_DRIFT", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Cloud.Interval, err = getEnvAsDuration("CLOUD_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = getEnvAsInt("BATCH_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getEnvAsInt("RATE_LIMIT", 600); err != nil {
		return nil, err
	}
	if cfg.Cloud.BatchSize, err = getEnvAsInt("CLOUD_BATCH_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.Cloud.Enabled, err = getEnvAsBool("CLOUD_ENABLED", false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseFlags перекрывает значения из окружения флагами командной строки
func (c *Config) parseFlags(args []string) error {
	flags := flag.NewFlagSet("catalogsync", flag.ContinueOnError)

	peers := strings.Join(c.Peers, ",")
	flags.BoolVar(&c.ShowVersion, "version", false, "Show version information")
	flags.StringVar(&c.InstanceName, "name", c.InstanceName, "Instance name announced to peers")
	flags.StringVar(&c.DatabasePath, "db", c.DatabasePath, "Path to the sqlite catalog database")
	flags.StringVar(&c.StatePath, "state", c.StatePath, "Path to the instance state database")
	flags.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "HTTP listen address")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	flags.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format: auto, text, json")
	flags.StringVar(&peers, "peers", peers, "Comma separated websocket URLs of peers")
	flags.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "Timeout of one request to a peer")
	flags.DurationVar(&c.MaxClockDrift, "max-clock-drift", c.MaxClockDrift, "Largest accepted clock drift of a remote operation")
	flags.IntVar(&c.BatchSize, "batch", c.BatchSize, "Operations per request to a peer")
	flags.IntVar(&c.RateLimit, "rate-limit", c.RateLimit, "HTTP requests per minute per client, 0 disables")
	flags.BoolVar(&c.Cloud.Enabled, "cloud", c.Cloud.Enabled, "Accept operations relayed from the cloud")
	flags.DurationVar(&c.Cloud.Interval, "cloud-interval", c.Cloud.Interval, "Minimum interval between cloud ingest cycles")
	flags.IntVar(&c.Cloud.BatchSize, "cloud-batch", c.Cloud.BatchSize, "Operations per cloud ingest request")

	if err := flags.Parse(args); err != nil {
		return err
	}
	c.Peers = splitList(peers)
	return nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	v, err := validation.New()
	if err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	return value, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
	}
	return value, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// sanitizeName приводит hostname к допустимому имени узла
func sanitizeName(hostname string) string {
	var b strings.Builder
	for _, r := range hostname {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '.', r == '_':
			b.WriteRune(r)
		}
	}
	name := strings.TrimLeft(b.String(), "-._")
	if name == "" {
		return "catalogsync"
	}
	if len(name) > validation.MaxInstanceNameLen {
		name = name[:validation.MaxInstanceNameLen]
	}
	return name
}
