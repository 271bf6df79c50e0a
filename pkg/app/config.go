package app

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"stall/pkg/autosave"
)

// Config captures flags and the optional YAML file so the stand can run with a single Run call.
// Precedence: defaults, then the file named by --config or STALL_CONFIG, then explicit flags, then PORT.
type Config struct {
	Addr      string        `yaml:"addr"`
	Port      int           `yaml:"port"`
	Store     string        `yaml:"store"`
	DataDir   string        `yaml:"data_dir"`
	DSN       string        `yaml:"dsn"`
	Codec     string        `yaml:"codec"`
	Autosave  time.Duration `yaml:"autosave"`
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
	RateLimit float64       `yaml:"rate_limit"`
	RateBurst int           `yaml:"rate_burst"`
	MaxTicket int           `yaml:"max_ticket"`

	configPath  string
	showVersion bool
}

func defaultConfig() Config {
	return Config{
		Port:      8765,
		Store:     "file",
		Codec:     "json",
		Autosave:  autosave.DefaultInterval,
		LogLevel:  "info",
		LogFormat: "text",
		RateLimit: 20,
		RateBurst: 40,
	}
}

// parseFlags uses a dedicated FlagSet so Run can be called from multiple entry points.
func parseFlags(args []string) (Config, error) {
	cfg := defaultConfig()
	set := pflag.NewFlagSet("stall", pflag.ContinueOnError)
	set.SortFlags = false

	set.StringVar(&cfg.configPath, "config", os.Getenv("STALL_CONFIG"), "YAML configuration file")
	set.BoolVar(&cfg.showVersion, "version", false, "show the application version")
	set.StringVar(&cfg.Addr, "addr", cfg.Addr, "interface to listen on")
	set.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port; the PORT environment variable wins")
	set.StringVar(&cfg.Store, "store", cfg.Store, "record store: memory, file, sqlite or postgres")
	set.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for file and sqlite stores; defaults to ./data")
	set.StringVar(&cfg.DSN, "dsn", cfg.DSN, "database DSN for sqlite or postgres")
	set.StringVar(&cfg.Codec, "codec", cfg.Codec, "record encoding: json or cbor")
	set.DurationVar(&cfg.Autosave, "autosave", cfg.Autosave, "interval between automatic saves")
	set.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	set.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	set.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "requests per second per client; 0 disables")
	set.IntVar(&cfg.RateBurst, "rate-burst", cfg.RateBurst, "request burst per client")
	set.IntVar(&cfg.MaxTicket, "max-ticket", cfg.MaxTicket, "override the saved maximum ticket number")

	if err := set.Parse(args); err != nil {
		return Config{}, err
	}
	if set.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected argument %q", set.Arg(0))
	}

	if cfg.configPath != "" {
		explicit := map[string]string{}
		set.Visit(func(f *pflag.Flag) { explicit[f.Name] = f.Value.String() })

		if err := cfg.loadFile(cfg.configPath); err != nil {
			return Config{}, err
		}
		for name, value := range explicit {
			if err := set.Set(name, value); err != nil {
				return Config{}, fmt.Errorf("reapply --%s: %w", name, err)
			}
		}
	}
	return cfg, cfg.validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	switch c.Store {
	case "memory", "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Store == "postgres" && c.DSN == "" {
		return fmt.Errorf("--dsn is required for the postgres store")
	}
	if c.Autosave <= 0 {
		return fmt.Errorf("autosave interval must be positive, got %s", c.Autosave)
	}
	if c.MaxTicket < 0 {
		return fmt.Errorf("max ticket must not be negative")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// address converts port configuration into a binding string.
func (c Config) address() string {
	port := strconv.Itoa(c.Port)
	if env := os.Getenv("PORT"); env != "" {
		port = env
	}
	return net.JoinHostPort(c.Addr, port)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}

// newLogger builds the process logger from the log flags.
func (c Config) newLogger() *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
