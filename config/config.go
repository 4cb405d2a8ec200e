package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/hooksink/hooksink/internal/handler"
)

type Config struct {
	Server          ServerConfig         `yaml:"server"`
	Cache           CacheConfig          `yaml:"cache"`
	Outputs         OutputsConfig        `yaml:"outputs"`
	ExporterMetrics bool                 `yaml:"exporter_metrics"`
	Logging         LoggingConfig        `yaml:"logging"`
	EventHandlers   []handler.Definition `yaml:"event_handlers"`
}

type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	WebhookBasepath string   `yaml:"webhook_basepath"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	Debug           bool     `yaml:"debug"`
}

type CacheConfig struct {
	MaxSize       int      `yaml:"max_size"`
	TTL           Duration `yaml:"ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// Duration decodes either a bare integer (seconds, the historical config
// unit) or a Go duration string like "10m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

type OutputsConfig struct {
	Scrapeable  bool              `yaml:"scrapeable"`
	Textfile    TextfileConfig    `yaml:"textfile"`
	Pushgateway PushgatewayConfig `yaml:"pushgateway"`
}

type TextfileConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
	FileName  string `yaml:"file_name"`
}

type PushgatewayConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Job     string `yaml:"job"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when a section is omitted.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            9085,
			WebhookBasepath: "/webhook",
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
		},
		Cache: CacheConfig{
			MaxSize: 128,
			TTL:     Duration(600 * time.Second),
		},
		Outputs: OutputsConfig{
			Scrapeable: true,
			Textfile: TextfileConfig{
				Directory: "/var/lib/node_exporter/textfile_collector",
				FileName:  "webhook_metrics.prom",
			},
			Pushgateway: PushgatewayConfig{
				Job: "webhook_exporter",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

// Validate checks the invariants the rest of the process relies on.
func (c *Config) Validate() error {
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache.max_size must be positive, got %d", c.Cache.MaxSize)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if len(c.EventHandlers) == 0 {
		return fmt.Errorf("at least one event handler must be configured")
	}
	if !c.Outputs.Scrapeable && !c.Outputs.Textfile.Enabled && !c.Outputs.Pushgateway.Enabled {
		return fmt.Errorf("at least one output must be enabled")
	}
	if c.Outputs.Pushgateway.Enabled && c.Outputs.Pushgateway.URL == "" {
		return fmt.Errorf("outputs.pushgateway.url must be set when the pushgateway output is enabled")
	}
	if _, err := handler.NewMatcher(c.EventHandlers); err != nil {
		return err
	}
	return nil
}

// BuildLogger constructs the process logger from the logging section.
func (l LoggingConfig) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level %q: %w", l.Level, err)
	}

	var cfg zap.Config
	switch l.Format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json", "":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid logging.format %q: want json or console", l.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
