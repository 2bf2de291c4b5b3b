package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

const (
	app = "ats-evaluator"

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProviderGemini = "gemini"
	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"
)

type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	DB      DBConfig      `mapstructure:"db"`
	AI      AIConfig      `mapstructure:"ai"`
	PDF     PDFConfig     `mapstructure:"pdf"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Display DisplayConfig `mapstructure:"display"`
	Log     LogConfig     `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr           string `mapstructure:"addr"`
	MaxUploadBytes int64  `mapstructure:"max-upload-bytes"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Seed   bool   `mapstructure:"seed"`
}

type AIConfig struct {
	Provider     string       `mapstructure:"provider"`
	MaxLogLength int          `mapstructure:"max-log-length"`
	Gemini       GeminiConfig `mapstructure:"gemini"`
	Vertex       VertexConfig `mapstructure:"vertex"`
	OpenAI       OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey     string   `mapstructure:"api-key"`
	APIKeyFile string   `mapstructure:"api-key-file"`
	Models     []string `mapstructure:"models"`
}

type VertexConfig struct {
	Project  string `mapstructure:"project"`
	Location string `mapstructure:"location"`
	Model    string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
}

type PDFConfig struct {
	LicenseKey string `mapstructure:"license-key"`
}

type NotifyConfig struct {
	WebhookURL     string         `mapstructure:"webhook-url"`
	WebhookTimeout time.Duration  `mapstructure:"webhook-timeout"`
	RabbitMQ       RabbitMQConfig `mapstructure:"rabbitmq"`
}

type RabbitMQConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

type DisplayConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// legacyEnv maps config keys to the environment variable names deployments already use.
var legacyEnv = map[string][]string{
	"db.dsn":                {"DB_DSN"},
	"db.driver":             {"DB_DRIVER"},
	"ai.gemini.api-key":     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"ai.openai.api-key":     {"OPENAI_API_KEY"},
	"ai.vertex.project":     {"GOOGLE_CLOUD_PROJECT"},
	"ai.vertex.location":    {"GOOGLE_CLOUD_LOCATION"},
	"pdf.license-key":       {"UNIDOC_LICENSE_API_KEY"},
	"notify.webhook-url":    {"ZAPIER_WEBHOOK_URL"},
	"notify.rabbitmq.url":   {"RABBITMQ_URL"},
	"notify.rabbitmq.queue": {"RABBITMQ_QUEUE"},
}

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.max-upload-bytes", 10<<20)
	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.dsn", "ats_results.db")
	v.SetDefault("db.seed", false)
	v.SetDefault("ai.provider", ProviderGemini)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.models", []string{"gemini-2.0-flash", "gemini-2.0-flash-001", "gemini-2.5-flash", "gemini-flash-latest"})
	v.SetDefault("ai.vertex.project", "")
	v.SetDefault("ai.vertex.location", "us-central1")
	v.SetDefault("ai.vertex.model", "gemini-2.0-flash")
	v.SetDefault("ai.openai.api-key", "")
	v.SetDefault("ai.openai.api-key-file", "")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.base-url", "")
	v.SetDefault("pdf.license-key", "")
	v.SetDefault("notify.webhook-url", "")
	v.SetDefault("notify.webhook-timeout", 10*time.Second)
	v.SetDefault("notify.rabbitmq.url", "")
	v.SetDefault("notify.rabbitmq.queue", "evaluation_events")
	v.SetDefault("display.timezone", "Europe/London")
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// Load reads configuration from defaults, an optional YAML file and the environment.
// When file is empty, ats-evaluator.yaml in the working directory is used if present.
func Load(v *viper.Viper, file string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	v.SetEnvPrefix("ATS")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		args := append([]string{key, "ATS_" + strings.ToUpper(envKeyReplacer.Replace(key))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %q: %w", file, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(app)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))

	return &cfg, nil
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("db.driver %q is not supported (use mysql, postgres or sqlite)", c.DB.Driver)
	}

	if strings.TrimSpace(c.DB.DSN) == "" {
		return errors.New("db.dsn is required")
	}

	switch c.AI.Provider {
	case ProviderGemini, ProviderVertex, ProviderOpenAI:
	default:
		return fmt.Errorf("ai.provider %q is not supported (use gemini, vertex or openai)", c.AI.Provider)
	}

	if c.AI.Provider == ProviderVertex && strings.TrimSpace(c.AI.Vertex.Project) == "" {
		return errors.New("ai.vertex.project is required for the vertex provider")
	}

	if _, err := time.LoadLocation(c.Display.Timezone); err != nil {
		return fmt.Errorf("display.timezone: %w", err)
	}

	return nil
}

// Location returns the display time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
