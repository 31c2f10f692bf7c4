package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/scopes-backend/internal/data/db"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/events/publisher"
	"github.com/yungbote/scopes-backend/internal/platform/envutil"
)

const (
	AliasIndexSQL    = "sql"
	AliasIndexMemory = "memory"
)

type Config struct {
	LogMode string

	DBDriver string
	DBDSN    string

	RedisAddr    string
	RedisChannel string
	KafkaBrokers []string
	KafkaTopic   string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	Publish                    publisher.Policy
	AliasMaxGenerationAttempts int
	// AliasIndex selects the read side of the alias namespace.
	AliasIndex         string
	RebuildProjections bool

	OtelEnabled     bool
	OtelEndpoint    string
	OtelHeaders     string
	OtelInsecure    bool
	OtelSampleRatio float64
	ServiceName     string
	Environment     string

	MetricsEnabled bool
	MetricsAddr    string
}

// configFile is the optional YAML overlay named by SCOPES_CONFIG_FILE.
type configFile struct {
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		Addr    string `yaml:"addr"`
		Channel string `yaml:"channel"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Neo4j struct {
		URI      string `yaml:"uri"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"neo4j"`
	Publish struct {
		MaxAttempts int    `yaml:"max_attempts"`
		BaseDelay   string `yaml:"base_delay"`
		MaxDelay    string `yaml:"max_delay"`
	} `yaml:"publish"`
	Alias struct {
		MaxGenerationAttempts int    `yaml:"max_generation_attempts"`
		Index                 string `yaml:"index"`
	} `yaml:"alias"`
	Observability struct {
		OtelEnabled    *bool  `yaml:"otel_enabled"`
		OtelEndpoint   string `yaml:"otel_endpoint"`
		MetricsEnabled *bool  `yaml:"metrics_enabled"`
		MetricsAddr    string `yaml:"metrics_addr"`
	} `yaml:"observability"`
}

func defaultConfig() Config {
	return Config{
		LogMode:                    "development",
		DBDriver:                   db.DriverSQLite,
		RedisChannel:               "scope-events",
		KafkaTopic:                 "scope-events",
		Publish:                    publisher.DefaultPolicy(),
		AliasMaxGenerationAttempts: alias.DefaultMaxGenerationAttempts,
		AliasIndex:                 AliasIndexSQL,
		OtelSampleRatio:            1,
		ServiceName:                "scopes-backend",
		Environment:                "development",
		MetricsAddr:                ":9464",
	}
}

// LoadConfig starts from defaults, applies the YAML overlay when
// SCOPES_CONFIG_FILE is set, then environment variables. Env wins.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()
	if path := envutil.String("SCOPES_CONFIG_FILE", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := applyFile(&cfg, raw); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	setString(&cfg.LogMode, f.Log.Mode)
	setString(&cfg.DBDriver, f.Database.Driver)
	setString(&cfg.DBDSN, f.Database.DSN)
	setString(&cfg.RedisAddr, f.Redis.Addr)
	setString(&cfg.RedisChannel, f.Redis.Channel)
	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = f.Kafka.Brokers
	}
	setString(&cfg.KafkaTopic, f.Kafka.Topic)
	setString(&cfg.Neo4jURI, f.Neo4j.URI)
	setString(&cfg.Neo4jUser, f.Neo4j.User)
	setString(&cfg.Neo4jPassword, f.Neo4j.Password)
	setString(&cfg.Neo4jDatabase, f.Neo4j.Database)
	if f.Publish.MaxAttempts > 0 {
		cfg.Publish.MaxAttempts = f.Publish.MaxAttempts
	}
	if err := setDuration(&cfg.Publish.BaseDelay, f.Publish.BaseDelay); err != nil {
		return fmt.Errorf("publish.base_delay: %w", err)
	}
	if err := setDuration(&cfg.Publish.MaxDelay, f.Publish.MaxDelay); err != nil {
		return fmt.Errorf("publish.max_delay: %w", err)
	}
	if f.Alias.MaxGenerationAttempts > 0 {
		cfg.AliasMaxGenerationAttempts = f.Alias.MaxGenerationAttempts
	}
	setString(&cfg.AliasIndex, f.Alias.Index)
	if f.Observability.OtelEnabled != nil {
		cfg.OtelEnabled = *f.Observability.OtelEnabled
	}
	setString(&cfg.OtelEndpoint, f.Observability.OtelEndpoint)
	if f.Observability.MetricsEnabled != nil {
		cfg.MetricsEnabled = *f.Observability.MetricsEnabled
	}
	setString(&cfg.MetricsAddr, f.Observability.MetricsAddr)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.DBDriver = envutil.String("DB_DRIVER", cfg.DBDriver)
	cfg.DBDSN = envutil.String("DB_DSN", cfg.DBDSN)
	cfg.RedisAddr = envutil.String("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisChannel = envutil.String("REDIS_CHANNEL", cfg.RedisChannel)
	if brokers := envutil.List("KAFKA_BROKERS"); len(brokers) > 0 {
		cfg.KafkaBrokers = brokers
	}
	cfg.KafkaTopic = envutil.String("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.Neo4jURI = envutil.String("NEO4J_URI", cfg.Neo4jURI)
	cfg.Neo4jUser = envutil.String("NEO4J_USER", cfg.Neo4jUser)
	cfg.Neo4jPassword = envutil.String("NEO4J_PASSWORD", cfg.Neo4jPassword)
	cfg.Neo4jDatabase = envutil.String("NEO4J_DATABASE", cfg.Neo4jDatabase)
	cfg.Publish.MaxAttempts = envutil.Int("PUBLISH_MAX_ATTEMPTS", cfg.Publish.MaxAttempts)
	cfg.Publish.BaseDelay = envutil.Duration("PUBLISH_BASE_DELAY", cfg.Publish.BaseDelay)
	cfg.Publish.MaxDelay = envutil.Duration("PUBLISH_MAX_DELAY", cfg.Publish.MaxDelay)
	cfg.AliasMaxGenerationAttempts = envutil.Int("ALIAS_MAX_GENERATION_ATTEMPTS", cfg.AliasMaxGenerationAttempts)
	cfg.AliasIndex = strings.ToLower(envutil.String("ALIAS_INDEX", cfg.AliasIndex))
	cfg.RebuildProjections = envutil.Bool("REBUILD_PROJECTIONS", cfg.RebuildProjections)
	cfg.OtelEnabled = envutil.Bool("OTEL_ENABLED", cfg.OtelEnabled)
	cfg.OtelEndpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OtelEndpoint)
	cfg.OtelHeaders = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.OtelHeaders)
	cfg.OtelInsecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OtelInsecure)
	cfg.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsAddr = envutil.String("METRICS_ADDR", cfg.MetricsAddr)
}

func (c Config) validate() error {
	switch c.DBDriver {
	case db.DriverSQLite, db.DriverPostgres:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", db.DriverSQLite, db.DriverPostgres, c.DBDriver)
	}
	switch c.AliasIndex {
	case AliasIndexSQL, AliasIndexMemory:
	default:
		return fmt.Errorf("ALIAS_INDEX must be %q or %q, got %q", AliasIndexSQL, AliasIndexMemory, c.AliasIndex)
	}
	if c.AliasMaxGenerationAttempts <= 0 {
		return fmt.Errorf("ALIAS_MAX_GENERATION_ATTEMPTS must be positive")
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
