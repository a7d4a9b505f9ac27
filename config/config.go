package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the page generation service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Client    ClientConfig    `mapstructure:"client"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address      string   `mapstructure:"address"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// LLMConfig contains completion-service provider configuration and the
// model routing for the different generation calls.
type LLMConfig struct {
	Provider  string           `mapstructure:"provider"`
	APIKey    string           `mapstructure:"api_key"`
	BaseURL   string           `mapstructure:"base_url"`
	Timeout   time.Duration    `mapstructure:"timeout"`
	MaxTokens int              `mapstructure:"max_tokens"`
	Routing   LLMRoutingConfig `mapstructure:"routing"`
}

// LLMRoutingConfig defines which model serves each pipeline call.
type LLMRoutingConfig struct {
	Hero      string `mapstructure:"hero"`      // fast, small-output hero call
	Atoms     string `mapstructure:"atoms"`     // structured content generation
	Layout    string `mapstructure:"layout"`    // layout proposal
	Embedding string `mapstructure:"embedding"` // query embeddings
	Image     string `mapstructure:"image"`     // image generation
}

// StorageConfig contains Postgres and Redis settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DSN assembles a connection string from the URL or the discrete parts.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Addr joins host and port for the go-redis client.
func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", r.Host, port)
}

// RetrievalConfig bounds the hybrid retrieval stage.
type RetrievalConfig struct {
	MaxKeywordTerms     int           `mapstructure:"max_keyword_terms"`
	EmbeddingDimensions int           `mapstructure:"embedding_dimensions"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// PipelineConfig tunes orchestration behaviour.
type PipelineConfig struct {
	BlockPacingDelay time.Duration `mapstructure:"block_pacing_delay"`
	MaxBlocks        int           `mapstructure:"max_blocks"`
	ImageBatchSize   int           `mapstructure:"image_batch_size"`
	OrphanGrace      time.Duration `mapstructure:"orphan_grace"`
	EventBufferSize  int           `mapstructure:"event_buffer_size"`
	StageTimeout     time.Duration `mapstructure:"stage_timeout"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
}

// ClientConfig is the retry policy handed to browser/SDK clients; it lives
// in server config so both sides agree on the ceiling.
type ClientConfig struct {
	RetryBaseDelay  time.Duration `mapstructure:"retry_base_delay"`
	RetryMultiplier float64       `mapstructure:"retry_multiplier"`
	MaxRetries      int           `mapstructure:"max_retries"`
}

func (p PipelineConfig) Validate() error {
	if p.MaxBlocks <= 0 {
		return fmt.Errorf("pipeline.max_blocks must be > 0")
	}
	if p.ImageBatchSize <= 0 {
		return fmt.Errorf("pipeline.image_batch_size must be > 0")
	}
	return nil
}

func (c ClientConfig) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("client.max_retries must be >= 0")
	}
	if c.RetryMultiplier < 1 {
		return fmt.Errorf("client.retry_multiplier must be >= 1")
	}
	return nil
}

// LoadConfig reads configuration from the given file (or ./config.yaml when
// empty), applies defaults and PAGEPOOF_* environment overrides, and
// validates the result. It panics on malformed config: a service with a
// broken config should not come up.
func LoadConfig(cfgPath string) *Config {
	v := viper.New()
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("PAGEPOOF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Sprintf("read config: %v", err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("unmarshal config: %v", err))
	}
	if err := cfg.Pipeline.Validate(); err != nil {
		panic(err.Error())
	}
	if err := cfg.Client.Validate(); err != nil {
		panic(err.Error())
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.default_timeout", "30s")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", "45s")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.routing.hero", "gpt-4o-mini")
	v.SetDefault("llm.routing.atoms", "gpt-4o")
	v.SetDefault("llm.routing.layout", "gpt-4o-mini")
	v.SetDefault("llm.routing.embedding", "text-embedding-3-small")
	v.SetDefault("llm.routing.image", "dall-e-3")
	v.SetDefault("storage.postgres.timeout", "5s")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.timeout", "5s")
	v.SetDefault("retrieval.max_keyword_terms", 5)
	v.SetDefault("retrieval.embedding_dimensions", 1536)
	v.SetDefault("retrieval.timeout", "10s")
	v.SetDefault("pipeline.block_pacing_delay", "150ms")
	v.SetDefault("pipeline.max_blocks", 8)
	v.SetDefault("pipeline.image_batch_size", 3)
	v.SetDefault("pipeline.orphan_grace", "30s")
	v.SetDefault("pipeline.event_buffer_size", 256)
	v.SetDefault("pipeline.stage_timeout", "60s")
	v.SetDefault("pipeline.session_ttl", "15m")
	v.SetDefault("client.retry_base_delay", "500ms")
	v.SetDefault("client.retry_multiplier", 2.0)
	v.SetDefault("client.max_retries", 5)
}
