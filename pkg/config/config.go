// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Resolver, Search backends, Agent, Store, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Search    SearchConfig    `yaml:"search"`
	Agent     AgentConfig     `yaml:"agent"`
	Store     StoreConfig     `yaml:"store"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Blocklist BlocklistConfig `yaml:"blocklist"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RateLimit       int           `yaml:"rateLimit"`
	RateWindow      time.Duration `yaml:"rateWindow"`
}

// ResolverConfig controls the heuristic resolution pipeline.
type ResolverConfig struct {
	MaxDomainGuesses  int           `yaml:"maxDomainGuesses"`
	MaxCandidates     int           `yaml:"maxCandidates"`
	ValidateTopK      int           `yaml:"validateTopK"`
	ValidationWorkers int           `yaml:"validationWorkers"`
	FetchTimeout      time.Duration `yaml:"fetchTimeout"`
	HeuristicBudget   time.Duration `yaml:"heuristicBudget"`
	OverlapThreshold  float64       `yaml:"overlapThreshold"`
	MaxFetchBodyBytes int64         `yaml:"maxFetchBodyBytes"`
	DisqualifyMarkers []string      `yaml:"disqualifyMarkers"`
}

// SearchConfig selects and configures the web-search backends. Backends are
// tried in preference order; the first whose credentials validate wins, and
// DuckDuckGo (credential-free) is always available as the last resort.
type SearchConfig struct {
	Preference []string         `yaml:"preference"`
	MaxResults int              `yaml:"maxResults"`
	Timeout    time.Duration    `yaml:"timeout"`
	DuckDuckGo DuckDuckGoConfig `yaml:"duckduckgo"`
	SerpAPI    SerpAPIConfig    `yaml:"serpapi"`
	Tavily     TavilyConfig     `yaml:"tavily"`
}

// DuckDuckGoConfig configures the credential-free DuckDuckGo backend.
type DuckDuckGoConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Region  string `yaml:"region"`
}

// SerpAPIConfig configures the SerpAPI (Google engine) backend.
type SerpAPIConfig struct {
	APIKey  string `yaml:"apiKey"`
	Engine  string `yaml:"engine"`
	BaseURL string `yaml:"baseUrl"`
}

// TavilyConfig configures the Tavily search backend.
type TavilyConfig struct {
	APIKey      string `yaml:"apiKey"`
	SearchDepth string `yaml:"searchDepth"`
	BaseURL     string `yaml:"baseUrl"`
}

// AgentConfig controls the LLM fallback agent.
type AgentConfig struct {
	APIKey          string        `yaml:"apiKey"`
	Model           string        `yaml:"model"`
	BaseURL         string        `yaml:"baseUrl"`
	Temperature     float64       `yaml:"temperature"`
	MaxIterations   int           `yaml:"maxIterations"`
	Budget          time.Duration `yaml:"budget"`
	PromptVariation int           `yaml:"promptVariation"`
}

// StoreConfig selects the durable cache store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // file, redis, postgres
	Path    string `yaml:"path"`    // file backend only
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// KafkaConfig holds Kafka broker and topic settings for resolution events.
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	EventsTopic   string   `yaml:"eventsTopic"`
}

// BlocklistConfig lists domains judged non-canonical (social networks,
// aggregators, directories). Entries extend the built-in defaults.
type BlocklistConfig struct {
	Domains []string `yaml:"domains"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       30,
			RateWindow:      time.Minute,
		},
		Resolver: ResolverConfig{
			MaxDomainGuesses:  16,
			MaxCandidates:     20,
			ValidateTopK:      5,
			ValidationWorkers: 4,
			FetchTimeout:      5 * time.Second,
			HeuristicBudget:   30 * time.Second,
			OverlapThreshold:  0.3,
			MaxFetchBodyBytes: 20 * 1024,
			DisqualifyMarkers: []string{"wikipedia", "linkedin"},
		},
		Search: SearchConfig{
			Preference: []string{"tavily", "serpapi", "duckduckgo"},
			MaxResults: 15,
			Timeout:    5 * time.Second,
			DuckDuckGo: DuckDuckGoConfig{
				BaseURL: "https://html.duckduckgo.com/html/",
				Region:  "us-en",
			},
			SerpAPI: SerpAPIConfig{
				Engine:  "google",
				BaseURL: "https://serpapi.com/search.json",
			},
			Tavily: TavilyConfig{
				SearchDepth: "advanced",
				BaseURL:     "https://api.tavily.com/search",
			},
		},
		Agent: AgentConfig{
			Model:           "gpt-4",
			BaseURL:         "https://api.openai.com/v1",
			Temperature:     0.1,
			MaxIterations:   10,
			Budget:          60 * time.Second,
			PromptVariation: 1,
		},
		Store: StoreConfig{
			Backend: "file",
			Path:    "data/resolved.json",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "orgsite",
			User:            "orgsite",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "orgsite-group",
			EventsTopic:   "resolution-events",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// validate rejects configurations that cannot produce a working resolver.
func validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case "file", "redis", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q (want file, redis, or postgres)", cfg.Store.Backend)
	}
	if cfg.Store.Backend == "file" && cfg.Store.Path == "" {
		return fmt.Errorf("store.path is required for the file backend")
	}
	if cfg.Resolver.OverlapThreshold < 0 || cfg.Resolver.OverlapThreshold > 1 {
		return fmt.Errorf("resolver.overlapThreshold must be in [0,1], got %v", cfg.Resolver.OverlapThreshold)
	}
	for _, name := range cfg.Search.Preference {
		switch name {
		case "duckduckgo", "ddg", "serpapi", "google", "tavily":
		default:
			return fmt.Errorf("unknown search backend %q in preference list", name)
		}
	}
	return nil
}

// applyEnvOverrides reads OR_* environment variables (plus the conventional
// provider API key variables) and overrides the corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("OR_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("OR_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("OR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("OR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("OR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("OR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("OR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("OR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("OR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("OR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("OR_SEARCH_PREFERENCE"); v != "" {
		cfg.Search.Preference = strings.Split(v, ",")
	}
	if v := os.Getenv("SERPAPI_API_KEY"); v != "" {
		cfg.Search.SerpAPI.APIKey = v
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		cfg.Search.Tavily.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Agent.APIKey = v
	}
	if v := os.Getenv("OR_AGENT_MODEL"); v != "" {
		cfg.Agent.Model = v
	}
	if v := os.Getenv("OR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
