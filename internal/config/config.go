// Package config loads and validates Smorty's declarative input
// (spec.md §3): chains, AI provider settings, and the contracts/specs
// that drive every later generation phase.
//
// Grounded on the teacher's config.LoadConfig (config/config.go): a
// struct loaded from a file plus environment overrides, returned as
// (*Config, error), with a best-effort .env load exactly like the
// teacher's godotenv.Load()/godotenv.Load("../.env") fallback.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"smorty/internal/apperr"
)

// AI holds LLM provider settings for the generation pipeline (C4).
type AI struct {
	Provider    string  `toml:"provider" yaml:"provider"`
	Model       string  `toml:"model" yaml:"model"`
	APIKey      string  `toml:"api_key" yaml:"api_key"`
	APIBase     string  `toml:"api_base" yaml:"api_base"`
	Temperature float64 `toml:"temperature" yaml:"temperature"`
}

// Spec is one natural-language endpoint/event task under a contract.
type Spec struct {
	Name       string `toml:"name" yaml:"name"`
	StartBlock uint64 `toml:"start_block" yaml:"start_block"`
	Endpoint   string `toml:"endpoint" yaml:"endpoint"`
	Task       string `toml:"task" yaml:"task"`
}

// Contract is one deployed contract Smorty watches and generates
// endpoints against.
type Contract struct {
	Chain   string `toml:"chain" yaml:"chain"`
	Address string `toml:"address" yaml:"address"`
	ABIPath string `toml:"abi_path" yaml:"abi_path"`
	Specs   []Spec `toml:"specs" yaml:"specs"`
}

// Config is the root declarative document (spec.md §3 "Config").
type Config struct {
	DatabaseURI string              `toml:"database_uri" yaml:"database_uri"`
	LogLevel    string              `toml:"log_level" yaml:"log_level"`
	AI          AI                  `toml:"ai" yaml:"ai"`
	Chains      map[string]string   `toml:"chains" yaml:"chains"`
	Contracts   map[string]Contract `toml:"contracts" yaml:"contracts"`
}

// Load reads path (TOML or YAML, detected by extension), layers
// environment overrides on top, validates the result, and returns it.
func Load(path string) (*Config, error) {
	if os.Getenv("ENVIRONMENT") != "production" {
		if err := godotenv.Load(); err != nil {
			_ = godotenv.Load(filepath.Join("..", ".env"))
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "read config file "+path, err)
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, apperr.Wrap(apperr.KindConfig, "parse toml config", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperr.Wrap(apperr.KindConfig, "parse yaml config", err)
		}
	default:
		return nil, apperr.New(apperr.KindConfig, "unrecognised config extension "+ext+" (want .toml or .yaml)")
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers environment variables over the parsed file,
// mirroring the teacher's getEnv(key, default) precedence (spec.md §5
// Environment).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URI"); v != "" {
		cfg.DatabaseURI = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_BASE"); v != "" {
		cfg.AI.APIBase = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	for chain := range cfg.Chains {
		key := "ETH_RPC_URL_" + strings.ToUpper(chain)
		if v := os.Getenv(key); v != "" {
			cfg.Chains[chain] = v
		}
	}
}

// OpenDB connects to the configured Postgres database with the same
// pool settings the teacher's config.InitDB uses (config/config.go):
// prepared-statement caching on, a bounded idle/open connection pool,
// and a connectivity ping before returning.
func OpenDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURI), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDb, "connect to database", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDb, "get sql.DB handle", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	if err := sqlDB.Ping(); err != nil {
		return nil, apperr.Wrap(apperr.KindDb, "ping database", err)
	}
	return db, nil
}
