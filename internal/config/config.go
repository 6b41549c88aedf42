package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EmptyColumnPolicy controls what a filtered table gets when the per-table
// column search selected nothing: every original column, or none of them.
type EmptyColumnPolicy string

const (
	EmptyColumnsAll  EmptyColumnPolicy = "all"
	EmptyColumnsNone EmptyColumnPolicy = "none"
)

// Config represents the application configuration
type Config struct {
	Embedding EmbeddingConfig `json:"embedding" envPrefix:"SCHEMALINK_"`
	VectorDB  VectorDBConfig  `json:"vector_db" envPrefix:"SCHEMALINK_"`
	Filter    FilterConfig    `json:"filter"    envPrefix:"SCHEMALINK_"`
	Reranker  RerankerConfig  `json:"reranker"  envPrefix:"SCHEMALINK_"`
	Cache     CacheConfig     `json:"cache"     envPrefix:"SCHEMALINK_"`
	Logging   LoggingConfig   `json:"logging"   envPrefix:"SCHEMALINK_"`
}

// EmbeddingConfig represents embedding provider configuration
type EmbeddingConfig struct {
	Model      string `json:"model"       env:"EMBEDDING_MODEL"      envDefault:"text-embedding-3-small"`
	BaseURL    string `json:"base_url"    env:"EMBEDDING_BASE_URL"   envDefault:""`
	APIKey     string `json:"-"           env:"EMBEDDING_API_KEY"`
	Dimensions int    `json:"dimensions"  env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
	BatchSize  int    `json:"batch_size"  env:"EMBEDDING_BATCH_SIZE" envDefault:"100"`
}

// VectorDBConfig represents vector index storage configuration
type VectorDBConfig struct {
	Path       string `json:"path"       env:"VECTOR_DB_PATH"       envDefault:"~/.local/share/schemalink/vector.db"`
	Collection string `json:"collection" env:"VECTOR_DB_COLLECTION" envDefault:"schema_embeddings"`
}

// FilterConfig represents query filtering defaults
type FilterConfig struct {
	TopKTables          int               `json:"top_k_tables"         env:"TOP_K_TABLES"          envDefault:"15"`
	TopKColumns         int               `json:"top_k_columns"        env:"TOP_K_COLUMNS"         envDefault:"20"`
	SimilarityThreshold float64           `json:"similarity_threshold" env:"SIMILARITY_THRESHOLD"  envDefault:"0.5"`
	FKHops              int               `json:"fk_hops"              env:"FK_HOPS"               envDefault:"1"`
	EmptyColumnPolicy   EmptyColumnPolicy `json:"empty_column_policy"  env:"EMPTY_COLUMN_POLICY"   envDefault:"all"`
}

// RerankerConfig represents second-stage reranking configuration
type RerankerConfig struct {
	Enabled             bool    `json:"enabled"              env:"RERANKER_ENABLED"       envDefault:"false"`
	Model               string  `json:"model"                env:"RERANKER_MODEL"         envDefault:"BAAI/bge-reranker-base"`
	HFToken             string  `json:"-"                    env:"RERANKER_HF_TOKEN"`
	InitialTopK         int     `json:"initial_top_k"        env:"RERANKER_INITIAL_TOP_K" envDefault:"20"`
	FinalTopKTables     int     `json:"final_top_k_tables"   env:"RERANKER_FINAL_TABLES"  envDefault:"10"`
	FinalTopKColumns    int     `json:"final_top_k_columns"  env:"RERANKER_FINAL_COLUMNS" envDefault:"10"`
	LLMValidation       bool    `json:"llm_validation"       env:"LLM_VALIDATION"         envDefault:"false"`
	LLMModel            string  `json:"llm_model"            env:"LLM_MODEL"              envDefault:"llama-3.1-70b-versatile"`
	LLMBaseURL          string  `json:"llm_base_url"         env:"LLM_BASE_URL"           envDefault:""`
	LLMAPIKey           string  `json:"-"                    env:"LLM_API_KEY"`
	ValidationThreshold float64 `json:"validation_threshold" env:"VALIDATION_THRESHOLD"   envDefault:"0.7"`
}

// CacheConfig represents the embedding cache configuration
type CacheConfig struct {
	Path string `json:"path" env:"CACHE_PATH" envDefault:"~/.cache/schemalink/embeddings_cache.json"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:""`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := &Config{}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides (also sets defaults)
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: "SCHEMALINK_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "vector-db":
			if str, ok := value.(string); ok && str != "" {
				config.VectorDB.Path = str
			}
		case "cache-path":
			if str, ok := value.(string); ok && str != "" {
				config.Cache.Path = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "reranker":
			if b, ok := value.(bool); ok {
				config.Reranker.Enabled = b
			}
		}
	}
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if s.Kind() == reflect.Bool {
			t.Set(s)
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	if config.Filter.SimilarityThreshold < 0 || config.Filter.SimilarityThreshold > 1 {
		return fmt.Errorf(
			"similarity threshold must be in [0, 1]: %v",
			config.Filter.SimilarityThreshold,
		)
	}

	switch config.Filter.EmptyColumnPolicy {
	case EmptyColumnsAll, EmptyColumnsNone:
	default:
		return fmt.Errorf(
			"invalid empty column policy: %s (must be all or none)",
			config.Filter.EmptyColumnPolicy,
		)
	}

	if config.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive: %d", config.Embedding.Dimensions)
	}

	if config.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding batch size must be positive: %d", config.Embedding.BatchSize)
	}

	if config.Reranker.ValidationThreshold < 0 || config.Reranker.ValidationThreshold > 1 {
		return fmt.Errorf(
			"reranker validation threshold must be in [0, 1]: %v",
			config.Reranker.ValidationThreshold,
		)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("SCHEMALINK_CONFIG"); configPath != "" {
		return ExpandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "schemalink", "config.json")
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.VectorDB.Path = ExpandPath(c.VectorDB.Path)
	c.Cache.Path = ExpandPath(c.Cache.Path)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.VectorDB.Path),
		filepath.Dir(c.Cache.Path),
	}

	if c.Logging.Output == "file" && c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
