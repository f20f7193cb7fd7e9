package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete codenav configuration (v1 schema)
type Config struct {
	Version     int    `json:"version" mapstructure:"version"`
	ProjectRoot string `json:"projectRoot" mapstructure:"projectRoot"`

	Index     IndexConfig     `json:"index" mapstructure:"index"`
	Graph     GraphConfig     `json:"graph" mapstructure:"graph"`
	Budget    BudgetConfig    `json:"budget" mapstructure:"budget"`
	Overflow  OverflowConfig  `json:"overflow" mapstructure:"overflow"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	Externals ExternalsConfig `json:"externals" mapstructure:"externals"`
}

// IndexConfig contains symbol index configuration
type IndexConfig struct {
	// ScipPath is the SCIP index file path, relative to the project root
	ScipPath string `json:"scipPath" mapstructure:"scipPath"`

	// MaxFunctionLines bounds the assumed body length when the index has no
	// enclosing ranges
	MaxFunctionLines int `json:"maxFunctionLines" mapstructure:"maxFunctionLines"`
}

// GraphConfig contains relationship graph traversal configuration
type GraphConfig struct {
	// MaxDepth is the default traversal depth per direction (clamped 1-4)
	MaxDepth int `json:"maxDepth" mapstructure:"maxDepth"`

	// MaxNodes caps the total nodes collected per graph
	MaxNodes int `json:"maxNodes" mapstructure:"maxNodes"`
}

// BudgetConfig contains response budget configuration
type BudgetConfig struct {
	// ResponseBudget is the cost ceiling per response, in cost units
	ResponseBudget int `json:"responseBudget" mapstructure:"responseBudget"`

	// BaseResponseCost is the fixed envelope overhead in cost units
	BaseResponseCost int `json:"baseResponseCost" mapstructure:"baseResponseCost"`

	// HardCap is the system-wide ceiling on returned items, independent of
	// caller input
	HardCap int `json:"hardCap" mapstructure:"hardCap"`

	// ReductionSteps is the descending candidate-size sequence tried when
	// the requested size exceeds the budget
	ReductionSteps []int `json:"reductionSteps" mapstructure:"reductionSteps"`
}

// OverflowConfig contains overflow store configuration
type OverflowConfig struct {
	// Driver selects the store backend: "sqlite" or "memory"
	Driver string `json:"driver" mapstructure:"driver"`

	// Path is the sqlite database file (sqlite driver only)
	Path string `json:"path" mapstructure:"path"`

	// PageSize is the fixed page size for overflow retrieval
	PageSize int `json:"pageSize" mapstructure:"pageSize"`

	// TTLSeconds is how long records are kept before eviction
	TTLSeconds int `json:"ttlSeconds" mapstructure:"ttlSeconds"`

	// MaxRecords caps the record count; oldest records are evicted first
	MaxRecords int `json:"maxRecords" mapstructure:"maxRecords"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// ExternalsConfig contains external-symbol handling configuration
type ExternalsConfig struct {
	// AllowlistPath is the YAML allow-list of important external symbols,
	// relative to the project root
	AllowlistPath string `json:"allowlistPath" mapstructure:"allowlistPath"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:     1,
		ProjectRoot: ".",
		Index: IndexConfig{
			ScipPath:         "index.scip",
			MaxFunctionLines: 500,
		},
		Graph: GraphConfig{
			MaxDepth: 2,
			MaxNodes: 100,
		},
		Budget: BudgetConfig{
			ResponseBudget:   2000,
			BaseResponseCost: 500,
			HardCap:          500,
			ReductionSteps:   []int{50, 40, 30, 20, 10},
		},
		Overflow: OverflowConfig{
			Driver:     "sqlite",
			Path:       filepath.Join(".codenav", "overflow.db"),
			PageSize:   100,
			TTLSeconds: 7200,
			MaxRecords: 256,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
		Externals: ExternalsConfig{
			AllowlistPath: "externals.yaml",
		},
	}
}

// LoadConfig loads configuration from .codenav/config.json under the
// project root, with CODENAV_* environment overrides (section and key
// joined by underscore, e.g. CODENAV_GRAPH_MAXDEPTH). A missing file
// yields the defaults; a malformed one is an error. Zero or negative
// numeric settings fall back to their defaults.
func LoadConfig(projectRoot string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, ".codenav"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadConfigFile loads an explicit config file instead of the project
// default location. The file must exist.
func LoadConfigFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

// newViper returns a viper instance with every key registered at its
// default, so environment overrides apply whether or not a config file
// names the key.
func newViper() *viper.Viper {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("projectRoot", def.ProjectRoot)
	v.SetDefault("index.scipPath", def.Index.ScipPath)
	v.SetDefault("index.maxFunctionLines", def.Index.MaxFunctionLines)
	v.SetDefault("graph.maxDepth", def.Graph.MaxDepth)
	v.SetDefault("graph.maxNodes", def.Graph.MaxNodes)
	v.SetDefault("budget.responseBudget", def.Budget.ResponseBudget)
	v.SetDefault("budget.baseResponseCost", def.Budget.BaseResponseCost)
	v.SetDefault("budget.hardCap", def.Budget.HardCap)
	v.SetDefault("budget.reductionSteps", def.Budget.ReductionSteps)
	v.SetDefault("overflow.driver", def.Overflow.Driver)
	v.SetDefault("overflow.path", def.Overflow.Path)
	v.SetDefault("overflow.pageSize", def.Overflow.PageSize)
	v.SetDefault("overflow.ttlSeconds", def.Overflow.TTLSeconds)
	v.SetDefault("overflow.maxRecords", def.Overflow.MaxRecords)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.maxSize", def.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", def.Logging.MaxBackups)
	v.SetDefault("externals.allowlistPath", def.Externals.AllowlistPath)

	v.SetEnvPrefix("CODENAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills zero-valued settings from DefaultConfig so partial
// config files stay usable.
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Index.ScipPath == "" {
		c.Index.ScipPath = def.Index.ScipPath
	}
	if c.Index.MaxFunctionLines <= 0 {
		c.Index.MaxFunctionLines = def.Index.MaxFunctionLines
	}
	if c.Graph.MaxDepth <= 0 {
		c.Graph.MaxDepth = def.Graph.MaxDepth
	}
	if c.Graph.MaxNodes <= 0 {
		c.Graph.MaxNodes = def.Graph.MaxNodes
	}
	if c.Budget.ResponseBudget <= 0 {
		c.Budget.ResponseBudget = def.Budget.ResponseBudget
	}
	if c.Budget.BaseResponseCost <= 0 {
		c.Budget.BaseResponseCost = def.Budget.BaseResponseCost
	}
	if c.Budget.HardCap <= 0 {
		c.Budget.HardCap = def.Budget.HardCap
	}
	if len(c.Budget.ReductionSteps) == 0 {
		c.Budget.ReductionSteps = def.Budget.ReductionSteps
	}
	if c.Overflow.Driver == "" {
		c.Overflow.Driver = def.Overflow.Driver
	}
	if c.Overflow.Path == "" {
		c.Overflow.Path = def.Overflow.Path
	}
	if c.Overflow.PageSize <= 0 {
		c.Overflow.PageSize = def.Overflow.PageSize
	}
	if c.Overflow.TTLSeconds <= 0 {
		c.Overflow.TTLSeconds = def.Overflow.TTLSeconds
	}
	if c.Overflow.MaxRecords <= 0 {
		c.Overflow.MaxRecords = def.Overflow.MaxRecords
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Externals.AllowlistPath == "" {
		c.Externals.AllowlistPath = def.Externals.AllowlistPath
	}
}

// Save writes the configuration to .codenav/config.json
func (c *Config) Save(projectRoot string) error {
	dir := filepath.Join(projectRoot, ".codenav")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Overflow.Driver != "sqlite" && c.Overflow.Driver != "memory" {
		return &ConfigError{Field: "overflow.driver", Message: "must be sqlite or memory"}
	}
	for _, step := range c.Budget.ReductionSteps {
		if step <= 0 {
			return &ConfigError{Field: "budget.reductionSteps", Message: "steps must be positive"}
		}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
