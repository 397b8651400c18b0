package config

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/insightdelivered/statement-expenses/internal/cluster"
)

// ErrMalformedConfiguration is returned for any configuration, category or
// field-mapping input that cannot be used. It is fatal before processing.
var ErrMalformedConfiguration = errors.New("malformed configuration")

// DefaultCategoryName is the catch-all category for transactions nothing
// else claims.
const DefaultCategoryName = "Other Business Expenses"

// Learned store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config represents the application configuration
type Config struct {
	DefaultCategory   string           `mapstructure:"default_category"`
	CategoriesFile    string           `mapstructure:"categories_file"`
	FieldMappingsFile string           `mapstructure:"field_mappings_file"`
	Categories        []Category       `mapstructure:"categories"`
	Learned           LearnedConfig    `mapstructure:"learned"`
	Classifier        ClassifierConfig `mapstructure:"classifier"`
	Workers           int              `mapstructure:"workers"`
	Clustering        cluster.Config   `mapstructure:"clustering"`
	SummaryKeywords   []string         `mapstructure:"summary_keywords"`
	Server            ServerConfig     `mapstructure:"server"`
	LogLevel          string           `mapstructure:"log_level"`
}

// LearnedConfig selects where user corrections are kept.
type LearnedConfig struct {
	Driver string `mapstructure:"driver"` // "file" or "sqlite"
	Path   string `mapstructure:"path"`
}

// ClassifierConfig configures the optional external classifier.
type ClassifierConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	BodyLimitMB int    `mapstructure:"body_limit_mb"`
}

func setDefaults(v *viper.Viper) {
	clustering := cluster.DefaultConfig()

	v.SetDefault("default_category", DefaultCategoryName)
	v.SetDefault("learned.driver", DriverFile)
	v.SetDefault("learned.path", "learned_categories.json")
	v.SetDefault("classifier.enabled", false)
	v.SetDefault("classifier.model", "gemini-2.5-flash")
	v.SetDefault("classifier.timeout", "10s")
	v.SetDefault("workers", 0)
	v.SetDefault("clustering.clusters", clustering.Clusters)
	v.SetDefault("clustering.max_iterations", clustering.MaxIterations)
	v.SetDefault("clustering.min_score", clustering.MinScore)
	v.SetDefault("clustering.min_amount_rate", clustering.MinAmountRate)
	v.SetDefault("clustering.min_date_rate", clustering.MinDateRate)
	v.SetDefault("clustering.min_avg_length", clustering.MinAvgLength)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.body_limit_mb", 50)
	v.SetDefault("log_level", "info")
}

// Load reads configuration from an optional file and EXPENSES_* environment
// variables, on top of the built-in defaults. An empty path means defaults
// and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("EXPENSES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMalformedConfiguration, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %w", ErrMalformedConfiguration, err)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.DefaultCategory) == "" {
		problems = append(problems, "default_category is empty")
	}
	switch c.Learned.Driver {
	case DriverFile, DriverSQLite:
	default:
		problems = append(problems, fmt.Sprintf("learned.driver %q is not one of file, sqlite", c.Learned.Driver))
	}
	if c.Learned.Path == "" {
		problems = append(problems, "learned.path is empty")
	}
	if c.Classifier.Enabled && c.Classifier.Timeout <= 0 {
		problems = append(problems, "classifier.timeout must be positive")
	}
	if c.Clustering.Clusters < 1 {
		problems = append(problems, "clustering.clusters must be at least 1")
	}
	if c.Clustering.MaxIterations < 1 {
		problems = append(problems, "clustering.max_iterations must be at least 1")
	}
	for name, rate := range map[string]float64{
		"clustering.min_score":       c.Clustering.MinScore,
		"clustering.min_amount_rate": c.Clustering.MinAmountRate,
		"clustering.min_date_rate":   c.Clustering.MinDateRate,
	} {
		if rate < 0 || rate > 1 {
			problems = append(problems, fmt.Sprintf("%s must be within [0, 1]", name))
		}
	}
	if err := validateCategories(c.Categories); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		// map iteration above is unordered
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrMalformedConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// ResolveCategories returns the category rules in priority order: the
// categories file if set, else inline [[categories]], else the built-in
// defaults. The default category is appended when missing so it is always
// a valid answer.
func (c *Config) ResolveCategories() ([]Category, error) {
	var cats []Category
	switch {
	case c.CategoriesFile != "":
		loaded, err := LoadCategories(c.CategoriesFile)
		if err != nil {
			return nil, err
		}
		cats = loaded
	case len(c.Categories) > 0:
		cats = append(cats, c.Categories...)
	default:
		cats = DefaultCategories()
	}
	return withDefault(cats, c.DefaultCategory), nil
}

// ResolveFieldMappings returns the configured field mappings, or the
// built-in ones when no file is set.
func (c *Config) ResolveFieldMappings() (map[string]FieldMapping, error) {
	if c.FieldMappingsFile == "" {
		return DefaultFieldMappings(), nil
	}
	return LoadFieldMappings(c.FieldMappingsFile)
}

func withDefault(cats []Category, name string) []Category {
	for _, c := range cats {
		if strings.EqualFold(c.Name, name) {
			return cats
		}
	}
	return append(cats, Category{Name: name})
}
