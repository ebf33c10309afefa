// =============================================================================
// Register Interests Parser - Configuration Module
// =============================================================================
//
// This module loads the main application configuration and the per-register
// configurations.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, logging, errata and output
//   2. Register Configs (configs/*.yaml): one per published register, naming
//      its reporting period and the page files that belong to it
//
// A register config is the unit the parser iterates over: every page file it
// matches is one subject for that period.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/register-interests/internal/htmltree"
	"github.com/ginjaninja78/register-interests/internal/taxonomy"
)

// Output formats understood by the export package.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatXML  = "xml"
)

// CacheOff disables the parse cache when used as cache_dir.
const CacheOff = "off"

var ErrNoRegisters = errors.New("no register configurations found")

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the root of the downloaded register pages. Each register
	// config resolves its patterns relative to it.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the exported records and the error log.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// ConfigsDir holds the register configurations.
	// Default: "./configs"
	ConfigsDir string `yaml:"configs_dir"`

	// CacheDir keeps the interests of completed runs, one file per period
	// and subject request. Set to "off" to disable caching.
	// Default: "./cache"
	CacheDir string `yaml:"cache_dir"`

	// =========================================================================
	// ERRATA SETTINGS
	// =========================================================================

	// ErrataFiles are YAML rule files loaded after the built-in table, in
	// order. Earlier rules win.
	ErrataFiles []string `yaml:"errata_files"`

	// UseDefaultErrata loads the curated rules shipped with the binary.
	// Default: true
	UseDefaultErrata *bool `yaml:"use_default_errata"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path to the application log file. Empty disables it.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the base name of exported files.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {period}    - Reporting period, or "all"
	// Default: "interests_{period}_{timestamp}"
	OutputNameFormat string `yaml:"output_name_format"`

	// OutputFormats lists the files written per run: "csv", "xlsx", "xml".
	// Default: ["csv"]
	OutputFormats []string `yaml:"output_formats"`

	// ErrorLogName is the file diagnostics are appended to, inside OutputDir.
	// Default: "errors.log"
	ErrorLogName string `yaml:"error_log_name"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of subject pages parsed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps parsing other subjects when a page cannot be
	// read. Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`
}

// DefaultErrataEnabled reports whether the built-in errata are loaded.
func (c *MainConfig) DefaultErrataEnabled() bool {
	return c.UseDefaultErrata == nil || *c.UseDefaultErrata
}

// CacheEnabled reports whether parsed interests are cached.
func (c *MainConfig) CacheEnabled() bool {
	return c.CacheDir != CacheOff
}

// ShouldContinueOnError reports whether a failing subject is skipped rather
// than aborting the run.
func (c *MainConfig) ShouldContinueOnError() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// =============================================================================
// REGISTER CONFIGURATION STRUCTURE
// =============================================================================

// RegisterConfig describes one published register: a reporting period and
// the page files, one per subject, that make it up.
type RegisterConfig struct {
	// Name is used in logs. Defaults to the file name.
	Name string `yaml:"name"`

	// Period is the reporting period, such as "2015-16". It selects the
	// category taxonomy generation.
	Period string `yaml:"period"`

	// FileMatchingPatterns are glob patterns, relative to the main input
	// directory, for the subject pages of this register.
	// Example: "2015-16/*.htm"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// ContentID is the id of the element wrapping the register text.
	// Default: "mainTextBlock"
	ContentID string `yaml:"content_id"`

	// Source is where the pages were downloaded from. Informational only.
	Source string `yaml:"source,omitempty"`

	// path is the file the config was loaded from.
	path string
}

// Path returns the file the configuration was loaded from.
func (c *RegisterConfig) Path() string { return c.path }

// Files expands the matching patterns under inputDir. Paths are sorted and
// deduplicated.
func (c *RegisterConfig) Files(inputDir string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range c.FileMatchingPatterns {
		matches, err := filepath.Glob(filepath.Join(inputDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseMainConfig(data)
}

// ParseMainConfig parses, defaults and validates a main configuration.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultMainConfig returns the configuration used when no file is given.
func DefaultMainConfig() *MainConfig {
	config := &MainConfig{}
	applyMainConfigDefaults(config)
	return config
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.ConfigsDir == "" {
		config.ConfigsDir = "./configs"
	}
	if config.CacheDir == "" {
		config.CacheDir = "./cache"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "interests_{period}_{timestamp}"
	}
	if len(config.OutputFormats) == 0 {
		config.OutputFormats = []string{FormatCSV}
	}
	if config.ErrorLogName == "" {
		config.ErrorLogName = "errors.log"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
}

// validateMainConfig checks values that have no sensible fallback.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}

	for _, format := range config.OutputFormats {
		if format != FormatCSV && format != FormatXLSX && format != FormatXML {
			return fmt.Errorf("unknown output format %q", format)
		}
	}

	if config.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be positive, got %d", config.MaxConcurrency)
	}

	return nil
}

// EnsureOutputDir creates the output directory if it does not exist.
func (c *MainConfig) EnsureOutputDir() error {
	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.OutputDir, err)
	}
	return nil
}

// LoadRegisterConfigs loads all register configurations from a directory.
//
// PARAMETERS:
//   - configsDir: The directory containing register configuration files.
//
// RETURNS:
//   - The configurations, ordered by period then name.
//   - An error if the directory holds no configuration or any file is invalid.
func LoadRegisterConfigs(configsDir string) ([]*RegisterConfig, error) {
	files, err := filepath.Glob(filepath.Join(configsDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(configsDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list config files: %w", err)
	}
	files = append(files, ymlFiles...)

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRegisters, configsDir)
	}

	configs := make([]*RegisterConfig, 0, len(files))
	for _, file := range files {
		config, err := LoadRegisterConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		configs = append(configs, config)
	}

	sort.SliceStable(configs, func(i, j int) bool {
		if configs[i].Period != configs[j].Period {
			return configs[i].Period < configs[j].Period
		}
		return configs[i].Name < configs[j].Name
	})

	return configs, nil
}

// LoadRegisterConfig loads a single register configuration file.
func LoadRegisterConfig(filePath string) (*RegisterConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config RegisterConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	config.path = filePath

	applyRegisterConfigDefaults(&config)

	if err := validateRegisterConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyRegisterConfigDefaults sets default values for a register configuration.
func applyRegisterConfigDefaults(config *RegisterConfig) {
	if config.Name == "" {
		config.Name = strings.TrimSuffix(filepath.Base(config.path), filepath.Ext(config.path))
	}
	if config.ContentID == "" {
		config.ContentID = htmltree.DefaultContentID
	}
}

func validateRegisterConfig(config *RegisterConfig) error {
	if config.Period == "" {
		return errors.New("period is required")
	}
	if _, err := taxonomy.StartYear(config.Period); err != nil {
		return err
	}
	if len(config.FileMatchingPatterns) == 0 {
		return errors.New("at least one file_matching_patterns entry is required")
	}
	return nil
}

// SelectPeriod keeps the registers for period. An empty period keeps all.
func SelectPeriod(configs []*RegisterConfig, period string) []*RegisterConfig {
	if period == "" {
		return configs
	}
	var out []*RegisterConfig
	for _, c := range configs {
		if c.Period == period {
			out = append(out, c)
		}
	}
	return out
}
