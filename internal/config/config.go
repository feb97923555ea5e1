package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Census CensusConfig `yaml:"census" mapstructure:"census"`
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	OCR    OCRConfig    `yaml:"ocr" mapstructure:"ocr"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// CensusConfig configures which census volumes are read and how.
type CensusConfig struct {
	InputDir        string `yaml:"input_dir" mapstructure:"input_dir"`
	CombinedPattern string `yaml:"combined_pattern" mapstructure:"combined_pattern"`
	StartYear       int    `yaml:"start_year" mapstructure:"start_year"`
	EndYear         int    `yaml:"end_year" mapstructure:"end_year"`
	RulesPath       string `yaml:"rules_path" mapstructure:"rules_path"`
	Concurrency     int    `yaml:"concurrency" mapstructure:"concurrency"`
	// PageStarts maps a year to the first page that holds site reports.
	// Keys are strings because viper lowercases and stringifies map keys.
	PageStarts map[string]int `yaml:"page_starts" mapstructure:"page_starts"`
}

// ExportConfig configures tabular and spatial exports.
type ExportConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// OCRConfig configures page rasterization and text recognition for the prepare step.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	TesseractPath string `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	ConvertPath   string `yaml:"convert_path" mapstructure:"convert_path"`
	Density       int    `yaml:"density" mapstructure:"density"`
	Crop          string `yaml:"crop" mapstructure:"crop"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultPageStarts is the first core page of each digitized volume.
var DefaultPageStarts = map[int]int{
	1988: 4,
	1989: 6,
	1990: 6,
	1991: 7,
	1992: 7,
	1993: 7,
	1994: 7,
	1995: 6,
}

// Census years outside this window are typos, not volumes.
const (
	MinYear = 1900
	MaxYear = 2100
)

// Years returns the inclusive range of census years to process.
func (c CensusConfig) Years() []int {
	if c.EndYear < c.StartYear {
		return nil
	}
	years := make([]int, 0, c.EndYear-c.StartYear+1)
	for y := c.StartYear; y <= c.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// PageStart returns the first core page for a year, or 1 when unknown.
func (c CensusConfig) PageStart(year int) int {
	if p, ok := c.PageStarts[strconv.Itoa(year)]; ok && p > 0 {
		return p
	}
	return 1
}

// PageStartYears returns the years with a configured first page, ascending.
func (c CensusConfig) PageStartYears() []int {
	years := make([]int, 0, len(c.PageStarts))
	for k := range c.PageStarts {
		if y, err := strconv.Atoi(k); err == nil {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BBC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("census.input_dir", "data")
	v.SetDefault("census.combined_pattern", "bbc_combined_{year}.txt")
	v.SetDefault("census.start_year", 1988)
	v.SetDefault("census.end_year", 1995)
	v.SetDefault("census.rules_path", "")
	v.SetDefault("census.concurrency", 1)
	v.SetDefault("export.dir", "output")
	v.SetDefault("export.formats", []string{"csv"})
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.sqlite_path", "bbc_census.db")
	v.SetDefault("ocr.provider", "tesseract")
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.convert_path", "convert")
	v.SetDefault("ocr.density", 350)
	v.SetDefault("ocr.crop", "0x0+0+330")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Census.PageStarts) == 0 {
		cfg.Census.PageStarts = make(map[string]int, len(DefaultPageStarts))
		for year, page := range DefaultPageStarts {
			cfg.Census.PageStarts[strconv.Itoa(year)] = page
		}
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on and reports every
// problem found, not just the first.
func (c *Config) Validate(mode string) error {
	var problems []string

	for _, y := range []int{c.Census.StartYear, c.Census.EndYear} {
		if y < MinYear || y > MaxYear {
			problems = append(problems, fmt.Sprintf("census year %d is outside %d-%d", y, MinYear, MaxYear))
		}
	}
	if c.Census.StartYear > c.Census.EndYear {
		problems = append(problems, fmt.Sprintf("census.start_year %d is after census.end_year %d", c.Census.StartYear, c.Census.EndYear))
	}
	if c.Census.Concurrency < 1 || c.Census.Concurrency > 16 {
		problems = append(problems, "census.concurrency must be between 1 and 16")
	}

	switch mode {
	case "extract":
		for _, f := range c.Export.Formats {
			switch f {
			case "csv", "xlsx", "shp":
			default:
				problems = append(problems, fmt.Sprintf("export.formats: unknown format %q", f))
			}
		}
		problems = append(problems, c.storeProblems()...)
	case "migrate":
		if c.Store.Driver == "none" {
			problems = append(problems, "store.driver must be sqlite or postgres to migrate")
		}
		problems = append(problems, c.storeProblems()...)
	case "prepare":
		if c.OCR.Density <= 0 {
			problems = append(problems, "ocr.density must be > 0")
		}
	case "link", "rules":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) storeProblems() []string {
	switch c.Store.Driver {
	case "none":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return []string{"store.sqlite_path is required for the sqlite driver"}
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for the postgres driver"}
		}
	default:
		return []string{fmt.Sprintf("store.driver: unknown driver %q", c.Store.Driver)}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
