package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

// Source kinds.
const (
	SourceHTTP     = "http"
	SourceDir      = "dir"
	SourcePostgres = "postgres"
)

// defaultURLTemplate points at the published model results, one CSV per
// year.
const defaultURLTemplate = "https://raw.githubusercontent.com/NIVANorge/teotil2/main/data/norway_annual_output_data/teotil2_results_%d.csv"

// Config holds all report settings, populated from environment variables.
type Config struct {
	Nutrients []domain.Nutrient
	StartYear int
	EndYear   int

	SourceKind        string
	SourceURLTemplate string
	SourceDir         string
	DatabaseURL       string
	SourceTimeout     time.Duration
	SourceCacheSize   int
	Workers           int

	OutputDir    string
	WorkbookPath string

	// Legacy reconciliation. An empty LegacyDir disables it.
	LegacyDir    string
	BaselineFile string
	CutoffYear   int
	RegionsFile  string

	// Optional Kafka sink, enabled when brokers are set.
	KafkaBrokers []string
	KafkaTopic   string

	// Optional health/metrics server, enabled when set.
	HTTPAddr string

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	AllowPartial    bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	nutrients, err := parseNutrients(sharedcfg.EnvOrDefault("NUTRIENTS", "n,p"))
	if err != nil {
		return nil, err
	}

	startYear, err := parseInt("START_YEAR", 1990)
	if err != nil {
		return nil, err
	}
	endYear, err := parseInt("END_YEAR", 2023)
	if err != nil {
		return nil, err
	}
	cutoffYear, err := parseInt("CUTOFF_YEAR", 0)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("SOURCE_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}
	workers, err := parseInt("WORKERS", 4)
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("SOURCE_TIMEOUT", "30s"))
	if err != nil || sourceTimeout <= 0 {
		return nil, errors.New("invalid SOURCE_TIMEOUT")
	}

	allowPartial, err := parseBool("ALLOW_PARTIAL")
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		Nutrients: nutrients,
		StartYear: startYear,
		EndYear:   endYear,

		SourceKind:        strings.ToLower(sharedcfg.EnvOrDefault("SOURCE_KIND", SourceHTTP)),
		SourceURLTemplate: sharedcfg.EnvOrDefault("SOURCE_URL_TEMPLATE", defaultURLTemplate),
		SourceDir:         sharedcfg.EnvOrDefault("SOURCE_DIR", "data/model"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SourceTimeout:     sourceTimeout,
		SourceCacheSize:   cacheSize,
		Workers:           workers,

		OutputDir:    sharedcfg.EnvOrDefault("OUTPUT_DIR", "output"),
		WorkbookPath: os.Getenv("WORKBOOK_PATH"),

		LegacyDir:    os.Getenv("LEGACY_DIR"),
		BaselineFile: os.Getenv("BASELINE_FILE"),
		CutoffYear:   cutoffYear,
		RegionsFile:  os.Getenv("REGIONS_FILE"),

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "coastal-load-tables"),

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		AllowPartial:    allowPartial,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StartYear > c.EndYear {
		return fmt.Errorf("START_YEAR %d is after END_YEAR %d", c.StartYear, c.EndYear)
	}
	if c.CutoffYear < 0 {
		return errors.New("CUTOFF_YEAR must not be negative")
	}
	if c.SourceCacheSize <= 0 {
		return errors.New("SOURCE_CACHE_SIZE must be positive")
	}
	if c.Workers <= 0 {
		return errors.New("WORKERS must be positive")
	}
	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR is required")
	}

	switch c.SourceKind {
	case SourceHTTP:
		if strings.Count(c.SourceURLTemplate, "%d") != 1 {
			return errors.New("SOURCE_URL_TEMPLATE must contain exactly one %d")
		}
	case SourceDir:
		if c.SourceDir == "" {
			return errors.New("SOURCE_DIR is required for SOURCE_KIND=dir")
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for SOURCE_KIND=postgres")
		}
	default:
		return fmt.Errorf("invalid SOURCE_KIND %q", c.SourceKind)
	}

	if c.BaselineFile != "" && c.LegacyDir == "" {
		return errors.New("BASELINE_FILE requires LEGACY_DIR")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// Years returns the configured year range in ascending order.
func (c *Config) Years() []int {
	years := make([]int, 0, c.EndYear-c.StartYear+1)
	for y := c.StartYear; y <= c.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// ReconcileEnabled reports whether legacy tables are configured.
func (c *Config) ReconcileEnabled() bool {
	return c.LegacyDir != ""
}

func parseNutrients(s string) ([]domain.Nutrient, error) {
	var nutrients []domain.Nutrient
	seen := make(map[domain.Nutrient]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		n, err := domain.ParseNutrient(part)
		if err != nil {
			return nil, fmt.Errorf("invalid NUTRIENTS: %w", err)
		}
		if !seen[n] {
			seen[n] = true
			nutrients = append(nutrients, n)
		}
	}
	if len(nutrients) == 0 {
		return nil, errors.New("NUTRIENTS is required")
	}
	return nutrients, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseBool(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
