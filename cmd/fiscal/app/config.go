package app

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/fiscal/internal/citibuy"
	"github.com/agentstation/fiscal/internal/metrics"
	"github.com/agentstation/fiscal/internal/workflows/aging"
	"github.com/agentstation/fiscal/internal/workflows/contracts"
	"github.com/agentstation/fiscal/pkg/constants"
	"github.com/agentstation/fiscal/pkg/errors"
)

// EnvPrefix prefixes every environment variable read into the configuration.
const EnvPrefix = "FISCAL"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool   `mapstructure:"verbose"`
	Quiet   bool   `mapstructure:"quiet"`
	NoColor bool   `mapstructure:"no_color"`
	Format  string `mapstructure:"format"`
	DryRun  bool   `mapstructure:"dry_run"`

	// Config file
	ConfigFile string `mapstructure:"-"`

	CitiBuy       citibuy.Config      `mapstructure:"citibuy"`
	SharePoint    SharePointConfig    `mapstructure:"sharepoint"`
	Lists         ListsConfig         `mapstructure:"lists"`
	Batch         BatchConfig         `mapstructure:"batch"`
	Remote        RemoteConfig        `mapstructure:"remote"`
	PromptPayment PromptPaymentConfig `mapstructure:"prompt_payment"`
	Aging         AgingConfig         `mapstructure:"aging"`
	Archive       ArchiveConfig       `mapstructure:"archive"`
	Metrics       metrics.Config      `mapstructure:"metrics"`

	// Logging configuration
	LogLevel  string `mapstructure:"-"`
	LogFormat string `mapstructure:"-"`
	LogOutput string `mapstructure:"-"`
}

// SharePointConfig holds the Graph app registration and site.
type SharePointConfig struct {
	TenantID     string `mapstructure:"tenant_id"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	SiteID       string `mapstructure:"site_id"`
	BaseURL      string `mapstructure:"base_url"`
	TokenURL     string `mapstructure:"token_url"`

	// DriveID and ArchiveFolderID locate the archive folder. An empty drive selects
	// the site's default document library.
	DriveID         string `mapstructure:"drive_id"`
	ArchiveFolderID string `mapstructure:"archive_folder_id"`
}

// ListsConfig names the remote lists.
type ListsConfig struct {
	Contracts contracts.Lists `mapstructure:",squash"`
	Aging     aging.Lists     `mapstructure:",squash"`
	Invoice   string          `mapstructure:"invoice"`
}

// BatchConfig sizes the `$batch` writes.
type BatchConfig struct {
	Size        int `mapstructure:"size"`
	Concurrency int `mapstructure:"concurrency"`
}

// RemoteConfig throttles requests to Graph.
type RemoteConfig struct {
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`
}

// PromptPaymentConfig locates the scraped report.
type PromptPaymentConfig struct {
	ReportPath string `mapstructure:"report_path"`
}

// AgingConfig holds the look-back windows of the aging exports in days.
type AgingConfig struct {
	InvoiceWindowDays int `mapstructure:"invoice_window_days"`
	ReceiptWindowDays int `mapstructure:"receipt_window_days"`
}

// ArchiveConfig names the archive subfolders receiving each workflow's input.
// Archiving is off unless sharepoint.archive_folder_id is set.
type ArchiveConfig struct {
	PromptPaymentFolder string `mapstructure:"prompt_payment_folder"`
	AgingFolder         string `mapstructure:"aging_folder"`
}

// defaults registers every key so environment variables reach Unmarshal.
var defaults = map[string]any{
	"verbose":                       false,
	"quiet":                         false,
	"no_color":                      false,
	"format":                        "",
	"dry_run":                       false,
	"citibuy.driver":                citibuy.DriverPostgres,
	"citibuy.dsn":                   "",
	"citibuy.max_open_conns":        4,
	"citibuy.query_timeout":         constants.DefaultQueryTimeout,
	"citibuy.limit":                 citibuy.DefaultLimit,
	"sharepoint.tenant_id":          "",
	"sharepoint.client_id":          "",
	"sharepoint.client_secret":      "",
	"sharepoint.site_id":            "",
	"sharepoint.base_url":           constants.GraphBaseURL,
	"sharepoint.token_url":          "",
	"sharepoint.drive_id":           "",
	"sharepoint.archive_folder_id":  "",
	"lists.vendor":                  constants.VendorList,
	"lists.contract":                constants.ContractList,
	"lists.po":                      constants.PurchaseOrderList,
	"lists.invoice":                 constants.InvoiceList,
	"lists.invoice_export":          constants.InvoiceExportList,
	"lists.receipt_export":          constants.ReceiptExportList,
	"batch.size":                    constants.MaxBatchRequests,
	"batch.concurrency":             constants.DefaultBatchConcurrency,
	"remote.rate_limit":             constants.DefaultRateLimit,
	"remote.burst":                  constants.DefaultRateBurst,
	"prompt_payment.report_path":    "",
	"aging.invoice_window_days":     constants.InvoiceModifiedWindowDays,
	"aging.receipt_window_days":     constants.ReceiptWindowDays,
	"archive.prompt_payment_folder": constants.PromptPaymentArchiveFolder,
	"archive.aging_folder":          constants.AgingArchiveFolder,
	"metrics.pushgateway_url":       "",
	"metrics.job":                   "fiscal",
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (FISCAL_CITIBUY_DSN for citibuy.dsn)
// 3. .env files
// 4. Config file (--config, or .fiscal.yaml in $HOME or the working directory)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".fiscal")

		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !stderrors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "cannot read "+v.ConfigFileUsed(), err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.NewConfigError("config", "invalid configuration", err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	config.LogLevel = os.Getenv("LOG_LEVEL")
	config.LogFormat = getEnvOrDefault("LOG_FORMAT", "auto")
	config.LogOutput = getEnvOrDefault("LOG_OUTPUT", "stderr")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks settings shared by every workflow. Connection settings are checked
// when a workflow opens its connections.
func (c *Config) Validate() error {
	if c.Batch.Size < 1 || c.Batch.Size > constants.MaxBatchRequests {
		return errors.NewConfigError("batch", "size must be between 1 and 20", nil)
	}
	if c.Batch.Concurrency < 1 {
		return errors.NewConfigError("batch", "concurrency must be positive", nil)
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor, dryRun bool, format, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	c.DryRun = c.DryRun || dryRun
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// Load never overrides a variable already set, so .env.local wins over .env
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
