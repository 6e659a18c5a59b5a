package app

import (
	"testing"
	"time"

	"github.com/agentstation/fiscal/pkg/constants"
)

// TestLoadConfig verifies defaults are applied without a config file.
func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.LogFormat == "" {
		t.Error("LogFormat not set to default")
	}
	if config.Batch.Size != constants.MaxBatchRequests {
		t.Errorf("Batch.Size = %d, want %d", config.Batch.Size, constants.MaxBatchRequests)
	}
	if config.Lists.Contracts.PurchaseOrder != constants.PurchaseOrderList {
		t.Errorf("Lists.PurchaseOrder = %q, want %q", config.Lists.Contracts.PurchaseOrder, constants.PurchaseOrderList)
	}
	if config.SharePoint.BaseURL != constants.GraphBaseURL {
		t.Errorf("SharePoint.BaseURL = %q", config.SharePoint.BaseURL)
	}
	if config.CitiBuy.QueryTimeout != constants.DefaultQueryTimeout {
		t.Errorf("CitiBuy.QueryTimeout = %v", config.CitiBuy.QueryTimeout)
	}
}

// TestLoadConfig_File verifies config file values override defaults.
func TestLoadConfig_File(t *testing.T) {
	config, err := LoadConfig("testdata/fiscal.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.CitiBuy.Driver != "sqlite3" || config.CitiBuy.DSN != "./citibuy.db" {
		t.Errorf("CitiBuy = %+v", config.CitiBuy)
	}
	if config.Lists.Contracts.Vendor != "Vendors (test)" {
		t.Errorf("Lists.Vendor = %q", config.Lists.Contracts.Vendor)
	}
	if config.Lists.Aging.Invoice != "Invoice Export" {
		t.Errorf("Lists.InvoiceExport = %q", config.Lists.Aging.Invoice)
	}
	if config.Lists.Aging.Receipt != constants.ReceiptExportList {
		t.Errorf("Lists.ReceiptExport = %q, want default", config.Lists.Aging.Receipt)
	}
	if config.Batch.Size != 10 {
		t.Errorf("Batch.Size = %d, want 10", config.Batch.Size)
	}
	if config.Aging.InvoiceWindowDays != 30 {
		t.Errorf("Aging.InvoiceWindowDays = %d, want 30", config.Aging.InvoiceWindowDays)
	}
	if !config.Metrics.Enabled() {
		t.Error("Metrics should be enabled by pushgateway_url")
	}
	if config.ConfigFile != "testdata/fiscal.yaml" {
		t.Errorf("ConfigFile = %q", config.ConfigFile)
	}
}

// TestLoadConfig_MissingFile verifies an explicit config file must exist.
func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("testdata/nope.yaml"); err == nil {
		t.Error("LoadConfig() with a missing file should fail")
	}
}

// TestConfig_EnvironmentVariables verifies prefixed environment variables override
// the config file.
func TestConfig_EnvironmentVariables(t *testing.T) {
	t.Setenv("FISCAL_CITIBUY_DSN", "postgres://replica/citibuy")
	t.Setenv("FISCAL_BATCH_CONCURRENCY", "2")
	t.Setenv("FISCAL_CITIBUY_QUERY_TIMEOUT", "90s")
	t.Setenv("FISCAL_DRY_RUN", "true")
	t.Setenv("LOG_LEVEL", "debug")

	config, err := LoadConfig("testdata/fiscal.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.CitiBuy.DSN != "postgres://replica/citibuy" {
		t.Errorf("CitiBuy.DSN = %q", config.CitiBuy.DSN)
	}
	if config.Batch.Concurrency != 2 {
		t.Errorf("Batch.Concurrency = %d, want 2", config.Batch.Concurrency)
	}
	if config.CitiBuy.QueryTimeout != 90*time.Second {
		t.Errorf("CitiBuy.QueryTimeout = %v, want 90s", config.CitiBuy.QueryTimeout)
	}
	if !config.DryRun {
		t.Error("FISCAL_DRY_RUN not loaded")
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", config.LogLevel)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		batch   BatchConfig
		wantErr bool
	}{
		{"defaults", BatchConfig{Size: 20, Concurrency: 4}, false},
		{"batch too large", BatchConfig{Size: 21, Concurrency: 4}, true},
		{"empty batch", BatchConfig{Size: 0, Concurrency: 4}, true},
		{"no concurrency", BatchConfig{Size: 20}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Config{Batch: tt.batch}).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_UpdateFromFlags(t *testing.T) {
	config := &Config{Format: "yaml"}

	config.UpdateFromFlags(true, false, false, true, "", "warn")
	if !config.Verbose || !config.DryRun {
		t.Error("boolean flags not applied")
	}
	if config.Format != "yaml" {
		t.Errorf("Format = %q, empty flag should keep yaml", config.Format)
	}
	if config.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", config.LogLevel)
	}
}
