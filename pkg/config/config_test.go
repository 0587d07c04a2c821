package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/tablesync/pkg/apperr"
)

func validStore() StoreConfig {
	return StoreConfig{
		CosmosURL:        "https://example.documents.azure.com:443/",
		KeyVaultName:     "kv",
		CosmosSecretName: "cosmos-key",
		CosmosDB:         "db",
		CosmosContainer:  "orders",
		ADLSAccountName:  "acct",
		ADLSFileSystem:   "fs",
	}
}

func TestExportConfigValidateDefaultsBatchSize(t *testing.T) {
	cfg := &ExportConfig{StoreConfig: validStore()}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BatchSize != 500 {
		t.Errorf("BatchSize = %d, want 500", cfg.BatchSize)
	}
}

func TestExportConfigValidateMissingCosmosURL(t *testing.T) {
	store := validStore()
	store.CosmosURL = ""
	cfg := &ExportConfig{StoreConfig: store}
	err := cfg.Validate()
	if apperr.Classify(err) != apperr.ClassConfig {
		t.Fatalf("expected ClassConfig, got %v (%v)", apperr.Classify(err), err)
	}
}

func TestExportConfigValidatePartitionValueWithoutPath(t *testing.T) {
	cfg := &ExportConfig{StoreConfig: validStore(), PartitionKeyValue: "A"}
	err := cfg.Validate()
	if apperr.Classify(err) != apperr.ClassConfig {
		t.Fatalf("expected ClassConfig, got %v", apperr.Classify(err))
	}
}

func TestImportConfigValidateRequiresTruncateFlag(t *testing.T) {
	cfg := &ImportConfig{StoreConfig: validStore()}
	cfg.ADLSDirectory = "export"
	err := cfg.Validate()
	if apperr.Classify(err) != apperr.ClassConfig {
		t.Fatalf("expected ClassConfig for missing truncate flag, got %v", err)
	}
}

func TestImportConfigValidateRequiresADLSDirectory(t *testing.T) {
	truncate := false
	cfg := &ImportConfig{StoreConfig: validStore(), TruncateBeforeWrite: &truncate}
	err := cfg.Validate()
	if apperr.Classify(err) != apperr.ClassConfig {
		t.Fatalf("expected ClassConfig for missing adls_directory, got %v", err)
	}
}

func TestImportConfigValidateSucceedsAndDefaultsBatchSize(t *testing.T) {
	truncate := true
	store := validStore()
	store.ADLSDirectory = "export"
	cfg := &ImportConfig{StoreConfig: store, TruncateBeforeWrite: &truncate}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BatchSize != 100_000 {
		t.Errorf("BatchSize = %d, want 100000", cfg.BatchSize)
	}
}

func TestLoadExportConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "export.yaml")
	content := `
cosmos_url: https://example.documents.azure.com:443/
key_vault_name: kv
cosmos_secret_name: cosmos-key
cosmos_db: db
cosmos_container: orders
adls_account_name: acct
adls_file_system: fs
batch_size: 250
`
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp yaml: %v", err)
	}

	cfg, err := LoadExportConfig(p)
	if err != nil {
		t.Fatalf("LoadExportConfig failed: %v", err)
	}
	if cfg.BatchSize != 250 {
		t.Errorf("BatchSize = %d, want 250", cfg.BatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed on loaded config: %v", err)
	}
}

func TestPartitionKeyValuesParsesJSONArray(t *testing.T) {
	cfg := ExportConfig{PartitionKeyValue: `["east","west"]`}
	values, err := cfg.PartitionKeyValues()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 2 || values[0] != "east" || values[1] != "west" {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestPartitionKeyValuesParsesSingleBareValue(t *testing.T) {
	cfg := ExportConfig{PartitionKeyValue: "east"}
	values, err := cfg.PartitionKeyValues()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 1 || values[0] != "east" {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestPartitionKeyValuesEmptyReturnsNil(t *testing.T) {
	cfg := ExportConfig{}
	values, err := cfg.PartitionKeyValues()
	if err != nil || values != nil {
		t.Fatalf("expected nil, nil, got %v, %v", values, err)
	}
}

func TestLoadExportConfigMissingFile(t *testing.T) {
	_, err := LoadExportConfig("/nonexistent/path.yaml")
	if apperr.Classify(err) != apperr.ClassConfig {
		t.Fatalf("expected ClassConfig, got %v", err)
	}
}
