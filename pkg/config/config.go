// Package config holds the request parameters for the export and import
// pipelines: the same shape the original Azure Function accepted as a JSON
// request body, now populated from CLI flags or an optional YAML file.
package config

import (
	"encoding/json"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/tablesync/pkg/apperr"
)

// StoreConfig names the DocStore and ObjectStore endpoints shared by both
// pipelines.
type StoreConfig struct {
	CosmosURL        string `yaml:"cosmos_url"`
	KeyVaultName     string `yaml:"key_vault_name"`
	CosmosSecretName string `yaml:"cosmos_secret_name"`
	CosmosDB         string `yaml:"cosmos_db"`
	CosmosContainer  string `yaml:"cosmos_container"`
	ADLSAccountName  string `yaml:"adls_account_name"`
	ADLSFileSystem   string `yaml:"adls_file_system"`
	ADLSDirectory    string `yaml:"adls_directory"`
}

func (c StoreConfig) validateCosmos() error {
	switch {
	case c.CosmosURL == "":
		return apperr.NewConfigError("cosmos_url", "Cosmos URL is required")
	case c.CosmosSecretName == "":
		return apperr.NewConfigError("cosmos_secret_name", "Cosmos secret name is required")
	case c.CosmosDB == "":
		return apperr.NewConfigError("cosmos_db", "Cosmos database name is required")
	case c.KeyVaultName == "":
		return apperr.NewConfigError("key_vault_name", "key vault name is required")
	case c.CosmosContainer == "":
		return apperr.NewConfigError("cosmos_container", "Cosmos container name is required")
	case c.ADLSAccountName == "":
		return apperr.NewConfigError("adls_account_name", "storage account name is required")
	case c.ADLSFileSystem == "":
		return apperr.NewConfigError("adls_file_system", "ADLS filesystem name is required")
	}
	return nil
}

// ExportConfig is the request shape for the ExportPipeline (Cosmos -> ADLS).
type ExportConfig struct {
	StoreConfig `yaml:",inline"`

	PartitionKeyPath  string `yaml:"partition_key_path"`
	PartitionKeyValue string `yaml:"partition_key_value"`
	BatchSize         int    `yaml:"batch_size"`
	SeparateFiles     bool   `yaml:"separate_files_per_batch"`
}

// Validate checks ExportConfig's required fields, returning a ConfigError
// naming the first missing or invalid one. adls_directory is optional on
// export per §6.
func (c *ExportConfig) Validate() error {
	if err := c.validateCosmos(); err != nil {
		return err
	}
	if c.PartitionKeyValue != "" && c.PartitionKeyPath == "" {
		return apperr.NewConfigError("partition_key_path", "partition_key_path is required when partition_key_value is set")
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	return nil
}

// PartitionKeyValues parses PartitionKeyValue per §6: either a JSON array of
// values or a single bare value. Returns nil if PartitionKeyValue is unset.
func (c ExportConfig) PartitionKeyValues() ([]any, error) {
	if c.PartitionKeyValue == "" {
		return nil, nil
	}
	var values []any
	if err := json.Unmarshal([]byte(c.PartitionKeyValue), &values); err == nil {
		return values, nil
	}
	var single any
	if err := json.Unmarshal([]byte(c.PartitionKeyValue), &single); err == nil {
		return []any{single}, nil
	}
	return []any{c.PartitionKeyValue}, nil
}

// ImportConfig is the request shape for the ImportPipeline (ADLS -> Cosmos).
type ImportConfig struct {
	StoreConfig `yaml:",inline"`

	TruncateBeforeWrite *bool `yaml:"truncate_sink_before_write"`
	BatchSize           int   `yaml:"batch_size"`
}

// Validate checks ImportConfig's required fields, returning a ConfigError
// naming the first missing or invalid one. adls_directory is required on
// import per §6.
func (c *ImportConfig) Validate() error {
	if err := c.validateCosmos(); err != nil {
		return err
	}
	if c.ADLSDirectory == "" {
		return apperr.NewConfigError("adls_directory", "ADLS directory is required for import")
	}
	if c.TruncateBeforeWrite == nil {
		return apperr.NewConfigError("truncate_sink_before_write", "truncate_sink_before_write is required")
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100_000
	}
	return nil
}

// LoadExportConfig reads an ExportConfig from a YAML file at path.
func LoadExportConfig(path string) (*ExportConfig, error) {
	var cfg ExportConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadImportConfig reads an ImportConfig from a YAML file at path.
func LoadImportConfig(path string) (*ImportConfig, error) {
	var cfg ImportConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.NewConfigError("config_file", err.Error())
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return apperr.NewConfigError("config_file", "invalid YAML: "+err.Error())
	}
	return nil
}
