package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cuemby/tablesync/pkg/config"
	"github.com/cuemby/tablesync/pkg/docstore"
	docstorefake "github.com/cuemby/tablesync/pkg/docstore/fake"
	"github.com/cuemby/tablesync/pkg/log"
	"github.com/cuemby/tablesync/pkg/metrics"
	"github.com/cuemby/tablesync/pkg/objectstore"
	objectstorefake "github.com/cuemby/tablesync/pkg/objectstore/fake"
	"github.com/cuemby/tablesync/pkg/pipeline"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tablesync",
	Short: "tablesync - streams hierarchical documents between a document store and an object store",
	Long: `tablesync is a bidirectional streaming ETL engine that moves hierarchical
JSON documents between a partitioned document store and a hierarchical
object store via a normalized, pipe-delimited CSV intermediate form.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"tablesync version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics at this address (e.g. 127.0.0.1:9090); disabled if empty")

	cobra.OnInitialize(initLogging, initMetrics)

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func initMetrics() {
	addr, _ := rootCmd.PersistentFlags().GetString("metrics-addr")
	if addr == "" {
		return
	}
	metrics.SetVersion(Version)
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Logger.Error().Err(err).Str("addr", addr).Msg("metrics server exited")
		}
	}()
	log.Logger.Info().Str("addr", addr).Msg("metrics endpoint listening")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Stream a document store container into a CSV table family",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Stitch a CSV table family back into a document store container",
	RunE:  runImport,
}

func init() {
	exportCmd.Flags().String("config", "", "Load request parameters from a YAML file instead of flags")
	exportCmd.Flags().String("cosmos-url", "", "Cosmos URL")
	exportCmd.Flags().String("key-vault-name", "", "Key Vault name")
	exportCmd.Flags().String("cosmos-secret-name", "", "Cosmos secret name")
	exportCmd.Flags().String("cosmos-db", "", "Cosmos database name")
	exportCmd.Flags().String("cosmos-container", "", "Cosmos container name")
	exportCmd.Flags().String("adls-account-name", "", "ADLS storage account name")
	exportCmd.Flags().String("adls-file-system", "", "ADLS filesystem name")
	exportCmd.Flags().String("adls-directory", "", "ADLS directory the CSV table family is written under")
	exportCmd.Flags().String("partition-key-path", "", "Restrict the export to a single partition key path")
	exportCmd.Flags().String("partition-key-value", "", "Restrict the export to one value, or a JSON array of values")
	exportCmd.Flags().Int("batch-size", 500, "Documents per batch")
	exportCmd.Flags().Bool("separate-files-per-batch", false, "Write each batch to its own suffixed CSV file")

	importCmd.Flags().String("config", "", "Load request parameters from a YAML file instead of flags")
	importCmd.Flags().String("cosmos-url", "", "Cosmos URL")
	importCmd.Flags().String("key-vault-name", "", "Key Vault name")
	importCmd.Flags().String("cosmos-secret-name", "", "Cosmos secret name")
	importCmd.Flags().String("cosmos-db", "", "Cosmos database name")
	importCmd.Flags().String("cosmos-container", "", "Cosmos container name")
	importCmd.Flags().String("adls-account-name", "", "ADLS storage account name")
	importCmd.Flags().String("adls-file-system", "", "ADLS filesystem name")
	importCmd.Flags().String("adls-directory", "", "ADLS directory the CSV table family is read from")
	importCmd.Flags().Bool("truncate-sink-before-write", false, "Delete and recreate the container before importing")
	importCmd.Flags().Int("batch-size", 100_000, "Validated only; import batches are sized by the adaptive throttle controller, not by this value")
	importCmd.Flags().String("partition-key-path", "", "Dotted path used to extract each document's partition key on upsert")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := exportConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	partitionValues, err := cfg.PartitionKeyValues()
	if err != nil {
		return fmt.Errorf("parsing partition_key_value: %w", err)
	}

	runID := uuid.NewString()
	runLog := log.WithContainer(log.WithRun(runID), cfg.CosmosContainer)

	store, objStore := connectStores(cfg.StoreConfig)

	report, err := pipeline.ExportPipeline(cmd.Context(), pipeline.ExportParams{
		DocStore:              store,
		ObjectStore:           objStore,
		Container:             cfg.CosmosContainer,
		ExportDir:             cfg.ADLSDirectory,
		PartitionKeyPath:      cfg.PartitionKeyPath,
		PartitionKeyValues:    partitionValues,
		BatchSize:             cfg.BatchSize,
		SeparateFilesPerBatch: cfg.SeparateFiles,
		Log:                   runLog,
	})
	if err != nil {
		return err
	}
	return printReport(report)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := importConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := uuid.NewString()
	runLog := log.WithContainer(log.WithRun(runID), cfg.CosmosContainer)

	store, objStore := connectStores(cfg.StoreConfig)

	partitionKeyPath, _ := cmd.Flags().GetString("partition-key-path")

	report, err := pipeline.ImportPipeline(cmd.Context(), pipeline.ImportParams{
		DocStore:            store,
		ObjectStore:         objStore,
		Container:           cfg.CosmosContainer,
		ImportDir:           cfg.ADLSDirectory,
		PartitionKeyPath:    partitionKeyPath,
		TruncateBeforeWrite: *cfg.TruncateBeforeWrite,
		RunID:               runID,
		Log:                 runLog,
	})
	if err != nil {
		return err
	}
	return printReport(report)
}

// connectStores resolves the DocStore/ObjectStore seam to concrete clients.
// No real Cosmos/ADLS SDK client ships in this module (see pkg/docstore and
// pkg/objectstore's package docs): the production integration point is a
// cosmos.NewDocStore / adls.NewObjectStore pair satisfying the same
// interfaces. The in-memory fakes stand in here so the CLI is runnable
// end-to-end against seeded data for demonstration and local testing.
func connectStores(cfg config.StoreConfig) (docstore.Store, objectstore.Store) {
	store, objStore := docstorefake.New(), objectstorefake.New()
	metrics.RegisterComponent("docstore", true, "connected")
	metrics.RegisterComponent("objectstore", true, "connected")
	return store, objStore
}

func printReport(r *pipeline.Report) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func exportConfigFromFlags(cmd *cobra.Command) (*config.ExportConfig, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadExportConfig(path)
	}
	cfg := &config.ExportConfig{}
	cfg.CosmosURL, _ = cmd.Flags().GetString("cosmos-url")
	cfg.KeyVaultName, _ = cmd.Flags().GetString("key-vault-name")
	cfg.CosmosSecretName, _ = cmd.Flags().GetString("cosmos-secret-name")
	cfg.CosmosDB, _ = cmd.Flags().GetString("cosmos-db")
	cfg.CosmosContainer, _ = cmd.Flags().GetString("cosmos-container")
	cfg.ADLSAccountName, _ = cmd.Flags().GetString("adls-account-name")
	cfg.ADLSFileSystem, _ = cmd.Flags().GetString("adls-file-system")
	cfg.ADLSDirectory, _ = cmd.Flags().GetString("adls-directory")
	cfg.PartitionKeyPath, _ = cmd.Flags().GetString("partition-key-path")
	cfg.PartitionKeyValue, _ = cmd.Flags().GetString("partition-key-value")
	cfg.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	cfg.SeparateFiles, _ = cmd.Flags().GetBool("separate-files-per-batch")
	return cfg, nil
}

func importConfigFromFlags(cmd *cobra.Command) (*config.ImportConfig, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadImportConfig(path)
	}
	cfg := &config.ImportConfig{}
	cfg.CosmosURL, _ = cmd.Flags().GetString("cosmos-url")
	cfg.KeyVaultName, _ = cmd.Flags().GetString("key-vault-name")
	cfg.CosmosSecretName, _ = cmd.Flags().GetString("cosmos-secret-name")
	cfg.CosmosDB, _ = cmd.Flags().GetString("cosmos-db")
	cfg.CosmosContainer, _ = cmd.Flags().GetString("cosmos-container")
	cfg.ADLSAccountName, _ = cmd.Flags().GetString("adls-account-name")
	cfg.ADLSFileSystem, _ = cmd.Flags().GetString("adls-file-system")
	cfg.ADLSDirectory, _ = cmd.Flags().GetString("adls-directory")
	cfg.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	if cmd.Flags().Changed("truncate-sink-before-write") {
		truncate, _ := cmd.Flags().GetBool("truncate-sink-before-write")
		cfg.TruncateBeforeWrite = &truncate
	}
	return cfg, nil
}
