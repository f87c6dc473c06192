package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/mfenderov/vault/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "vault",
	Short: "Vault: a personal document ingestion and search system",
	Long: `Vault watches an intake directory for documents, extracts their text
(with OCR fallback for scans), catalogs them in SQLite, and indexes
them in Elasticsearch for full-text search.

Commands:
  watch   Watch the intake directory and ingest files as they arrive
  ingest  Ingest a file or directory once and exit
  search  Search ingested documents
  serve   Start the HTTP API
  mcp     Start the MCP server for document retrieval`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// Start with defaults
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/vault")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// VAULT_ELASTICSEARCH_ADDRESSES -> elasticsearch.addresses
	viper.SetEnvPrefix("VAULT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("ingest.watch_dir", "VAULT_INGEST_WATCH_DIR")
	viper.BindEnv("ingest.storage_dir", "VAULT_INGEST_STORAGE_DIR")
	viper.BindEnv("ingest.max_concurrent", "VAULT_INGEST_MAX_CONCURRENT")
	viper.BindEnv("elasticsearch.addresses", "VAULT_ELASTICSEARCH_ADDRESSES")
	viper.BindEnv("elasticsearch.index", "VAULT_ELASTICSEARCH_INDEX")
	viper.BindEnv("elasticsearch.username", "VAULT_ELASTICSEARCH_USERNAME")
	viper.BindEnv("elasticsearch.password", "VAULT_ELASTICSEARCH_PASSWORD")
	viper.BindEnv("database.dir", "VAULT_DATABASE_DIR")
	viper.BindEnv("ocr.languages", "VAULT_OCR_LANGUAGES")
	viper.BindEnv("backup.enabled", "VAULT_BACKUP_ENABLED")
	viper.BindEnv("backup.endpoint", "VAULT_BACKUP_ENDPOINT")
	viper.BindEnv("backup.bucket", "VAULT_BACKUP_BUCKET")
	viper.BindEnv("backup.access_key_id", "VAULT_BACKUP_ACCESS_KEY_ID")
	viper.BindEnv("backup.secret_access_key", "VAULT_BACKUP_SECRET_ACCESS_KEY")
	viper.BindEnv("server.addr", "VAULT_SERVER_ADDR")
	viper.BindEnv("mcp.name", "VAULT_MCP_NAME")
	viper.BindEnv("mcp.version", "VAULT_MCP_VERSION")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: list values as comma-separated strings from env
	if addrs := os.Getenv("VAULT_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
	if langs := os.Getenv("VAULT_OCR_LANGUAGES"); langs != "" {
		cfg.OCR.Languages = strings.Split(langs, ",")
	}
}
