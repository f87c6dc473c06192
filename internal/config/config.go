package config

import "time"

// Config holds all application configuration.
type Config struct {
	Ingest        Ingest        `mapstructure:"ingest"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Database      Database      `mapstructure:"database"`
	OCR           OCR           `mapstructure:"ocr"`
	Backup        Backup        `mapstructure:"backup"`
	Server        Server        `mapstructure:"server"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Ingest holds intake pipeline configuration.
type Ingest struct {
	WatchDir         string        `mapstructure:"watch_dir"`
	StorageDir       string        `mapstructure:"storage_dir"`
	MaxConcurrent    int           `mapstructure:"max_concurrent"`
	AccessRetryDelay time.Duration `mapstructure:"access_retry_delay"`
	AccessTimeout    time.Duration `mapstructure:"access_timeout"`
}

// Elasticsearch holds ES connection configuration.
type Elasticsearch struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// Database holds SQLite catalog configuration.
type Database struct {
	Dir string `mapstructure:"dir"`
}

// OCR holds text recognition configuration.
type OCR struct {
	Languages []string `mapstructure:"languages"`
}

// Backup holds S3/MinIO mirror configuration.
type Backup struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Server holds HTTP API configuration.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Ingest: Ingest{
			WatchDir:         "data/intake",
			StorageDir:       "data/storage",
			MaxConcurrent:    4,
			AccessRetryDelay: 500 * time.Millisecond,
			AccessTimeout:    1 * time.Minute,
		},
		Elasticsearch: Elasticsearch{
			Addresses: []string{"http://localhost:9200"},
			Index:     "vault-documents",
		},
		Database: Database{
			Dir: "data",
		},
		OCR: OCR{
			Languages: []string{"eng"},
		},
		Backup: Backup{
			Enabled:         false, // Disabled by default, requires MinIO setup
			Endpoint:        "localhost:9002",
			Bucket:          "vault",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		Server: Server{
			Addr: ":8080",
		},
		MCP: MCP{
			Name:    "vault",
			Version: "1.0.0",
		},
	}
}
