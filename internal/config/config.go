// Package config loads run configuration: defaults, then a TOML file, then
// DB_* environment variables for the database fields the file leaves unset.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	skypeetl "github.com/dependable-call-exchange/skypeetl"
)

// FileConfig is the TOML document shape: database, etl, and attachments
// sections, matching the nested map a config file supplies.
type FileConfig struct {
	Database    DatabaseConfig    `toml:"database"`
	ETL         ETLConfig         `toml:"etl"`
	Attachments AttachmentsConfig `toml:"attachments"`
}

type DatabaseConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	DBName            string `toml:"dbname"`
	User              string `toml:"user"`
	Password          string `toml:"password"`
	ConnectionTimeout int    `toml:"connection_timeout"`
	ApplicationName   string `toml:"application_name"`
}

type ETLConfig struct {
	OutputDir          string `toml:"output_dir"`
	MemoryLimitMB      int    `toml:"memory_limit_mb"`
	ParallelProcessing bool   `toml:"parallel_processing"`
	ChunkSize          int    `toml:"chunk_size"`
	BatchSize          int    `toml:"batch_size"`
	MaxWorkers         int    `toml:"max_workers"`
	UserDisplayName    string `toml:"user_display_name"`
}

type AttachmentsConfig struct {
	Download           bool   `toml:"download"`
	Dir                string `toml:"dir"`
	GenerateThumbnails bool   `toml:"generate_thumbnails"`
	ExtractMetadata    bool   `toml:"extract_metadata"`
}

// Default returns a FileConfig with every field the pipeline needs to run
// filled in, before any TOML file or environment variable is consulted.
func Default() FileConfig {
	return FileConfig{
		Database: DatabaseConfig{
			Host:              "localhost",
			Port:              5432,
			DBName:            "skypeetl",
			User:              "postgres",
			ConnectionTimeout: 10,
			ApplicationName:   "skypeetl",
		},
		ETL: ETLConfig{
			OutputDir:          "./output",
			MemoryLimitMB:      1024,
			ParallelProcessing: true,
			ChunkSize:          1000,
			BatchSize:          1000,
		},
		Attachments: AttachmentsConfig{
			Dir: "./attachments",
		},
	}
}

// Load reads config: defaults -> TOML file -> env vars, with
// DB_HOST/DB_PORT/DB_NAME/DB_USER/DB_PASSWORD/DB_APPLICATION_NAME/
// DB_CONNECTION_TIMEOUT acting as defaults when the file omits a field; a
// value the file sets wins over the environment.
func Load(path string) FileConfig {
	cfg := Default()

	var md toml.MetaData
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			md, _ = toml.Decode(string(data), &cfg)
		}
	}

	if v := os.Getenv("DB_HOST"); v != "" && !md.IsDefined("database", "host") {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" && !md.IsDefined("database", "port") {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = n
		}
	}
	if v := os.Getenv("DB_NAME"); v != "" && !md.IsDefined("database", "dbname") {
		cfg.Database.DBName = v
	}
	if v := os.Getenv("DB_USER"); v != "" && !md.IsDefined("database", "user") {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" && !md.IsDefined("database", "password") {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_APPLICATION_NAME"); v != "" && !md.IsDefined("database", "application_name") {
		cfg.Database.ApplicationName = v
	}
	if v := os.Getenv("DB_CONNECTION_TIMEOUT"); v != "" && !md.IsDefined("database", "connection_timeout") {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.ConnectionTimeout = n
		}
	}

	return cfg
}

// Validate checks the fields the pipeline cannot start without: non-positive
// sizes and missing database fields are reported together so a misconfigured
// run fails once with every problem, not one at a time.
func (f FileConfig) Validate() error {
	var problems []string

	if f.Database.Host == "" {
		problems = append(problems, "database.host is required")
	}
	if f.Database.DBName == "" {
		problems = append(problems, "database.dbname is required")
	}
	if f.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if f.Database.Port <= 0 {
		problems = append(problems, "database.port must be positive")
	}
	if f.ETL.ChunkSize <= 0 {
		problems = append(problems, "etl.chunk_size must be positive")
	}
	if f.ETL.BatchSize <= 0 {
		problems = append(problems, "etl.batch_size must be positive")
	}
	if f.ETL.MemoryLimitMB <= 0 {
		problems = append(problems, "etl.memory_limit_mb must be positive")
	}
	if f.ETL.OutputDir == "" {
		problems = append(problems, "etl.output_dir is required")
	}

	if len(problems) == 0 {
		return nil
	}
	msg := problems[0]
	for _, p := range problems[1:] {
		msg += "; " + p
	}
	return fmt.Errorf("config: %s", msg)
}

// RunConfig converts the validated FileConfig into the skypeetl.Config the
// root Context is built from.
func (f FileConfig) RunConfig() skypeetl.Config {
	maxWorkers := f.ETL.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	return skypeetl.Config{
		Database: skypeetl.DatabaseConfig{
			Host:              f.Database.Host,
			Port:              f.Database.Port,
			DBName:            f.Database.DBName,
			User:              f.Database.User,
			Password:          f.Database.Password,
			ConnectionTimeout: time.Duration(f.Database.ConnectionTimeout) * time.Second,
			ApplicationName:   f.Database.ApplicationName,
		},
		UserDisplayName:    f.ETL.UserDisplayName,
		OutputDir:          f.ETL.OutputDir,
		MemoryLimitMB:      f.ETL.MemoryLimitMB,
		ChunkSize:          f.ETL.ChunkSize,
		BatchSize:          f.ETL.BatchSize,
		MaxWorkers:         maxWorkers,
		ParallelProcessing: f.ETL.ParallelProcessing,
		Attachments: skypeetl.AttachmentConfig{
			Download:           f.Attachments.Download,
			Dir:                f.Attachments.Dir,
			GenerateThumbnails: f.Attachments.GenerateThumbnails,
			ExtractMetadata:    f.Attachments.ExtractMetadata,
		},
	}
}

// DSN builds the libpq connection string pgxpool.ParseConfig accepts.
func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s sslmode=disable",
		d.Host, d.Port, d.DBName, d.User)
	if d.Password != "" {
		dsn += fmt.Sprintf(" password=%s", d.Password)
	}
	if d.ApplicationName != "" {
		dsn += fmt.Sprintf(" application_name=%s", d.ApplicationName)
	}
	return dsn
}
