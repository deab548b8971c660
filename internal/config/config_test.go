package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Database.Host != "localhost" {
		t.Errorf("expected localhost, got %s", cfg.Database.Host)
	}
	if cfg.ETL.ChunkSize != 1000 {
		t.Errorf("expected chunk size 1000, got %d", cfg.ETL.ChunkSize)
	}
	if cfg.ETL.BatchSize != 1000 {
		t.Errorf("expected batch size 1000, got %d", cfg.ETL.BatchSize)
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	os.WriteFile(path, []byte(`
[database]
host = "db.internal"
dbname = "skypeetl_prod"

[etl]
chunk_size = 2000
`), 0644)

	cfg := Load(path)
	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected db.internal, got %s", cfg.Database.Host)
	}
	if cfg.Database.DBName != "skypeetl_prod" {
		t.Errorf("expected skypeetl_prod, got %s", cfg.Database.DBName)
	}
	if cfg.ETL.ChunkSize != 2000 {
		t.Errorf("expected chunk size 2000, got %d", cfg.ETL.ChunkSize)
	}
	// Defaults preserved for fields the file didn't touch.
	if cfg.Database.Port != 5432 {
		t.Errorf("default port should be preserved, got %d", cfg.Database.Port)
	}
	if cfg.ETL.BatchSize != 1000 {
		t.Errorf("default batch size should be preserved, got %d", cfg.ETL.BatchSize)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_PASSWORD", "env-secret")

	cfg := Load("/nonexistent/path.toml")
	if cfg.Database.Host != "env-host" {
		t.Errorf("expected env-host, got %s", cfg.Database.Host)
	}
	if cfg.Database.Port != 6543 {
		t.Errorf("expected 6543, got %d", cfg.Database.Port)
	}
	if cfg.Database.Password != "env-secret" {
		t.Errorf("expected env-secret, got %s", cfg.Database.Password)
	}
}

func TestEnvOverrideIgnoresMalformedPort(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")
	cfg := Load("/nonexistent/path.toml")
	if cfg.Database.Port != 5432 {
		t.Errorf("malformed DB_PORT should leave default in place, got %d", cfg.Database.Port)
	}
}

func TestValidateReportsMissingDatabaseFields(t *testing.T) {
	cfg := Default()
	cfg.Database.Host = ""
	cfg.Database.DBName = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidateRejectsNonPositiveSizes(t *testing.T) {
	cfg := Default()
	cfg.ETL.ChunkSize = 0
	cfg.ETL.BatchSize = -1

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for non-positive sizes")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("expected defaults to be valid, got %v", err)
	}
}

func TestRunConfigDefaultsMaxWorkers(t *testing.T) {
	cfg := Default()
	run := cfg.RunConfig()
	if run.MaxWorkers <= 0 {
		t.Fatalf("expected a positive default max_workers, got %d", run.MaxWorkers)
	}
}

func TestRunConfigCarriesMaxWorkersThrough(t *testing.T) {
	cfg := Default()
	cfg.ETL.MaxWorkers = 8
	run := cfg.RunConfig()
	if run.MaxWorkers != 8 {
		t.Fatalf("expected max_workers 8, got %d", run.MaxWorkers)
	}
}

func TestRunConfigCarriesUserDisplayNameThrough(t *testing.T) {
	cfg := Default()
	cfg.ETL.UserDisplayName = "Jane Doe"
	run := cfg.RunConfig()
	if run.UserDisplayName != "Jane Doe" {
		t.Fatalf("expected user display name to carry through, got %q", run.UserDisplayName)
	}
}

func TestDatabaseDSNIncludesOptionalFields(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5432, DBName: "d", User: "u", Password: "p", ApplicationName: "a"}
	dsn := d.DSN()
	for _, want := range []string{"host=h", "port=5432", "dbname=d", "user=u", "password=p", "application_name=a"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}
