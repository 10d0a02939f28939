package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeOffline || cfg.HTTPAddr != ":8080" || cfg.DBDriver != "sqlite" || cfg.BlobDriver != "fs" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.NumericTolerance != 0 || cfg.TextMaxEditDistance != 0 {
		t.Fatalf("grading must default to exact matching: %+v", cfg)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("shutdown timeout = %v", cfg.ShutdownTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("NUMERIC_TOLERANCE", "0.01")
	t.Setenv("TEXT_MAX_EDIT_DISTANCE", "2")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != ModeOnline || cfg.HTTPAddr != ":9999" || cfg.DBDriver != "postgres" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.CORSOrigins, want) {
		t.Fatalf("cors = %v", cfg.CORSOrigins)
	}
	if cfg.NumericTolerance != 0.01 || cfg.TextMaxEditDistance != 2 || cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("grading/timeout = %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "http_addr: \":7000\"\ncors:\n  origins: [\"https://x.example\"]\ngrading:\n  tolerance: 0.5\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_ADDR", ":7001")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":7001" {
		t.Fatalf("env should win over file: %q", cfg.HTTPAddr)
	}
	if cfg.NumericTolerance != 0.5 || !reflect.DeepEqual(cfg.CORSOrigins, []string{"https://x.example"}) {
		t.Fatalf("file values not read: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"driver": {"DB_DRIVER": "mysql"},
		"mode":   {"MODE": "cloud"},
		"blob":   {"BLOB_DRIVER": "gcs"},
		"minio":  {"BLOB_DRIVER": "minio", "MINIO_ENDPOINT": ""},
		"tol":    {"NUMERIC_TOLERANCE": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatal("want error")
			}
		})
	}
}
