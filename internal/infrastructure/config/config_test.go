package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("expected sqlite driver by default, got %q", cfg.Database.Driver)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Remote.Timeout != 15*time.Second {
		t.Fatalf("expected 15s remote timeout, got %s", cfg.Remote.Timeout)
	}
	if cfg.Auth.AuthEnabled() {
		t.Fatalf("auth should be disabled without a secret")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("SERVER_PORT", "9001")
	t.Setenv("AUTH_SECRET", "0123456789abcdef-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Host != "db.internal" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Server.Addr() != "127.0.0.1:9001" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr())
	}
	if !cfg.Auth.AuthEnabled() {
		t.Fatalf("auth should be enabled")
	}
	if !strings.Contains(cfg.Database.GetDSN(), "host=db.internal") {
		t.Fatalf("unexpected dsn %q", cfg.Database.GetDSN())
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "mysql"}, want: "unsupported database driver"},
		{name: "short secret", env: map[string]string{"AUTH_SECRET": "short"}, want: "auth secret"},
		{name: "relative remote", env: map[string]string{"LIFEPLANNER_URL": "localhost"}, want: "remote base url"},
		{name: "bad port", env: map[string]string{"SERVER_PORT": "70000"}, want: "server port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDatabaseConfig_SQLiteDSN(t *testing.T) {
	cfg := DatabaseConfig{Driver: "sqlite", Path: "/tmp/x.db"}
	if got := cfg.GetDSN(); !strings.HasPrefix(got, "file:/tmp/x.db?") {
		t.Fatalf("unexpected dsn %q", got)
	}
}
