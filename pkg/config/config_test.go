package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfigFile writes content to a temp YAML file and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Logging.Level = %q, want INFO", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Logging.Output = %q, want stdout", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 30s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.Type != "badger" {
		t.Errorf("Store.Type = %q, want badger", cfg.Store.Type)
	}
	if cfg.Store.Badger["path"] != "/var/lib/net-store/data" {
		t.Errorf("Store.Badger[path] = %v, want /var/lib/net-store/data", cfg.Store.Badger["path"])
	}
	if cfg.Backup.Type != "filesystem" {
		t.Errorf("Backup.Type = %q, want filesystem", cfg.Backup.Type)
	}
	if cfg.Security.Secret != "" {
		t.Errorf("Security.Secret = %q, want empty (no default)", cfg.Security.Secret)
	}
}

func TestApplyDefaultsNormalizesLogLevel(t *testing.T) {
	cfg := &Config{}
	cfg.Logging.Level = "debug"
	ApplyDefaults(cfg)
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Logging.Level = %q, want DEBUG", cfg.Logging.Level)
	}
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Store.Type = "memory"
	cfg.Store.Badger = map[string]any{"path": "/custom/path"}
	ApplyDefaults(cfg)

	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Store.Type = %q, want memory", cfg.Store.Type)
	}
	if cfg.Store.Badger["path"] != "/custom/path" {
		t.Errorf("Badger[path] = %v, want /custom/path", cfg.Store.Badger["path"])
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  format: json
server:
  shutdown_timeout: 10s
  single_user: true
store:
  type: memory
security:
  secret: "a-long-enough-secret"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Logging.Level = %q, want DEBUG", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if !cfg.Server.SingleUser {
		t.Error("Server.SingleUser = false, want true")
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Store.Type = %q, want memory", cfg.Store.Type)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	path := writeConfigFile(t, `
store:
  type: memory
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for missing secret, got nil")
	}
	if !strings.Contains(err.Error(), "Secret") {
		t.Errorf("error %q does not mention the secret", err)
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	path := writeConfigFile(t, `
store:
  type: memory
security:
  secret: "short"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for short secret, got nil")
	}
}

func TestLoadRejectsUnknownStoreType(t *testing.T) {
	path := writeConfigFile(t, `
store:
  type: etcd
security:
  secret: "a-long-enough-secret"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() expected error for unknown store type, got nil")
	}
}

func TestValidateCustomRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name: "badger without path",
			mutate: func(cfg *Config) {
				cfg.Store.Badger = map[string]any{"path": ""}
			},
			wantErr: "path is required",
		},
		{
			name: "badger in-memory needs no path",
			mutate: func(cfg *Config) {
				cfg.Store.Badger = map[string]any{"path": "", "in_memory": true}
			},
		},
		{
			name: "backup filesystem without path",
			mutate: func(cfg *Config) {
				cfg.Backup.Enabled = true
				cfg.Backup.Filesystem = map[string]any{"path": ""}
			},
			wantErr: "backup.filesystem",
		},
		{
			name: "backup s3 without bucket",
			mutate: func(cfg *Config) {
				cfg.Backup.Enabled = true
				cfg.Backup.Type = "s3"
				cfg.Backup.S3 = map[string]any{"region": "us-east-1"}
			},
			wantErr: "bucket is required",
		},
		{
			name: "backup s3 without region",
			mutate: func(cfg *Config) {
				cfg.Backup.Enabled = true
				cfg.Backup.Type = "s3"
				cfg.Backup.S3 = map[string]any{"bucket": "b"}
			},
			wantErr: "region is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Security.Secret = "a-long-enough-secret"
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("NETSTORE_LOGGING_LEVEL", "warn")

	path := writeConfigFile(t, `
logging:
  level: debug
store:
  type: memory
security:
  secret: "a-long-enough-secret"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Logging.Level = %q, want WARN from environment", cfg.Logging.Level)
	}
}

func TestCreateKVStoreMemory(t *testing.T) {
	store, err := CreateKVStore(context.Background(), &StoreConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("CreateKVStore() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	value, err := store.Get(ctx, []byte("k"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(value) != "v" {
		t.Errorf("Get() = %q, want v", value)
	}
}

func TestCreateKVStoreBadger(t *testing.T) {
	store, err := CreateKVStore(context.Background(), &StoreConfig{
		Type:   "badger",
		Badger: map[string]any{"path": t.TempDir()},
	})
	if err != nil {
		t.Fatalf("CreateKVStore() error = %v", err)
	}
	defer store.Close()
}

func TestCreateKVStoreUnknownType(t *testing.T) {
	if _, err := CreateKVStore(context.Background(), &StoreConfig{Type: "etcd"}); err == nil {
		t.Fatal("CreateKVStore() expected error for unknown type, got nil")
	}
}

func TestCreateBackupTargetFilesystem(t *testing.T) {
	target, err := CreateBackupTarget(context.Background(), &BackupConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": t.TempDir()},
	})
	if err != nil {
		t.Fatalf("CreateBackupTarget() error = %v", err)
	}
	if target == nil {
		t.Fatal("CreateBackupTarget() returned nil target")
	}
}

func TestCreateBackupTargetValidation(t *testing.T) {
	if _, err := CreateBackupTarget(context.Background(), &BackupConfig{Type: "tape"}); err == nil {
		t.Fatal("expected error for unknown backup type")
	}
	if _, err := CreateBackupTarget(context.Background(), &BackupConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	}); err == nil {
		t.Fatal("expected error for missing bucket")
	}
}
