package config

import (
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func initTestConfigDir(t *testing.T) {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")
}

func TestInitConfig_Success(t *testing.T) {
	initTestConfigDir(t)

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatalf("Config file was not created at %s", configPath)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	contentStr := string(content)
	expectedSections := []string{
		"# net-store Configuration File",
		"logging:",
		"server:",
		"store:",
		"security:",
		"backup:",
	}
	for _, section := range expectedSections {
		if !strings.Contains(contentStr, section) {
			t.Errorf("Config file missing section: %s", section)
		}
	}

	// The template must be parseable YAML
	var cfg map[string]any
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		t.Fatalf("Generated config is not valid YAML: %v", err)
	}
	if _, ok := cfg["store"]; !ok {
		t.Error("Parsed config missing store section")
	}
}

func TestInitConfig_TemplateMatchesDefaults(t *testing.T) {
	initTestConfigDir(t)

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	var cfg struct {
		Store struct {
			Badger map[string]any `yaml:"badger"`
		} `yaml:"store"`
		Backup struct {
			Filesystem map[string]any `yaml:"filesystem"`
		} `yaml:"backup"`
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		t.Fatalf("Generated config is not valid YAML: %v", err)
	}

	// The template paths must match ApplyDefaults, or uncommenting a
	// template line silently switches directories.
	defaults := GetDefaultConfig()
	if got, want := cfg.Store.Badger["path"], defaults.Store.Badger["path"]; got != want {
		t.Errorf("Template badger path = %v, defaults use %v", got, want)
	}
	if got, want := cfg.Backup.Filesystem["path"], defaults.Backup.Filesystem["path"]; got != want {
		t.Errorf("Template backup path = %v, defaults use %v", got, want)
	}
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	initTestConfigDir(t)

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	if err := os.WriteFile(configPath, []byte("logging:\n  level: DEBUG\n"), 0o600); err != nil {
		t.Fatalf("Failed to modify config file: %v", err)
	}

	// Second init without force must not overwrite
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("Second InitConfig failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	if !strings.Contains(string(content), "level: DEBUG") {
		t.Error("InitConfig overwrote an existing config file")
	}
}

func TestInitConfig_ForceOverwrite(t *testing.T) {
	initTestConfigDir(t)

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	if err := os.WriteFile(configPath, []byte("logging:\n  level: DEBUG\n"), 0o600); err != nil {
		t.Fatalf("Failed to modify config file: %v", err)
	}

	if _, err := InitConfig(true); err != nil {
		t.Fatalf("Forced InitConfig failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	var cfg map[string]any
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		t.Fatalf("Regenerated config is not valid YAML: %v", err)
	}
	if strings.Contains(string(content), "level: DEBUG") {
		t.Error("Forced InitConfig did not restore the default template")
	}
}
