package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultConfigTemplate is written by InitConfig. It mirrors the defaults in
// defaults.go; values are spelled out so operators can edit them in place.
const defaultConfigTemplate = `# net-store Configuration File
#
# This file was generated by "netstore -init". All values shown are the
# defaults; uncomment and edit as needed. Every setting can also be supplied
# through the environment with the NETSTORE_ prefix, e.g.
# NETSTORE_LOGGING_LEVEL=DEBUG.

logging:
  # Minimum log level: DEBUG, INFO, WARN, ERROR
  level: INFO
  # Log format: text or json
  format: text
  # Log destination: stdout, stderr, or a file path
  output: stdout

server:
  # Maximum time to wait for a clean shutdown
  shutdown_timeout: 30s
  # Run without per-user event scoping (local single-operator deployments)
  single_user: false

store:
  # Key-value store backend: memory or badger
  type: badger
  badger:
    # Directory for the BadgerDB database files
    path: /var/lib/net-store/data
    # Keep the whole database in memory (no files written)
    in_memory: false

security:
  # Server secret the pagination cursor encryption key is derived from.
  # Required, minimum 8 characters. Keep this stable across restarts or
  # outstanding page cursors become invalid.
  secret: ""

metrics:
  # Enable prometheus metrics collection
  enabled: false

backup:
  # Enable snapshot export
  enabled: false
  # Snapshot target: filesystem or s3
  type: filesystem
  filesystem:
    path: /var/lib/net-store/backups
  # s3:
  #   bucket: my-backups
  #   region: us-east-1
`

// InitConfig writes a commented default configuration file at the default
// location and returns its path. An existing file is left untouched unless
// force is set.
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigTemplate), 0o600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}
