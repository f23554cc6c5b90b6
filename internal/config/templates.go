package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Chart Pattern Scanner Configuration

[scanner]
# Number of symbols analyzed in parallel
workers = 4
# Only report matches scoring at least this much (0-100)
min_score = 80
# Maximum ranked matches per scan (0 = unlimited)
max_results = 5
# Only report matches whose series passes the trend template
require_trend = false
# Resample source bars before detection, e.g. "4h" (empty keeps source bars)
resample = ""

[storage]
# Journal scan runs and matches to SQLite
enabled = true
# Database path (default: <config dir>/patterns.db)
# path = "/path/to/patterns.db"

[logging]
# Log level: debug, info, warn, error
level = "info"
# Human-readable logs on stderr
console = true
# Rotating JSON log file
file = false
# file_path = "/path/to/patternscan.log"
max_size = 50
max_backups = 5
max_age = 30

[metrics]
# Write Prometheus metrics in node-exporter textfile format after each scan
# textfile = "/var/lib/node_exporter/textfile/patternscan.prom"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config template: %w", err)
	}

	return nil
}
