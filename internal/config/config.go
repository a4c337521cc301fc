// Package config loads grounding.toml, generalizing the single postgres_url
// shape into a dialect selector plus per-dialect connection fields and
// grounding defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// EnvironmentConfig describes one named environment from grounding.toml.
type EnvironmentConfig struct {
	Dialect string `toml:"dialect"`

	// Connection fields; only the ones relevant to Dialect are read.
	PostgresURL  string   `toml:"postgres_url"`
	MySQLDSN     string   `toml:"mysql_dsn"`
	SQLServerDSN string   `toml:"sqlserver_dsn"`
	SQLitePath   string   `toml:"sqlite_path"`
	LibSQLURL    string   `toml:"libsql_url"`
	ProjectID    string   `toml:"project_id"`
	Datasets     []string `toml:"datasets"`
	Schemas      []string `toml:"schemas"`
	Databases    []string `toml:"databases"`

	Grounding GroundingDefaults `toml:"grounding"`
}

// GroundingDefaults carries the tunables every dialect's introspection run
// shares, applied when the caller doesn't override them programmatically.
type GroundingDefaults struct {
	LowCardinalityLimit int      `toml:"low_cardinality_limit"`
	ForwardDepth        int      `toml:"forward_depth"`
	ForwardUnbounded    bool     `toml:"forward_unbounded"`
	BackwardDepth       int      `toml:"backward_depth"`
	BackwardUnbounded   bool     `toml:"backward_unbounded"`
	SystemSchemas       []string `toml:"system_schemas"`
	Concurrency         int      `toml:"concurrency"`
}

// Config is the top-level grounding.toml shape: one or more named
// environments, selected by the caller at runtime.
type Config struct {
	Environments   map[string]EnvironmentConfig `toml:"environments"`
	ConfigFilePath string                       `toml:"-"`
}

// PrintLoadConfigErrorDetails surfaces TOML decode position information,
// useful when a malformed grounding.toml produces an opaque error.
func PrintLoadConfigErrorDetails(err error, t *testing.T) {
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		if t != nil {
			t.Log(derr.String())
			row, col := derr.Position()
			t.Logf("error occurred at row %d, column %d", row, col)
		} else {
			fmt.Println(derr.String())
			row, col := derr.Position()
			fmt.Printf("error occurred at row %d, column %d\n", row, col)
		}
	}
}

// LoadConfig loads .env (if present) then grounding.toml, walking up from
// the working directory to the nearest project root. When no grounding.toml
// is found it returns an empty Config and no error.
func LoadConfig() (*Config, error) {
	loadDotEnv()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	config.ConfigFilePath = configPath
	return &config, nil
}

// loadDotEnv loads a .env file from the working directory when present.
// A missing .env is not an error — it's the common case in production.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

func getConfigPath() (string, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := startDir
	for {
		configPath := filepath.Join(dir, "grounding.toml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

func isProjectRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
		return true
	}
	return false
}
