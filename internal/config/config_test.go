package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const exampleConfig = `[environments.local]
dialect = "postgresql"
postgres_url = "test"`

func compareConfigPaths(t *testing.T, expected, actual string) {
	t.Helper()

	expectedResolved, err := filepath.EvalSymlinks(expected)
	if err != nil {
		expectedResolved = expected
	}
	actualResolved, err := filepath.EvalSymlinks(actual)
	if err != nil {
		actualResolved = actual
	}

	if expectedResolved != actualResolved {
		t.Errorf("expected ConfigFilePath=%q, got %q", expectedResolved, actualResolved)
	}
}

func changeToDir(t *testing.T, dir string) func() {
	t.Helper()

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change to directory %q: %v", dir, err)
	}

	return func() {
		if _, err := os.Stat(originalDir); err == nil {
			if err := os.Chdir(originalDir); err != nil {
				t.Logf("failed to restore working directory: %v", err)
			}
		}
	}
}

func TestLoadConfigInCurrentDirectory(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "grounding.toml")

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cleanup := changeToDir(t, tempDir)
	defer cleanup()

	cfg, err := LoadConfig()
	if err != nil {
		PrintLoadConfigErrorDetails(err, t)
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	local, ok := cfg.Environments["local"]
	if !ok {
		t.Fatalf("expected local environment, got %v", cfg.Environments)
	}
	if local.Dialect != "postgresql" {
		t.Errorf("expected dialect=postgresql, got %q", local.Dialect)
	}
	if local.PostgresURL != "test" {
		t.Errorf("expected postgres_url=test, got %q", local.PostgresURL)
	}

	compareConfigPaths(t, configPath, cfg.ConfigFilePath)
}

func TestLoadConfigInParentDirectory(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "grounding.toml")

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	subDir := filepath.Join(tempDir, "subdir", "nested")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatalf("failed to create subdirectory: %v", err)
	}

	cleanup := changeToDir(t, subDir)
	defer cleanup()

	cfg, err := LoadConfig()
	if err != nil {
		PrintLoadConfigErrorDetails(err, t)
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if local, ok := cfg.Environments["local"]; !ok || local.PostgresURL != "test" {
		t.Errorf("expected local environment with postgres_url=test, got %v", cfg.Environments)
	}

	compareConfigPaths(t, configPath, cfg.ConfigFilePath)
}

func TestLoadConfigNoFileReturnsEmpty(t *testing.T) {
	tempDir := t.TempDir()

	cleanup := changeToDir(t, tempDir)
	defer cleanup()

	cfg, err := LoadConfig()
	if err != nil {
		PrintLoadConfigErrorDetails(err, t)
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Environments != nil {
		t.Errorf("expected empty environments, got %v", cfg.Environments)
	}
	if cfg.ConfigFilePath != "" {
		t.Errorf("expected empty ConfigFilePath, got %q", cfg.ConfigFilePath)
	}
}

func TestLoadConfigStopsAtGitRoot(t *testing.T) {
	tempDir := t.TempDir()
	parentConfig := `[environments.local]
dialect = "postgresql"
postgres_url = "parent"`
	gitProjectConfig := `[environments.local]
dialect = "postgresql"
postgres_url = "git-project"`

	parentDir := filepath.Join(tempDir, "parent")
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		t.Fatalf("failed to create parent directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(parentDir, "grounding.toml"), []byte(parentConfig), 0o600); err != nil {
		t.Fatalf("failed to write parent config: %v", err)
	}

	gitProjectDir := filepath.Join(parentDir, "git-project")
	if err := os.MkdirAll(filepath.Join(gitProjectDir, ".git"), 0o755); err != nil {
		t.Fatalf("failed to create .git directory: %v", err)
	}
	gitConfigPath := filepath.Join(gitProjectDir, "grounding.toml")
	if err := os.WriteFile(gitConfigPath, []byte(gitProjectConfig), 0o600); err != nil {
		t.Fatalf("failed to write git project config: %v", err)
	}

	subDir := filepath.Join(gitProjectDir, "src", "components")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatalf("failed to create subdirectory: %v", err)
	}

	cleanup := changeToDir(t, subDir)
	defer cleanup()

	cfg, err := LoadConfig()
	if err != nil {
		PrintLoadConfigErrorDetails(err, t)
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if local, ok := cfg.Environments["local"]; !ok || local.PostgresURL != "git-project" {
		t.Errorf("expected postgres_url=git-project, got %v", cfg.Environments)
	}

	compareConfigPaths(t, gitConfigPath, cfg.ConfigFilePath)
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "grounding.toml")
	invalidContent := `test = "test" invalid syntax`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cleanup := changeToDir(t, tempDir)
	defer cleanup()

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for invalid TOML, got nil")
	}
	if !strings.Contains(err.Error(), "toml") {
		t.Errorf("expected TOML parse error, got: %v", err)
	}
}

func TestLoadConfigGroundingDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "grounding.toml")
	content := `[environments.local]
dialect = "mysql"
databases = ["app"]

[environments.local.grounding]
low_cardinality_limit = 15
forward_depth = 2
backward_unbounded = true
concurrency = 8`

	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cleanup := changeToDir(t, tempDir)
	defer cleanup()

	cfg, err := LoadConfig()
	if err != nil {
		PrintLoadConfigErrorDetails(err, t)
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	local := cfg.Environments["local"]
	if local.Grounding.LowCardinalityLimit != 15 {
		t.Errorf("expected low_cardinality_limit=15, got %d", local.Grounding.LowCardinalityLimit)
	}
	if local.Grounding.ForwardDepth != 2 {
		t.Errorf("expected forward_depth=2, got %d", local.Grounding.ForwardDepth)
	}
	if !local.Grounding.BackwardUnbounded {
		t.Error("expected backward_unbounded=true")
	}
	if len(local.Databases) != 1 || local.Databases[0] != "app" {
		t.Errorf("expected databases=[app], got %v", local.Databases)
	}
}

func TestIsProjectRootGit(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tempDir, ".git"), 0o755); err != nil {
		t.Fatalf("failed to create .git directory: %v", err)
	}

	if !isProjectRoot(tempDir) {
		t.Error("expected isProjectRoot to return true for directory with .git")
	}
}

func TestIsProjectRootGoMod(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tempDir, "go.mod"), []byte("module test\n"), 0o600); err != nil {
		t.Fatalf("failed to write go.mod: %v", err)
	}

	if !isProjectRoot(tempDir) {
		t.Error("expected isProjectRoot to return true for directory with go.mod")
	}
}

func TestIsProjectRootNoMarkers(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()

	if isProjectRoot(tempDir) {
		t.Error("expected isProjectRoot to return false for directory without project markers")
	}
}
