package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	dir, err := configDir()
	if err != nil {
		t.Fatalf("configDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".config", appName)
	if dir != expected {
		t.Errorf("configDir() = %q, want %q", dir, expected)
	}
}

func TestConfigDirXDG(t *testing.T) {
	custom := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", custom)

	dir, err := configDir()
	if err != nil {
		t.Fatalf("configDir() error: %v", err)
	}
	expected := filepath.Join(custom, appName)
	if dir != expected {
		t.Errorf("configDir() with XDG_CONFIG_HOME = %q, want %q", dir, expected)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	c := New(io.Discard, LogInfo)

	cfg, err := c.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() without file = %v", err)
	}
	if cfg.Leaves.Seed != 42 {
		t.Errorf("defaults not used: %+v", cfg.Leaves)
	}

	path := filepath.Join(t.TempDir(), "run.toml")
	if err := os.WriteFile(path, []byte("[leaves]\nseed = 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c.ConfigPath = path
	cfg, err = c.loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Leaves.Seed != 9 {
		t.Errorf("seed = %d, want 9", cfg.Leaves.Seed)
	}

	c.ConfigPath = path + ".missing"
	if _, err := c.loadConfig(); err == nil {
		t.Error("explicit missing config should fail")
	}
}
