package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "femto.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[store]
capacity = 4096
image = "femto.img"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Store.Capacity != 4096 || c.Store.Image != "femto.img" {
		t.Fatalf("store section: %+v", c.Store)
	}
	// Unset sections keep the defaults.
	d := Default()
	if c.Memory != d.Memory || c.Process != d.Process || c.Output != d.Output {
		t.Fatalf("defaults lost: %+v", c)
	}
}

func TestLoadRejectsTinyStore(t *testing.T) {
	path := writeConfig(t, `
[store]
capacity = 100
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "table header") {
		t.Fatalf("got %v", err)
	}
}

func TestLoadRejectsBadToml(t *testing.T) {
	path := writeConfig(t, "store = [broken")
	if _, err := Load(path); err == nil {
		t.Fatal("parse error not reported")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	c, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if *c != Default() {
		t.Fatalf("got %+v, want defaults", c)
	}
}
