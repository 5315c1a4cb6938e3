package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VOXELCORE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":25565" {
		t.Errorf("ListenAddr = %q, want :25565", cfg.ListenAddr)
	}
	if !cfg.OnlineMode {
		t.Errorf("OnlineMode = false, want true")
	}
	if cfg.CompressionThreshold != 256 {
		t.Errorf("CompressionThreshold = %d, want 256", cfg.CompressionThreshold)
	}
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	body := "listen_addr: \":7777\"\nonline_mode: false\nview_distance: 4\nmotd: from yaml\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("VOXELCORE_CONFIG", path)
	t.Setenv("VOXELCORE_VIEW_DISTANCE", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":7777" {
		t.Errorf("ListenAddr = %q, want :7777 (yaml)", cfg.ListenAddr)
	}
	if cfg.OnlineMode {
		t.Errorf("OnlineMode = true, want false (yaml)")
	}
	if cfg.ViewDistance != 6 {
		t.Errorf("ViewDistance = %d, want 6 (env beats yaml)", cfg.ViewDistance)
	}
	if cfg.MOTD != "from yaml" {
		t.Errorf("MOTD = %q, want %q", cfg.MOTD, "from yaml")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [unterminated"), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	t.Setenv("VOXELCORE_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatalf("Load succeeded on malformed yaml, want error")
	}
}
