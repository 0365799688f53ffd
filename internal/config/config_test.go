package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"RelayScope/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
monitor:
  order: [PORT, UPTIME]
  resolve_apps: true
  update_interval: 10s
relay:
  or_ports: [9001]
  socks_ports: [9050]
  exit_policy:
    - "accept *:53"
    - "reject *:*"
  allow_inbound: true
resolver:
  pid: 1234
  interval: 2s
api:
  listen_addr: ":8650"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	order, err := cfg.SortOrder()
	if err != nil {
		t.Fatalf("SortOrder failed: %v", err)
	}
	if len(order) != 2 || order[0] != model.SortByPort || order[1] != model.SortByUptime {
		t.Errorf("order = %v, want [PORT UPTIME]", order)
	}

	if d, _ := cfg.UpdateInterval(); d != 10*time.Second {
		t.Errorf("update interval = %s, want 10s", d)
	}
	if d, _ := cfg.ResolverInterval(); d != 2*time.Second {
		t.Errorf("resolver interval = %s, want 2s", d)
	}
	if !cfg.Monitor.ResolveApps || !cfg.Relay.AllowInbound {
		t.Error("boolean settings were not decoded")
	}
	if cfg.Resolver.PID != 1234 || cfg.API.ListenAddr != ":8650" {
		t.Errorf("decoded resolver/api settings = %+v %+v", cfg.Resolver, cfg.API)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}

	if _, err := LoadConfig(writeConfig(t, "monitor: [not, a, mapping]")); err == nil {
		t.Error("expected error for malformed YAML")
	}

	if _, err := LoadConfig(writeConfig(t, "monitor:\n  order: [BOGUS]\n")); err == nil {
		t.Error("expected error for an unknown sort attribute")
	}
}

func TestSortOrderDefaults(t *testing.T) {
	var cfg Config

	order, err := cfg.SortOrder()
	if err != nil {
		t.Fatalf("SortOrder failed: %v", err)
	}
	if len(order) != 3 || order[0] != model.SortByCategory ||
		order[1] != model.SortByIPAddress || order[2] != model.SortByUptime {
		t.Errorf("default order = %v", order)
	}
}

func TestSortOrderRejectsMoreThanThree(t *testing.T) {
	cfg := Config{Monitor: MonitorConfig{Order: []string{"CATEGORY", "PORT", "UPTIME", "NICKNAME"}}}
	if _, err := cfg.SortOrder(); err == nil {
		t.Error("expected error for more than three sort attributes")
	}
}

func TestIntervalDefaults(t *testing.T) {
	var cfg Config

	if d, err := cfg.UpdateInterval(); err != nil || d != 5*time.Second {
		t.Errorf("default update interval = %s err=%v, want 5s", d, err)
	}
	if d, err := cfg.ResolverInterval(); err != nil || d != 5*time.Second {
		t.Errorf("default resolver interval = %s err=%v, want 5s", d, err)
	}

	cfg.Monitor.UpdateInterval = "-3s"
	if _, err := cfg.UpdateInterval(); err == nil {
		t.Error("expected error for a negative interval")
	}
	cfg.Resolver.Interval = "soon"
	if _, err := cfg.ResolverInterval(); err == nil {
		t.Error("expected error for an unparsable interval")
	}
}
