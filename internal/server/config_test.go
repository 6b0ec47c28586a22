package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileKeepsDefaults(t *testing.T) {
	base := DefaultAppConfig()
	got, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"), base)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got != base {
		t.Errorf("missing file changed the config: %+v", got)
	}
}

func TestLoadConfigMergesPresentFieldsOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"addr": ":9000", "worker_timeout_ms": 500, "machine_api_key": ""}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	base := DefaultAppConfig()
	base.MachineAPIKey = "from-env"
	got, err := LoadConfig(path, base)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got.Addr != ":9000" {
		t.Errorf("addr = %q", got.Addr)
	}
	if got.WorkerTimeout != 500*time.Millisecond {
		t.Errorf("worker timeout = %v", got.WorkerTimeout)
	}
	if got.MachineAPIKey != "" {
		t.Error("an explicit empty string in the file should override")
	}
	if got.MaxConcurrency != base.MaxConcurrency {
		t.Errorf("absent field changed: %d", got.MaxConcurrency)
	}
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path, DefaultAppConfig()); err == nil {
		t.Error("malformed config should error")
	}
}

func TestApplyOverrides(t *testing.T) {
	addr := ":7777"
	concurrency := 9
	got := ApplyOverrides(DefaultAppConfig(), ConfigOverrides{
		Addr:           &addr,
		MaxConcurrency: &concurrency,
	})
	if got.Addr != ":7777" || got.MaxConcurrency != 9 {
		t.Errorf("overrides not applied: %+v", got)
	}
	if got.LogLevel != DefaultAppConfig().LogLevel {
		t.Error("nil override changed a field")
	}
}
