package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettingsFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	body := `
env: staging
log_level: debug
server_flavor: echo
features: [metrics, tracing]
services:
  echo:
    addr: "127.0.0.1:9090"
    mailbox_capacity: 256
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Env != "staging" || s.LogLevel != "debug" || s.ServerFlavor != "echo" {
		t.Fatalf("unexpected scalar fields: %+v", s)
	}
	if len(s.Features) != 2 || s.Features[0] != "metrics" {
		t.Errorf("Features = %v, want [metrics tracing]", s.Features)
	}
	echo, ok := s.Services["echo"]
	if !ok || echo.Addr != "127.0.0.1:9090" || echo.MailboxCapacity != 256 {
		t.Errorf("Services[\"echo\"] = %+v, ok=%v", echo, ok)
	}
	if s.InstanceID == "" {
		t.Error("InstanceID should be generated when absent from the file")
	}
}

func TestLoadSettingsEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o600); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	os.Setenv("EA__LOGLEVEL", "debug")
	defer os.Unsetenv("EA__LOGLEVEL")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q (env override)", s.LogLevel, "debug")
	}
}
