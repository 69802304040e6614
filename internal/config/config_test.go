package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8787 {
		t.Errorf("port = %d, want 8787", cfg.Server.Port)
	}
	if cfg.AppleScript.Mode != ModeLive {
		t.Errorf("mode = %q, want live", cfg.AppleScript.Mode)
	}
	if cfg.WhatsApp.BridgeURL != "http://localhost:8080" {
		t.Errorf("bridge url = %q", cfg.WhatsApp.BridgeURL)
	}
	if !strings.HasSuffix(cfg.Messages.DBPath, filepath.Join("Library", "Messages", "chat.db")) {
		t.Errorf("messages db path = %q", cfg.Messages.DBPath)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "server:\n  port: 9999\napplescript:\n  mode: mock\nauth:\n  token: filetoken\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 || cfg.AppleScript.Mode != ModeMock || cfg.Auth.Token != "filetoken" {
		t.Errorf("file values not applied: %+v", cfg)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  token: filetoken\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MACBRIDGE_AUTH_TOKEN", "envtoken")
	t.Setenv("MACBRIDGE_APPLESCRIPT_MODE", "mock")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.Token != "envtoken" {
		t.Errorf("token = %q, env should win over file", cfg.Auth.Token)
	}
	if cfg.AppleScript.Mode != ModeMock {
		t.Errorf("mode = %q, want mock from env", cfg.AppleScript.Mode)
	}
}

func TestLoad_EnvKeySplitsOnFirstUnderscore(t *testing.T) {
	// whatsapp.bridge_url keeps its second underscore.
	t.Setenv("MACBRIDGE_WHATSAPP_BRIDGE_URL", "http://10.0.0.5:8080")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WhatsApp.BridgeURL != "http://10.0.0.5:8080" {
		t.Errorf("bridge url = %q", cfg.WhatsApp.BridgeURL)
	}
}

func TestLoad_RejectsUnknownMode(t *testing.T) {
	t.Setenv("MACBRIDGE_APPLESCRIPT_MODE", "dry-run")

	if _, err := Load(""); err == nil {
		t.Fatal("Load should reject an unknown mode")
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load should fail when a named config file is missing")
	}
}

func TestValidateServe(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateServe(); err == nil {
		t.Error("empty token should fail validation")
	}
	cfg.Auth.Token = "  "
	if err := cfg.ValidateServe(); err == nil {
		t.Error("blank token should fail validation")
	}
	cfg.Auth.Token = "secret"
	if err := cfg.ValidateServe(); err != nil {
		t.Errorf("ValidateServe: %v", err)
	}
}
