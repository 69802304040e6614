// Package config loads gateway configuration from an optional YAML file
// layered under MACBRIDGE_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Runner modes for the AppleScript adapter, chosen once at startup.
const (
	ModeLive = "live"
	ModeMock = "mock"
)

// Config holds all gateway settings.
type Config struct {
	Auth struct {
		// Token is the shared secret every /rpc call must carry.
		// Required in serve mode; startup fails without it.
		Token string `koanf:"token"`
	} `koanf:"auth"`

	Server struct {
		Port int `koanf:"port"`
	} `koanf:"server"`

	AppleScript struct {
		Mode string `koanf:"mode"` // live or mock
	} `koanf:"applescript"`

	WhatsApp struct {
		BridgeURL string `koanf:"bridge_url"`
		StorePath string `koanf:"store_path"`
	} `koanf:"whatsapp"`

	Messages struct {
		DBPath string `koanf:"db_path"`
	} `koanf:"messages"`

	Contacts struct {
		Dir string `koanf:"dir"`
	} `koanf:"contacts"`

	Repo struct {
		// Dir is the working copy system_update operates on.
		Dir string `koanf:"dir"`
	} `koanf:"repo"`

	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

// Load reads configuration: defaults, then the YAML file at path (when
// non-empty and present), then MACBRIDGE_* environment variables
// (MACBRIDGE_AUTH_TOKEN → auth.token).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	home, _ := os.UserHomeDir()
	k.Set("server.port", 8787)
	k.Set("applescript.mode", ModeLive)
	k.Set("whatsapp.bridge_url", "http://localhost:8080")
	k.Set("whatsapp.store_path", filepath.Join(home, "Library", "Application Support", "whatsapp-bridge", "store", "messages.db"))
	k.Set("messages.db_path", filepath.Join(home, "Library", "Messages", "chat.db"))
	k.Set("contacts.dir", filepath.Join(home, "Library", "Application Support", "AddressBook"))
	k.Set("repo.dir", ".")
	k.Set("log.level", "info")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("MACBRIDGE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "MACBRIDGE_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.AppleScript.Mode != ModeLive && cfg.AppleScript.Mode != ModeMock {
		return nil, fmt.Errorf("applescript.mode must be %q or %q, got %q", ModeLive, ModeMock, cfg.AppleScript.Mode)
	}
	return &cfg, nil
}

// ValidateServe checks the settings that only serve mode needs.
func (c *Config) ValidateServe() error {
	if strings.TrimSpace(c.Auth.Token) == "" {
		return fmt.Errorf("auth.token is required: set MACBRIDGE_AUTH_TOKEN or auth.token in the config file")
	}
	return nil
}
