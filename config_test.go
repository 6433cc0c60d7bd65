package main

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"tls pair", func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }, ""},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, "--tls-key"},
		{"port zero", func(c *Config) { c.port = 0 }, "invalid port"},
		{"port too high", func(c *Config) { c.port = 70000 }, "invalid port"},
		{"no room timeout", func(c *Config) { c.roomTimeout = 0 }, "room timeout"},
		{"no ping", func(c *Config) { c.pingInterval = 0 }, "ping interval"},
		{"wait past timeout", func(c *Config) { c.pollWait = time.Minute; c.pollTimeout = time.Second }, "polling timeouts"},
		{"no send buffer", func(c *Config) { c.sendBuffer = 0 }, "send buffer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			switch {
			case tt.wantErr == "" && err != nil:
				t.Fatalf("unexpected error: %v", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := defaultConfig()
	if cfg.scheme() != "http" {
		t.Fatalf("expected http, got %s", cfg.scheme())
	}

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	if cfg.scheme() != "https" {
		t.Fatalf("expected https, got %s", cfg.scheme())
	}
}

func TestFlagDefaults(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)

	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	def := defaultConfig()
	if cfg.port != def.port || cfg.roomTimeout != def.roomTimeout || cfg.environment != def.environment || cfg.sendBuffer != def.sendBuffer {
		t.Fatalf("flags did not start from defaults: %+v", cfg)
	}
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("PUZZLEPARTY_ROOM_TIMEOUT", "90s")
	t.Setenv("PUZZLEPARTY_PORT", "9090")
	t.Setenv("PUZZLEPARTY_ENVIRONMENT", "production")
	t.Setenv("PUZZLEPARTY_VERBOSE", "true")

	cfg := &Config{}
	cmd := newCmd(cfg)

	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if cfg.roomTimeout != 90*time.Second || cfg.port != 9090 || cfg.environment != "production" || !cfg.verbose {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("PUZZLEPARTY_ROOM_TIMEOUT", "90s")

	cfg := &Config{}
	cmd := newCmd(cfg)

	if err := cmd.ParseFlags([]string{"--room_timeout=2m"}); err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if cfg.roomTimeout != 2*time.Minute {
		t.Fatalf("expected the flag to win, got %s", cfg.roomTimeout)
	}
}

func TestCommandRejectsInvalidConfig(t *testing.T) {
	for _, args := range [][]string{
		{"--tls-cert", "cert.pem"},
		{"--poll-wait", "2m"},
		{"unexpected"},
	} {
		cmd := newCmd(&Config{})
		cmd.SetArgs(args)

		if err := cmd.Execute(); err == nil {
			t.Fatalf("expected %v to be rejected", args)
		}
	}
}
