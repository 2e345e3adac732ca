package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg == nil {
		t.Fatal("NewDefaultConfig returned nil")
	}

	if cfg.Agent.Command != DefaultAgentCommand {
		t.Errorf("expected agent command %q, got %q", DefaultAgentCommand, cfg.Agent.Command)
	}
	if cfg.Poller.Interval != DefaultPollInterval {
		t.Errorf("expected poll interval %v, got %v", DefaultPollInterval, cfg.Poller.Interval)
	}
	if cfg.Poller.IdleThreshold != DefaultIdleThreshold {
		t.Errorf("expected idle threshold %v, got %v", DefaultIdleThreshold, cfg.Poller.IdleThreshold)
	}
	if cfg.Worktree.Root != DefaultWorktreeRoot {
		t.Errorf("expected worktree root %q, got %q", DefaultWorktreeRoot, cfg.Worktree.Root)
	}
	if cfg.Worktree.BranchPrefix != DefaultBranchPrefix {
		t.Errorf("expected branch prefix %q, got %q", DefaultBranchPrefix, cfg.Worktree.BranchPrefix)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("expected log level %q, got %q", DefaultLogLevel, cfg.Logging.Level)
	}
	if cfg.Tracing.Enabled {
		t.Error("expected tracing disabled by default")
	}
}

func TestConfig_Validate_DefaultIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid, got error: %v", err)
	}
}

func TestPollerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  PollerConfig
		wantErr bool
	}{
		{
			name:    "valid values",
			config:  PollerConfig{Interval: 3 * time.Second, IdleThreshold: 5 * time.Second},
			wantErr: false,
		},
		{
			name:    "zero interval",
			config:  PollerConfig{Interval: 0, IdleThreshold: 5 * time.Second},
			wantErr: true,
		},
		{
			name:    "negative threshold",
			config:  PollerConfig{Interval: time.Second, IdleThreshold: -time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoggingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  LoggingConfig
		wantErr bool
	}{
		{name: "valid", config: LoggingConfig{Level: "debug", Format: "json"}, wantErr: false},
		{name: "invalid level", config: LoggingConfig{Level: "loud", Format: "text"}, wantErr: true},
		{name: "invalid format", config: LoggingConfig{Level: "info", Format: "xml"}, wantErr: true},
		{name: "empty values are valid", config: LoggingConfig{}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTracingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  TracingConfig
		wantErr bool
	}{
		{
			name:    "disabled skips checks",
			config:  TracingConfig{Enabled: false},
			wantErr: false,
		},
		{
			name:    "otlp requires endpoint",
			config:  TracingConfig{Enabled: true, ExporterType: "otlp", SampleRate: 1.0, ServiceName: "deckhand"},
			wantErr: true,
		},
		{
			name:    "sample rate out of range",
			config:  TracingConfig{Enabled: true, ExporterType: "stdout", SampleRate: 1.5, ServiceName: "deckhand"},
			wantErr: true,
		},
		{
			name:    "valid stdout",
			config:  TracingConfig{Enabled: true, ExporterType: "stdout", SampleRate: 0.5, ServiceName: "deckhand"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	cfg := NewDefaultConfig()
	cfg.Agent.Command = "claude --continue"
	cfg.Poller.Interval = 7 * time.Second

	path := filepath.Join(dir, "config.yaml")
	if err := loader.Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Agent.Command != "claude --continue" {
		t.Errorf("agent command = %q after round trip", loaded.Agent.Command)
	}
	if loaded.Poller.Interval != 7*time.Second {
		t.Errorf("poll interval = %v after round trip", loaded.Poller.Interval)
	}
}

func TestLoaderMissingFileReturnsDefaults(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	cfg, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.Command != DefaultAgentCommand {
		t.Errorf("expected defaults for missing file, got command %q", cfg.Agent.Command)
	}
}

func TestLoaderRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("agent: [not: closed"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if _, err := loader.Load(path); err == nil {
		t.Error("Load of malformed YAML succeeded, want error")
	}
}
