// Package config provides configuration structs and utilities for the deckhand
// application.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the root configuration for the deckhand application.
type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	Poller   PollerConfig   `yaml:"poller"`
	Worktree WorktreeConfig `yaml:"worktree"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	State    StateConfig    `yaml:"state"`
}

// AgentConfig holds configuration for the supervised agent processes.
type AgentConfig struct {
	Command string `yaml:"command"` // Command line used to start an agent
}

// PollerConfig holds configuration for the status/reconciliation poller.
type PollerConfig struct {
	Interval      time.Duration `yaml:"interval"`       // Poll tick period
	IdleThreshold time.Duration `yaml:"idle_threshold"` // Quiet period before a live agent reads as waiting
}

// WorktreeConfig holds configuration for isolated worktree workspaces.
type WorktreeConfig struct {
	Root         string `yaml:"root"`          // Worktree directory root, relative to the repo root
	BranchPrefix string `yaml:"branch_prefix"` // Prefix for workspace branches
}

// TrackerConfig holds configuration for the remote issue/PR tracker.
type TrackerConfig struct {
	Repo string `yaml:"repo"` // owner/name; empty means the repo of the current directory
}

// HistoryConfig holds configuration for the read-only past-session log.
type HistoryConfig struct {
	Dir string `yaml:"dir"` // Directory of per-project session index files
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
	ServiceName  string  `yaml:"service_name"`
}

// StateConfig holds configuration for workspace state persistence.
type StateConfig struct {
	Path string `yaml:"path"` // SQLite database path; empty for ~/.deckhand/deckhand.db
}

// Default configuration values.
const (
	DefaultAgentCommand       = "claude"
	DefaultPollInterval       = 3 * time.Second
	DefaultIdleThreshold      = 5 * time.Second
	DefaultWorktreeRoot       = ".agents-worktrees"
	DefaultBranchPrefix       = "agents/"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultTracingEnabled     = false
	DefaultTracingExporter    = "none"
	DefaultTracingSampleRate  = 1.0
	DefaultTracingServiceName = "deckhand"
)

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid log formats.
var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// Valid tracing exporter types.
var validTracingExporterTypes = map[string]bool{
	"none":   true,
	"stdout": true,
	"otlp":   true,
}

// NewDefaultConfig creates a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Command: DefaultAgentCommand,
		},
		Poller: PollerConfig{
			Interval:      DefaultPollInterval,
			IdleThreshold: DefaultIdleThreshold,
		},
		Worktree: WorktreeConfig{
			Root:         DefaultWorktreeRoot,
			BranchPrefix: DefaultBranchPrefix,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Tracing: TracingConfig{
			Enabled:      DefaultTracingEnabled,
			ExporterType: DefaultTracingExporter,
			SampleRate:   DefaultTracingSampleRate,
			ServiceName:  DefaultTracingServiceName,
		},
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Agent.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("agent: %w", err))
	}
	if err := c.Poller.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("poller: %w", err))
	}
	if err := c.Worktree.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("worktree: %w", err))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the AgentConfig is valid.
func (a *AgentConfig) Validate() error {
	if a.Command == "" {
		return errors.New("command is required")
	}
	return nil
}

// Validate checks if the PollerConfig is valid.
func (p *PollerConfig) Validate() error {
	var errs []error

	if p.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if p.IdleThreshold <= 0 {
		errs = append(errs, errors.New("idle_threshold must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the WorktreeConfig is valid.
func (w *WorktreeConfig) Validate() error {
	var errs []error

	if w.Root == "" {
		errs = append(errs, errors.New("root is required"))
	}
	if w.BranchPrefix == "" {
		errs = append(errs, errors.New("branch_prefix is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the LoggingConfig is valid.
func (l *LoggingConfig) Validate() error {
	var errs []error

	if l.Level != "" && !validLogLevels[l.Level] {
		errs = append(errs, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", l.Level))
	}
	if l.Format != "" && !validLogFormats[l.Format] {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be one of json, text", l.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the TracingConfig is valid.
func (t *TracingConfig) Validate() error {
	var errs []error

	if t.Enabled {
		if t.ExporterType != "" && !validTracingExporterTypes[t.ExporterType] {
			errs = append(errs, fmt.Errorf("invalid exporter_type %q: must be one of none, stdout, otlp", t.ExporterType))
		}
		if t.ExporterType == "otlp" && t.OTLPEndpoint == "" {
			errs = append(errs, errors.New("otlp_endpoint is required when exporter_type is 'otlp'"))
		}
		if t.SampleRate < 0 || t.SampleRate > 1 {
			errs = append(errs, errors.New("sample_rate must be between 0.0 and 1.0"))
		}
		if t.ServiceName == "" {
			errs = append(errs, errors.New("service_name is required when tracing is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
