// Package commands implements the CLI commands for deckhand.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/helmware/deckhand/internal/application/ports"
	"github.com/helmware/deckhand/internal/application/supervisor"
	"github.com/helmware/deckhand/internal/infrastructure/config"
	"github.com/helmware/deckhand/internal/infrastructure/git"
	"github.com/helmware/deckhand/internal/infrastructure/logging"
	"github.com/helmware/deckhand/internal/infrastructure/process"
	"github.com/helmware/deckhand/internal/infrastructure/storage"
	"github.com/helmware/deckhand/internal/infrastructure/tracing"
	"github.com/helmware/deckhand/internal/infrastructure/tracker"
	"github.com/helmware/deckhand/internal/presentation/cli/output"
)

// Version information - set at build time via ldflags.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GlobalFlags holds the global CLI flags.
type GlobalFlags struct {
	ConfigFile string
	Output     string
	Session    string
	Verbose    bool
}

// AppContext holds the application runtime context.
type AppContext struct {
	Config     *config.Config
	Formatter  *output.Formatter
	Flags      *GlobalFlags
	Supervisor *supervisor.Supervisor
	Poller     *supervisor.Poller
	SlotHost   *process.TmuxSlotHost
	Worktrees  *git.WorktreeManager
	Store      ports.WorkspaceStateStore
	Tracer     *tracing.Tracer
	cancelFunc context.CancelFunc
}

var (
	globalFlags GlobalFlags
	appCtx      *AppContext
	appCtxMu    sync.RWMutex
)

// NewRootCmd creates the root command for the deckhand CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deckhand",
		Short: "Deckhand - supervise coding agents in tmux windows",
		Long: `Deckhand launches interactive coding agents in tmux windows, each bound
to its own directory or git worktree, and keeps track of what every agent
is doing.

Each workspace pairs one agent process with one tmux window. Deckhand
infers agent status (running, waiting, done, error) from process liveness
and output activity, reconciles window positions as you rearrange or close
windows, and manages the git worktrees that give agents isolated checkouts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}
			return initializeApp()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "", "config file path (default: ~/.deckhand/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Output, "output", "o", "text", "output format: text, json")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Session, "session", "s", "", "tmux session to manage (default: the attached session)")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewLaunchCmd())
	rootCmd.AddCommand(NewKillCmd())
	rootCmd.AddCommand(NewLsCmd())
	rootCmd.AddCommand(NewSwitchCmd())
	rootCmd.AddCommand(NewSendCmd())
	rootCmd.AddCommand(NewIssuesCmd())
	rootCmd.AddCommand(NewPRCmd())
	rootCmd.AddCommand(NewResumeCmd())
	rootCmd.AddCommand(NewWatchCmd())

	return rootCmd
}

// initializeApp initializes the application context.
func initializeApp() error {
	format := output.FormatText
	if globalFlags.Output == "json" {
		format = output.FormatJSON
	}

	formatter := output.NewFormatter(
		output.WithFormat(format),
		output.WithColor(format != output.FormatJSON && output.IsColorSupported()),
	)

	cfg, err := loadConfig(globalFlags.ConfigFile)
	if err != nil {
		if globalFlags.Verbose {
			formatter.Warning("Could not load config: %v, using defaults", err)
		}
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logLevel := logging.Level(cfg.Logging.Level)
	if globalFlags.Verbose {
		logLevel = logging.LevelDebug
	}
	logger := logging.Init(logging.Config{
		Level:  logLevel,
		Format: logging.Format(cfg.Logging.Format),
		Output: os.Stderr,
	})

	ctx, cancel := context.WithCancel(context.Background())

	tracer, err := tracing.Init(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ExporterType: tracing.ExporterType(cfg.Tracing.ExporterType),
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		ServiceName:  cfg.Tracing.ServiceName,
		SampleRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	slotHost, err := process.NewTmuxSlotHost(globalFlags.Session)
	if err != nil {
		cancel()
		return fmt.Errorf("tmux is required: %w", err)
	}

	worktrees, err := git.NewWorktreeManager(cfg.Worktree.Root, cfg.Worktree.BranchPrefix)
	if err != nil {
		cancel()
		return err
	}

	// Tracker and store are optional: their absence disables the features
	// that need them, not the whole tool.
	var trk ports.Tracker
	if t, err := tracker.NewGitHubTracker(""); err == nil {
		trk = t
	} else if globalFlags.Verbose {
		formatter.Warning("Tracker unavailable: %v", err)
	}

	var store ports.WorkspaceStateStore
	statePath := cfg.State.Path
	if statePath == "" {
		if loader, err := config.NewLoader(""); err == nil {
			statePath = loader.DefaultStatePath()
		}
	}
	if statePath != "" {
		if s, err := storage.Open(statePath); err == nil {
			store = s
		} else {
			logger.Warn("state persistence disabled", "error", err)
		}
	}

	sup := supervisor.New(slotHost, slotHost, worktrees, trk, store, supervisor.Options{
		AgentCommand:  cfg.Agent.Command,
		IdleThreshold: cfg.Poller.IdleThreshold,
	}, logger, tracer)

	if err := sup.Recover(ctx); err != nil {
		logger.Warn("startup recovery failed", "error", err)
	}

	appCtxMu.Lock()
	appCtx = &AppContext{
		Config:     cfg,
		Formatter:  formatter,
		Flags:      &globalFlags,
		Supervisor: sup,
		Poller:     supervisor.NewPoller(sup, cfg.Poller.Interval),
		SlotHost:   slotHost,
		Worktrees:  worktrees,
		Store:      store,
		Tracer:     tracer,
		cancelFunc: cancel,
	}
	appCtxMu.Unlock()

	return nil
}

// loadConfig loads configuration from the specified file or default location.
func loadConfig(configPath string) (*config.Config, error) {
	loader, err := config.NewLoader("")
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load(configPath)
}

// GetAppContext returns the current application context, or nil before
// initialization. Thread-safe.
func GetAppContext() *AppContext {
	appCtxMu.RLock()
	defer appCtxMu.RUnlock()
	return appCtx
}

// GetFormatter returns the output formatter, falling back to a default one
// before initialization. Thread-safe.
func GetFormatter() *output.Formatter {
	appCtxMu.RLock()
	ctx := appCtx
	appCtxMu.RUnlock()

	if ctx != nil {
		return ctx.Formatter
	}
	return output.NewFormatter()
}

// Shutdown performs graceful shutdown of the application.
func Shutdown() {
	appCtxMu.Lock()
	defer appCtxMu.Unlock()

	if appCtx == nil {
		return
	}
	if appCtx.cancelFunc != nil {
		appCtx.cancelFunc()
	}
	if appCtx.Store != nil {
		_ = appCtx.Store.Close()
	}
	if appCtx.Tracer != nil {
		_ = appCtx.Tracer.Shutdown(context.Background())
	}
}

// Execute runs the root command with graceful shutdown support.
func Execute() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		rootCmd := NewRootCmd()
		errChan <- rootCmd.Execute()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			formatter := GetFormatter()
			formatter.Error("%s", err.Error())
			Shutdown()
			os.Exit(1)
		}
	case sig := <-sigChan:
		formatter := GetFormatter()
		formatter.Warning("Received signal %v, shutting down...", sig)
		Shutdown()
		os.Exit(130)
	}

	Shutdown()
}
