package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/creditbar/internal/app"
	"github.com/j-veylop/creditbar/internal/config"
	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/ui/tabs/dashboard"
	"github.com/j-veylop/creditbar/internal/ui/tabs/info"
	"github.com/j-veylop/creditbar/internal/ui/tabs/usage"
)

var (
	cfg       *config.Config
	logCloser io.Closer

	backendURL string
	logLevel   string
	fresh      bool
)

var rootCmd = &cobra.Command{
	Use:   "creditbar",
	Short: "Watch your remaining AI credits from the terminal",
	Long: `creditbar tracks the credit balance of an Augment account (or a legacy
Orb billing portal), estimates how long it will last and warns when it runs low.

Run without a subcommand to open the dashboard.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	RunE: func(*cobra.Command, []string) error {
		return runTUI()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "Remote backend URL (overrides "+config.EnvPrefix+"_BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.Flags().BoolVar(&fresh, "fresh", false, "Read the balance from the provider on startup instead of the stored value")
}

// setup loads configuration and points logging at the log file.
func setup(cmd *cobra.Command, _ []string) error {
	if cmd == versionCmd {
		return nil
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logCloser, err = logger.Setup(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger.Debug("configuration loaded", "data_dir", cfg.DataDir, "remote", cfg.RemoteBackend())
	return nil
}

// runTUI runs the dashboard until the user quits.
func runTUI() error {
	b, err := openBackend(cfg, false)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			logger.Warn("error closing backend", "error", closeErr)
		}
	}()

	st := b.newStore(cfg)
	defer st.Teardown()

	model := app.NewModel(st, initOptions(cfg, fresh))
	defer model.Close()

	state := model.State()
	model.SetTabs([]app.Tab{
		dashboard.New(state),
		usage.New(state),
		info.New(state, cfg),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
