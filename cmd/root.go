// Package cmd contains the CLI entry point.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sbrink/flowdash/internal/api"
	"github.com/sbrink/flowdash/internal/app"
	"github.com/sbrink/flowdash/internal/config"
	"github.com/sbrink/flowdash/internal/log"
	"github.com/sbrink/flowdash/internal/mode"
	"github.com/sbrink/flowdash/internal/stats"
	"github.com/sbrink/flowdash/internal/tracing"
	"github.com/sbrink/flowdash/internal/ui/styles"
	"github.com/sbrink/flowdash/internal/unsaved"
)

func init() {
	// Force lipgloss/termenv to query the terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version = "dev"
	cfgFile string
	debug   bool
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:     "flowdash",
	Short:   "A terminal dashboard for the flowmark bandwidth manager",
	Long:    `A terminal dashboard for operating a flowmark server: edit its settings with unsaved-changes protection, watch active streams, and chart recent bandwidth.`,
	Version: version,
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/flowdash/config.yaml)")
	rootCmd.Flags().StringP("server", "s", "",
		"flowmark server base URL")
	rootCmd.Flags().String("api-key", "",
		"API key for authenticated endpoints")
	rootCmd.Flags().Bool("no-auto-refresh", false,
		"disable automatic stream and bandwidth refresh")
	rootCmd.Flags().BoolVar(&debug, "debug", false,
		"write a debug log next to the config file")

	// Bind flags to viper
	_ = viper.BindPFlag("server_url", rootCmd.Flags().Lookup("server"))
	_ = viper.BindPFlag("api_key", rootCmd.Flags().Lookup("api-key"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("server_url", defaults.ServerURL)
	viper.SetDefault("request_timeout", defaults.RequestTimeout)
	viper.SetDefault("auto_refresh", defaults.AutoRefresh)
	viper.SetDefault("refresh_interval", defaults.RefreshInterval)
	viper.SetDefault("cache_ttl", defaults.CacheTTL)
	viper.SetDefault("ui.show_status_bar", defaults.UI.ShowStatusBar)
	viper.SetDefault("ui.mouse", defaults.UI.Mouse)
	viper.SetDefault("theme.preset", defaults.Theme.Preset)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .flowdash/config.yaml (current directory)
		// 2. ~/.config/flowdash/config.yaml (user config)
		if _, err := os.Stat(".flowdash/config.yaml"); err == nil {
			viper.SetConfigFile(".flowdash/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "flowdash"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .flowdash/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".flowdash/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runApp(cmd *cobra.Command, args []string) error {
	if noAutoRefresh, _ := cmd.Flags().GetBool("no-auto-refresh"); noAutoRefresh {
		cfg.AutoRefresh = false
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	configFilePath := viper.ConfigFileUsed()
	if configFilePath == "" {
		configFilePath = ".flowdash/config.yaml"
	}
	configDir := filepath.Dir(configFilePath)

	if debug {
		if closeLog, err := log.Init(filepath.Join(configDir, "debug.log")); err == nil {
			defer closeLog()
		}
	}

	if err := styles.ApplyTheme(styles.ThemeConfig{
		Preset: cfg.Theme.Preset,
		Colors: cfg.Theme.Colors,
	}); err != nil {
		return fmt.Errorf("applying theme: %w", err)
	}

	tracerCfg := tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		FilePath:     cfg.Tracing.FilePath,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
		ServiceName:  "flowdash",
	}
	if tracerCfg.FilePath == "" {
		tracerCfg.FilePath = filepath.Join(configDir, "traces.jsonl")
	}
	provider, err := tracing.NewProvider(tracerCfg)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}()

	client, err := api.NewClient(api.Config{
		BaseURL:  cfg.ServerURL,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.RequestTimeout,
		CacheTTL: cfg.CacheTTL,
		Tracer:   provider.Tracer(),
	})
	if err != nil {
		return fmt.Errorf("creating API client: %w", err)
	}

	statsPath := cfg.StatsDB
	if statsPath == "" {
		statsPath = filepath.Join(configDir, "stats.db")
	}
	store, err := stats.Open(statsPath)
	if err != nil {
		return fmt.Errorf("opening stats store: %w", err)
	}
	defer func() { _ = store.Close() }()

	// Mouse zone tracking must exist before the first View call.
	zone.NewGlobal()
	defer zone.Close()

	services := mode.Services{
		API:        client,
		Config:     &cfg,
		ConfigPath: configFilePath,
		Unsaved:    unsaved.New(),
		Stats:      store,
		Tracer:     provider.Tracer(),
	}

	model := app.New(app.Config{
		Services:     services,
		ReloadConfig: reloadConfig,
	})

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.UI.Mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(model, opts...)

	final, err := p.Run()
	if final, ok := final.(app.Model); ok {
		final.Close()
	}
	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// reloadConfig re-reads the config file for hot-reload.
func reloadConfig() (config.Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		return config.Config{}, err
	}
	fresh := config.Defaults()
	if err := viper.Unmarshal(&fresh); err != nil {
		return config.Config{}, err
	}
	if err := fresh.Validate(); err != nil {
		return config.Config{}, err
	}
	return fresh, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
