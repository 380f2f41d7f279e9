package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/microclaw/app"
	"github.com/kilianp07/microclaw/config"
	coremon "github.com/kilianp07/microclaw/core/monitoring"
	"github.com/kilianp07/microclaw/infra/logger"
	"github.com/kilianp07/microclaw/infra/monitoring"
)

const defaultConfigFile = "config.yaml"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "microclaw",
	Short:        "Temperature and humidity sensor node publishing over MQTT",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigFile, "configuration file (empty for environment only)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// resolveConfigPath drops the default file name when no such file exists, so
// a bare invocation runs on defaults and environment. An explicit path is
// kept as is and fails at load time when missing.
func resolveConfigPath(path string, explicit bool) string {
	if explicit || path != defaultConfigFile {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ""
	}
	return path
}

// setup loads the configuration and installs logging and error reporting.
func setup(cmd *cobra.Command) (*config.Config, error) {
	explicit := false
	if f := cmd.Flag("config"); f != nil {
		explicit = f.Changed
	}
	cfg, err := config.Load(resolveConfigPath(cfgPath, explicit))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry, cfg.Node.ID)
	if err != nil {
		logger.New("main").Warnf("sentry disabled: %v", err)
	} else {
		coremon.Init(mon)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()
	log := logger.New("main")

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	runErr := svc.Run(ctx)
	if err := svc.Close(); err != nil {
		log.Errorf("service close: %v", err)
	}
	coremon.Flush(2 * time.Second)

	if errors.Is(runErr, app.ErrRestartRequested) {
		log.Warnf("restarting")
		coremon.CaptureMessage("restart requested", map[string]string{"module": "main", "node": cfg.Node.ID})
		coremon.Flush(2 * time.Second)
		_ = logger.Close()
		return app.Restart()
	}
	if runErr != nil {
		coremon.CaptureException(runErr, map[string]string{"module": "main"})
		coremon.Flush(2 * time.Second)
	}
	return runErr
}
