package internal

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/goplus/uitest/internal/config"
	"github.com/goplus/uitest/internal/env"
	"github.com/goplus/uitest/internal/logging"
	"github.com/goplus/uitest/internal/runner"
	"github.com/goplus/uitest/pkgs/tool"
)

var (
	configFile string
	logLevel   string
	logFile    string
	saveLog    bool
	binDir     string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "uitest",
	Short: "uitest builds a mobile app and provisions a device to test it on",
	Long: `uitest builds a mobile app project, detects the platform of the build output,
provisions an emulator or simulator for it and writes uitest.json for the UI tests.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runProvision,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "runner options file (default uitest.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&logFile, "log-file", "", "write JSON logs to this file")
	flags.BoolVar(&saveLog, "save-log", false, "write JSON logs to the per-user log directory")
	flags.StringVar(&binDir, "bin", "", "build output directory (default bin)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if cfg, err = config.Load(configFile); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if binDir != "" {
		cfg.BinDir = binDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := uuid.NewString()
	level := logging.ParseLevel(cfg.LogLevel)
	logging.Configure(level, cmd.ErrOrStderr())
	path := logFile
	if path == "" && saveLog {
		dir, err := env.LogDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "uitest-"+runID+".log")
	}
	if path != "" {
		if err := logging.EnableFileLogging(path, level); err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
	}
	logging.SetDefault("run", runID)
	return nil
}

func newRunner(cmd *cobra.Command) *runner.Runner {
	return runner.New(cfg, tool.NewExec(), runner.WithObserver(statusPrinter(cmd.OutOrStdout())))
}

func workDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Close()
	if err != nil {
		log.Fatal(err)
	}
}
