package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/learnhub/learnhub/src/internal/app"
	"github.com/learnhub/learnhub/src/internal/config"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
)

var (
	configPath string
	jsonOut    bool

	// learner is built by PersistentPreRunE for every command.
	learner *app.App
)

var rootCmd = &cobra.Command{
	Use:   "learnhub",
	Short: "Command-line client for the LearnHub learning platform",
	Long: `Sign in, browse courses, follow lesson progress and use course forums.

Examples:
  learnhub login student
  learnhub courses list --search go
  learnhub progress show 7
  learnhub progress update 7 120 --watch 95 --percent 100`,
	SilenceUsage:      true,
	PersistentPreRunE: bootstrap,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("LEARNHUB_CONFIG"), "path to a YAML or JSON config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print JSON instead of tables")
}

func bootstrap(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClient(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	learner, err = app.New(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	if skipRestore(cmd) {
		return nil
	}
	learner.Session.Restore(cmd.Context())
	return nil
}

// skipRestore reports whether cmd works from local state only.
func skipRestore(cmd *cobra.Command) bool {
	offline, _ := cmd.Flags().GetBool("offline")
	return offline
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if learner != nil {
		if cerr := learner.Close(); cerr != nil {
			learner.Log.Warn("Close failed", "error", cerr)
		}
		learner.Log.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
