package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Yuan922/MoneyMemoAI/internal/app"
	"github.com/Yuan922/MoneyMemoAI/internal/config"
	"github.com/Yuan922/MoneyMemoAI/internal/logger"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "moneymemo",
		Short: "Keep an expense ledger by writing plain sentences",
		Long: `moneymemo turns free-text notes such as "lunch ramen 980 yen cash" into
ledger records, and applies edits such as "change yesterday's ramen to credit card".`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./moneymemo.yaml or $HOME/.config/moneymemo/moneymemo.yaml)")
	rootCmd.PersistentFlags().StringP("user", "u", "", "ledger owner")

	rootCmd.AddCommand(submitCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(mirrorNotionCmd())
	rootCmd.AddCommand(auditInitCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads configuration and opens the application. The returned
// context carries the configured logger.
func openApp(cmd *cobra.Command) (context.Context, *app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.NewWithConfig(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	ctx := logger.WithContext(cmd.Context(), log)
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return ctx, a, nil
}

// userFlag returns the --user value, which every ledger command needs.
func userFlag(cmd *cobra.Command) (string, error) {
	user, err := cmd.Flags().GetString("user")
	if err != nil {
		return "", err
	}
	if user == "" {
		return "", fmt.Errorf("--user is required")
	}
	return user, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "moneymemo %s\n", version)
		},
	}
}
