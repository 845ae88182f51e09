package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vbonduro/mensabot/internal/app"
	"github.com/vbonduro/mensabot/internal/config"
	"github.com/vbonduro/mensabot/internal/credentials"
)

var (
	flagConfig      string
	flagDebug       bool
	flagDemo        bool
	flagNoConsole   bool
	flagConsoleOnly bool
)

var rootCmd = &cobra.Command{
	Use:   "mensabot",
	Short: "Telegram bot for the EDISU Piemonte cafeteria menus",
	Long: "mensabot reads the daily cafeteria menus from the edisu_piemonte Instagram stories " +
		"and serves them over Telegram, an operator console and a small HTTP API.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return credentials.LoadDotEnv()
	},
	RunE: runBot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "log at debug level")
	rootCmd.PersistentFlags().BoolVar(&flagDemo, "demo", false, "serve placeholder menus without contacting Instagram")
	rootCmd.Flags().BoolVar(&flagNoConsole, "no-console", false, "run without the operator console")
	rootCmd.Flags().BoolVar(&flagConsoleOnly, "console-only", false, "run the console without the Telegram bot")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(cafeteriasCmd)
	rootCmd.AddCommand(credentialsCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	if flagNoConsole && flagConsoleOnly {
		return fmt.Errorf("--no-console and --console-only cannot be combined")
	}
	return withApp(app.Options{NoConsole: flagNoConsole, ConsoleOnly: flagConsoleOnly}, func(ctx context.Context, a *app.App) error {
		return a.Run(ctx)
	})
}

// withApp loads the configuration, builds the app and runs fn until an
// interrupt arrives.
func withApp(opts app.Options, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	opts.Debug = flagDebug
	opts.Demo = flagDemo

	a, err := app.New(cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}
