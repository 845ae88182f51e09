package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vbonduro/mensabot/internal/app"
	"github.com/vbonduro/mensabot/internal/config"
	"github.com/vbonduro/mensabot/internal/credentials"
	"github.com/vbonduro/mensabot/internal/domain"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mensabot %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one menu fetch and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(app.Options{NoConsole: true}, func(ctx context.Context, a *app.App) error {
			printTable(cmd.OutOrStdout(), a.Menus().FetchDailyMenus(ctx))
			return nil
		})
	},
}

var menuCmd = &cobra.Command{
	Use:   "menu CAFETERIA [pranzo|cena]",
	Short: "Print one menu from today's snapshot, fetching if needed",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cafe, meal, err := parseMenuArgs(args)
		if err != nil {
			return err
		}
		return withApp(app.Options{NoConsole: true}, func(ctx context.Context, a *app.App) error {
			if _, err := a.Menus().Warm(ctx); err != nil {
				a.Logger().Warn("failed to load last snapshot", "error", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.Menus().GetMenu(ctx, string(cafe), meal))
			return nil
		})
	},
}

var cafeteriasCmd = &cobra.Command{
	Use:   "cafeterias",
	Short: "List the cafeterias",
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range domain.Cafeterias() {
			fmt.Fprintln(cmd.OutOrStdout(), c.DisplayName())
		}
	},
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the credentials stored in the system keyring",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the Instagram login and the Telegram token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return promptCredentials(cmd.InOrStdin(), cmd.OutOrStdout(), credentials.NewProvider(cfg.KeyringService, nil))
	},
}

func init() {
	credentialsCmd.AddCommand(credentialsSetCmd)
}

func parseMenuArgs(args []string) (domain.Cafeteria, domain.MealType, error) {
	cafe, ok := domain.ResolveCafeteria(args[0])
	if !ok {
		return "", "", fmt.Errorf("unknown cafeteria %q", args[0])
	}
	meal := domain.DefaultMealType
	if len(args) > 1 {
		if meal, ok = domain.ParseMealType(args[1]); !ok {
			return "", "", fmt.Errorf("unknown meal %q, use pranzo or cena", args[1])
		}
	}
	return cafe, meal, nil
}

func printTable(w io.Writer, table domain.MenuTable) {
	for _, c := range domain.Cafeterias() {
		for _, m := range domain.MealTypes() {
			text, _ := table.Get(c, m)
			fmt.Fprintf(w, "== %s / %s ==\n%s\n\n", c.DisplayName(), m.Title(), text)
		}
	}
}

type credentialStore interface {
	SetInstagramCredentials(user, pass string) error
	SetTelegramToken(token string) error
}

// promptCredentials asks for each secret on its own line. An empty answer
// keeps what is stored.
func promptCredentials(in io.Reader, out io.Writer, store credentialStore) error {
	r := bufio.NewReader(in)
	ask := func(label string) (string, error) {
		fmt.Fprintf(out, "%s: ", label)
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	user, err := ask("Instagram username (empty to skip)")
	if err != nil {
		return err
	}
	if user != "" {
		pass, err := ask("Instagram password")
		if err != nil {
			return err
		}
		if err := store.SetInstagramCredentials(user, pass); err != nil {
			return err
		}
		fmt.Fprintln(out, "instagram credentials saved")
	}

	token, err := ask("Telegram bot token (empty to skip)")
	if err != nil {
		return err
	}
	if token != "" {
		if err := store.SetTelegramToken(token); err != nil {
			return err
		}
		fmt.Fprintln(out, "telegram token saved")
	}
	return nil
}
