package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// app is the state shared by every command once flags are parsed
type app struct {
	cfg     *Config
	client  *Client
	printer *Printer
	log     *log.Logger
}

type rootFlags struct {
	config  string
	api     string
	output  string
	token   string
	verbose bool
}

// NewRootCommand builds the unify command tree
func NewRootCommand() *cobra.Command {
	a := &app{}
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "unify",
		Short: "Command-line client for the Unify social API",
		Long: `unify talks to a Unify server: manage friends and suggestions,
search people, groups and pages, read stories and send messages.

Configuration lives in ~/.config/unify/cli/config.toml and can be
overridden with UNIFY_* environment variables (UNIFY_API_BASE_URL,
UNIFY_AUTH_TOKEN, UNIFY_OUTPUT_FORMAT) or flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "Config file (default ~/.config/unify/cli/config.toml)")
	pf.StringVar(&flags.api, "api", "", "API base URL")
	pf.StringVarP(&flags.output, "output", "o", "", "Output format: text or json")
	pf.StringVar(&flags.token, "token", "", "Session token (overrides the saved one)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log HTTP traffic to stderr")

	root.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newFriendsCommand(a),
		newSearchCommand(a),
		newStoriesCommand(a),
		newMessagesCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := LoadConfig(flags.config)
	if err != nil {
		return err
	}
	v := cfg.Viper()
	if flags.api != "" {
		v.Set("api.base_url", flags.api)
	}
	if flags.output != "" {
		v.Set("output.format", flags.output)
	}
	if flags.token != "" {
		v.Set("auth.token", flags.token)
	}
	if !ValidFormat(cfg.Format()) {
		return fmt.Errorf("unknown output format %q (use text or json)", cfg.Format())
	}

	a.cfg = cfg
	a.log = NewLogger(cmd.ErrOrStderr(), cfg.LogLevel(), flags.verbose)
	a.printer = NewPrinter(cmd.OutOrStdout(), cfg.Format())
	a.client = NewClient(cfg.BaseURL(), cfg.Token(), cfg.Timeout(), a.log)
	a.log.Debug("Loaded config", "path", cfg.Path(), "api", cfg.BaseURL())
	return nil
}

// requireLogin fails fast when no token is configured
func (a *app) requireLogin() error {
	if a.cfg.Token() == "" {
		return errors.New("not logged in: run `unify login` first")
	}
	return nil
}

// explain turns API errors into actionable messages
func (a *app) explain(err error) error {
	if IsUnauthorized(err) {
		return fmt.Errorf("session expired or invalid: run `unify login` (%w)", err)
	}
	return err
}

func newLoginCommand(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and save the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(args[0])
			if password == "" {
				p, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				password = p
			}

			resp, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := a.cfg.SaveToken(resp.Token); err != nil {
				return err
			}
			a.log.Info("Saved session", "path", a.cfg.Path())

			return a.printer.Result(resp.User, func() {
				a.printer.Success("Logged in as @%s", resp.User.Username)
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.SaveToken(""); err != nil {
				return err
			}
			a.printer.Success("Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			me, err := a.client.Me(cmd.Context())
			if err != nil {
				return a.explain(err)
			}
			return a.printer.Result(me, func() {
				a.printer.KeyValues("ID", me.ID, "Username", "@"+me.Username, "Name", me.FullName, "Email", me.Email)
			})
		},
	}
}
