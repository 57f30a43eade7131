package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var searchTypes = []string{"all", "personnes", "groupes", "pages"}

func newSearchCommand(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search people, public groups and pages",
		Long: `Search people, public groups and pages. Queries shorter than two
characters return nothing.

Examples:
  unify search alice
  unify search "jazz club" --type groupes`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validSearchType(kind) {
				return fmt.Errorf("unknown type %q (use %s)", kind, strings.Join(searchTypes, ", "))
			}
			res, err := a.client.Search(cmd.Context(), strings.Join(args, " "), kind)
			if err != nil {
				return a.explain(err)
			}
			return a.printer.Result(res, func() {
				if kind == "all" || kind == "personnes" {
					a.printer.Section("People")
					rows := make([][]string, 0, len(res.People))
					for _, p := range res.People {
						rows = append(rows, []string{p.ID, "@" + p.Username, p.FullName, p.FriendshipStatus})
					}
					a.printer.Table([]string{"ID", "USERNAME", "NAME", "FRIENDSHIP"}, rows)
				}
				if kind == "all" || kind == "groupes" {
					a.printer.Section("Groups")
					rows := make([][]string, 0, len(res.Groups))
					for _, g := range res.Groups {
						rows = append(rows, []string{g.ID, g.Name, yesNo(g.IsMember)})
					}
					a.printer.Table([]string{"ID", "NAME", "MEMBER"}, rows)
				}
				if kind == "all" || kind == "pages" {
					a.printer.Section("Pages")
					rows := make([][]string, 0, len(res.Pages))
					for _, p := range res.Pages {
						rows = append(rows, []string{p.ID, p.Name, p.Category, yesNo(p.IsFollowing)})
					}
					a.printer.Table([]string{"ID", "NAME", "CATEGORY", "FOLLOWING"}, rows)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", "all", "Result type: "+strings.Join(searchTypes, ", "))
	return cmd
}

func validSearchType(kind string) bool {
	for _, t := range searchTypes {
		if t == kind {
			return true
		}
	}
	return false
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newStoriesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stories",
		Short: "Read stories",
	}

	var (
		userID string
		limit  int
		skip   int
	)
	published := &cobra.Command{
		Use:   "published",
		Short: "List stories that have not expired yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.client.PublishedStories(cmd.Context(), userID, limit, skip)
			if err != nil {
				return a.explain(err)
			}
			return a.printer.Result(res, func() {
				rows := make([][]string, 0, len(res.Data))
				for _, s := range res.Data {
					author := ""
					if s.User != nil {
						author = "@" + s.User.Username
					}
					rows = append(rows, []string{
						s.ID,
						author,
						storySummary(s),
						strconv.FormatInt(s.Stats.ViewCount, 10),
						time.Until(s.ExpiresAt).Round(time.Minute).String(),
					})
				}
				a.printer.Table([]string{"ID", "BY", "CONTENT", "VIEWS", "EXPIRES IN"}, rows)
			})
		},
	}
	published.Flags().StringVar(&userID, "user", "", "Only stories by this user id")
	published.Flags().IntVar(&limit, "limit", 20, "Maximum results")
	published.Flags().IntVar(&skip, "skip", 0, "Results to skip")

	cmd.AddCommand(published)
	return cmd
}

func storySummary(s Story) string {
	switch {
	case s.Text != nil && *s.Text != "":
		return truncate(*s.Text, 40)
	case s.VideoURL != nil && *s.VideoURL != "":
		return "[video]"
	case s.ImageURL != nil && *s.ImageURL != "":
		return "[image]"
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func newMessagesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Send direct messages",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return a.requireLogin()
		},
	}

	send := &cobra.Command{
		Use:   "send <userId> <message...>",
		Short: "Send a message to a user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.client.SendMessage(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return a.explain(err)
			}
			return a.printer.Result(msg, func() {
				a.printer.Success("Message sent (%s)", msg.ID)
			})
		},
	}

	var stop bool
	typing := &cobra.Command{
		Use:   "typing <userId>",
		Short: "Signal that you are typing to a user",
		Long: `Marks you as typing in the conversation with <userId> for a few
seconds, or clears it with --stop, and reports whether they are typing too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.client.SetTyping(cmd.Context(), args[0], !stop)
			if err != nil {
				return a.explain(err)
			}
			return a.printer.Result(status, func() {
				if status.IsPartnerTyping {
					a.printer.Success("They are typing too")
				} else {
					a.printer.Success("Typing state updated")
				}
			})
		},
	}
	typing.Flags().BoolVar(&stop, "stop", false, "Clear the typing state")

	cmd.AddCommand(send, typing)
	return cmd
}
