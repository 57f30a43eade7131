package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newFriendsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friends",
		Short: "Manage friends and friend requests",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// cobra runs only the nearest PersistentPreRunE
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return a.requireLogin()
		},
	}
	cmd.AddCommand(
		newFriendsListCommand(a),
		newFriendsSuggestionsCommand(a),
		newFriendsBadgesCommand(a),
		newFriendsRequestCommand(a),
		newFriendsRespondCommand(a, "accept", "accepted", "Accept a pending friend request"),
		newFriendsRespondCommand(a, "decline", "declined", "Decline a pending friend request"),
		newFriendsRemoveCommand(a),
	)
	return cmd
}

func newFriendsListCommand(a *app) *cobra.Command {
	var (
		search  string
		limit   int
		offset  int
		pending bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accepted friends, or pending requests with --pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if pending {
				overview, err := a.client.FriendsOverview(ctx)
				if err != nil {
					return a.explain(err)
				}
				return a.printer.Result(overview, func() {
					a.printer.Section("Received")
					a.printer.Table([]string{"FRIENDSHIP ID", "FROM", "SINCE"}, requestRows(overview.PendingReceived, true))
					a.printer.Section("Sent")
					a.printer.Table([]string{"FRIENDSHIP ID", "TO", "SINCE"}, requestRows(overview.PendingSent, false))
				})
			}

			list, err := a.client.Friends(ctx, search, limit, offset)
			if err != nil {
				return a.explain(err)
			}
			return a.printer.Result(list, func() {
				rows := make([][]string, 0, len(list.Friends))
				for _, f := range list.Friends {
					rows = append(rows, []string{f.ID, "@" + f.Username, f.FullName, f.FriendSince.Format("2006-01-02")})
				}
				a.printer.Table([]string{"ID", "USERNAME", "NAME", "FRIENDS SINCE"}, rows)
				a.printer.Section(strconv.Itoa(list.Total) + " friends")
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by username or name")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Results to skip")
	cmd.Flags().BoolVar(&pending, "pending", false, "Show pending requests instead")
	return cmd
}

// requestRows lists the other party of each pending request
func requestRows(requests []Friendship, received bool) [][]string {
	rows := make([][]string, 0, len(requests))
	for _, f := range requests {
		other := f.User2
		if received {
			other = f.User1
		}
		name := ""
		if other != nil {
			name = "@" + other.Username
		}
		rows = append(rows, []string{f.ID, name, f.CreatedAt.Format("2006-01-02")})
	}
	return rows
}

func newFriendsSuggestionsCommand(a *app) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "People you may know, ranked by mutual friends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.client.Suggestions(cmd.Context(), limit, offset)
			if err != nil {
				return a.explain(err)
			}
			return a.printer.Result(page, func() {
				rows := make([][]string, 0, len(page.Suggestions))
				for _, s := range page.Suggestions {
					rows = append(rows, []string{s.ID, "@" + s.Username, s.FullName, strconv.Itoa(s.MutualFriendsCount)})
				}
				a.printer.Table([]string{"ID", "USERNAME", "NAME", "MUTUAL"}, rows)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Results to skip")
	return cmd
}

func newFriendsBadgesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "badges",
		Short: "Show friend-related badge counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.client.FriendBadges(cmd.Context())
			if err != nil {
				return a.explain(err)
			}
			return a.printer.Result(b, func() {
				a.printer.KeyValues(
					"Pending requests", strconv.Itoa(b.PendingRequests),
					"Suggestions", strconv.Itoa(b.Suggestions),
					"Friends", strconv.Itoa(b.Friends),
					"Total", strconv.Itoa(b.Total),
				)
			})
		},
	}
}

func newFriendsRequestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "request <userId>",
		Short: "Send a friend request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.client.SendFriendRequest(cmd.Context(), args[0])
			if err != nil {
				return a.explain(err)
			}
			return a.printer.Result(f, func() {
				a.printer.Success("Friend request sent (%s)", f.ID)
			})
		},
	}
}

func newFriendsRespondCommand(a *app, use, status, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <friendshipId>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.client.RespondToFriendRequest(cmd.Context(), args[0], status)
			if err != nil {
				return a.explain(err)
			}
			return a.printer.Result(f, func() {
				a.printer.Success("Friend request %s", f.Status)
			})
		},
	}
}

func newFriendsRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <friendshipId>",
		Short: "Remove a friend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.RemoveFriend(cmd.Context(), args[0]); err != nil {
				return a.explain(err)
			}
			return a.printer.Result(map[string]bool{"success": true}, func() {
				a.printer.Success("Friend removed")
			})
		},
	}
}
