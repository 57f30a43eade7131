package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/zfogg/unify/internal/config"
	"github.com/zfogg/unify/internal/database"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/search"
	"github.com/zfogg/unify/internal/seed"
	"go.uber.org/zap"
)

var (
	cfg       *config.Config
	seedValue int64
	opts      = seed.DevOptions()
	yes       bool
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed, clean or reindex the Unify database",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if err := logger.Initialize(cfg.LogLevel, "seed.log"); err != nil {
			return err
		}
		if err := database.Initialize(cfg.Database, false); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return database.Migrate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = database.Close()
		_ = logger.Close()
	},
}

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Seed the development database with a realistic social graph",
	Long: `Creates users (password "password123"), friendships forming a
graph with friends of friends, groups, pages, posts, comments, stories and
conversations.

Examples:
  seed dev
  seed dev --users 200 --posts 1000 --seed 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sum, err := seed.NewSeeder(database.DB, seedValue).SeedDev(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
		fmt.Printf("Seeded %d users, %d friendships, %d groups, %d pages, %d posts, %d comments, %d stories, %d messages\n",
			sum.Users, sum.Friendships, sum.Groups, sum.Pages, sum.Posts, sum.Comments, sum.Stories, sum.Messages)
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete every row (use with caution)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !yes {
			return fmt.Errorf("refusing to delete all data without --yes")
		}
		if err := seed.NewSeeder(database.DB, 0).Clean(cmd.Context()); err != nil {
			return fmt.Errorf("clean failed: %w", err)
		}
		fmt.Println("Database cleaned")
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the Elasticsearch users, groups and pages indices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ElasticsearchURL == "" {
			return fmt.Errorf("ELASTICSEARCH_URL is not set")
		}
		es, err := search.NewClient(cfg.ElasticsearchURL)
		if err != nil {
			return err
		}
		stats, err := search.NewService(database.DB, es, nil, nil).Reindex(cmd.Context())
		if err != nil {
			return fmt.Errorf("reindex failed: %w", err)
		}
		logger.Log.Info("Reindex complete",
			zap.Int("users", stats.Users),
			zap.Int("groups", stats.Groups),
			zap.Int("pages", stats.Pages),
		)
		fmt.Printf("Indexed %d users, %d groups, %d pages\n", stats.Users, stats.Groups, stats.Pages)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Int64Var(&seedValue, "seed", 0, "Random seed; 0 picks one from the clock")

	devCmd.Flags().IntVar(&opts.Users, "users", opts.Users, "Number of users")
	devCmd.Flags().IntVar(&opts.Groups, "groups", opts.Groups, "Number of groups")
	devCmd.Flags().IntVar(&opts.Pages, "pages", opts.Pages, "Number of pages")
	devCmd.Flags().IntVar(&opts.Posts, "posts", opts.Posts, "Number of posts")
	devCmd.Flags().IntVar(&opts.Stories, "stories", opts.Stories, "Number of stories")

	cleanCmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting all data")

	rootCmd.AddCommand(devCmd, cleanCmd, reindexCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
