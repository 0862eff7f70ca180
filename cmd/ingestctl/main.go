// Command ingestctl is the operator tool: it mints admin tokens, applies migrations,
// signs test webhook bodies and inspects the dead letter queue.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stranger-beers/ingestion/config"
	"github.com/stranger-beers/ingestion/internal/auth"
	"github.com/stranger-beers/ingestion/internal/tally"
	"github.com/stranger-beers/ingestion/pkg/database"
	"github.com/stranger-beers/ingestion/pkg/queue"
	"github.com/stranger-beers/ingestion/pkg/redis"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ingestctl",
		Short:         "Operator tool for the Stranger Beers ingestion service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(dlqCmd())

	return rootCmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Mint an admin JWT for the /admin endpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			hours, _ := cmd.Flags().GetInt("expire-hours")
			if secret == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				secret = cfg.JWT.Secret
				if hours <= 0 {
					hours = cfg.JWT.ExpireHours
				}
			}
			if hours <= 0 {
				hours = 24
			}
			token, err := auth.NewJWTService(secret, hours).Generate(args[0], auth.RoleAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().String("secret", "", "Signing secret (defaults to JWT_SECRET)")
	cmd.Flags().Int("expire-hours", 0, "Token lifetime in hours (defaults to JWT_EXPIRE_HOURS)")

	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, _ := cmd.Flags().GetBool("list")
			if list {
				names, err := database.MigrationNames()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, _ := zap.NewDevelopment()
			defer logger.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), 2, logger)
			if err != nil {
				return err
			}
			defer pool.Close()
			return database.Migrate(ctx, pool, logger)
		},
	}

	cmd.Flags().BoolP("list", "l", false, "List embedded migrations without applying them")

	return cmd
}

func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign [body.json]",
		Short: "Print the Tally signature header value for a webhook body",
		Long:  "Reads the body from the given file, or stdin when no file is given, and prints the hex HMAC-SHA256 of the body keyed by secret.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}
			var (
				body []byte
				err  error
			)
			if len(args) == 1 {
				body, err = os.ReadFile(args[0])
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tally.Sign(body, secret))
			return nil
		},
	}

	cmd.Flags().StringP("secret", "s", "", "Form signing secret")

	return cmd
}

func dlqCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dlq",
		Short: "Show how many jobs are in the dead letter queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Redis.Addr == "" {
				return fmt.Errorf("REDIS_ADDR is not set")
			}
			rdb, err := redis.NewClient(cmd.Context(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, nil)
			if err != nil {
				return err
			}
			defer rdb.Close()

			n, err := queue.NewQueue(rdb.Client, nil).DLQLength(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", queue.QueueDLQ, n)
			return nil
		},
	}
}
