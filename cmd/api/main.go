package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"evoting/internal/app/bootstrap"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const programName = "evoting-api"

func slogPrintf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), "component", programName)
}

func commonRun() {
	if _, err := maxprocs.Set(maxprocs.Logger(slogPrintf)); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	migrate := false
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the election HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			commonRun()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.BuildAPI(ctx)
			if err != nil {
				return fmt.Errorf("bootstrap api: %w", err)
			}
			defer func() {
				if err := app.Close(); err != nil {
					slog.Error("api shutdown close failed", "error", err.Error())
				}
			}()
			if migrate {
				if err := app.Migrate(ctx); err != nil {
					return err
				}
			}
			return app.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run schema migrations before serving")
	return cmd
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and seed the phase timeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), "migrate", func(ctx context.Context, rt *bootstrap.Runtime) error {
				return rt.Migrate(ctx)
			})
		},
	}
}

func seedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load districts and national identities from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed, err := bootstrap.LoadSeedFile(file)
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), "seed", func(ctx context.Context, rt *bootstrap.Runtime) error {
				if err := rt.Migrate(ctx); err != nil {
					return err
				}
				report, err := rt.Seed(ctx, seed)
				if err != nil {
					return err
				}
				rt.Logger.Info("seed completed",
					"event", "seed_completed",
					"module", "cmd/api",
					"layer", "platform",
					"districts_created", report.DistrictsCreated,
					"districts_skipped", report.DistrictsSkipped,
					"identities_created", report.IdentitiesCreated,
				)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "path to the seed YAML file")
	return cmd
}

func createAdminCommand() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the initial administrator account if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv("EVOTING_ADMIN_PASSWORD")
			if strings.TrimSpace(password) == "" {
				return errors.New("EVOTING_ADMIN_PASSWORD is required")
			}
			return withRuntime(cmd.Context(), "create-admin", func(ctx context.Context, rt *bootstrap.Runtime) error {
				account, created, err := rt.Modules.Staff.Passwords.EnsureAdmin(ctx, username, password)
				if err != nil {
					return err
				}
				rt.Logger.Info("admin account ensured",
					"event", "admin_account_ensured",
					"module", "cmd/api",
					"layer", "platform",
					"account_id", account.ID,
					"created", created,
				)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "administrator username")
	return cmd
}

func withRuntime(ctx context.Context, process string, run func(context.Context, *bootstrap.Runtime) error) error {
	commonRun()
	rt, err := bootstrap.BuildRuntime(ctx, process)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Error("runtime close failed", "error", err.Error())
		}
	}()
	return run(ctx, rt)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Online election API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCommand(), migrateCommand(), seedCommand(), createAdminCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error(err.Error(), "component", programName)
		os.Exit(1)
	}
}
