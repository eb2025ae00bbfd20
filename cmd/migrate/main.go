package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"lingo-quiz/database/migrations"
	"lingo-quiz/internal/config"
	"lingo-quiz/internal/database"
	"lingo-quiz/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrator() (*database.Migrator, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		return nil, nil, err
	}
	db, err := database.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		db.Close()
		_ = logger.Sync()
	}
	return database.NewMigrator(db, migrations.FS, cfg.MigrationDialect()), cleanup, nil
}

func main() {
	var timeout time.Duration

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the lingo-quiz database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "abort after this long")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := newMigrator()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			applied, err := m.Up(ctx)
			if err != nil {
				logger.Get().Error("Migration failed", zap.Strings("applied", applied), zap.Error(err))
				return err
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := newMigrator()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			states, err := m.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, st := range states {
				if st.Applied {
					fmt.Fprintf(out, "%06d %-30s applied %s\n", st.Version, st.Name, st.AppliedAt.Format(time.RFC3339))
				} else {
					fmt.Fprintf(out, "%06d %-30s pending\n", st.Version, st.Name)
				}
			}
			return nil
		},
	}

	root.AddCommand(up, status)
	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Printf("migrate: %v", err)
		os.Exit(1)
	}
}
