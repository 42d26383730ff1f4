package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/elebur/VoteAPI/internal/infrastructure/logger"
	"github.com/elebur/VoteAPI/internal/reliability/retry"
	"github.com/elebur/VoteAPI/internal/repository"
	"github.com/elebur/VoteAPI/internal/service"
	"github.com/elebur/VoteAPI/pkg/config"
	"github.com/elebur/VoteAPI/pkg/database"
)

// openDatabase connects to the database the server is configured with.
func openDatabase(ctx context.Context) (*database.ConnectionPool, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(cfg.LogLevel, "text")
	if cfg.DatabaseType == config.DatabaseMemory {
		return nil, nil, errors.New("DATABASE_TYPE=memory has nothing to administer; point votectl at postgres or sqlite")
	}
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Driver:          cfg.DatabaseType,
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnectRetry:    retry.DefaultPolicy(),
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return pool, log, nil
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema to the configured database",
		Long: `Apply the embedded schema to the database named by DATABASE_TYPE and
DATABASE_URL. Migrations are idempotent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, _, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := pool.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ schema up to date")
			return nil
		},
	}
}

type superuserOptions struct {
	Username string
	Email    string
	Password string
}

// NewCreateSuperuserCommand creates the createsuperuser command.
func NewCreateSuperuserCommand(_ *RootOptions) *cobra.Command {
	opts := &superuserOptions{}
	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an administrator directly in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, log, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			store := repository.NewSQLStore(pool.GetDB(), pool.Driver(), log)
			user, err := service.NewAuthService(store, nil, log).CreateSuperuser(cmd.Context(), opts.Username, opts.Email, opts.Password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ superuser %q created (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Username, "username", "", "login name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
