package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lifeplanner/core/internal/adapters/remote"
	"github.com/lifeplanner/core/internal/adapters/repository"
	"github.com/lifeplanner/core/internal/application/services"
	"github.com/lifeplanner/core/internal/infrastructure/auth"
	"github.com/lifeplanner/core/internal/infrastructure/config"
	"github.com/lifeplanner/core/internal/infrastructure/database"
	"github.com/lifeplanner/core/internal/infrastructure/logger"
	"github.com/lifeplanner/core/internal/infrastructure/metrics"
	"github.com/lifeplanner/core/internal/infrastructure/server"
	"github.com/lifeplanner/core/internal/ports"
)

// Version is set at build time with -ldflags "-X ...commands.Version=...".
var Version = "dev"

const shutdownTimeout = 10 * time.Second

// NewRootCommand assembles the lifeplanner command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "lifeplanner",
		Short:         "LifePlanner server and command line client",
		Long:          `LifePlanner organises life areas, goals, projects and tasks, and archives or restores whole subtrees of that hierarchy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		NewServeCommand(),
		NewMigrateCommand(),
		NewTokenCommand(),
		NewTreeCommand(),
		NewDueCommand(),
		NewSeedCommand(),
		NewCascadeCommand("archive"),
		NewCascadeCommand("restore"),
		NewCompleteCommand("complete"),
		NewCompleteCommand("uncomplete"),
		NewVersionCommand(),
	)
	return root
}

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the LifePlanner API server",
		Long:  "Start the API server. The server keeps one workspace in memory so cascade provenance survives between requests.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "Apply pending migrations before serving")
	return cmd
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	var steps int
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply up migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, "up", steps)
		},
	}
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Apply down migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, "down", steps)
		},
	}
	migrateCmd.PersistentFlags().IntVar(&steps, "steps", 0, "Number of migrations to apply (0 = all)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMigrationVersion(cmd)
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

// NewTokenCommand prints a bearer token signed with the configured secret.
func NewTokenCommand() *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			token, err := auth.NewIssuer(cfg.Auth).Issue(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "cli", "Token subject")
	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print LifePlanner version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "LifePlanner %s\n", Version)
		},
	}
}

func runServer(ctx context.Context, migrateFirst bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if migrateFirst {
		migrator, err := database.NewMigrator(db)
		if err != nil {
			return err
		}
		applied, err := migrator.Up(0)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		appLogger.Infow("Migrations checked", "applied", applied)
	}

	m := metrics.New()
	ws := services.NewWorkspace(repository.NewBackend(db), appLogger, m)
	defer ws.Close()
	if err := ws.Refresh(ctx); err != nil {
		return err
	}

	srv := server.New(cfg, ws, db, appLogger, m)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		appLogger.Infow("Starting LifePlanner API server",
			"address", cfg.Server.Addr(),
			"environment", cfg.App.Environment,
			"driver", db.Driver(),
			"auth", cfg.Auth.AuthEnabled(),
		)
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openMigrator() (*database.DB, *database.Migrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	migrator, err := database.NewMigrator(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, migrator, nil
}

func runMigration(cmd *cobra.Command, direction string, steps int) error {
	db, migrator, err := openMigrator()
	if err != nil {
		return err
	}
	defer db.Close()

	var applied bool
	switch direction {
	case "up":
		applied, err = migrator.Up(steps)
	case "down":
		applied, err = migrator.Down(steps)
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if !applied {
		fmt.Fprintln(cmd.OutOrStdout(), "No migrations to run")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", direction)
	}
	return nil
}

func showMigrationVersion(cmd *cobra.Command) error {
	db, migrator, err := openMigrator()
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Current migration version: %d\n", version)
	fmt.Fprintf(cmd.OutOrStdout(), "Dirty: %t\n", dirty)
	return nil
}

// session is a workspace for one CLI invocation: over the server when
// remote.base_url is set, otherwise over the configured database.
type session struct {
	cfg     *config.Config
	logger  *logger.Logger
	ws      *services.Workspace
	cascade ports.CascadeService
	remote  bool
	closers []func()
}

func openSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	s := &session{cfg: cfg, logger: appLogger}
	s.closers = append(s.closers, func() { _ = appLogger.Close() })

	if cfg.Remote.BaseURL != "" {
		client, err := remote.New(cfg.Remote)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.ws = services.NewWorkspace(client, appLogger, nil)
		s.cascade = client
		s.remote = true
	} else {
		db, err := database.New(cfg.Database)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.closers = append(s.closers, func() { _ = db.Close() })
		s.ws = services.NewWorkspace(repository.NewBackend(db), appLogger, nil)
		s.cascade = s.ws
	}
	s.closers = append(s.closers, s.ws.Close)
	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
