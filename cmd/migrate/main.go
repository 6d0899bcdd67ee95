package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/moviegate/internal/app/migrate"
	"github.com/splax/moviegate/pkg/config"
	"github.com/splax/moviegate/pkg/logger"
)

var (
	version = "dev"
	cli     struct {
		Timeout time.Duration `help:"Command timeout." default:"1m"`
		Version kong.VersionFlag

		Up     upCmd     `cmd:"" default:"1" help:"Apply pending migrations."`
		Status statusCmd `cmd:"" help:"Show applied and pending migrations."`
		Down   downCmd   `cmd:"" help:"Roll back the latest migration or down to a target version."`
	}
)

type upCmd struct{}

func (upCmd) Run(ctx context.Context, runner migrate.Runner) error {
	return runner.Ensure(ctx)
}

type statusCmd struct{}

func (statusCmd) Run(ctx context.Context, runner migrate.Runner) error {
	return runner.Status(ctx)
}

type downCmd struct {
	Target int64 `help:"Target version to roll back to (0 rolls back one step)." default:"0"`
}

func (c downCmd) Run(ctx context.Context, runner migrate.Runner) error {
	return runner.Down(ctx, c.Target)
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("migrate"),
		kong.Description("Manage the moviegate postgres schema."),
		kong.Vars{"version": version},
	)

	cfg, err := config.LoadAPIConfig()
	kctx.FatalIfErrorf(err)
	log := logger.New("migrate", logger.ParseLevel(cfg.LogLevel))
	if cfg.DatabaseURL == "" {
		kctx.FatalIfErrorf(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cli.Timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	runner, err := migrate.New(pool, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to configure migration runner", "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(runner); err != nil {
		log.Error("migration command failed", "command", kctx.Command(), "error", err)
		runner.Close()
		os.Exit(1)
	}
	log.Info("migration command completed", "command", kctx.Command())
}
