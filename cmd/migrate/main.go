package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nikita-Hritsay/TeamUp/db"
	"github.com/Nikita-Hritsay/TeamUp/internal/app/migrate"
	"github.com/Nikita-Hritsay/TeamUp/pkg/config"
	"github.com/Nikita-Hritsay/TeamUp/pkg/logger"
)

func main() {
	command := flag.String("command", "up", "migrate command (up|status|down)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	flag.Parse()

	cfg := config.LoadTeamsConfig()
	log := logger.New("migrate", slog.LevelInfo)
	if *dir == "" {
		*dir = cfg.MigrationsDir
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	source, err := migrate.Source(*dir, db.Migrations())
	if err != nil {
		log.Error("failed to locate migrations", "error", err)
		os.Exit(1)
	}
	runner, err := migrate.New(pool, source, log)
	if err != nil {
		log.Error("failed to configure migration runner", "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	switch *command {
	case "up":
		err = runner.Ensure(ctx)
	case "status":
		err = runner.Status(ctx)
	case "down":
		err = runner.Down(ctx, *target)
	default:
		log.Error("unsupported command", "command", *command)
		os.Exit(1)
	}
	if err != nil {
		log.Error("migration command failed", "command", *command, "error", err)
		os.Exit(1)
	}

	log.Info("migration command completed", "command", *command)
}
