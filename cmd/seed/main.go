package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/seed"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var reset, dryRun bool
	var password string

	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.BoolVar(&reset, "reset", false, "delete all users, tickets and comments before seeding")
	flagSet.StringVar(&password, "password", seed.DefaultPassword, "password for every demo account")
	flagSet.BoolVar(&dryRun, "dry-run", false, "print the dataset without touching the database")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	data := seed.Demo()
	if dryRun {
		printDataset(data)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required; the in-memory store does not outlive this process")
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
		return err
	}
	if reset {
		if err := persistence.ResetData(ctx, pool); err != nil {
			return err
		}
		logger.Info("existing data removed")
	}

	seeder := seed.NewSeeder(seed.Repositories{
		Users:    repository.NewUserRepository(pool),
		Tickets:  repository.NewTicketRepository(pool),
		Comments: repository.NewCommentRepository(pool),
	}, password, cfg.Auth.BcryptCost, logger)

	result, err := seeder.Apply(ctx, data)
	if err != nil {
		return err
	}
	logger.Info("database seeded", zap.Int("users", result.Users), zap.Int("tickets", result.Tickets), zap.Int("comments", result.Comments))
	return nil
}

func printDataset(data seed.Dataset) {
	fmt.Println("users:")
	for _, u := range data.Users {
		fmt.Printf("  %-22s %-6s %s\n", u.Email, u.Role, u.Name)
	}
	fmt.Println("tickets:")
	for _, t := range data.Tickets {
		fmt.Printf("  [%s/%s] %s (%d comments)\n", t.Status, t.Priority, t.Title, len(t.Comments))
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `seed loads demo accounts, tickets and comments into Postgres.

Usage:
  seed [flags]

Flags:
%s`, flagSet.FlagUsages())
}
