package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/SscSPs/ledger_core/pkg/database"
	"github.com/google/subcommands"
)

type migrateCmd struct {
	databaseURL string
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "applies pending Postgres migrations" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate [-db <url>]

  Applies every embedded migration that has not run yet. The database URL
  defaults to $PGSQL_URL.

`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.databaseURL, "db", os.Getenv("PGSQL_URL"), "Postgres connection URL")
}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.databaseURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -db or $PGSQL_URL is required")
		return subcommands.ExitUsageError
	}
	applied, err := database.RunMigrations(ctx, c.databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if applied {
		fmt.Fprintln(os.Stderr, "Database migrations applied successfully.")
	} else {
		fmt.Fprintln(os.Stderr, "No new migrations to apply.")
	}
	return subcommands.ExitSuccess
}
