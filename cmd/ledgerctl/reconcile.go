package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/SscSPs/ledger_core/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_core/internal/core/ports/services"
	"github.com/SscSPs/ledger_core/internal/core/services"
	"github.com/SscSPs/ledger_core/internal/platform/config"
	"github.com/SscSPs/ledger_core/internal/platform/logging"
	"github.com/SscSPs/ledger_core/internal/repositories"
	"github.com/google/subcommands"
)

type reconcileCmd struct {
	userID    string
	accountID string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "compares stored balances with their transaction history" }
func (*reconcileCmd) Usage() string {
	return `ledgerctl reconcile -user <id> [-account <id>]

  Prints, per account, the stored balance, the balance derived from the
  opening balance plus every transaction, and the drift between them.
  Exits with status 1 when any account drifted. The store is chosen by the
  same environment as the server (STORE_DRIVER, PGSQL_URL, SQLITE_PATH).

`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.userID, "user", "", "Owner of the accounts to check")
	f.StringVar(&c.accountID, "account", "", "Check a single account instead of all of the user's accounts")
}

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.userID == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		return subcommands.ExitUsageError
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	logging.Setup(cfg.IsProduction, cfg.LogLevel)

	store, err := repositories.NewStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	container := services.NewServiceContainer(cfg, store, nil)
	drifted, err := reconcile(ctx, os.Stdout, container.Ledger, c.userID, c.accountID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if drifted > 0 {
		fmt.Fprintf(os.Stderr, "%d account(s) drifted from their history.\n", drifted)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// reconcile writes one row per checked account to w and returns how many drifted.
func reconcile(ctx context.Context, w io.Writer, ledger portssvc.AccountSvc, userID, accountID string) (int, error) {
	var accountIDs []string
	if accountID != "" {
		accountIDs = []string{accountID}
	} else {
		accounts, err := ledger.ListAccounts(ctx, userID)
		if err != nil {
			return 0, err
		}
		for _, acc := range accounts {
			accountIDs = append(accountIDs, acc.AccountID)
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tSTORED\tEXPECTED\tDRIFT\tSTATUS")
	drifted := 0
	for _, id := range accountIDs {
		rec, err := ledger.Reconcile(ctx, userID, id)
		if err != nil {
			return drifted, err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", rec.AccountID, rec.StoredBalance, rec.ExpectedBalance, rec.Drift, statusOf(*rec))
		if !rec.Consistent() {
			drifted++
		}
	}
	return drifted, tw.Flush()
}

func statusOf(r domain.Reconciliation) string {
	if r.Consistent() {
		return "ok"
	}
	return "DRIFT"
}
