// Command ledgerctl runs maintenance tasks against the ledger store.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&migrateCmd{}, "database")
	subcommands.Register(&reconcileCmd{}, "ledger")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
