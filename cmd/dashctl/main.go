// Command dashctl is a terminal client for the trading API. It shares the
// session state, view assembly and trade submission of the web dashboard;
// its token is kept in the same encrypted client storage under the "cli"
// scope.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

var (
	verbose = flag.Bool("v", false, "log debug output to stderr")
	apiURL  = flag.String("api", "", "trading API base URL (overrides configuration)")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&registerCmd{}, "account")
	commander.Register(&loginCmd{}, "account")
	commander.Register(&logoutCmd{}, "account")
	commander.Register(&whoamiCmd{}, "account")

	commander.Register(&portfoliosCmd{}, "portfolios")
	commander.Register(&createPortfolioCmd{}, "portfolios")
	commander.Register(&viewCmd{}, "portfolios")
	commander.Register(&tradeCmd{}, "portfolios")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
