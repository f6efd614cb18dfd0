package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/format"
	"trading_dashboard/internal/models"
	"trading_dashboard/internal/services"
)

// portfoliosCmd lists the portfolios of the logged-in user.
type portfoliosCmd struct {
	plain bool
}

func (*portfoliosCmd) Name() string     { return "portfolios" }
func (*portfoliosCmd) Synopsis() string { return "list your portfolios" }
func (*portfoliosCmd) Usage() string {
	return `dashctl portfolios [-plain]

  Lists the portfolios of the logged-in user.
`
}

func (c *portfoliosCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.plain, "plain", false, "print raw markdown")
}

func (c *portfoliosCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withEnv(ctx, func(e *env) subcommands.ExitStatus {
		if err := e.requireLogin(); err != nil {
			return fail(err)
		}
		portfolios, err := e.portfolios.List(ctx, e.session.Token())
		if err != nil {
			e.expired(ctx, err)
			return fail(err)
		}
		printMarkdown(os.Stdout, PortfoliosMarkdown(portfolios), c.plain)
		return subcommands.ExitSuccess
	})
}

// createPortfolioCmd creates a portfolio.
type createPortfolioCmd struct{}

func (*createPortfolioCmd) Name() string     { return "create-portfolio" }
func (*createPortfolioCmd) Synopsis() string { return "create a portfolio" }
func (*createPortfolioCmd) Usage() string {
	return `dashctl create-portfolio <name>

  Creates a portfolio. All remaining arguments form the name.
`
}
func (*createPortfolioCmd) SetFlags(_ *flag.FlagSet) {}

func (*createPortfolioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: a portfolio name is required")
		return subcommands.ExitUsageError
	}
	name := strings.Join(f.Args(), " ")

	return withEnv(ctx, func(e *env) subcommands.ExitStatus {
		if err := e.requireLogin(); err != nil {
			return fail(err)
		}
		p, err := e.portfolios.Create(ctx, e.session.Token(), name)
		if err != nil {
			e.expired(ctx, err)
			return fail(err)
		}
		fmt.Printf("Created portfolio %d %q.\n", p.ID, p.Name)
		return subcommands.ExitSuccess
	})
}

// viewCmd shows the assembled view of one portfolio.
type viewCmd struct {
	plain  bool
	trades bool
}

func (*viewCmd) Name() string     { return "view" }
func (*viewCmd) Synopsis() string { return "show a portfolio with current prices" }
func (*viewCmd) Usage() string {
	return `dashctl view [-plain] [-trades] <portfolio-id>

  Shows the holdings of a portfolio priced at current market prices.
  Holdings whose price cannot be fetched are shown as N/A and left out
  of the totals.
`
}

func (c *viewCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.plain, "plain", false, "print raw markdown")
	f.BoolVar(&c.trades, "trades", false, "include the trade history")
}

func (c *viewCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := portfolioArg(f)
	if !ok {
		return subcommands.ExitUsageError
	}

	return withEnv(ctx, func(e *env) subcommands.ExitStatus {
		if err := e.requireLogin(); err != nil {
			return fail(err)
		}
		token := e.session.Token()

		view, err := e.views.Assemble(ctx, token, id)
		if err != nil {
			e.expired(ctx, err)
			return fail(err)
		}
		md := ViewMarkdown(view)

		if c.trades {
			trades, err := e.portfolios.Trades(ctx, token, id)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: trade history unavailable: %s\n", apperrors.UserMessage(err))
			} else {
				md += "\n" + TradesMarkdown(trades)
			}
		}

		printMarkdown(os.Stdout, md, c.plain)
		return subcommands.ExitSuccess
	})
}

// tradeCmd submits a buy or sell order.
type tradeCmd struct {
	ticker   string
	quantity string
	side     string
	price    string
}

func (*tradeCmd) Name() string     { return "trade" }
func (*tradeCmd) Synopsis() string { return "buy or sell shares in a portfolio" }
func (*tradeCmd) Usage() string {
	return `dashctl trade -t <ticker> -q <quantity> [-s BUY|SELL] [-price <price>] <portfolio-id>

  Submits a trade. Input is checked locally before anything is sent.
  Without -price the trade executes at the current market price.
`
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ticker, "t", "", "ticker symbol")
	f.StringVar(&c.quantity, "q", "", "number of shares")
	f.StringVar(&c.side, "s", string(models.TradeBuy), "BUY or SELL")
	f.StringVar(&c.price, "price", "", "limit price (optional)")
}

func (c *tradeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	id, ok := portfolioArg(f)
	if !ok {
		return subcommands.ExitUsageError
	}

	form := services.TradeForm{
		TickerSymbol: c.ticker,
		Quantity:     c.quantity,
		TradeType:    c.side,
		Price:        c.price,
	}
	if _, err := services.ValidateTrade(form); err != nil {
		return fail(err)
	}

	return withEnv(ctx, func(e *env) subcommands.ExitStatus {
		if err := e.requireLogin(); err != nil {
			return fail(err)
		}
		trade, err := e.trades.Submit(ctx, e.session.Token(), id, form)
		if err != nil {
			e.expired(ctx, err)
			return fail(err)
		}
		fmt.Printf("%s %s %s at %s executed (trade %d).\n",
			trade.TradeType, format.Quantity(trade.Quantity), trade.TickerSymbol,
			format.Amount(trade.Price), trade.ID)
		return subcommands.ExitSuccess
	})
}

// portfolioArg parses the single positional portfolio id.
func portfolioArg(f *flag.FlagSet) (int64, bool) {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one portfolio id is required")
		return 0, false
	}
	id, err := strconv.ParseInt(f.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(os.Stderr, "Error: invalid portfolio id %q\n", f.Arg(0))
		return 0, false
	}
	return id, true
}
