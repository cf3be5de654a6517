// Package cli is the storefront's command line front end.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jorgepalis/pymedesk/internal/app"
	"github.com/jorgepalis/pymedesk/internal/currency"
	"github.com/shopspring/decimal"
)

// ErrUsage marks a command line that could not be parsed. The usage text
// has already been written.
var ErrUsage = errors.New("usage error")

const usage = `usage: storefront <command> [arguments]

commands:
  login -email E -password P       sign in
  register -email E -name N -password P
  logout                           sign out (local only)
  whoami                           show the signed-in user
  products                         list the catalog
  product <id>                     show one product
  cart [add <id> [-qty N] | inc <id> | dec <id> | rm <id> | clear | open | close | toggle]
  checkout                         place an order with the cart
  orders                           list your orders
  admin products | orders | create [flags] | update <id> [flags]
`

type CLI struct {
	app    *app.Container
	out    io.Writer
	errOut io.Writer
}

func New(c *app.Container, stdout, stderr io.Writer) *CLI {
	return &CLI{app: c, out: stdout, errOut: stderr}
}

// Run executes one command. Notifications raised while it ran are printed
// to stderr afterwards.
func (c *CLI) Run(ctx context.Context, args []string) error {
	defer c.flushNotifications()

	if len(args) == 0 {
		fmt.Fprint(c.errOut, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return c.login(ctx, rest)
	case "register":
		return c.register(ctx, rest)
	case "logout":
		return c.logout(ctx)
	case "whoami":
		return c.whoami(ctx)
	case "products":
		return c.products(ctx)
	case "product":
		return c.product(ctx, rest)
	case "cart":
		return c.cart(ctx, rest)
	case "checkout":
		return c.checkout(ctx)
	case "orders":
		return c.orders(ctx)
	case "admin":
		return c.admin(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(c.out, usage)
		return nil
	default:
		fmt.Fprintf(c.errOut, "unknown command %q\n\n%s", cmd, usage)
		return ErrUsage
	}
}

func (c *CLI) flushNotifications() {
	for _, n := range c.app.Notifier.Active() {
		fmt.Fprintf(c.errOut, "[%s] %s\n", n.Tone, n.Message)
		c.app.Notifier.Dismiss(n.ID)
	}
}

func (c *CLI) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func (c *CLI) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ErrUsage
		}
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return nil
}

func (c *CLI) money(d decimal.Decimal) string {
	return currency.Format(d, c.app.Config.Locale, c.app.Config.Currency)
}

func (c *CLI) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
}

func parseID(args []string, what string) (int64, []string, error) {
	if len(args) == 0 {
		return 0, nil, fmt.Errorf("%w: %s id is required", ErrUsage, what)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil || id <= 0 {
		return 0, nil, fmt.Errorf("%w: invalid %s id %q", ErrUsage, what, args[0])
	}
	return id, args[1:], nil
}
