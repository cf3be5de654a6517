package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jorgepalis/pymedesk/internal/checkout"
	"github.com/jorgepalis/pymedesk/internal/currency"
	"github.com/jorgepalis/pymedesk/internal/domain"
	"github.com/jorgepalis/pymedesk/internal/orders"
)

var ErrOutOfStock = errors.New("product is out of stock")

func (c *CLI) products(ctx context.Context) error {
	list, _, err := c.app.Catalog.Load(ctx)
	if err != nil {
		return err
	}
	c.printProducts(list)
	return nil
}

func (c *CLI) printProducts(list []domain.Product) {
	if len(list) == 0 {
		fmt.Fprintln(c.out, "no products")
		return
	}
	w := c.table()
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range list {
		stock := fmt.Sprint(p.Stock)
		if p.Stock <= 0 {
			stock = "sold out"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, c.price(p.Price), stock)
	}
	w.Flush()
}

func (c *CLI) product(ctx context.Context, args []string) error {
	id, _, err := parseID(args, "product")
	if err != nil {
		return err
	}
	p, err := c.app.Catalog.Find(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s\n%s\nprice: %s\nstock: %d\n", p.Name, p.Description, c.price(p.Price), p.Stock)
	return nil
}

func (c *CLI) cart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.printCart()
		return nil
	}

	sub, rest := args[0], args[1:]
	cart := c.app.Cart
	switch sub {
	case "add":
		id, rest, err := parseID(rest, "product")
		if err != nil {
			return err
		}
		fs := c.flagSet("cart add")
		qty := fs.Int("qty", 1, "units to add")
		if err := c.parse(fs, rest); err != nil {
			return err
		}
		p, err := c.app.Catalog.Find(ctx, id)
		if err != nil {
			return err
		}
		if !c.app.Catalog.AddToCart(ctx, cart, p, *qty) {
			return ErrOutOfStock
		}
	case "inc", "dec", "rm":
		id, _, err := parseID(rest, "product")
		if err != nil {
			return err
		}
		switch sub {
		case "inc":
			if !cart.Increment(ctx, id) {
				fmt.Fprintln(c.errOut, "quantity unchanged")
			}
		case "dec":
			if !cart.Decrement(ctx, id) {
				fmt.Fprintln(c.errOut, "product is not in the cart")
			}
		default:
			cart.RemoveItem(ctx, id)
		}
	case "clear":
		cart.Clear(ctx)
	case "open":
		cart.Open()
	case "close":
		cart.Close()
	case "toggle":
		cart.Toggle()
	default:
		return fmt.Errorf("%w: unknown cart command %q", ErrUsage, sub)
	}

	c.printCart()
	return nil
}

func (c *CLI) printCart() {
	cart := c.app.Cart
	lines := cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(c.out, "your cart is empty")
		return
	}

	w := c.table()
	fmt.Fprintln(w, "ID\tNAME\tQTY\tUNIT\tSUBTOTAL")
	for _, l := range lines {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			l.Product.ID, l.Product.Name, l.Quantity, c.price(l.Product.Price), c.money(l.Subtotal()))
	}
	w.Flush()
	fmt.Fprintf(c.out, "items: %d  total: %s\n", cart.TotalItems(), c.money(cart.TotalPrice()))
}

func (c *CLI) checkout(ctx context.Context) error {
	o, err := c.app.Checkout.PlaceOrder(ctx)
	switch {
	case errors.Is(err, checkout.ErrNotAuthenticated):
		return fmt.Errorf("sign in before checking out: %w", err)
	case err != nil:
		return err
	}
	fmt.Fprintf(c.out, "order #%d placed: %d items, %s (%s)\n",
		o.ID, o.ItemCount(), c.money(o.Total()), o.Status)
	return nil
}

func (c *CLI) orders(ctx context.Context) error {
	viewer, err := c.app.History.Viewer(ctx)
	if err != nil {
		return err
	}
	list, _, err := c.app.History.Load(ctx)
	if err != nil {
		return err
	}
	c.printOrders(list, viewer.IsAdmin())
	return nil
}

func (c *CLI) printOrders(list []domain.Order, withUser bool) {
	if len(list) == 0 {
		fmt.Fprintln(c.out, "no orders")
		return
	}

	w := c.table()
	if withUser {
		fmt.Fprintln(w, "ID\tCUSTOMER\tSTATUS\tITEMS\tTOTAL\tCREATED")
	} else {
		fmt.Fprintln(w, "ID\tSTATUS\tITEMS\tTOTAL\tCREATED")
	}
	for _, o := range list {
		if withUser {
			fmt.Fprintf(w, "%d\t%s\t", o.ID, o.User.Email)
		} else {
			fmt.Fprintf(w, "%d\t", o.ID)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", o.Status, o.ItemCount(), c.money(o.Total()), o.CreatedAt)
	}
	w.Flush()

	s := orders.Summarize(list)
	statuses := make([]string, 0, len(s.Status))
	for st, n := range s.Status {
		statuses = append(statuses, fmt.Sprintf("%s=%d", st, n))
	}
	sort.Strings(statuses)
	fmt.Fprintf(c.out, "%d orders, %d units, %s %v\n", s.Count, s.Units, c.money(s.Total), statuses)
}

func (c *CLI) price(p string) string {
	return currency.FormatPrice(p, c.app.Config.Locale, c.app.Config.Currency)
}
