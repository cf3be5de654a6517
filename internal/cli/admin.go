package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/jorgepalis/pymedesk/internal/admin"
)

func (c *CLI) admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: admin needs a subcommand", ErrUsage)
	}
	if _, err := c.app.Admin.VerifyAccess(ctx); err != nil {
		return err
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "products":
		list, _, err := c.app.Admin.Products(ctx)
		if err != nil {
			return err
		}
		c.printProducts(list)
	case "orders":
		list, _, err := c.app.Admin.Orders(ctx)
		if err != nil {
			return err
		}
		c.printOrders(list, true)
	case "create":
		form := admin.EmptyForm()
		if err := c.parseForm("admin create", rest, &form); err != nil {
			return err
		}
		p, err := c.app.Admin.CreateProduct(ctx, form)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "created product #%d %s\n", p.ID, p.Name)
	case "update":
		id, rest, err := parseID(rest, "product")
		if err != nil {
			return err
		}
		form, err := c.app.Admin.EditForm(ctx, id)
		if err != nil {
			return err
		}
		if err := c.parseForm("admin update", rest, &form); err != nil {
			return err
		}
		p, err := c.app.Admin.UpdateProduct(ctx, id, form)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "updated product #%d %s\n", p.ID, p.Name)
	default:
		return fmt.Errorf("%w: unknown admin command %q", ErrUsage, sub)
	}
	return nil
}

// parseForm overrides the fields of form named on the command line.
func (c *CLI) parseForm(name string, args []string, form *admin.ProductForm) error {
	fs := c.flagSet(name)
	fs.String("name", "", "product name")
	fs.String("description", "", "product description")
	fs.String("price", "", "unit price")
	fs.String("stock", "", "units in stock")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "name":
			form.Name = v
		case "description":
			form.Description = v
		case "price":
			form.Price = v
		case "stock":
			form.Stock = v
		}
	})
	return nil
}
