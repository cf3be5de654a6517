package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrMissingCredentials = errors.New("enter email and password")

func (c *CLI) login(ctx context.Context, args []string) error {
	fs := c.flagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := c.parse(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" || *password == "" {
		return ErrMissingCredentials
	}

	p, err := c.app.Session.Login(ctx, strings.TrimSpace(*email), *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "signed in as %s (%s)\n", p.Name, p.Email)
	if p.IsAdmin() {
		fmt.Fprintln(c.out, "admin console: storefront admin products")
	}
	return nil
}

func (c *CLI) register(ctx context.Context, args []string) error {
	fs := c.flagSet("register")
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "account password")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	p, err := c.app.Session.Register(ctx, strings.TrimSpace(*email), strings.TrimSpace(*name), *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "account created, signed in as %s (%s)\n", p.Name, p.Email)
	return nil
}

func (c *CLI) logout(ctx context.Context) error {
	if err := c.app.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "signed out")
	return nil
}

func (c *CLI) whoami(ctx context.Context) error {
	p, err := c.app.Session.Ensure(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s <%s>\nrole: %s\n", p.Name, p.Email, p.RoleName)
	if exp, ok := c.app.Session.Tokens().Expiry(ctx); ok {
		fmt.Fprintf(c.out, "access token expires: %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}
