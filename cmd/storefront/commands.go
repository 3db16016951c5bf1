package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/spice-storefront/internal/app"
	"github.com/xenking/spice-storefront/internal/catalog"
	"github.com/xenking/spice-storefront/internal/domain/cart"
	"github.com/xenking/spice-storefront/internal/domain/order"
	"github.com/xenking/spice-storefront/internal/domain/product"
	"github.com/xenking/spice-storefront/internal/export"
)

var (
	errUsage     = errors.New("invalid arguments, run storefront help")
	errUnhealthy = errors.New("one or more checks failed")
)

type command func(ctx context.Context, a *app.App, args []string, out io.Writer) error

var commands = map[string]command{
	"products":   listProducts,
	"categories": listCategories,
	"bulk-price": bulkPrice,
	"add":        addToCart,
	"remove":     removeFromCart,
	"set":        setQuantity,
	"cart":       showCart,
	"clear":      clearCart,
	"token":      showToken,
	"checkout":   checkout,
	"orders":     orders,
	"doctor":     doctor,
}

func execute(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	cmd, ok := commands[args[0]]
	if !ok {
		return errors.Wrapf(errUsage, "unknown command %q", args[0])
	}

	unsubscribe := a.Bus.Subscribe(cart.EventUpdated, func(ctx context.Context) {
		_, _ = fmt.Fprintf(out, "Cart: %d item(s)\n", a.Cart.Count(ctx))
	})
	defer unsubscribe()

	return cmd(ctx, a, args[1:], out)
}

func listProducts(_ context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	query := fs.String("q", "", "search term")
	category := fs.String("category", catalog.AllCategories, "category filter")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(errUsage, err.Error())
	}

	list := a.Catalog.FilterByCategory(*category)
	if *query != "" {
		hits := make(map[string]struct{})
		for _, p := range a.Catalog.Search(*query) {
			hits[p.ID] = struct{}{}
		}
		filtered := list[:0:0]
		for _, p := range list {
			if _, ok := hits[p.ID]; ok {
				filtered = append(filtered, p)
			}
		}
		list = filtered
	}
	if len(list) == 0 {
		_, _ = fmt.Fprintln(out, "No products found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE/KG\tSTOCK")
	for _, p := range list {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.Category, money(a, p.Price), stock(p))
	}
	return tw.Flush()
}

func stock(p product.Product) string {
	if p.InStock {
		return "in stock"
	}
	return "out of stock"
}

func listCategories(_ context.Context, a *app.App, _ []string, out io.Writer) error {
	for _, c := range a.Catalog.Categories() {
		_, _ = fmt.Fprintln(out, c)
	}
	return nil
}

func bulkPrice(_ context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	kg, err := strconv.Atoi(args[1])
	if err != nil || kg < 1 {
		return errors.Wrapf(errUsage, "weight %q", args[1])
	}
	price, err := a.Catalog.BulkPrice(args[0], kg)
	if err != nil {
		return errors.Wrapf(err, "product %q", args[0])
	}
	_, _ = fmt.Fprintf(out, "%s per kg, %s for %d kg\n",
		money(a, price), money(a, price.Mul(decimal.NewFromInt(int64(kg)))), kg)
	return nil
}

func addToCart(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	p, err := a.Catalog.GetByID(ctx, args[0])
	if err != nil {
		return errors.Wrapf(err, "product %q", args[0])
	}
	qty := 1
	if len(args) == 2 {
		qty = cart.ParseQuantity(args[1], 1)
	}
	if err := a.Cart.Add(ctx, p, qty); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Added %d x %s\n", qty, p.Name)
	return nil
}

func removeFromCart(ctx context.Context, a *app.App, args []string, _ io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	return a.Cart.Remove(ctx, args[0])
}

func setQuantity(ctx context.Context, a *app.App, args []string, _ io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	return a.Cart.SetQuantity(ctx, args[0], cart.ParseQuantity(args[1], 0))
}

func showCart(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	items := a.Cart.Items(ctx)
	if len(items) == 0 {
		_, _ = fmt.Fprintln(out, "Your cart is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			it.ID, it.Name, it.Quantity, money(a, it.Price), money(a, it.Subtotal()))
	}
	_, _ = fmt.Fprintf(tw, "\t\t%d\tTOTAL\t%s\n", a.Cart.Count(ctx), money(a, cart.Total(items)))
	return tw.Flush()
}

func clearCart(ctx context.Context, a *app.App, _ []string, _ io.Writer) error {
	return a.Cart.Clear(ctx)
}

func showToken(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	tok, err := a.Cart.EnsureToken(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, tok)
	return nil
}

func checkout(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var f order.Form
	fs.StringVar(&f.Token, "token", "", "session token, defaults to the current one")
	fs.StringVar(&f.FullName, "name", "", "full name")
	fs.StringVar(&f.Email, "email", "", "email address")
	fs.StringVar(&f.Phone, "phone", "", "phone number")
	fs.StringVar(&f.Address, "address", "", "street address")
	fs.StringVar(&f.City, "city", "", "city")
	fs.StringVar(&f.PostalCode, "postal", "", "postal code")
	fs.StringVar(&f.Country, "country", "", "country")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(errUsage, err.Error())
	}

	if f.Token == "" {
		tok, err := a.Cart.CurrentToken(ctx)
		if err != nil {
			return err
		}
		f.Token = tok
	}

	receipt, err := a.Checkout.Place(ctx, f)
	if err != nil {
		return err
	}
	o := receipt.Order
	_, _ = fmt.Fprintf(out, "Order %s placed: %d item(s), total %s\n",
		o.ID, len(o.Items), money(a, o.Total))
	_, _ = fmt.Fprintf(out, "WhatsApp: %s\n", receipt.WhatsAppLink)
	_, _ = fmt.Fprintf(out, "Email: %s\n", receipt.EmailLink)
	return nil
}

func orders(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "export":
			return exportOrders(ctx, a, args[1:], out)
		case "import":
			return importOrders(ctx, a, args[1:], out)
		default:
			return errors.Wrapf(errUsage, "unknown orders command %q", args[0])
		}
	}

	list := a.Checkout.Orders(ctx)
	if len(list) == 0 {
		_, _ = fmt.Fprintln(out, "No orders yet.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tDATE\tCUSTOMER\tITEMS\tTOTAL\tSTATUS")
	for _, o := range list {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			o.ID, a.Renderer.Date(&o), o.Customer.FullName, len(o.Items), money(a, o.Total), o.Status)
	}
	return tw.Flush()
}

func exportOrders(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("orders export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.String("out", "orders.jsonl.gz", "output file")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(errUsage, err.Error())
	}

	list := a.Checkout.Orders(ctx)
	if err := export.WriteFile(*path, list); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Exported %d order(s) to %s\n", len(list), *path)
	return nil
}

func importOrders(ctx context.Context, a *app.App, paths []string, out io.Writer) error {
	if len(paths) == 0 {
		return errUsage
	}
	batches, err := export.ReadFiles(ctx, paths)
	if err != nil {
		return err
	}

	missing := export.Missing(a.Checkout.Orders(ctx), batches...)
	for i := range missing {
		if err := a.Orders.Append(ctx, &missing[i]); err != nil {
			return errors.Wrapf(err, "import order %q", missing[i].ID)
		}
	}
	_, _ = fmt.Fprintf(out, "Imported %d order(s)\n", len(missing))
	return nil
}

func doctor(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	report := a.Health.Run(ctx)
	if _, err := report.WriteTo(out); err != nil {
		return err
	}
	if !report.Healthy() {
		return errUnhealthy
	}
	return nil
}

func money(a *app.App, d decimal.Decimal) string {
	return a.Config.Shop.Currency + " " + d.StringFixed(2)
}
