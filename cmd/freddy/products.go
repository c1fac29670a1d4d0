package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/peluware/freddy/internal/app"
	"github.com/peluware/freddy/internal/products"
	"github.com/peluware/freddy/pkg/cli"
)

func newProductsCommand(load cli.LoadFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product", "p"},
		Short:   "Manage products",
	}
	cmd.AddCommand(
		newProductsListCommand(load),
		newProductsGetCommand(load),
		newProductsCreateCommand(load),
		newProductsUpdateCommand(load),
		newProductsDeleteCommand(load),
		newProductsReloadCommand(load),
	)
	return cmd
}

func parseProductID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", s)
	}
	return id, nil
}

func findProduct(ctx context.Context, a *app.App, arg string) (products.Product, error) {
	id, err := parseProductID(arg)
	if err != nil {
		return products.Product{}, err
	}
	p, desc, ok := a.Products.Find(ctx, id).Get()
	if !ok {
		return products.Product{}, describe(desc)
	}
	return p, nil
}

func newProductsListCommand(load cli.LoadFunc) *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := flags.settings()
			if err != nil {
				return err
			}
			if err := validateColumns(products.Columns(), settings); err != nil {
				return err
			}
			return runApp(cmd, load, false, func(ctx context.Context, a *app.App) error {
				c, err := a.ProductsCrud(settings, nil)
				if err != nil {
					return err
				}
				defer c.Close()
				return listPage(cmd.OutOrStdout(), c, flags.output)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newProductsGetCommand(load cli.LoadFunc) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, load, false, func(ctx context.Context, a *app.App) error {
				p, err := findProduct(ctx, a, args[0])
				if err != nil {
					return err
				}
				return printValue(cmd.OutOrStdout(), output, p)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml, json)")
	return cmd
}

// productFlags fill a ProductDto. Only flags that were set override the
// values the form already holds.
type productFlags struct {
	data        string
	name        string
	price       float64
	description string
	stock       int
}

func (f *productFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.data, "data", "", "product as JSON, e.g. '{\"name\":\"Mouse\",\"price\":12.5}'")
	cmd.Flags().StringVar(&f.name, "name", "", "product name")
	cmd.Flags().Float64Var(&f.price, "price", 0, "unit price")
	cmd.Flags().StringVar(&f.description, "description", "", "product description")
	cmd.Flags().IntVar(&f.stock, "stock", 0, "units in stock")
}

func (f *productFlags) apply(cmd *cobra.Command, dto *products.ProductDto) error {
	if err := decodeData(f.data, dto); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("name") {
		dto.Name = f.name
	}
	if flags.Changed("price") {
		dto.Price = f.price
	}
	if flags.Changed("description") {
		dto.Description = f.description
	}
	if flags.Changed("stock") {
		dto.Stock = f.stock
	}
	return nil
}

func newProductsCreateCommand(load cli.LoadFunc) *cobra.Command {
	var flags productFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dto := products.DefaultValues()
			if err := flags.apply(cmd, &dto); err != nil {
				return err
			}
			return runApp(cmd, load, false, func(ctx context.Context, a *app.App) error {
				c, err := a.ProductsCrud(app.ScreenSettings{}, nil)
				if err != nil {
					return err
				}
				defer c.Close()

				session, err := c.OpenCreate(ctx)
				if err != nil {
					return err
				}
				defer session.Close()
				session.Form().SetValues(dto)
				created, err := session.Submit(ctx)
				if err != nil {
					return formFailure(cmd.ErrOrStderr(), session.Form(), err)
				}
				return printValue(cmd.OutOrStdout(), "yaml", created)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newProductsUpdateCommand(load cli.LoadFunc) *cobra.Command {
	var flags productFlags
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, load, false, func(ctx context.Context, a *app.App) error {
				current, err := findProduct(ctx, a, args[0])
				if err != nil {
					return err
				}
				c, err := a.ProductsCrud(app.ScreenSettings{}, nil)
				if err != nil {
					return err
				}
				defer c.Close()

				session, err := c.OpenUpdate(ctx, current)
				if err != nil {
					return err
				}
				defer session.Close()
				dto := session.Form().Values()
				if err := flags.apply(cmd, &dto); err != nil {
					return err
				}
				session.Form().SetValues(dto)
				updated, err := session.Submit(ctx)
				if err != nil {
					return formFailure(cmd.ErrOrStderr(), session.Form(), err)
				}
				return printValue(cmd.OutOrStdout(), "yaml", updated)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newProductsDeleteCommand(load cli.LoadFunc) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, load, yes, func(ctx context.Context, a *app.App) error {
				p, err := findProduct(ctx, a, args[0])
				if err != nil {
					return err
				}
				ok, err := confirm(ctx, a, "¿Eliminar producto?", fmt.Sprintf("%s (%d) se eliminará", p.Name, p.ID))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Operación cancelada")
					return nil
				}

				c, err := a.ProductsCrud(app.ScreenSettings{}, nil)
				if err != nil {
					return err
				}
				defer c.Close()
				session, err := c.OpenDelete(ctx, p)
				if err != nil {
					return err
				}
				defer session.Close()
				if err := session.Submit(ctx); err != nil {
					return formFailure(cmd.ErrOrStderr(), session.Form(), err)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

func newProductsReloadCommand(load cli.LoadFunc) *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "reload ID",
		Short: "Reload one product of a listed page from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			settings, err := flags.settings()
			if err != nil {
				return err
			}
			return runApp(cmd, load, false, func(ctx context.Context, a *app.App) error {
				c, err := a.ProductsCrud(settings, nil)
				if err != nil {
					return err
				}
				defer c.Close()
				c.Start()
				c.Table().Wait()

				snap := c.Table().Snapshot()
				if snap.Error != nil {
					return describe(*snap.Error)
				}
				for _, p := range snap.Entities {
					if p.ID != id {
						continue
					}
					if err := c.RunAction(ctx, products.ActionReload, p); err != nil {
						return err
					}
					return printTable(cmd.OutOrStdout(), c.Table().Columns(), c.Table().Snapshot())
				}
				return fmt.Errorf("product %d is not on the listed page", id)
			})
		},
	}
	flags.register(cmd)
	return cmd
}
