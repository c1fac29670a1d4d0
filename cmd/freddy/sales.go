package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/peluware/freddy/internal/app"
	"github.com/peluware/freddy/internal/products"
	"github.com/peluware/freddy/internal/sales"
	"github.com/peluware/freddy/pkg/cli"
)

func newSalesCommand(load cli.LoadFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sales",
		Aliases: []string{"sale", "s"},
		Short:   "Manage sales",
	}
	cmd.AddCommand(
		newSalesListCommand(load),
		newSalesGetCommand(load),
		newSalesCreateCommand(load),
		newSalesDeleteCommand(load),
	)
	return cmd
}

func findSale(ctx context.Context, a *app.App, arg string) (sales.Sale, error) {
	id, err := sales.ParseID(arg)
	if err != nil {
		return sales.Sale{}, err
	}
	s, desc, ok := a.Sales.Find(ctx, id).Get()
	if !ok {
		return sales.Sale{}, describe(desc)
	}
	return s, nil
}

func newSalesListCommand(load cli.LoadFunc) *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := flags.settings()
			if err != nil {
				return err
			}
			if err := validateColumns(sales.Columns(), settings); err != nil {
				return err
			}
			return runApp(cmd, load, false, func(ctx context.Context, a *app.App) error {
				c, err := a.SalesCrud(settings, nil)
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

func newSalesGetCommand(load cli.LoadFunc) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show one sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, load, false, func(ctx context.Context, a *app.App) error {
				s, err := findSale(ctx, a, args[0])
				if err != nil {
					return err
				}
				return printValue(cmd.OutOrStdout(), output, s)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml, json)")
	return cmd
}

// parseItem reads a sale line given as productId:quantity.
func parseItem(raw string) (sales.SaleItemDto, error) {
	idPart, qtyPart, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		qtyPart = "1"
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return sales.SaleItemDto{}, fmt.Errorf("invalid --item %q, expected productId:quantity", raw)
	}
	qty, err := strconv.Atoi(qtyPart)
	if err != nil {
		return sales.SaleItemDto{}, fmt.Errorf("invalid quantity in --item %q", raw)
	}
	return sales.SaleItemDto{ProductID: id, Quantity: qty}, nil
}

// saleFlags fill a SaleDto. Items given by flag replace the ones in --data.
type saleFlags struct {
	data          string
	customerCi    string
	items         []string
	iva           float64
	paymentMethod string
}

func (f *saleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.data, "data", "", "sale as JSON")
	cmd.Flags().StringVar(&f.customerCi, "customer-ci", "", "customer identity card, 10 digits")
	cmd.Flags().StringArrayVar(&f.items, "item", nil, "sale line as productId:quantity; repeatable")
	cmd.Flags().Float64Var(&f.iva, "iva", sales.DefaultIva, "VAT percentage")
	cmd.Flags().StringVar(&f.paymentMethod, "payment", "", "payment method (CASH, CARD, TRANSFER)")
}

func (f *saleFlags) apply(cmd *cobra.Command, dto *sales.SaleDto) error {
	if err := decodeData(f.data, dto); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("customer-ci") {
		dto.CustomerCi = f.customerCi
	}
	if flags.Changed("item") {
		dto.Items = dto.Items[:0]
		for _, raw := range f.items {
			item, err := parseItem(raw)
			if err != nil {
				return err
			}
			dto.Items = append(dto.Items, item)
		}
	}
	if flags.Changed("iva") {
		dto.Iva = f.iva
	}
	if flags.Changed("payment") {
		dto.PaymentMethod = sales.PaymentMethod(strings.ToUpper(strings.TrimSpace(f.paymentMethod)))
	}
	return nil
}

func printEstimate(ctx context.Context, cmd *cobra.Command, a *app.App, dto sales.SaleDto) {
	ids := dto.ProductIDs()
	if len(ids) == 0 {
		return
	}
	catalog, desc, ok := a.Products.FindMany(ctx, ids).Get()
	if !ok {
		a.Log.Warn("failed to load products for the estimate", "error", desc.Error())
		return
	}
	t := sales.Estimate(dto, catalog)
	fmt.Fprintf(cmd.ErrOrStderr(), "Subtotal: %s  IVA: %s  Total: %s\n",
		products.FormatPrice(t.Subtotal), products.FormatPrice(t.Iva), products.FormatPrice(t.Total))
}

func newSalesCreateCommand(load cli.LoadFunc) *cobra.Command {
	var flags saleFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dto := sales.DefaultValues()
			if err := flags.apply(cmd, &dto); err != nil {
				return err
			}
			return runApp(cmd, load, false, func(ctx context.Context, a *app.App) error {
				printEstimate(ctx, cmd, a, dto)

				c, err := a.SalesCrud(app.ScreenSettings{}, nil)
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

func newSalesDeleteCommand(load cli.LoadFunc) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, load, yes, func(ctx context.Context, a *app.App) error {
				s, err := findSale(ctx, a, args[0])
				if err != nil {
					return err
				}
				description := fmt.Sprintf("Venta %s de %s por %s", sales.ShortID(s.ID), s.CustomerCi, products.FormatPrice(s.TotalWithIva))
				ok, err := confirm(ctx, a, "¿Eliminar venta?", description)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Operación cancelada")
					return nil
				}

				c, err := a.SalesCrud(app.ScreenSettings{}, nil)
				if err != nil {
					return err
				}
				defer c.Close()
				session, err := c.OpenDelete(ctx, s)
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
