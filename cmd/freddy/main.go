// Command freddy browses and edits the products and sales backends from the
// terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/peluware/freddy/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	cmd.SetContext(ctx)
	cli.Execute(cmd)
}

func newRootCommand() *cobra.Command {
	return cli.NewServiceCommand(cli.ServiceCommandOptions{
		Name:        "freddy",
		Description: "Browse and edit products and sales",
		ConfigPath:  os.Getenv("FREDDY_CONFIG_FILE"),
		Commands: func(load cli.LoadFunc) []*cobra.Command {
			return []*cobra.Command{
				newProductsCommand(load),
				newSalesCommand(load),
				newHealthCommand(load),
			}
		},
	})
}
