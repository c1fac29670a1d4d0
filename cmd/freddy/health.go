package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/peluware/freddy/internal/app"
	"github.com/peluware/freddy/pkg/cli"
	"github.com/peluware/freddy/pkg/health"
)

func newHealthCommand(load cli.LoadFunc) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the backends and the query cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd, load, false, func(ctx context.Context, a *app.App) error {
				result := a.Health.Check(ctx)
				if err := printHealth(cmd, output, result); err != nil {
					return err
				}
				if result.Status == health.StatusUnhealthy {
					return &cli.ExitError{Code: exitFailure, Err: fmt.Errorf("status %s", result.Status)}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, yaml, json)")
	return cmd
}

func printHealth(cmd *cobra.Command, output string, result health.AggregatedResult) error {
	if !strings.EqualFold(output, "text") && output != "" {
		return printValue(cmd.OutOrStdout(), output, result)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tSTATUS\tDURATION\tDETAIL")
	for _, c := range result.Checks {
		detail := c.Message
		if c.Error != "" {
			detail = c.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.Status, c.Duration.Round(time.Millisecond), detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Estado: %s\n", result.Status)
	return nil
}
