package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/peluware/freddy/internal/app"
	"github.com/peluware/freddy/pkg/cli"
	"github.com/peluware/freddy/pkg/entitycrud"
	"github.com/peluware/freddy/pkg/form"
	"github.com/peluware/freddy/pkg/problem"
)

// Exit codes
const (
	exitFailure    = 1
	exitValidation = 2
)

// runApp loads configuration, wires the app and serves its dialogs on the
// command's terminal while fn runs.
func runApp(cmd *cobra.Command, load cli.LoadFunc, assumeYes bool, fn func(ctx context.Context, a *app.App) error) error {
	cfg, log, err := load(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	errOut := cmd.ErrOrStderr()
	notifier := entitycrud.NotifierFunc(func(_ context.Context, toast entitycrud.Toast) {
		fmt.Fprintf(errOut, "%s: %s\n", toast.Title, toast.Description)
	})
	a, err := app.New(ctx, cfg, log, app.WithNotifier(notifier))
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.Warn("failed to close app", "error", err)
		}
	}()

	term := &app.Terminal{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), AssumeYes: assumeYes}
	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = a.Dialogs.Serve(ctx, term.Render)
	}()
	defer func() {
		cancel()
		<-served
	}()

	managed := make(chan struct{})
	go func() {
		defer close(managed)
		if err := a.ServeManagement(ctx); err != nil {
			log.Error("management server failed", "error", err)
		}
	}()
	defer func() {
		cancel()
		<-managed
	}()

	return fn(ctx, a)
}

// describe turns a remote failure into a command error.
func describe(desc problem.ErrorDescription) error {
	return &cli.ExitError{Code: exitFailure, Err: desc}
}

// formFailure prints the errors a submission left on f.
func formFailure[D any](w io.Writer, f *form.Form[D], err error) error {
	if errors.Is(err, form.ErrSubmitInProgress) {
		return err
	}
	if root, ok := f.RootError(); ok {
		fmt.Fprintf(w, "Error: %s\n", root)
	}
	fields := f.ErrorFields()
	sort.Strings(fields)
	for _, name := range fields {
		if name == form.RootField {
			continue
		}
		fe, _ := f.Error(name)
		fmt.Fprintf(w, "  %s: %s\n", name, fe.Message)
	}
	if f.HasErrors() {
		return &cli.ExitError{Code: exitValidation, Err: fmt.Errorf("submission rejected: %w", err)}
	}
	return err
}

// printValue writes v as yaml or json.
func printValue(w io.Writer, output string, v any) error {
	switch strings.ToLower(output) {
	case "", "text", "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q", output)
	}
}

// decodeData unmarshals a --data JSON payload over dst.
func decodeData(data string, dst any) error {
	if strings.TrimSpace(data) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return &cli.ExitError{Code: exitValidation, Err: fmt.Errorf("invalid --data: %w", err)}
	}
	return nil
}

// confirm asks a question through the dialog host.
func confirm(ctx context.Context, a *app.App, title, description string) (bool, error) {
	out, err := a.Dialogs.Question(ctx, title, description)
	if err != nil {
		return false, err
	}
	return out.Confirmed, nil
}
