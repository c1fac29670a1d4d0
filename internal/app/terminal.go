package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/peluware/freddy/pkg/dialog"
)

// Terminal renders dialog requests on a line-oriented terminal. Questions
// read a yes/no answer from In; other alerts are printed and confirmed.
// Surfaces are announced by title and left open for the command driving them.
type Terminal struct {
	In  io.Reader
	Out io.Writer
	// AssumeYes confirms every question without reading input
	AssumeYes bool

	once   sync.Once
	reader *bufio.Reader
}

// Render implements the rendering side of dialog.Channel.Serve.
func (t *Terminal) Render(ctx context.Context, req *dialog.Request) error {
	if req.Surface != nil {
		fmt.Fprintf(t.Out, "== %s ==\n", req.Surface.Title)
		return nil
	}
	if req.Alert == nil {
		req.Close()
		return nil
	}

	alert := req.Alert
	fmt.Fprintf(t.Out, "%s %s\n", alertPrefix(alert.Type), alert.Title)
	if alert.Description != "" {
		fmt.Fprintln(t.Out, alert.Description)
	}
	if !alert.ShowCancel() {
		return req.Resolve(ctx, dialog.ActionConfirm)
	}

	confirmed := t.AssumeYes
	if !confirmed {
		fmt.Fprintf(t.Out, "%s / %s [s/N]: ", alert.ConfirmLabel(), alert.CancelLabel())
		answer, err := t.readLine()
		if err != nil && answer == "" {
			return req.Resolve(ctx, dialog.ActionCancel)
		}
		confirmed = isYes(answer)
	}
	if confirmed {
		return req.Resolve(ctx, dialog.ActionConfirm)
	}
	return req.Resolve(ctx, dialog.ActionCancel)
}

func (t *Terminal) readLine() (string, error) {
	t.once.Do(func() {
		t.reader = bufio.NewReader(t.In)
	})
	line, err := t.reader.ReadString('\n')
	return strings.TrimSpace(line), err
}

func isYes(answer string) bool {
	switch strings.ToLower(answer) {
	case "s", "si", "sí", "y", "yes":
		return true
	default:
		return false
	}
}

func alertPrefix(t dialog.Type) string {
	switch t {
	case dialog.TypeSuccess:
		return "[ok]"
	case dialog.TypeWarning:
		return "[!]"
	case dialog.TypeError:
		return "[error]"
	case dialog.TypeQuestion:
		return "[?]"
	default:
		return "[i]"
	}
}
