package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/peluware/freddy/internal/app"
	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/entitycrud"
	"github.com/peluware/freddy/pkg/table"
)

// listFlags are the table controls of a list command.
type listFlags struct {
	page    int
	size    int
	sorts   []string
	search  string
	filters []string
	output  string
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&f.size, "size", 0, "rows per page (defaults to table.page_size)")
	cmd.Flags().StringSliceVar(&f.sorts, "sort", nil, "sort by column, as column or column:desc; repeatable")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "global search")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "column filter as column=value; repeatable")
	cmd.Flags().StringVarP(&f.output, "output", "o", "text", "output format (text, yaml, json)")
}

// settings converts the flags to the initial table state.
func (f *listFlags) settings() (app.ScreenSettings, error) {
	s := app.ScreenSettings{Page: f.page - 1, PageSize: f.size, Search: f.search}
	if s.Page < 0 {
		s.Page = 0
	}
	for _, raw := range f.sorts {
		id, dir, _ := strings.Cut(strings.TrimSpace(raw), ":")
		if id == "" {
			return s, fmt.Errorf("invalid --sort %q", raw)
		}
		s.Sorting = append(s.Sorting, table.SortingEntry{ID: id, Desc: crud.ParseDirection(dir) == crud.Desc})
	}
	for _, raw := range f.filters {
		id, value, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return s, fmt.Errorf("invalid --filter %q, expected column=value", raw)
		}
		s.Filters = append(s.Filters, table.ColumnFilter{ID: strings.TrimSpace(id), Value: value})
	}
	return s, nil
}

// validateColumns rejects sorting and filtering on columns that do not allow it.
func validateColumns[T any](columns []table.Column[T], s app.ScreenSettings) error {
	byID := make(map[string]table.Column[T], len(columns))
	for _, c := range columns {
		byID[c.ID] = c
	}
	for _, entry := range s.Sorting {
		if c, ok := byID[entry.ID]; !ok || !c.Sortable {
			return fmt.Errorf("column %q cannot be sorted", entry.ID)
		}
	}
	for _, f := range s.Filters {
		if c, ok := byID[f.ID]; !ok || !c.Filterable {
			return fmt.Errorf("column %q cannot be filtered", f.ID)
		}
	}
	return nil
}

// listPage loads the page described by the table state and prints it.
func listPage[T crud.Entity[ID], D any, ID comparable](w io.Writer, c *entitycrud.Crud[T, D, ID], output string) error {
	engine := c.Table()
	c.Start()
	engine.Wait()

	snap := engine.Snapshot()
	if snap.Error != nil {
		return describe(*snap.Error)
	}
	switch strings.ToLower(output) {
	case "", "text":
		return printTable(w, engine.Columns(), snap)
	default:
		page := crud.Page[T]{Content: snap.Entities}
		if snap.Page != nil {
			page.Page = *snap.Page
		}
		if page.Content == nil {
			page.Content = []T{}
		}
		return printValue(w, output, page)
	}
}

func printTable[T any](w io.Writer, columns []table.Column[T], snap table.Snapshot[T]) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = strings.ToUpper(col.Header)
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range snap.Entities {
		fmt.Fprintln(tw, strings.Join(table.Cells(columns, row), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(snap.Entities) == 0 {
		fmt.Fprintln(w, "Sin registros")
	}
	footer := snap.Footer()
	if footer.Page != "" {
		fmt.Fprintf(w, "%s  %s\n", footer.Page, footer.Total)
	}
	return nil
}
