package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peluware/freddy/internal/products"
	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/entitycrud"
	"github.com/peluware/freddy/pkg/query"
	"github.com/peluware/freddy/pkg/rest"
	"github.com/peluware/freddy/pkg/table"
)

// Path is the sales resource under the API base URL.
const Path = "/sales"

// DateLayout renders sale dates the way es-EC short dates read.
const DateLayout = "2/1/2006"

// Service is the sales backend. It has no update capability.
type Service struct {
	crud.ReadOperations[Sale, string]
	crud.Creatable[Sale, SaleDto]
	crud.Deletable[string]
}

// NewService binds the sales resource to c.
func NewService(c *rest.Client) Service {
	read := rest.ReadConfig[Sale]{Path: Path, Name: CacheKey, Entity: DecodeSale}
	return Service{
		ReadOperations: rest.NewRead[string](c, read),
		Creatable:      rest.NewCreatable(c, rest.CrudConfig[Sale, SaleDto]{ReadConfig: read}),
		Deletable:      rest.NewDeletable[string](c, read),
	}
}

// ParseID validates a sale id given by the user.
func ParseID(s string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid sale id %q: %w", s, err)
	}
	return id.String(), nil
}

// ShortID abbreviates a sale id for table cells.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

// ItemsSummary lists the products of a sale as "name xN".
func ItemsSummary(items []SaleItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s x%d", item.Product.Name, item.Quantity)
	}
	return strings.Join(parts, ", ")
}

// Columns are the sales table columns.
func Columns() []table.Column[Sale] {
	return []table.Column[Sale]{
		{
			ID: "id", Header: "ID",
			Cell: func(s Sale) string { return ShortID(s.ID) },
		},
		{
			ID: "date", Header: "Fecha", Sortable: true,
			Cell: func(s Sale) string {
				if s.Date.IsZero() {
					return ""
				}
				return s.Date.Local().Format(DateLayout)
			},
		},
		{
			ID: "customerCi", Header: "Cédula Cliente", Sortable: true, Filterable: true,
			Cell: func(s Sale) string { return s.CustomerCi },
		},
		{
			ID: "items", Header: "Productos",
			Cell: func(s Sale) string { return ItemsSummary(s.Items) },
		},
		{
			ID: "paymentMethod", Header: "Método Pago", Filterable: true,
			Cell: func(s Sale) string { return s.PaymentMethod.Label() },
		},
		{
			ID: "totalWithIva", Header: "Total", Sortable: true,
			Cell: func(s Sale) string { return fmt.Sprintf("$%.2f", s.TotalWithIva) },
		},
	}
}

// Settings tunes the sales screen.
type Settings struct {
	InitialState   table.State
	SearchDebounce time.Duration
	Cache          *query.Client[crud.Page[Sale]]
	OnChange       func(table.Snapshot[Sale])
	// Products is invalidated after a sale is created since stock changed
	Products *query.Client[crud.Page[products.Product]]
}

// CrudOptions composes the sales screen on svc.
func CrudOptions(svc Service, s Settings) entitycrud.Options[Sale, SaleDto, string] {
	return entitycrud.Options[Sale, SaleDto, string]{
		Read: table.Options[Sale, string]{
			CacheKey:       CacheKey,
			Page:           svc,
			Find:           svc,
			Columns:        Columns(),
			ToQuery:        table.RSQL,
			InitialState:   s.InitialState,
			SearchDebounce: s.SearchDebounce,
			Cache:          s.Cache,
			OnChange:       s.OnChange,
		},
		Create: &entitycrud.CreateConfig[Sale, SaleDto]{
			Create:        svc,
			Resolver:      NewResolver(),
			DefaultValues: DefaultValues,
			OnSuccess: func(ctx context.Context, _ Sale) error {
				if s.Products == nil {
					return nil
				}
				return s.Products.Invalidate(ctx, products.CacheKey)
			},
		},
		Delete: &entitycrud.DeleteConfig[Sale, string]{
			Delete: svc,
		},
	}
}
