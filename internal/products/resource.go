package products

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/entitycrud"
	"github.com/peluware/freddy/pkg/form"
	"github.com/peluware/freddy/pkg/query"
	"github.com/peluware/freddy/pkg/rest"
	"github.com/peluware/freddy/pkg/table"
)

// Path is the products resource under the API base URL.
const Path = "/products"

// ActionReload is the id of the row action that reloads one product.
const ActionReload = "reload"

// Service is the products backend.
type Service = crud.CrudOperations[Product, ProductDto, int64]

// NewService binds every CRUD capability of the products resource to c.
func NewService(c *rest.Client) Service {
	return rest.NewCrud[int64](c, rest.CrudConfig[Product, ProductDto]{
		ReadConfig: rest.ReadConfig[Product]{Path: Path, Name: CacheKey},
	})
}

var pricePrinter = message.NewPrinter(language.MustParse("es-EC"))

// FormatPrice renders a price in US dollars with Ecuadorian separators.
func FormatPrice(v float64) string {
	return pricePrinter.Sprintf("$%.2f", v)
}

// Columns are the products table columns.
func Columns() []table.Column[Product] {
	return []table.Column[Product]{
		{
			ID: "name", Header: "Nombre", Sortable: true, Filterable: true,
			Cell: func(p Product) string { return p.Name },
		},
		{
			ID: "price", Header: "Precio", Sortable: true,
			Cell: func(p Product) string { return FormatPrice(p.Price) },
		},
		{
			ID: "description", Header: "Descripción", Filterable: true,
			Cell: func(p Product) string { return p.Description },
		},
		{
			ID: "stock", Header: "Stock", Sortable: true,
			Cell: func(p Product) string { return strconv.Itoa(p.Stock) },
		},
	}
}

// Settings tunes the products screen.
type Settings struct {
	InitialState   table.State
	SearchDebounce time.Duration
	Cache          *query.Client[crud.Page[Product]]
	OnChange       func(table.Snapshot[Product])
}

// CrudOptions composes the products screen on svc. Every row also gets a
// reload action that refetches it from the server.
func CrudOptions(svc Service, s Settings) entitycrud.Options[Product, ProductDto, int64] {
	return entitycrud.Options[Product, ProductDto, int64]{
		Read: table.Options[Product, int64]{
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
		Create: &entitycrud.CreateConfig[Product, ProductDto]{
			Create:        svc,
			Resolver:      NewResolver(),
			DefaultValues: DefaultValues,
		},
		Update: &entitycrud.UpdateConfig[Product, ProductDto, int64]{
			Update:        svc,
			Resolver:      func(Product) form.Resolver[ProductDto] { return NewResolver() },
			DefaultValues: ValuesOf,
		},
		Delete: &entitycrud.DeleteConfig[Product, int64]{
			Delete: svc,
		},
		Actions: []entitycrud.Action[Product, int64]{
			entitycrud.CallbackAction[Product, int64]{
				ActionBase: entitycrud.ActionBase[Product]{ID: ActionReload, Label: "Recargar", Icon: "refresh"},
				OnClick: func(ctx context.Context, p Product, api entitycrud.EntityCrudApi[Product, int64]) error {
					_, err := api.RefreshEntity(ctx, p.ID)
					return err
				},
			},
		},
	}
}
