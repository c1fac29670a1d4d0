// Package sales binds the sales backend to the CRUD layer. Sales are
// created and deleted, never updated.
package sales

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/peluware/freddy/internal/products"
	"github.com/peluware/freddy/pkg/form"
)

// CacheKey namespaces sale tables in the query cache.
const CacheKey = "sales"

// DefaultIva is the VAT percentage a new sale starts with.
const DefaultIva = 15

// PaymentMethod is how a sale was paid.
type PaymentMethod string

// Payment methods accepted by the backend.
const (
	PaymentCard     PaymentMethod = "CARD"
	PaymentCash     PaymentMethod = "CASH"
	PaymentTransfer PaymentMethod = "TRANSFER"
)

// PaymentMethods lists the methods in the order forms offer them.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentTransfer}

// Label returns the display name of the method.
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCash:
		return "Efectivo"
	case PaymentCard:
		return "Tarjeta"
	case PaymentTransfer:
		return "Transferencia"
	default:
		return string(m)
	}
}

// Sale is a registered sale. Amounts are computed by the backend.
type Sale struct {
	ID            string        `json:"id"`
	Date          time.Time     `json:"date"`
	CustomerCi    string        `json:"customerCi"`
	Items         []SaleItem    `json:"items"`
	Iva           float64       `json:"iva"`
	Total         float64       `json:"total"`
	TotalWithIva  float64       `json:"totalWithIva"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// GetID implements crud.Entity.
func (s Sale) GetID() string {
	return s.ID
}

// SaleItem is one product line of a sale, priced at sale time.
type SaleItem struct {
	Product  products.Product `json:"product"`
	Price    float64          `json:"price"`
	Quantity int              `json:"quantity"`
	SubTotal float64          `json:"subTotal"`
}

// serverDateLayouts are tried in order; the last one covers servers that
// send a local date-time without offset.
var serverDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}

// ParseDate parses a server timestamp into local time.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range serverDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.Local(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid sale date %q", s)
}

// DecodeSale converts one server item, moving its date to local time.
func DecodeSale(raw json.RawMessage) (Sale, error) {
	var wire struct {
		Sale
		Date string `json:"date"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Sale{}, err
	}
	sale := wire.Sale
	if wire.Date != "" {
		date, err := ParseDate(wire.Date)
		if err != nil {
			return Sale{}, err
		}
		sale.Date = date
	}
	return sale, nil
}

// SaleDto is the create payload.
type SaleDto struct {
	CustomerCi    string        `json:"customerCi" validate:"required,len=10,numeric"`
	Items         []SaleItemDto `json:"items" validate:"min=1,unique=ProductID,dive"`
	Iva           float64       `json:"iva" validate:"gte=0,lte=100"`
	PaymentMethod PaymentMethod `json:"paymentMethod" validate:"required,oneof=CARD CASH TRANSFER"`
}

// SaleItemDto is one requested product line.
type SaleItemDto struct {
	ProductID int64 `json:"productId" validate:"required"`
	Quantity  int   `json:"quantity" validate:"gt=0,lte=1000"`
}

// Messages are the user-facing validation messages of SaleDto.
var Messages = form.Messages{
	"customerCi:required": "La cédula es obligatoria",
	"customerCi:len":      "La cédula debe tener 10 caracteres",
	"customerCi:numeric":  "La cédula debe contener solo números",
	"items:min":           "Debe agregar al menos un producto",
	"items:unique":        "No se pueden repetir productos en una venta",
	"items.productId":     "El producto es obligatorio",
	"items.quantity:gt":   "La cantidad debe ser un número positivo",
	"items.quantity:lte":  "La cantidad no puede ser mayor a 1000",
	"iva:gte":             "El IVA no puede ser negativo",
	"iva:lte":             "El IVA no puede ser mayor a 100",
	"paymentMethod":       "El método de pago es obligatorio",
}

// NewResolver returns the SaleDto resolver.
func NewResolver() form.Resolver[SaleDto] {
	return form.NewStructResolver[SaleDto](Messages)
}

// DefaultValues seeds the create form.
func DefaultValues() SaleDto {
	return SaleDto{
		Iva:           DefaultIva,
		PaymentMethod: PaymentCash,
	}
}

// ValuesOf seeds a form from an existing sale, e.g. to repeat it.
func ValuesOf(s Sale) SaleDto {
	dto := SaleDto{
		CustomerCi:    s.CustomerCi,
		Iva:           s.Iva,
		PaymentMethod: s.PaymentMethod,
	}
	for _, item := range s.Items {
		dto.Items = append(dto.Items, SaleItemDto{ProductID: item.Product.ID, Quantity: item.Quantity})
	}
	return dto
}

// Totals is the client-side estimate of a sale shown while it is edited.
type Totals struct {
	Subtotal float64
	Iva      float64
	Total    float64
}

// Estimate prices dto with the given products. Incomplete lines and lines
// whose product is unknown are skipped.
func Estimate(dto SaleDto, catalog []products.Product) Totals {
	prices := make(map[int64]float64, len(catalog))
	for _, p := range catalog {
		prices[p.ID] = p.Price
	}
	var t Totals
	for _, item := range dto.Items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			continue
		}
		price, ok := prices[item.ProductID]
		if !ok {
			continue
		}
		t.Subtotal += price * float64(item.Quantity)
	}
	t.Iva = t.Subtotal * dto.Iva / 100
	t.Total = t.Subtotal + t.Iva
	return t
}

// ProductIDs returns the distinct product ids of dto in input order.
func (d SaleDto) ProductIDs() []int64 {
	seen := make(map[int64]bool, len(d.Items))
	var ids []int64
	for _, item := range d.Items {
		if item.ProductID == 0 || seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		ids = append(ids, item.ProductID)
	}
	return ids
}
