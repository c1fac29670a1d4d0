// Package products binds the products backend to the CRUD layer.
package products

import (
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/peluware/freddy/pkg/form"
)

// CacheKey namespaces product tables in the query cache.
const CacheKey = "products"

// Product is a catalog item.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Stock       int     `json:"stock"`
}

// GetID implements crud.Entity.
func (p Product) GetID() int64 {
	return p.ID
}

// ProductDto is the create and update payload.
type ProductDto struct {
	Name        string  `json:"name" validate:"required,min=3,max=100"`
	Price       float64 `json:"price" validate:"gte=0,lte=1000000,cents"`
	Description string  `json:"description" validate:"required,min=10,max=500"`
	Stock       int     `json:"stock" validate:"gte=0,lte=10000"`
}

// Messages are the user-facing validation messages of ProductDto.
var Messages = form.Messages{
	"name:required":        "El nombre es obligatorio",
	"name:min":             "El nombre debe tener al menos 3 caracteres",
	"name:max":             "El nombre debe tener como máximo 100 caracteres",
	"price:cents":          "El precio debe tener como máximo 2 decimales",
	"price:gte":            "El precio no puede ser negativo",
	"price:lte":            "El precio no puede ser mayor a 1,000,000",
	"description:required": "La descripción es obligatoria",
	"description:min":      "La descripción debe tener al menos 10 caracteres",
	"description:max":      "La descripción debe tener como máximo 500 caracteres",
	"stock:gte":            "El stock no puede ser negativo",
	"stock:lte":            "El stock no puede ser mayor a 10,000",
}

// NewResolver returns the ProductDto resolver.
func NewResolver() form.Resolver[ProductDto] {
	r := form.NewStructResolver[ProductDto](Messages)
	// validator only fails here on a duplicate registration
	_ = r.Validator().RegisterValidation("cents", func(fl validator.FieldLevel) bool {
		return hasAtMostTwoDecimals(fl.Field().Float())
	})
	return r
}

func hasAtMostTwoDecimals(v float64) bool {
	scaled := v * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}

// DefaultValues seeds the create form.
func DefaultValues() ProductDto {
	return ProductDto{}
}

// ValuesOf seeds the update form from an existing product.
func ValuesOf(p Product) ProductDto {
	return ProductDto{
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Stock:       p.Stock,
	}
}
