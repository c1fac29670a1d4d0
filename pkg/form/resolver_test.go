package form

import (
	"context"
	"testing"

	"github.com/peluware/freddy/pkg/problem"
)

type lineDto struct {
	ProductID int `json:"productId" validate:"required"`
	Quantity  int `json:"quantity" validate:"gt=0,max=1000"`
}

type orderDto struct {
	CustomerCi string    `json:"customerCi" validate:"required,len=10,numeric"`
	Items      []lineDto `json:"items" validate:"min=1,dive"`
}

var orderMessages = Messages{
	"customerCi:required": "La cédula es obligatoria",
	"customerCi:len":      "La cédula debe tener 10 caracteres",
	"items:min":           "Debe agregar al menos un producto",
	"items.quantity:gt":   "La cantidad debe ser un número positivo",
	"items.productId":     "El producto es obligatorio",
}

func messagesByField(verrs problem.ValidationErrors) map[string][]string {
	out := make(map[string][]string, len(verrs))
	for _, v := range verrs {
		out[v.Field] = v.Messages
	}
	return out
}

func TestStructResolver_Valid(t *testing.T) {
	r := NewStructResolver[orderDto](orderMessages)
	verrs := r.Resolve(context.Background(), orderDto{
		CustomerCi: "0102030405",
		Items:      []lineDto{{ProductID: 1, Quantity: 2}},
	})
	if verrs != nil {
		t.Errorf("expected no errors, got %v", verrs)
	}
}

func TestStructResolver_NestedPaths(t *testing.T) {
	r := NewStructResolver[orderDto](orderMessages)
	verrs := r.Resolve(context.Background(), orderDto{
		CustomerCi: "123",
		Items:      []lineDto{{ProductID: 1, Quantity: 1}, {Quantity: 0}},
	})

	got := messagesByField(verrs)
	if msgs := got["customerCi"]; len(msgs) != 1 || msgs[0] != "La cédula debe tener 10 caracteres" {
		t.Errorf("unexpected customerCi messages %v", msgs)
	}
	if msgs := got["items.1.quantity"]; len(msgs) != 1 || msgs[0] != "La cantidad debe ser un número positivo" {
		t.Errorf("unexpected quantity messages %v", msgs)
	}
	if msgs := got["items.1.productId"]; len(msgs) != 1 || msgs[0] != "El producto es obligatorio" {
		t.Errorf("unexpected productId messages %v", msgs)
	}
	if _, ok := got["items.0.quantity"]; ok {
		t.Error("valid item must not report errors")
	}
}

func TestStructResolver_DefaultMessage(t *testing.T) {
	r := NewStructResolver[orderDto](nil)
	verrs := r.Resolve(context.Background(), orderDto{CustomerCi: "0102030405"})
	got := messagesByField(verrs)
	if msgs := got["items"]; len(msgs) != 1 || msgs[0] != "items must satisfy min=1" {
		t.Errorf("unexpected default message %v", msgs)
	}
}

const productSchema = `{
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": {"type": "string", "minLength": 3},
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {"quantity": {"type": "integer", "maximum": 1000}}
      }
    }
  }
}`

type schemaItem struct {
	Quantity int `json:"quantity"`
}

type schemaDto struct {
	Name  string       `json:"name,omitempty"`
	Items []schemaItem `json:"items,omitempty"`
}

func TestSchemaResolver(t *testing.T) {
	r, err := NewSchemaResolver[schemaDto](productSchema, Messages{
		"name:required":          "El nombre es obligatorio",
		"name:minLength":         "El nombre debe tener al menos 3 caracteres",
		"items.quantity:maximum": "La cantidad no puede ser mayor a 1000",
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ctx := context.Background()

	if verrs := r.Resolve(ctx, schemaDto{Name: "Arroz"}); verrs != nil {
		t.Errorf("expected valid, got %v", verrs)
	}

	got := messagesByField(r.Resolve(ctx, schemaDto{Name: "ab", Items: []schemaItem{{Quantity: 1}, {Quantity: 2000}}}))
	if msgs := got["name"]; len(msgs) != 1 || msgs[0] != "El nombre debe tener al menos 3 caracteres" {
		t.Errorf("unexpected name messages %v", msgs)
	}
	if msgs := got["items.1.quantity"]; len(msgs) != 1 || msgs[0] != "La cantidad no puede ser mayor a 1000" {
		t.Errorf("unexpected quantity messages %v", msgs)
	}

	got = messagesByField(r.Resolve(ctx, schemaDto{}))
	if msgs := got["name"]; len(msgs) != 1 || msgs[0] != "El nombre es obligatorio" {
		t.Errorf("unexpected required messages %v", msgs)
	}
}

func TestNewSchemaResolver_InvalidSchema(t *testing.T) {
	if _, err := NewSchemaResolver[schemaDto](`{"type": 12}`, nil); err == nil {
		t.Error("expected compile error")
	}
}

func TestPointerToPath(t *testing.T) {
	if got := pointerToPath("/items/0/quantity"); got != "items.0.quantity" {
		t.Errorf("got %q", got)
	}
	if got := pointerToPath(""); got != "" {
		t.Errorf("got %q", got)
	}
}
