package form

import (
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/peluware/freddy/pkg/problem"
)

type productDto struct {
	Name  string  `json:"name" validate:"required,min=3,max=100"`
	Price float64 `json:"price" validate:"gte=0,lte=1000000"`
}

func TestForm_ResetClearsErrors(t *testing.T) {
	f := New(productDto{Name: "a"})
	f.SetValues(productDto{Name: "changed"})
	f.SetError("name", FieldError{Type: ErrorTypeManual, Message: "bad"})
	f.SetRootError("boom")

	if !f.HasErrors() || len(f.ErrorFields()) != 2 {
		t.Fatalf("expected two errors, got %v", f.Errors())
	}

	f.Reset(productDto{Name: "fresh"})
	if f.HasErrors() {
		t.Errorf("reset must clear errors, got %v", f.Errors())
	}
	if f.Values().Name != "fresh" || f.Defaults().Name != "fresh" {
		t.Errorf("reset must replace values and defaults, got %+v", f.Values())
	}
}

func TestForm_Update(t *testing.T) {
	f := New(productDto{})
	f.Update(func(d *productDto) { d.Price = 9.5 })
	if f.Values().Price != 9.5 {
		t.Errorf("expected updated price, got %v", f.Values().Price)
	}
}

func TestFieldPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"name", "name"},
		{"items[0].productId", "items.0.productId"},
		{"items[12].tags[3]", "items.12.tags.3"},
		{"items[x]", "items[x]"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FieldPath(tt.in); got != tt.want {
				t.Errorf("FieldPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetFormErrors_Validation(t *testing.T) {
	f := New(productDto{})
	SetFormErrors(f, problem.ValidationErrors{
		{Field: "name", Messages: []string{"El nombre es obligatorio"}},
		{Field: "items[0].productId", Messages: []string{"a", "b"}},
	})

	if err, _ := f.Error("name"); err.Message != "El nombre es obligatorio" {
		t.Errorf("unexpected name error %+v", err)
	}
	if err, _ := f.Error("items.0.productId"); err.Message != "a, b" {
		t.Errorf("unexpected item error %+v", err)
	}
	if _, ok := f.RootError(); ok {
		t.Error("validation errors must not set the root error")
	}
}

func TestSetFormErrors_Description(t *testing.T) {
	f := New(productDto{})
	SetFormErrors(f, problem.ErrorDescription{Title: "Error", Description: "Producto duplicado"})

	msg, ok := f.RootError()
	if !ok || msg != "Producto duplicado" {
		t.Errorf("expected root error, got %q %v", msg, ok)
	}
	if len(f.Errors()) != 1 {
		t.Errorf("only the root error expected, got %v", f.Errors())
	}
}

func TestProperty_SetFormErrorsNormalizesAndJoins(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("bracket paths become dot paths and messages join", prop.ForAll(
		func(head, tail string, index uint8, messages []string) bool {
			if len(messages) == 0 {
				messages = []string{"x"}
			}
			field := head + "[" + strconv.Itoa(int(index)) + "]." + tail
			f := New(struct{}{})
			SetFormErrors(f, problem.ValidationErrors{{Field: field, Messages: messages}})

			err, ok := f.Error(head + "." + strconv.Itoa(int(index)) + "." + tail)
			return ok && err.Message == strings.Join(messages, ", ") && len(f.Errors()) == 1
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.UInt8(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
