package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/peluware/freddy/pkg/problem"
)

var quotedName = regexp.MustCompile(`['"]([^'"]+)['"]`)

// SchemaResolver validates values against a JSON Schema. Values are encoded to
// JSON first, so field paths follow the JSON shape.
type SchemaResolver[D any] struct {
	schema   *jsonschema.Schema
	messages Messages
}

// NewSchemaResolver compiles schema. Messages keys use the schema keyword as
// rule, e.g. "name:minLength".
func NewSchemaResolver[D any](schema string, messages Messages) (*SchemaResolver[D], error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("form.json", strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("form.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &SchemaResolver[D]{schema: compiled, messages: messages}, nil
}

// Resolve implements Resolver.
func (r *SchemaResolver[D]) Resolve(_ context.Context, values D) problem.ValidationErrors {
	raw, err := json.Marshal(values)
	if err != nil {
		return problem.ValidationErrors{{Field: RootField, Messages: []string{err.Error()}}}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return problem.ValidationErrors{{Field: RootField, Messages: []string{err.Error()}}}
	}

	err = r.schema.Validate(doc)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return problem.ValidationErrors{{Field: RootField, Messages: []string{err.Error()}}}
	}

	c := &collector{index: make(map[string]int)}
	r.collect(verr, c)
	return c.out
}

type collector struct {
	out   problem.ValidationErrors
	index map[string]int
}

func (c *collector) add(field, msg string) {
	if i, ok := c.index[field]; ok {
		for _, existing := range c.out[i].Messages {
			if existing == msg {
				return
			}
		}
		c.out[i].Messages = append(c.out[i].Messages, msg)
		return
	}
	c.index[field] = len(c.out)
	c.out = append(c.out, problem.ValidationError{Field: field, Messages: []string{msg}})
}

// collect walks the error tree and records its leaves.
func (r *SchemaResolver[D]) collect(verr *jsonschema.ValidationError, c *collector) {
	if len(verr.Causes) > 0 {
		for _, cause := range verr.Causes {
			r.collect(cause, c)
		}
		return
	}

	rule := keyword(verr.KeywordLocation)
	parent := pointerToPath(verr.InstanceLocation)
	if rule == "required" {
		for _, m := range quotedName.FindAllStringSubmatch(verr.Message, -1) {
			field := joinPath(parent, m[1])
			c.add(field, r.messages.lookup(field, rule, verr.Message))
		}
		return
	}
	field := parent
	if field == "" {
		field = RootField
	}
	c.add(field, r.messages.lookup(field, rule, verr.Message))
}

func keyword(location string) string {
	if i := strings.LastIndexByte(location, '/'); i >= 0 {
		return location[i+1:]
	}
	return location
}

// pointerToPath converts a JSON pointer such as "/items/0/quantity" into
// "items.0.quantity".
func pointerToPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return ""
	}
	parts := strings.Split(pointer, "/")
	for i, p := range parts {
		parts[i] = strings.NewReplacer("~1", "/", "~0", "~").Replace(p)
	}
	return strings.Join(parts, ".")
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
