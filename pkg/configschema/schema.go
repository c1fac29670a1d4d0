// Package configschema generates the JSON Schema of the freddy configuration
// file, with defaults and allowed values filled in.
package configschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/peluware/freddy/pkg/config"
)

// constraint narrows one property of the generated schema.
type constraint struct {
	path    string
	enum    []any
	minimum *float64
	maximum *float64
}

func bound(v float64) *float64 { return &v }

var constraints = []constraint{
	{path: "log.level", enum: []any{"debug", "info", "warn", "error"}},
	{path: "log.format", enum: []any{"json", "text"}},
	{path: "cache.type", enum: []any{config.CacheTypeInMemory, config.CacheTypeRedis}},
	{path: "api.retry", minimum: bound(0)},
	{path: "api.rate_limit", minimum: bound(0)},
	{path: "api.burst", minimum: bound(0)},
	{path: "table.page_size", minimum: bound(1)},
	{path: "resilience.max_failures", minimum: bound(1)},
	{path: "tracing.sample_rate", minimum: bound(0), maximum: bound(1)},
}

// BuildSchema returns the JSON Schema for config.Config with the values of
// defaults injected. A nil defaults uses config.DefaultConfig().
func BuildSchema(defaults *config.Config) (*jsonschema.Schema, error) {
	opts := &jsonschema.ForOptions{
		IgnoreInvalidTypes: true,
		TypeSchemas: map[reflect.Type]*jsonschema.Schema{
			reflect.TypeOf(time.Duration(0)): {Type: "string"},
		},
	}

	t := reflect.TypeOf(config.Config{})
	schema, err := jsonschema.ForType(t, opts)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	applyFieldNames(schema, t)

	if defaults == nil {
		defaults = config.DefaultConfig()
	}
	injectDefaults(schema, reflect.ValueOf(defaults))
	pruneRequiredWithDefaults(schema)
	for _, c := range constraints {
		if err := applyConstraint(schema, c); err != nil {
			return nil, err
		}
	}

	serviceName := "freddy"
	if name := strings.TrimSpace(defaults.Service.Name); name != "" {
		serviceName = name
	}
	schema.Title = serviceName + " Configuration"
	schema.Description = "Schema for " + serviceName + " configuration."
	schema.Schema = "https://json-schema.org/draft/2020-12/schema"
	return schema, nil
}

// Lookup returns the property schema at a dotted path such as "cache.type".
func Lookup(schema *jsonschema.Schema, path string) *jsonschema.Schema {
	node := schema
	for _, name := range strings.Split(path, ".") {
		if node == nil {
			return nil
		}
		node = node.Properties[name]
	}
	return node
}

func applyConstraint(schema *jsonschema.Schema, c constraint) error {
	prop := Lookup(schema, c.path)
	if prop == nil {
		return fmt.Errorf("constraint on unknown property %s", c.path)
	}
	if len(c.enum) > 0 {
		prop.Enum = c.enum
	}
	if c.minimum != nil {
		prop.Minimum = c.minimum
	}
	if c.maximum != nil {
		prop.Maximum = c.maximum
	}
	return nil
}

// applyFieldNames renames properties to the keys the loader reads, which
// follow the mapstructure tags.
func applyFieldNames(schema *jsonschema.Schema, t reflect.Type) {
	if schema == nil || t == nil {
		return
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		if len(schema.Properties) == 0 {
			return
		}
		nameMap := make(map[string]string)
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			jsonName, omit := jsonFieldName(field)
			if omit {
				continue
			}
			desired := fieldKeyName(field)
			nameMap[jsonName] = desired
			if prop, ok := schema.Properties[jsonName]; ok {
				delete(schema.Properties, jsonName)
				schema.Properties[desired] = prop
				applyFieldNames(prop, field.Type)
			}
		}
		schema.Required = renameAll(schema.Required, nameMap)
		schema.PropertyOrder = renameAll(schema.PropertyOrder, nameMap)

	case reflect.Slice, reflect.Array:
		applyFieldNames(schema.Items, t.Elem())

	case reflect.Map:
		if schema.AdditionalProperties != nil {
			applyFieldNames(schema.AdditionalProperties, t.Elem())
		}
	}
}

func renameAll(names []string, nameMap map[string]string) []string {
	if len(names) == 0 {
		return names
	}
	updated := make([]string, 0, len(names))
	for _, name := range names {
		if mapped, ok := nameMap[name]; ok {
			name = mapped
		}
		updated = append(updated, name)
	}
	return dedupeStrings(updated)
}

func injectDefaults(schema *jsonschema.Schema, value reflect.Value) {
	if schema == nil || !value.IsValid() {
		return
	}
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		if schema.Default == nil {
			if raw, ok := marshalDefault(schema, value); ok {
				schema.Default = raw
			}
		}
		return
	}
	if len(schema.Properties) == 0 {
		return
	}
	t := value.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		propSchema, ok := schema.Properties[fieldKeyName(field)]
		if !ok {
			continue
		}
		fieldVal := value.Field(i)
		if propSchema.Default == nil && fieldVal.Kind() != reflect.Struct {
			if raw, ok := marshalDefault(propSchema, fieldVal); ok {
				propSchema.Default = raw
			}
		}
		injectDefaults(propSchema, fieldVal)
	}
}

func pruneRequiredWithDefaults(schema *jsonschema.Schema) {
	if schema == nil {
		return
	}
	for _, prop := range schema.Properties {
		pruneRequiredWithDefaults(prop)
	}
	if len(schema.Required) == 0 || len(schema.Properties) == 0 {
		return
	}
	kept := make([]string, 0, len(schema.Required))
	for _, name := range schema.Required {
		prop := schema.Properties[name]
		if prop == nil || (prop.Default == nil && len(prop.Properties) == 0) {
			kept = append(kept, name)
		}
	}
	schema.Required = kept
}

func marshalDefault(schema *jsonschema.Schema, value reflect.Value) (json.RawMessage, bool) {
	if !value.IsValid() {
		return nil, false
	}
	if value.Type() == reflect.TypeOf(time.Duration(0)) && schemaAllowsString(schema) {
		payload, err := json.Marshal(time.Duration(value.Int()).String())
		if err != nil {
			return nil, false
		}
		return payload, true
	}
	payload, err := json.Marshal(value.Interface())
	if err != nil {
		return nil, false
	}
	return payload, true
}

func schemaAllowsString(schema *jsonschema.Schema) bool {
	if schema == nil {
		return false
	}
	if schema.Type == "string" {
		return true
	}
	for _, t := range schema.Types {
		if t == "string" {
			return true
		}
	}
	return false
}

func fieldKeyName(field reflect.StructField) string {
	if tag, ok := tagName(field.Tag.Get("mapstructure")); ok {
		return tag
	}
	if tag, ok := tagName(field.Tag.Get("yaml")); ok {
		return tag
	}
	return toSnakeCase(field.Name)
}

func tagName(tag string) (string, bool) {
	if tag == "" {
		return "", false
	}
	name := strings.Split(tag, ",")[0]
	if name == "" || name == "-" {
		return "", false
	}
	return name, true
}

func toSnakeCase(value string) string {
	var b strings.Builder
	b.Grow(len(value) + 8)
	for i, r := range value {
		if i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(rune(value[i-1])) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func jsonFieldName(field reflect.StructField) (string, bool) {
	if !field.IsExported() {
		return "", true
	}
	name := field.Name
	if tag, ok := field.Tag.Lookup("json"); ok {
		tagName, _, found := strings.Cut(tag, ",")
		if tagName == "-" && !found {
			return "", true
		}
		if tagName != "" {
			name = tagName
		}
	}
	return name, false
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
