package form

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/peluware/freddy/pkg/problem"
)

// Resolver validates form values before they are submitted. It returns nil
// when the values are valid.
type Resolver[D any] interface {
	Resolve(ctx context.Context, values D) problem.ValidationErrors
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc[D any] func(ctx context.Context, values D) problem.ValidationErrors

// Resolve calls fn.
func (fn ResolverFunc[D]) Resolve(ctx context.Context, values D) problem.ValidationErrors {
	return fn(ctx, values)
}

// Messages maps "<field>:<rule>" to the message shown for that failure.
// Field paths drop array indices, so "items.quantity:max" covers every item.
// A "<field>" key alone catches any rule on that field.
type Messages map[string]string

var dotIndex = regexp.MustCompile(`\.\d+(\.|$)`)

func (m Messages) lookup(field, rule, fallback string) string {
	generic := dotIndex.ReplaceAllString(field, "$1")
	if msg, ok := m[generic+":"+rule]; ok {
		return msg
	}
	if msg, ok := m[generic]; ok {
		return msg
	}
	return fallback
}

// StructResolver validates struct values with go-playground/validator using
// `validate` tags. Field paths follow `json` tag names.
type StructResolver[D any] struct {
	validate *validator.Validate
	messages Messages
}

// NewStructResolver creates a StructResolver.
func NewStructResolver[D any](messages Messages) *StructResolver[D] {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &StructResolver[D]{validate: v, messages: messages}
}

// Validator exposes the underlying validator to register custom rules.
func (r *StructResolver[D]) Validator() *validator.Validate {
	return r.validate
}

// Resolve implements Resolver.
func (r *StructResolver[D]) Resolve(ctx context.Context, values D) problem.ValidationErrors {
	err := r.validate.StructCtx(ctx, values)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return problem.ValidationErrors{{Field: RootField, Messages: []string{err.Error()}}}
	}

	var out problem.ValidationErrors
	index := make(map[string]int)
	for _, fe := range fieldErrs {
		field := FieldPath(trimStructName(fe.Namespace()))
		msg := r.messages.lookup(field, fe.Tag(), defaultMessage(fe))
		if i, ok := index[field]; ok {
			out[i].Messages = append(out[i].Messages, msg)
			continue
		}
		index[field] = len(out)
		out = append(out, problem.ValidationError{Field: field, Messages: []string{msg}})
	}
	return out
}

// trimStructName drops the leading type name of a validator namespace.
func trimStructName(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func defaultMessage(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag())
}
