package problem

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/peluware/freddy/pkg/observability/logger"
)

// Parser converts raw failures into the taxonomy and logs shapes it cannot read.
type Parser struct {
	log logger.Logger
}

// NewParser creates a Parser that reports unexpected shapes to log.
func NewParser(log logger.Logger) *Parser {
	return &Parser{log: logger.OrNop(log)}
}

var defaultParser = NewParser(nil)

// TryParseError attempts to read raw as an ErrorDescription.
func (p *Parser) TryParseError(raw any) (ErrorDescription, bool) {
	return tryParseError(payloadOf(raw))
}

// ParseError always returns an ErrorDescription, falling back to DefaultError.
func (p *Parser) ParseError(raw any) ErrorDescription {
	if parsed, ok := p.TryParseError(raw); ok {
		return parsed
	}
	p.unexpected(raw)
	return DefaultError
}

// ParseValidationErrors extracts per-field errors from raw, or an empty list.
func (p *Parser) ParseValidationErrors(raw any) ValidationErrors {
	if parsed, ok := tryParseValidationErrors(payloadOf(raw)); ok {
		return parsed
	}
	p.unexpected(raw)
	return ValidationErrors{}
}

// ParseErrorOrValidationErrors prefers per-field errors and falls back to a description.
func (p *Parser) ParseErrorOrValidationErrors(raw any) Failure {
	payload := payloadOf(raw)
	if parsed, ok := tryParseValidationErrors(payload); ok {
		return parsed
	}
	if parsed, ok := tryParseError(payload); ok {
		return parsed
	}
	p.unexpected(raw)
	return DefaultError
}

func (p *Parser) unexpected(raw any) {
	p.log.Error("unexpected error shape", "type", fmt.Sprintf("%T", raw), "value", fmt.Sprintf("%v", raw))
}

// TryParseError uses a parser without logging.
func TryParseError(raw any) (ErrorDescription, bool) { return defaultParser.TryParseError(raw) }

// ParseError uses a parser without logging.
func ParseError(raw any) ErrorDescription { return defaultParser.ParseError(raw) }

// ParseValidationErrors uses a parser without logging.
func ParseValidationErrors(raw any) ValidationErrors { return defaultParser.ParseValidationErrors(raw) }

// ParseErrorOrValidationErrors uses a parser without logging.
func ParseErrorOrValidationErrors(raw any) Failure {
	return defaultParser.ParseErrorOrValidationErrors(raw)
}

// payloadOf extracts the interesting part of a raw failure: the decoded body of
// an HTTP error, a description for transport failures, or raw itself.
func payloadOf(raw any) any {
	err, isErr := raw.(error)
	if !isErr {
		return raw
	}
	switch err.(type) {
	case ErrorDescription, *ErrorDescription, ValidationErrors:
		return raw
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return decodeBody(httpErr.Body)
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		cause := transportErr.Err
		if cause == nil {
			cause = transportErr
		}
		return ErrorDescription{Title: "Error", Description: cause.Error()}
	}
	return raw
}

func decodeBody(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return string(trimmed)
	}
	return decoded
}

func tryParseError(payload any) (ErrorDescription, bool) {
	switch v := payload.(type) {
	case nil:
		return ErrorDescription{}, false
	case string:
		return ErrorDescription{Title: "Error", Description: v}, true
	case ErrorDescription:
		return v, true
	case *ErrorDescription:
		if v == nil {
			return ErrorDescription{}, false
		}
		return *v, true
	case ProblemDetails:
		return v.Description(), true
	case *ProblemDetails:
		if v == nil {
			return ErrorDescription{}, false
		}
		return v.Description(), true
	case []byte:
		return tryParseError(decodeBody(v))
	case json.RawMessage:
		return tryParseError(decodeBody(v))
	case map[string]any:
		if desc, ok := descriptionFromMap(v); ok {
			return desc, true
		}
		if pd, ok := problemFromMap(v); ok {
			return pd.Description(), true
		}
	}
	return ErrorDescription{}, false
}

func tryParseValidationErrors(payload any) (ValidationErrors, bool) {
	switch v := payload.(type) {
	case ValidationErrors:
		return v, true
	case []ValidationError:
		return ValidationErrors(v), true
	case ProblemDetails:
		return v.Errors, v.Errors != nil
	case *ProblemDetails:
		if v == nil || v.Errors == nil {
			return nil, false
		}
		return v.Errors, true
	case []byte:
		return tryParseValidationErrors(decodeBody(v))
	case json.RawMessage:
		return tryParseValidationErrors(decodeBody(v))
	case []any:
		return validationErrorsFromSlice(v)
	case map[string]any:
		if _, ok := problemFromMap(v); ok {
			if list, isList := v["errors"].([]any); isList {
				return validationErrorsFromSlice(list)
			}
		}
	}
	return nil, false
}

func descriptionFromMap(m map[string]any) (ErrorDescription, bool) {
	title, okTitle := m["title"].(string)
	description, okDesc := m["description"].(string)
	if !okTitle || !okDesc {
		return ErrorDescription{}, false
	}
	return ErrorDescription{Title: title, Description: description}, true
}

func problemFromMap(m map[string]any) (ProblemDetails, bool) {
	title, ok1 := m["title"].(string)
	status, ok2 := m["status"].(float64)
	detail, ok3 := m["detail"].(string)
	instance, ok4 := m["instance"].(string)
	typ, ok5 := m["type"].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return ProblemDetails{}, false
	}
	pd := ProblemDetails{Type: typ, Title: title, Status: int(status), Detail: detail, Instance: instance}
	if list, isList := m["errors"].([]any); isList {
		if errs, valid := validationErrorsFromSlice(list); valid {
			pd.Errors = errs
		}
	}
	return pd, true
}

func validationErrorsFromSlice(list []any) (ValidationErrors, bool) {
	out := make(ValidationErrors, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		field, ok := m["field"].(string)
		if !ok {
			return nil, false
		}
		rawMessages, ok := m["messages"].([]any)
		if !ok {
			return nil, false
		}
		messages := make([]string, 0, len(rawMessages))
		for _, msg := range rawMessages {
			if s, isString := msg.(string); isString {
				messages = append(messages, s)
			} else {
				messages = append(messages, fmt.Sprint(msg))
			}
		}
		out = append(out, ValidationError{Field: field, Messages: messages})
	}
	return out, true
}
