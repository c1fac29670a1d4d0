package form

import (
	"regexp"
	"strings"

	"github.com/peluware/freddy/pkg/problem"
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// FieldPath rewrites bracket array indices to dot notation:
// "items[0].productId" becomes "items.0.productId".
func FieldPath(field string) string {
	return bracketIndex.ReplaceAllString(field, ".$1")
}

// SetFormErrors maps a failure onto form errors. Validation errors set one
// message per field, joined with ", "; a description sets the root error.
func SetFormErrors(form ErrorSetter, failure problem.Failure) {
	if failure == nil {
		return
	}
	if verrs, ok := problem.AsValidation(failure); ok {
		for _, v := range verrs {
			form.SetError(FieldPath(v.Field), FieldError{
				Type:    ErrorTypeServer,
				Message: strings.Join(v.Messages, ", "),
			})
		}
		return
	}
	if desc, ok := problem.AsDescription(failure); ok {
		SetFormRootError(form, desc.Description)
	}
}

// SetFormRootError sets the form-level error message.
func SetFormRootError(form ErrorSetter, message string) {
	form.SetError(RootField, FieldError{Type: ErrorTypeManual, Message: message})
}
