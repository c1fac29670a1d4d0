// Package form holds headless form state and the create, update and delete
// submission flows that bind a form to CRUD capabilities.
package form

import (
	"sort"
	"sync"
)

// RootField addresses the form-level error.
const RootField = "root"

// Error types
const (
	ErrorTypeManual     = "manual"
	ErrorTypeValidation = "validation"
	ErrorTypeServer     = "server"
)

// FieldError is the error shown under one field.
type FieldError struct {
	Type    string
	Message string
}

// ErrorSetter receives field errors. Form implements it.
type ErrorSetter interface {
	SetError(name string, err FieldError)
}

// Form holds values of type D, the defaults they reset to, and the errors
// addressed by dot-notation field paths. It is safe for concurrent use.
type Form[D any] struct {
	mu          sync.RWMutex
	values      D
	defaults    D
	errors      map[string]FieldError
	submitting  bool
	submitCount int
}

// New creates a form seeded with defaults.
func New[D any](defaults D) *Form[D] {
	return &Form[D]{
		values:   defaults,
		defaults: defaults,
		errors:   make(map[string]FieldError),
	}
}

// Values returns the current values.
func (f *Form[D]) Values() D {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values
}

// SetValues replaces the current values.
func (f *Form[D]) SetValues(values D) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = values
}

// Update applies fn to the current values.
func (f *Form[D]) Update(fn func(*D)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.values)
}

// Defaults returns the values the form resets to.
func (f *Form[D]) Defaults() D {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.defaults
}

// Reset makes defaults the new defaults and values, and clears every error.
func (f *Form[D]) Reset(defaults D) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults = defaults
	f.values = defaults
	f.errors = make(map[string]FieldError)
}

// SetError sets the error of one field.
func (f *Form[D]) SetError(name string, err FieldError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[name] = err
}

// SetRootError sets the form-level error.
func (f *Form[D]) SetRootError(message string) {
	f.SetError(RootField, FieldError{Type: ErrorTypeManual, Message: message})
}

// Error returns the error of one field.
func (f *Form[D]) Error(name string) (FieldError, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	err, ok := f.errors[name]
	return err, ok
}

// RootError returns the form-level error message, if any.
func (f *Form[D]) RootError() (string, bool) {
	err, ok := f.Error(RootField)
	return err.Message, ok
}

// Errors returns a copy of all errors.
func (f *Form[D]) Errors() map[string]FieldError {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]FieldError, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// ErrorFields returns the names of fields with errors, sorted.
func (f *Form[D]) ErrorFields() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.errors))
	for name := range f.errors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasErrors reports whether any error is set.
func (f *Form[D]) HasErrors() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.errors) > 0
}

// ClearErrors removes every error.
func (f *Form[D]) ClearErrors() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = make(map[string]FieldError)
}

// IsSubmitting reports whether a submission is running.
func (f *Form[D]) IsSubmitting() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.submitting
}

// SubmitCount returns the number of submissions started.
func (f *Form[D]) SubmitCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.submitCount
}

// beginSubmit marks the form as submitting. It returns false when a
// submission is already running.
func (f *Form[D]) beginSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return false
	}
	f.submitting = true
	f.submitCount++
	return true
}

func (f *Form[D]) endSubmit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
}
