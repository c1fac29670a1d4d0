package form

import (
	"context"
	"errors"
	"sync"

	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/observability/logger"
	"github.com/peluware/freddy/pkg/problem"
)

// ErrSubmitInProgress is returned when Submit is called while a previous
// submission of the same form is still running.
var ErrSubmitInProgress = errors.New("form submission already in progress")

// ErrNoEntity is returned by update and delete flows without a target entity.
var ErrNoEntity = errors.New("no entity selected")

// SuccessFunc runs after a successful submission. An error aborts the flow
// before the form is reset and is returned from Submit.
type SuccessFunc[T any] func(ctx context.Context, entity T) error

// CreateOptions configures a CreateFlow.
type CreateOptions[T, D any] struct {
	Create        crud.Creatable[T, D]
	Resolver      Resolver[D]
	DefaultValues func() D
	OnSuccess     SuccessFunc[T]
	Logger        logger.Logger
}

// CreateFlow submits a form to a Creatable.
type CreateFlow[T, D any] struct {
	form *Form[D]
	opts CreateOptions[T, D]
	log  logger.Logger
}

// NewCreateFlow creates a CreateFlow with a form seeded from DefaultValues.
func NewCreateFlow[T, D any](opts CreateOptions[T, D]) (*CreateFlow[T, D], error) {
	if opts.Create == nil {
		return nil, crud.ErrNoCapability
	}
	if opts.DefaultValues == nil {
		opts.DefaultValues = func() D {
			var zero D
			return zero
		}
	}
	return &CreateFlow[T, D]{
		form: New(opts.DefaultValues()),
		opts: opts,
		log:  logger.OrNop(opts.Logger),
	}, nil
}

// Form returns the bound form.
func (f *CreateFlow[T, D]) Form() *Form[D] {
	return f.form
}

// Submit validates the form and creates the entity. Failures are mapped onto
// the form and returned. On success the form resets to its defaults.
func (f *CreateFlow[T, D]) Submit(ctx context.Context) (T, error) {
	var zero T
	if !f.form.beginSubmit() {
		return zero, ErrSubmitInProgress
	}
	defer f.form.endSubmit()

	values, err := validate(ctx, f.form, f.opts.Resolver)
	if err != nil {
		return zero, err
	}

	entity, failure, ok := f.opts.Create.Create(ctx, values).Get()
	if !ok {
		return zero, mapFailure(f.form, failure, f.log, "create")
	}
	if f.opts.OnSuccess != nil {
		if err := f.opts.OnSuccess(ctx, entity); err != nil {
			return entity, err
		}
	}
	f.form.Reset(f.opts.DefaultValues())
	return entity, nil
}

// UpdateOptions configures an UpdateFlow.
type UpdateOptions[T crud.Entity[ID], D any, ID comparable] struct {
	Update crud.Updatable[T, D, ID]
	// Resolver builds the resolver for the entity being edited; nil skips
	// client-side validation
	Resolver      func(entity T) Resolver[D]
	DefaultValues func(entity T) D
	OnSuccess     SuccessFunc[T]
	Logger        logger.Logger
}

// UpdateFlow submits a form to an Updatable for one target entity.
type UpdateFlow[T crud.Entity[ID], D any, ID comparable] struct {
	form *Form[D]
	opts UpdateOptions[T, D, ID]
	log  logger.Logger

	mu     sync.RWMutex
	entity T
	set    bool
}

// NewUpdateFlow creates an UpdateFlow. Call SetEntity before submitting.
func NewUpdateFlow[T crud.Entity[ID], D any, ID comparable](opts UpdateOptions[T, D, ID]) (*UpdateFlow[T, D, ID], error) {
	if opts.Update == nil {
		return nil, crud.ErrNoCapability
	}
	if opts.DefaultValues == nil {
		return nil, errors.New("update flow: default values are required")
	}
	var zero D
	return &UpdateFlow[T, D, ID]{
		form: New(zero),
		opts: opts,
		log:  logger.OrNop(opts.Logger),
	}, nil
}

// Form returns the bound form.
func (f *UpdateFlow[T, D, ID]) Form() *Form[D] {
	return f.form
}

// Entity returns the target entity.
func (f *UpdateFlow[T, D, ID]) Entity() (T, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.entity, f.set
}

// SetEntity makes entity the target and resets the form to its defaults.
func (f *UpdateFlow[T, D, ID]) SetEntity(entity T) {
	f.mu.Lock()
	f.entity = entity
	f.set = true
	f.mu.Unlock()
	f.form.Reset(f.opts.DefaultValues(entity))
}

// Submit validates the form and updates the target entity. On success the
// form reseeds from the entity returned by the server.
func (f *UpdateFlow[T, D, ID]) Submit(ctx context.Context) (T, error) {
	var zero T
	entity, ok := f.Entity()
	if !ok {
		return zero, ErrNoEntity
	}
	if !f.form.beginSubmit() {
		return zero, ErrSubmitInProgress
	}
	defer f.form.endSubmit()

	var resolver Resolver[D]
	if f.opts.Resolver != nil {
		resolver = f.opts.Resolver(entity)
	}
	values, err := validate(ctx, f.form, resolver)
	if err != nil {
		return zero, err
	}

	updated, failure, ok := f.opts.Update.Update(ctx, entity.GetID(), values).Get()
	if !ok {
		return zero, mapFailure(f.form, failure, f.log, "update")
	}
	if f.opts.OnSuccess != nil {
		if err := f.opts.OnSuccess(ctx, updated); err != nil {
			return updated, err
		}
	}
	f.SetEntity(updated)
	return updated, nil
}

// DeleteOptions configures a DeleteFlow.
type DeleteOptions[T crud.Entity[ID], ID comparable] struct {
	Delete    crud.Deletable[ID]
	OnSuccess SuccessFunc[T]
	Logger    logger.Logger
}

// DeleteFlow confirms the deletion of one entity. It has no fields; failures
// land on the root error.
type DeleteFlow[T crud.Entity[ID], ID comparable] struct {
	form *Form[struct{}]
	opts DeleteOptions[T, ID]
	log  logger.Logger
}

// NewDeleteFlow creates a DeleteFlow.
func NewDeleteFlow[T crud.Entity[ID], ID comparable](opts DeleteOptions[T, ID]) (*DeleteFlow[T, ID], error) {
	if opts.Delete == nil {
		return nil, crud.ErrNoCapability
	}
	return &DeleteFlow[T, ID]{
		form: New(struct{}{}),
		opts: opts,
		log:  logger.OrNop(opts.Logger),
	}, nil
}

// Form returns the confirmation form.
func (f *DeleteFlow[T, ID]) Form() *Form[struct{}] {
	return f.form
}

// Submit deletes entity.
func (f *DeleteFlow[T, ID]) Submit(ctx context.Context, entity T) error {
	if !f.form.beginSubmit() {
		return ErrSubmitInProgress
	}
	defer f.form.endSubmit()
	f.form.ClearErrors()

	if _, desc, ok := f.opts.Delete.Delete(ctx, entity.GetID()).Get(); !ok {
		return mapFailure(f.form, desc, f.log, "delete")
	}
	if f.opts.OnSuccess != nil {
		return f.opts.OnSuccess(ctx, entity)
	}
	return nil
}

// validate clears previous errors and runs the resolver. Resolver errors are
// set on the form and returned.
func validate[D any](ctx context.Context, form *Form[D], resolver Resolver[D]) (D, error) {
	form.ClearErrors()
	values := form.Values()
	if resolver == nil {
		return values, nil
	}
	if verrs := resolver.Resolve(ctx, values); len(verrs) > 0 {
		SetFormErrors(form, verrs)
		return values, verrs
	}
	return values, nil
}

// mapFailure sets failure on form and returns it as an error so callers
// still observe the failed submission.
func mapFailure(form ErrorSetter, failure problem.Failure, log logger.Logger, op string) error {
	if failure == nil {
		failure = problem.DefaultError
	}
	SetFormErrors(form, failure)
	log.Debug("form submission failed", "operation", op, "error", failure.Error())
	return failure
}
