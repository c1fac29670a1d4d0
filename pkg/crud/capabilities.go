package crud

import (
	"context"

	"github.com/peluware/freddy/pkg/problem"
	"github.com/peluware/freddy/pkg/result"
)

// ReadResult is the result of a read operation.
type ReadResult[T any] = result.Result[T, problem.ErrorDescription]

// WriteResult is the result of create and update.
type WriteResult[T any] = result.Result[T, problem.Failure]

// Findable loads entities by id.
type Findable[T any, ID comparable] interface {
	Find(ctx context.Context, id ID) ReadResult[T]
	FindMany(ctx context.Context, ids []ID) ReadResult[[]T]
}

// Pageable loads one page of entities.
type Pageable[T any] interface {
	Page(ctx context.Context, query PageQuery) ReadResult[Page[T]]
}

// Countable counts entities matching a filter.
type Countable interface {
	Count(ctx context.Context, filter PageQueryBase) ReadResult[int64]
}

// Existable checks whether an id exists.
type Existable[ID comparable] interface {
	Exist(ctx context.Context, id ID) ReadResult[bool]
}

// Creatable creates an entity from a DTO.
type Creatable[T, D any] interface {
	Create(ctx context.Context, dto D) WriteResult[T]
}

// Updatable replaces the entity with the given id.
type Updatable[T, D any, ID comparable] interface {
	Update(ctx context.Context, id ID, dto D) WriteResult[T]
}

// Deletable removes the entity with the given id.
type Deletable[ID comparable] interface {
	Delete(ctx context.Context, id ID) ReadResult[struct{}]
}

// ReadOperations combines every read capability.
type ReadOperations[T any, ID comparable] interface {
	Findable[T, ID]
	Pageable[T]
	Countable
	Existable[ID]
}

// WriteOperations combines every write capability.
type WriteOperations[T, D any, ID comparable] interface {
	Creatable[T, D]
	Updatable[T, D, ID]
	Deletable[ID]
}

// CrudOperations combines read and write capabilities.
type CrudOperations[T, D any, ID comparable] interface {
	ReadOperations[T, ID]
	WriteOperations[T, D, ID]
}

// PageFunc adapts a function to Pageable.
type PageFunc[T any] func(ctx context.Context, query PageQuery) ReadResult[Page[T]]

// Page calls f.
func (f PageFunc[T]) Page(ctx context.Context, query PageQuery) ReadResult[Page[T]] {
	return f(ctx, query)
}

// FindFuncs adapts a pair of functions to Findable. A nil Many falls back to
// calling One for each id.
type FindFuncs[T any, ID comparable] struct {
	One  func(ctx context.Context, id ID) ReadResult[T]
	Many func(ctx context.Context, ids []ID) ReadResult[[]T]
}

// Find calls One.
func (f FindFuncs[T, ID]) Find(ctx context.Context, id ID) ReadResult[T] {
	return f.One(ctx, id)
}

// FindMany calls Many, or One per id.
func (f FindFuncs[T, ID]) FindMany(ctx context.Context, ids []ID) ReadResult[[]T] {
	if f.Many != nil {
		return f.Many(ctx, ids)
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		r := f.One(ctx, id)
		if !r.Success() {
			return result.Fail[[]T](r.Err())
		}
		out = append(out, r.Data())
	}
	return result.Succeed[[]T, problem.ErrorDescription](out)
}

// CountFunc adapts a function to Countable.
type CountFunc func(ctx context.Context, filter PageQueryBase) ReadResult[int64]

// Count calls f.
func (f CountFunc) Count(ctx context.Context, filter PageQueryBase) ReadResult[int64] {
	return f(ctx, filter)
}

// ExistFunc adapts a function to Existable.
type ExistFunc[ID comparable] func(ctx context.Context, id ID) ReadResult[bool]

// Exist calls f.
func (f ExistFunc[ID]) Exist(ctx context.Context, id ID) ReadResult[bool] {
	return f(ctx, id)
}

// CreateFunc adapts a function to Creatable.
type CreateFunc[T, D any] func(ctx context.Context, dto D) WriteResult[T]

// Create calls f.
func (f CreateFunc[T, D]) Create(ctx context.Context, dto D) WriteResult[T] {
	return f(ctx, dto)
}

// UpdateFunc adapts a function to Updatable.
type UpdateFunc[T, D any, ID comparable] func(ctx context.Context, id ID, dto D) WriteResult[T]

// Update calls f.
func (f UpdateFunc[T, D, ID]) Update(ctx context.Context, id ID, dto D) WriteResult[T] {
	return f(ctx, id, dto)
}

// DeleteFunc adapts a function to Deletable.
type DeleteFunc[ID comparable] func(ctx context.Context, id ID) ReadResult[struct{}]

// Delete calls f.
func (f DeleteFunc[ID]) Delete(ctx context.Context, id ID) ReadResult[struct{}] {
	return f(ctx, id)
}
