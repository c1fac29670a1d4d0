// Package entitycrud composes a table engine with create, update and delete
// flows and per-row actions into one CRUD screen.
package entitycrud

import (
	"context"

	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/table"
)

// EntityCrudApi is the only surface custom forms and row actions get to act
// on the table.
type EntityCrudApi[T crud.Entity[ID], ID comparable] interface {
	// Entities returns the rows currently displayed.
	Entities() []T
	// ReplaceEntity swaps one displayed row without refetching.
	ReplaceEntity(ctx context.Context, entity T) (bool, error)
	// RefreshEntity reloads one row from the server.
	RefreshEntity(ctx context.Context, id ID) (T, error)
	// RefreshTable reloads the current page.
	RefreshTable(ctx context.Context) error
}

type engineAPI[T crud.Entity[ID], ID comparable] struct {
	engine *table.Engine[T, ID]
}

func (a engineAPI[T, ID]) Entities() []T {
	return a.engine.Snapshot().Entities
}

func (a engineAPI[T, ID]) ReplaceEntity(ctx context.Context, entity T) (bool, error) {
	return a.engine.ReplaceEntity(ctx, entity)
}

func (a engineAPI[T, ID]) RefreshEntity(ctx context.Context, id ID) (T, error) {
	return a.engine.RefreshEntity(ctx, id)
}

func (a engineAPI[T, ID]) RefreshTable(ctx context.Context) error {
	return a.engine.RefreshTable(ctx)
}
