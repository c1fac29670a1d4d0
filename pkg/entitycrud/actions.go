package entitycrud

import (
	"context"

	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/dialog"
)

// Default action ids
const (
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Action is a per-row action. It is either a CallbackAction or a
// ComponentAction.
type Action[T crud.Entity[ID], ID comparable] interface {
	base() ActionBase[T]
}

// ActionBase holds what every action shares.
type ActionBase[T any] struct {
	ID string
	// Label is used unless LabelFunc is set
	Label     string
	LabelFunc func(entity T) string
	Icon      string
	// EnabledFunc gates the action per row; nil means always enabled
	EnabledFunc func(entity T) bool
}

// LabelFor returns the label shown for entity.
func (b ActionBase[T]) LabelFor(entity T) string {
	if b.LabelFunc != nil {
		return b.LabelFunc(entity)
	}
	return b.Label
}

// Enabled reports whether the action applies to entity.
func (b ActionBase[T]) Enabled(entity T) bool {
	return b.EnabledFunc == nil || b.EnabledFunc(entity)
}

// CallbackAction runs OnClick directly. The row shows a loading indicator
// while it runs unless HideLoading is set.
type CallbackAction[T crud.Entity[ID], ID comparable] struct {
	ActionBase[T]
	HideLoading bool
	OnClick     func(ctx context.Context, entity T, api EntityCrudApi[T, ID]) error
}

func (a CallbackAction[T, ID]) base() ActionBase[T] { return a.ActionBase }

// ActionProps is passed to a ComponentAction.
type ActionProps[T crud.Entity[ID], ID comparable] struct {
	Entity T
	API    EntityCrudApi[T, ID]
	Host   *dialog.Channel
}

// ComponentAction opens a secondary surface, typically through Host. Open
// returns once the surface is shown.
type ComponentAction[T crud.Entity[ID], ID comparable] struct {
	ActionBase[T]
	Open func(ctx context.Context, props ActionProps[T, ID]) error
}

func (a ComponentAction[T, ID]) base() ActionBase[T] { return a.ActionBase }

// ActionView is the render state of one action on one row.
type ActionView struct {
	ID      string
	Label   string
	Icon    string
	Enabled bool
	Loading bool
}
