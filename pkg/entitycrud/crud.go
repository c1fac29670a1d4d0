package entitycrud

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/dialog"
	"github.com/peluware/freddy/pkg/form"
	"github.com/peluware/freddy/pkg/observability/logger"
	"github.com/peluware/freddy/pkg/table"
)

var (
	// ErrDisabled is returned when an operation is not enabled for the entity.
	ErrDisabled = errors.New("operation disabled")
	// ErrUnknownAction is returned by RunAction for an unknown action id.
	ErrUnknownAction = errors.New("unknown action")
	// ErrActionRunning is returned when a callback action already runs on the row.
	ErrActionRunning = errors.New("action already running for entity")
)

// Surface kinds opened through the dialog host.
const (
	SurfaceCreate = "create"
	SurfaceUpdate = "update"
	SurfaceDelete = "delete"
)

// CreateConfig enables the create flow.
type CreateConfig[T, D any] struct {
	Create crud.Creatable[T, D]
	// Enabled defaults to true
	Enabled       func() bool
	Resolver      form.Resolver[D]
	DefaultValues func() D
	OnSuccess     form.SuccessFunc[T]
}

// UpdateConfig enables the update flow and the default "Actualizar" action.
type UpdateConfig[T crud.Entity[ID], D any, ID comparable] struct {
	Update        crud.Updatable[T, D, ID]
	Enabled       func(entity T) bool
	Resolver      func(entity T) form.Resolver[D]
	DefaultValues func(entity T) D
	OnSuccess     form.SuccessFunc[T]
}

// DeleteConfig enables the delete flow and the default "Eliminar" action.
type DeleteConfig[T crud.Entity[ID], ID comparable] struct {
	Delete    crud.Deletable[ID]
	Enabled   func(entity T) bool
	OnSuccess form.SuccessFunc[T]
}

// Options configures a Crud.
type Options[T crud.Entity[ID], D any, ID comparable] struct {
	Read   table.Options[T, ID]
	Create *CreateConfig[T, D]
	Update *UpdateConfig[T, D, ID]
	Delete *DeleteConfig[T, ID]
	// Actions are appended after the default update and delete actions
	Actions  []Action[T, ID]
	Notifier Notifier
	// Host shows surfaces; without one surfaces are headless
	Host   *dialog.Channel
	Logger logger.Logger
}

// Crud is one CRUD screen: a table plus its create, update and delete flows
// and row actions.
type Crud[T crud.Entity[ID], D any, ID comparable] struct {
	engine   *table.Engine[T, ID]
	api      EntityCrudApi[T, ID]
	create   *CreateConfig[T, D]
	update   *UpdateConfig[T, D, ID]
	remove   *DeleteConfig[T, ID]
	actions  []Action[T, ID]
	notifier Notifier
	host     *dialog.Channel
	log      logger.Logger

	mu      sync.Mutex
	running map[ID]string
}

// New creates a Crud. Call Start to load the table.
func New[T crud.Entity[ID], D any, ID comparable](opts Options[T, D, ID]) (*Crud[T, D, ID], error) {
	if opts.Create != nil && opts.Create.Create == nil {
		return nil, fmt.Errorf("create config: %w", crud.ErrNoCapability)
	}
	if opts.Update != nil && (opts.Update.Update == nil || opts.Update.DefaultValues == nil) {
		return nil, fmt.Errorf("update config: %w", crud.ErrNoCapability)
	}
	if opts.Delete != nil && opts.Delete.Delete == nil {
		return nil, fmt.Errorf("delete config: %w", crud.ErrNoCapability)
	}

	log := logger.OrNop(opts.Logger)
	if opts.Read.Logger == nil {
		opts.Read.Logger = log
	}
	engine, err := table.New(opts.Read)
	if err != nil {
		return nil, err
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}

	c := &Crud[T, D, ID]{
		engine:   engine,
		api:      engineAPI[T, ID]{engine: engine},
		create:   opts.Create,
		update:   opts.Update,
		remove:   opts.Delete,
		notifier: notifier,
		host:     opts.Host,
		log:      log,
		running:  make(map[ID]string),
	}
	c.actions = append(c.defaultActions(), opts.Actions...)

	seen := make(map[string]bool, len(c.actions))
	for _, a := range c.actions {
		id := a.base().ID
		if id == "" || seen[id] {
			engine.Close()
			return nil, fmt.Errorf("invalid or duplicate action id %q", id)
		}
		seen[id] = true
	}
	return c, nil
}

func (c *Crud[T, D, ID]) defaultActions() []Action[T, ID] {
	var out []Action[T, ID]
	if c.update != nil {
		out = append(out, ComponentAction[T, ID]{
			ActionBase: ActionBase[T]{ID: ActionUpdate, Label: "Actualizar", Icon: "edit", EnabledFunc: c.update.Enabled},
			Open: func(ctx context.Context, props ActionProps[T, ID]) error {
				_, err := c.OpenUpdate(ctx, props.Entity)
				return err
			},
		})
	}
	if c.remove != nil {
		out = append(out, ComponentAction[T, ID]{
			ActionBase: ActionBase[T]{ID: ActionDelete, Label: "Eliminar", Icon: "trash", EnabledFunc: c.remove.Enabled},
			Open: func(ctx context.Context, props ActionProps[T, ID]) error {
				_, err := c.OpenDelete(ctx, props.Entity)
				return err
			},
		})
	}
	return out
}

// Start loads the table.
func (c *Crud[T, D, ID]) Start() {
	c.engine.Start()
}

// Close stops the table.
func (c *Crud[T, D, ID]) Close() {
	c.engine.Close()
}

// Table returns the table engine.
func (c *Crud[T, D, ID]) Table() *table.Engine[T, ID] {
	return c.engine
}

// API returns the table API handed to forms and actions.
func (c *Crud[T, D, ID]) API() EntityCrudApi[T, ID] {
	return c.api
}

// CanCreate reports whether the create flow is available.
func (c *Crud[T, D, ID]) CanCreate() bool {
	return c.create != nil && (c.create.Enabled == nil || c.create.Enabled())
}

// Actions returns every configured action.
func (c *Crud[T, D, ID]) Actions() []Action[T, ID] {
	return append([]Action[T, ID](nil), c.actions...)
}

// RowActions returns the render state of every action for entity.
func (c *Crud[T, D, ID]) RowActions(entity T) []ActionView {
	c.mu.Lock()
	running, isRunning := c.running[entity.GetID()]
	c.mu.Unlock()

	views := make([]ActionView, 0, len(c.actions))
	for _, a := range c.actions {
		b := a.base()
		view := ActionView{
			ID:      b.ID,
			Label:   b.LabelFor(entity),
			Icon:    b.Icon,
			Enabled: b.Enabled(entity),
		}
		if cb, ok := a.(CallbackAction[T, ID]); ok && !cb.HideLoading {
			view.Loading = isRunning && running == b.ID
		}
		views = append(views, view)
	}
	return views
}

// RunAction runs the action with id on entity.
func (c *Crud[T, D, ID]) RunAction(ctx context.Context, id string, entity T) error {
	var action Action[T, ID]
	for _, a := range c.actions {
		if a.base().ID == id {
			action = a
			break
		}
	}
	if action == nil {
		return fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
	if !action.base().Enabled(entity) {
		return fmt.Errorf("action %s: %w", id, ErrDisabled)
	}

	switch a := action.(type) {
	case CallbackAction[T, ID]:
		return c.runCallback(ctx, a, entity)
	case ComponentAction[T, ID]:
		return a.Open(ctx, ActionProps[T, ID]{Entity: entity, API: c.api, Host: c.host})
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
}

func (c *Crud[T, D, ID]) runCallback(ctx context.Context, a CallbackAction[T, ID], entity T) error {
	rowID := entity.GetID()
	c.mu.Lock()
	if _, busy := c.running[rowID]; busy {
		c.mu.Unlock()
		return ErrActionRunning
	}
	c.running[rowID] = a.ID
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.running, rowID)
		c.mu.Unlock()
	}()

	if err := a.OnClick(ctx, entity, c.api); err != nil {
		c.log.Warn("row action failed", "action", a.ID, "id", rowID, "error", err)
		return err
	}
	return nil
}

// session tracks the surface a flow is shown in. The renderer may submit
// before Open returns, so the handle is guarded by mu.
type session struct {
	mu     sync.Mutex
	handle *dialog.Handle
	closed bool
}

func (s *session) close() {
	s.mu.Lock()
	s.closed = true
	h := s.handle
	s.mu.Unlock()
	if h != nil {
		h.Close()
	}
}

// attach records the handle of the opened surface. A session closed before
// its surface was attached closes the surface at once.
func (s *session) attach(h *dialog.Handle) {
	s.mu.Lock()
	s.handle = h
	closed := s.closed
	s.mu.Unlock()
	if closed {
		h.Close()
	}
}

// Closed reports whether the surface was closed.
func (s *session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	return s.handle != nil && s.handle.Closed()
}

// Close dismisses the surface without submitting.
func (s *session) Close() {
	s.close()
}

// Handle returns the dialog handle, nil when there is no host.
func (s *session) Handle() *dialog.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

func (c *Crud[T, D, ID]) open(ctx context.Context, s *session, surface dialog.Surface) error {
	if c.host == nil {
		return nil
	}
	h, err := c.host.Open(ctx, surface)
	if err != nil {
		return err
	}
	s.attach(h)
	return nil
}

// CreateSession is an open create surface.
type CreateSession[T, D any] struct {
	*session
	flow *form.CreateFlow[T, D]
}

// Form returns the create form.
func (s *CreateSession[T, D]) Form() *form.Form[D] {
	return s.flow.Form()
}

// Submit creates the entity. Failures stay on the form and the surface
// stays open.
func (s *CreateSession[T, D]) Submit(ctx context.Context) (T, error) {
	return s.flow.Submit(ctx)
}

// OpenCreate opens the create surface.
func (c *Crud[T, D, ID]) OpenCreate(ctx context.Context) (*CreateSession[T, D], error) {
	if !c.CanCreate() {
		return nil, fmt.Errorf("create: %w", ErrDisabled)
	}
	cfg := c.create
	s := &CreateSession[T, D]{session: &session{}}
	flow, err := form.NewCreateFlow(form.CreateOptions[T, D]{
		Create:        cfg.Create,
		Resolver:      cfg.Resolver,
		DefaultValues: cfg.DefaultValues,
		Logger:        c.log,
		OnSuccess: func(ctx context.Context, entity T) error {
			if cfg.OnSuccess != nil {
				if err := cfg.OnSuccess(ctx, entity); err != nil {
					return err
				}
			}
			s.close()
			c.notifier.Notify(ctx, Toast{Level: LevelSuccess, Title: "Registro creado", Description: "El registro se ha creado correctamente"})
			return c.engine.RefreshTable(ctx)
		},
	})
	if err != nil {
		return nil, err
	}
	s.flow = flow
	err = c.open(ctx, s.session, dialog.Surface{
		Kind:    SurfaceCreate,
		Title:   "Crear nuevo registro",
		Payload: s,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateSession is an open update surface for one entity.
type UpdateSession[T crud.Entity[ID], D any, ID comparable] struct {
	*session
	flow *form.UpdateFlow[T, D, ID]
}

// Form returns the update form.
func (s *UpdateSession[T, D, ID]) Form() *form.Form[D] {
	return s.flow.Form()
}

// Entity returns the entity being edited.
func (s *UpdateSession[T, D, ID]) Entity() T {
	e, _ := s.flow.Entity()
	return e
}

// Submit updates the entity.
func (s *UpdateSession[T, D, ID]) Submit(ctx context.Context) (T, error) {
	return s.flow.Submit(ctx)
}

// OpenUpdate opens the update surface for entity.
func (c *Crud[T, D, ID]) OpenUpdate(ctx context.Context, entity T) (*UpdateSession[T, D, ID], error) {
	cfg := c.update
	if cfg == nil || (cfg.Enabled != nil && !cfg.Enabled(entity)) {
		return nil, fmt.Errorf("update: %w", ErrDisabled)
	}
	s := &UpdateSession[T, D, ID]{session: &session{}}
	flow, err := form.NewUpdateFlow(form.UpdateOptions[T, D, ID]{
		Update:        cfg.Update,
		Resolver:      cfg.Resolver,
		DefaultValues: cfg.DefaultValues,
		Logger:        c.log,
		OnSuccess: func(ctx context.Context, updated T) error {
			if cfg.OnSuccess != nil {
				if err := cfg.OnSuccess(ctx, updated); err != nil {
					return err
				}
			}
			s.close()
			if _, err := c.api.ReplaceEntity(ctx, updated); err != nil {
				c.log.Warn("failed to replace updated entity", "id", updated.GetID(), "error", err)
			}
			c.notifier.Notify(ctx, Toast{Level: LevelSuccess, Title: "Registro actualizado", Description: "El registro se ha actualizado correctamente"})
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	flow.SetEntity(entity)
	s.flow = flow
	err = c.open(ctx, s.session, dialog.Surface{
		Kind:    SurfaceUpdate,
		Title:   "Actualizar registro",
		Payload: s,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DeleteSession is an open delete confirmation for one entity.
type DeleteSession[T crud.Entity[ID], ID comparable] struct {
	*session
	flow   *form.DeleteFlow[T, ID]
	entity T
}

// Form returns the confirmation form holding the root error.
func (s *DeleteSession[T, ID]) Form() *form.Form[struct{}] {
	return s.flow.Form()
}

// Entity returns the entity to delete.
func (s *DeleteSession[T, ID]) Entity() T {
	return s.entity
}

// Submit confirms the deletion.
func (s *DeleteSession[T, ID]) Submit(ctx context.Context) error {
	return s.flow.Submit(ctx, s.entity)
}

// OpenDelete opens the delete confirmation for entity.
func (c *Crud[T, D, ID]) OpenDelete(ctx context.Context, entity T) (*DeleteSession[T, ID], error) {
	cfg := c.remove
	if cfg == nil || (cfg.Enabled != nil && !cfg.Enabled(entity)) {
		return nil, fmt.Errorf("delete: %w", ErrDisabled)
	}
	s := &DeleteSession[T, ID]{session: &session{}, entity: entity}
	flow, err := form.NewDeleteFlow(form.DeleteOptions[T, ID]{
		Delete: cfg.Delete,
		Logger: c.log,
		OnSuccess: func(ctx context.Context, deleted T) error {
			if cfg.OnSuccess != nil {
				if err := cfg.OnSuccess(ctx, deleted); err != nil {
					return err
				}
			}
			s.close()
			c.notifier.Notify(ctx, Toast{Level: LevelSuccess, Title: "Registro eliminado", Description: "El registro se ha eliminado correctamente"})
			return c.engine.RefreshTable(ctx)
		},
	})
	if err != nil {
		return nil, err
	}
	s.flow = flow
	err = c.open(ctx, s.session, dialog.Surface{
		Kind:    SurfaceDelete,
		Title:   "Eliminar registro",
		Payload: s,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
