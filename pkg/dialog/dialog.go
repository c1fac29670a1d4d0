// Package dialog carries alert and surface requests from flows to a single
// rendering controller. Each request holds its own completion.
package dialog

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/peluware/freddy/pkg/observability/logger"
)

// DefaultCapacity is the queue size used when none is given.
const DefaultCapacity = 16

var (
	// ErrQueueFull is returned when the pending request queue is full.
	ErrQueueFull = errors.New("dialog queue is full")
	// ErrChannelClosed is returned for requests sent after Close.
	ErrChannelClosed = errors.New("dialog channel closed")
)

// Type selects the look and default buttons of an alert.
type Type string

// Alert types
const (
	TypeSuccess  Type = "success"
	TypeInfo     Type = "info"
	TypeWarning  Type = "warning"
	TypeError    Type = "error"
	TypeQuestion Type = "question"
)

// Action is a button of an alert.
type Action string

// Alert actions
const (
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
)

// Callback runs when its button is pressed. The returned value becomes the
// outcome value; an error fails the request.
type Callback func(ctx context.Context) (any, error)

// AlertOptions describes an alert. Nil buttons take the defaults of Type.
type AlertOptions struct {
	Type          Type
	Title         string
	Description   string
	ConfirmButton *bool
	CancelButton  *bool
	OnConfirm     Callback
	OnCancel      Callback
}

// ShowConfirm reports whether the confirm button is shown.
func (o AlertOptions) ShowConfirm() bool {
	if o.ConfirmButton != nil {
		return *o.ConfirmButton
	}
	return true
}

// ShowCancel reports whether the cancel button is shown. Only questions show
// it by default.
func (o AlertOptions) ShowCancel() bool {
	if o.CancelButton != nil {
		return *o.CancelButton
	}
	return o.Type == TypeQuestion
}

// ConfirmLabel is the confirm button text.
func (o AlertOptions) ConfirmLabel() string {
	if o.Type == TypeQuestion {
		return "Aceptar"
	}
	return "Ok"
}

// CancelLabel is the cancel button text.
func (o AlertOptions) CancelLabel() string {
	return "Cancelar"
}

// Outcome is how an alert was answered.
type Outcome struct {
	Confirmed bool
	Value     any
}

// Surface is a secondary screen such as a create or edit form.
type Surface struct {
	Kind    string
	Title   string
	Payload any
}

// Request is one pending alert or surface.
type Request struct {
	ID      string
	Alert   *AlertOptions
	Surface *Surface

	mu      sync.Mutex
	done    chan struct{}
	outcome Outcome
	err     error
	loading map[Action]bool
}

func newRequest() *Request {
	return &Request{
		ID:      uuid.NewString(),
		done:    make(chan struct{}),
		loading: make(map[Action]bool),
	}
}

// Done is closed once the request completes.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Result returns the outcome once Done is closed.
func (r *Request) Result() (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome, r.err
}

// Completed reports whether the request has completed.
func (r *Request) Completed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Loading reports whether the callback of action is running.
func (r *Request) Loading(action Action) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading[action]
}

// Resolve answers an alert with action, running its callback first. Surfaces
// complete with Confirmed set for ActionConfirm.
func (r *Request) Resolve(ctx context.Context, action Action) error {
	var cb Callback
	if r.Alert != nil {
		if action == ActionConfirm {
			cb = r.Alert.OnConfirm
		} else {
			cb = r.Alert.OnCancel
		}
	}
	confirmed := action == ActionConfirm
	if cb == nil {
		r.finish(Outcome{Confirmed: confirmed}, nil)
		return nil
	}

	r.setLoading(action, true)
	value, err := cb(ctx)
	r.setLoading(action, false)
	if err != nil {
		r.finish(Outcome{}, err)
		return err
	}
	r.finish(Outcome{Confirmed: confirmed, Value: value}, nil)
	return nil
}

// Reject fails the request.
func (r *Request) Reject(err error) {
	r.finish(Outcome{}, err)
}

// Close completes the request without confirmation.
func (r *Request) Close() {
	r.finish(Outcome{}, nil)
}

func (r *Request) setLoading(action Action, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading[action] = on
}

func (r *Request) finish(outcome Outcome, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.done:
		return
	default:
	}
	r.outcome = outcome
	r.err = err
	close(r.done)
}

// Handle controls an open surface.
type Handle struct {
	req *Request
}

// ID returns the request id.
func (h *Handle) ID() string {
	return h.req.ID
}

// Done is closed once the surface closes.
func (h *Handle) Done() <-chan struct{} {
	return h.req.Done()
}

// Close closes the surface.
func (h *Handle) Close() {
	h.req.Close()
}

// Closed reports whether the surface is closed.
func (h *Handle) Closed() bool {
	return h.req.Completed()
}

// Wait blocks until the surface closes or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-h.req.Done():
		return h.req.Result()
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Channel is a bounded queue of requests consumed by one controller.
type Channel struct {
	queue chan *Request
	log   logger.Logger

	mu     sync.RWMutex
	closed bool
}

// NewChannel creates a Channel holding up to capacity pending requests.
func NewChannel(capacity int, log logger.Logger) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		queue: make(chan *Request, capacity),
		log:   logger.OrNop(log),
	}
}

// Requests is consumed by the rendering controller.
func (c *Channel) Requests() <-chan *Request {
	return c.queue
}

// Close stops accepting requests and closes the request stream.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.queue)
}

func (c *Channel) send(req *Request) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrChannelClosed
	}
	select {
	case c.queue <- req:
		return nil
	default:
		c.log.Warn("dialog queue full, dropping request", "id", req.ID)
		return ErrQueueFull
	}
}

// Alert shows an alert and blocks until it is answered or ctx is done.
func (c *Channel) Alert(ctx context.Context, opts AlertOptions) (Outcome, error) {
	if opts.Type == "" {
		opts.Type = TypeInfo
	}
	req := newRequest()
	req.Alert = &opts
	if err := c.send(req); err != nil {
		return Outcome{}, err
	}
	c.log.Debug("alert requested", "id", req.ID, "type", string(opts.Type))

	select {
	case <-req.Done():
		return req.Result()
	case <-ctx.Done():
		req.Reject(ctx.Err())
		return Outcome{}, ctx.Err()
	}
}

// Success shows a success alert.
func (c *Channel) Success(ctx context.Context, title, description string) (Outcome, error) {
	return c.Alert(ctx, AlertOptions{Type: TypeSuccess, Title: title, Description: description})
}

// Info shows an info alert.
func (c *Channel) Info(ctx context.Context, title, description string) (Outcome, error) {
	return c.Alert(ctx, AlertOptions{Type: TypeInfo, Title: title, Description: description})
}

// Warning shows a warning alert.
func (c *Channel) Warning(ctx context.Context, title, description string) (Outcome, error) {
	return c.Alert(ctx, AlertOptions{Type: TypeWarning, Title: title, Description: description})
}

// Error shows an error alert.
func (c *Channel) Error(ctx context.Context, title, description string) (Outcome, error) {
	return c.Alert(ctx, AlertOptions{Type: TypeError, Title: title, Description: description})
}

// Question asks for confirmation.
func (c *Channel) Question(ctx context.Context, title, description string) (Outcome, error) {
	return c.Alert(ctx, AlertOptions{Type: TypeQuestion, Title: title, Description: description})
}

// Open queues a surface and returns its handle without waiting.
func (c *Channel) Open(_ context.Context, surface Surface) (*Handle, error) {
	req := newRequest()
	req.Surface = &surface
	if err := c.send(req); err != nil {
		return nil, err
	}
	c.log.Debug("surface requested", "id", req.ID, "kind", surface.Kind)
	return &Handle{req: req}, nil
}

// Serve passes requests to render until ctx is done or the channel closes.
// Requests already completed, such as alerts whose caller gave up, are
// skipped. A render error rejects its request.
func (c *Channel) Serve(ctx context.Context, render func(context.Context, *Request) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-c.queue:
			if !ok {
				return nil
			}
			if req.Completed() {
				continue
			}
			if err := render(ctx, req); err != nil {
				c.log.Warn("dialog render failed", "id", req.ID, "error", err)
				req.Reject(err)
			}
		}
	}
}
