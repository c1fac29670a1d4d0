package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/problem"
	"github.com/peluware/freddy/pkg/result"
)

// EntityConverter turns one response item into the domain entity, e.g. to
// parse server timestamps.
type EntityConverter[T any] func(raw json.RawMessage) (T, error)

// DTOConverter turns a DTO into its wire representation.
type DTOConverter[D any] func(dto D) (any, error)

// DecodeJSON is the default EntityConverter.
func DecodeJSON[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

// ReadConfig binds read capabilities to a resource path.
type ReadConfig[T any] struct {
	// Path is relative to the client base URL, e.g. "/products"
	Path string
	// Name labels spans and metrics; defaults to Path without slashes
	Name    string
	Entity  EntityConverter[T]
	Request RequestConfig
}

// CrudConfig binds read and write capabilities to a resource path.
type CrudConfig[T, D any] struct {
	ReadConfig[T]
	DTO DTOConverter[D]
}

type core[T any] struct {
	client  *Client
	path    string
	name    string
	entity  EntityConverter[T]
	request RequestConfig
}

func newCore[T any](c *Client, cfg ReadConfig[T]) core[T] {
	path := "/" + strings.Trim(cfg.Path, "/")
	name := cfg.Name
	if name == "" {
		name = strings.ReplaceAll(strings.Trim(cfg.Path, "/"), "/", ".")
	}
	entity := cfg.Entity
	if entity == nil {
		entity = DecodeJSON[T]
	}
	return core[T]{client: c, path: path, name: name, entity: entity, request: cfg.Request}
}

func (r core[T]) req(op crud.Operation, method, sub string, query url.Values, body any) request {
	return request{
		resource: r.name,
		op:       op,
		method:   method,
		path:     r.path + sub,
		query:    query,
		body:     body,
		config:   r.request,
	}
}

func (r core[T]) entities(raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		e, err := r.entity(raw)
		if err != nil {
			return nil, fmt.Errorf("convert %s item %d: %w", r.name, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func idPath[ID comparable](id ID) string {
	return "/" + url.PathEscape(fmt.Sprint(id))
}

// get performs a read and decodes the body with decode. Every failure becomes
// an ErrorDescription.
func get[T, V any](ctx context.Context, r core[T], op crud.Operation, sub string, query url.Values, decode func(json.RawMessage) (V, error)) crud.ReadResult[V] {
	raw, err := r.client.do(ctx, r.req(op, http.MethodGet, sub, query, nil))
	if err == nil {
		var v V
		if v, err = decode(raw); err == nil {
			return result.Succeed[V, problem.ErrorDescription](v)
		}
	}
	return result.Fail[V](r.client.parser.ParseError(err))
}

// send performs a write. Failures may carry per-field validation errors.
func send[T, D any](ctx context.Context, r core[T], conv DTOConverter[D], op crud.Operation, method, sub string, dto D) crud.WriteResult[T] {
	var body any = dto
	if conv != nil {
		var err error
		if body, err = conv(dto); err != nil {
			return result.Fail[T](r.client.parser.ParseErrorOrValidationErrors(err))
		}
	}
	raw, err := r.client.do(ctx, r.req(op, method, sub, nil, body))
	if err == nil {
		var e T
		if e, err = r.entity(raw); err == nil {
			return result.Succeed[T, problem.Failure](e)
		}
	}
	return result.Fail[T](r.client.parser.ParseErrorOrValidationErrors(err))
}

type pageable[T any] struct{ core[T] }

func (p pageable[T]) Page(ctx context.Context, query crud.PageQuery) crud.ReadResult[crud.Page[T]] {
	return get(ctx, p.core, crud.OpPage, "", PageQueryToParams(query), func(raw json.RawMessage) (crud.Page[T], error) {
		var wire crud.Page[json.RawMessage]
		if err := json.Unmarshal(raw, &wire); err != nil {
			return crud.Page[T]{}, err
		}
		content, err := p.entities(wire.Content)
		if err != nil {
			return crud.Page[T]{}, err
		}
		return crud.Page[T]{Content: content, Page: wire.Page}, nil
	})
}

type findable[T any, ID comparable] struct{ core[T] }

func (f findable[T, ID]) Find(ctx context.Context, id ID) crud.ReadResult[T] {
	return get(ctx, f.core, crud.OpFind, idPath(id), nil, f.entity)
}

func (f findable[T, ID]) FindMany(ctx context.Context, ids []ID) crud.ReadResult[[]T] {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	query := url.Values{"ids": {strings.Join(parts, ",")}}
	return get(ctx, f.core, crud.OpFind, "/ids", query, func(raw json.RawMessage) ([]T, error) {
		var wire []json.RawMessage
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, err
		}
		return f.entities(wire)
	})
}

type countable[T any] struct{ core[T] }

func (c countable[T]) Count(ctx context.Context, filter crud.PageQueryBase) crud.ReadResult[int64] {
	return get(ctx, c.core, crud.OpCount, "/count", PageQueryBaseToParams(filter), DecodeJSON[int64])
}

type existable[T any, ID comparable] struct{ core[T] }

func (e existable[T, ID]) Exist(ctx context.Context, id ID) crud.ReadResult[bool] {
	return get(ctx, e.core, crud.OpExist, "/exist"+idPath(id), nil, DecodeJSON[bool])
}

type creatable[T, D any] struct {
	core[T]
	dto DTOConverter[D]
}

func (c creatable[T, D]) Create(ctx context.Context, dto D) crud.WriteResult[T] {
	return send(ctx, c.core, c.dto, crud.OpCreate, http.MethodPost, "", dto)
}

type updatable[T, D any, ID comparable] struct {
	core[T]
	dto DTOConverter[D]
}

func (u updatable[T, D, ID]) Update(ctx context.Context, id ID, dto D) crud.WriteResult[T] {
	return send(ctx, u.core, u.dto, crud.OpUpdate, http.MethodPut, idPath(id), dto)
}

type deletable[T any, ID comparable] struct{ core[T] }

func (d deletable[T, ID]) Delete(ctx context.Context, id ID) crud.ReadResult[struct{}] {
	_, err := d.client.do(ctx, d.req(crud.OpDelete, http.MethodDelete, idPath(id), nil, nil))
	if err != nil {
		return result.Fail[struct{}](d.client.parser.ParseError(err))
	}
	return result.Succeed[struct{}, problem.ErrorDescription](struct{}{})
}

type readOperations[T any, ID comparable] struct {
	pageable[T]
	findable[T, ID]
	countable[T]
	existable[T, ID]
}

type writeOperations[T, D any, ID comparable] struct {
	creatable[T, D]
	updatable[T, D, ID]
	deletable[T, ID]
}

type crudOperations[T, D any, ID comparable] struct {
	readOperations[T, ID]
	writeOperations[T, D, ID]
}

// NewPageable binds Pageable to a resource. The returned value implements no
// other capability.
func NewPageable[T any](c *Client, cfg ReadConfig[T]) crud.Pageable[T] {
	return pageable[T]{newCore(c, cfg)}
}

// NewFindable binds Findable to a resource.
func NewFindable[ID comparable, T any](c *Client, cfg ReadConfig[T]) crud.Findable[T, ID] {
	return findable[T, ID]{newCore(c, cfg)}
}

// NewCountable binds Countable to a resource.
func NewCountable[T any](c *Client, cfg ReadConfig[T]) crud.Countable {
	return countable[T]{newCore(c, cfg)}
}

// NewExistable binds Existable to a resource.
func NewExistable[ID comparable, T any](c *Client, cfg ReadConfig[T]) crud.Existable[ID] {
	return existable[T, ID]{newCore(c, cfg)}
}

// NewCreatable binds Creatable to a resource.
func NewCreatable[T, D any](c *Client, cfg CrudConfig[T, D]) crud.Creatable[T, D] {
	return creatable[T, D]{newCore(c, cfg.ReadConfig), cfg.DTO}
}

// NewUpdatable binds Updatable to a resource.
func NewUpdatable[ID comparable, T, D any](c *Client, cfg CrudConfig[T, D]) crud.Updatable[T, D, ID] {
	return updatable[T, D, ID]{newCore(c, cfg.ReadConfig), cfg.DTO}
}

// NewDeletable binds Deletable to a resource.
func NewDeletable[ID comparable, T any](c *Client, cfg ReadConfig[T]) crud.Deletable[ID] {
	return deletable[T, ID]{newCore(c, cfg)}
}

// NewRead binds every read capability to a resource.
func NewRead[ID comparable, T any](c *Client, cfg ReadConfig[T]) crud.ReadOperations[T, ID] {
	r := newCore(c, cfg)
	return readOperations[T, ID]{pageable[T]{r}, findable[T, ID]{r}, countable[T]{r}, existable[T, ID]{r}}
}

// NewWrite binds every write capability to a resource.
func NewWrite[ID comparable, T, D any](c *Client, cfg CrudConfig[T, D]) crud.WriteOperations[T, D, ID] {
	return newWrite[ID](newCore(c, cfg.ReadConfig), cfg.DTO)
}

func newWrite[ID comparable, T, D any](r core[T], dto DTOConverter[D]) writeOperations[T, D, ID] {
	return writeOperations[T, D, ID]{creatable[T, D]{r, dto}, updatable[T, D, ID]{r, dto}, deletable[T, ID]{r}}
}

// NewCrud binds every capability to a resource.
func NewCrud[ID comparable, T, D any](c *Client, cfg CrudConfig[T, D]) crud.CrudOperations[T, D, ID] {
	r := newCore(c, cfg.ReadConfig)
	return crudOperations[T, D, ID]{
		readOperations[T, ID]{pageable[T]{r}, findable[T, ID]{r}, countable[T]{r}, existable[T, ID]{r}},
		newWrite[ID](r, cfg.DTO),
	}
}
