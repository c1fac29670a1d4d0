// Package crud defines the remote CRUD capability contracts and the page/query
// shapes they exchange.
package crud

import (
	"errors"
	"strings"
)

// ErrNoCapability is returned when an operation is requested from a resource
// that was not composed with the matching capability.
var ErrNoCapability = errors.New("capability not configured")

// Entity is any record identified by a comparable id.
type Entity[ID comparable] interface {
	GetID() ID
}

// Page is one bounded slice of a remote collection.
type Page[T any] struct {
	Content []T         `json:"content"`
	Page    PageDetails `json:"page"`
}

// PageDetails describes the full remote collection, not just Content.
type PageDetails struct {
	Size          int   `json:"size"`
	Number        int   `json:"number"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
}

// EmptyPage returns a page with no content and zeroed metadata.
func EmptyPage[T any]() Page[T] {
	return Page[T]{Content: []T{}}
}

// HasNext reports whether a page follows this one.
func (d PageDetails) HasNext() bool {
	return d.Number+1 < d.TotalPages
}

// HasPrevious reports whether a page precedes this one.
func (d PageDetails) HasPrevious() bool {
	return d.Number > 0
}

// Direction is a sort direction.
type Direction string

// Sort directions
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts asc/desc in any case and defaults to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// Sort orders results by one property. Multiple sorts are applied in order.
type Sort struct {
	Property  string    `json:"property"`
	Direction Direction `json:"direction"`
}

// PageQueryBase is the filter shared by paging and counting.
type PageQueryBase struct {
	Search string `json:"search,omitempty"`
	Query  string `json:"query,omitempty"`
}

// PageQuery requests one page. Nil Page or Size leaves the choice to the server.
type PageQuery struct {
	PageQueryBase
	Page  *int   `json:"page,omitempty"`
	Size  *int   `json:"size,omitempty"`
	Sorts []Sort `json:"sorts,omitempty"`
}

// Int returns a pointer to v, for building PageQuery literals.
func Int(v int) *int {
	return &v
}

// ReplaceByID returns a copy of page whose row with the same id as entity is
// replaced. Row order and page metadata are unchanged. The second return value
// reports whether a row matched.
func ReplaceByID[T Entity[ID], ID comparable](page Page[T], entity T) (Page[T], bool) {
	content := make([]T, len(page.Content))
	copy(content, page.Content)
	found := false
	id := entity.GetID()
	for i, row := range content {
		if row.GetID() == id {
			content[i] = entity
			found = true
		}
	}
	return Page[T]{Content: content, Page: page.Page}, found
}

// Operation identifies the kind of remote call.
type Operation string

// Operation kinds
const (
	OpPage   Operation = "page"
	OpFind   Operation = "find"
	OpCount  Operation = "count"
	OpExist  Operation = "exist"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// IsWrite reports whether the operation may surface field validation errors.
func (o Operation) IsWrite() bool {
	return o == OpCreate || o == OpUpdate || o == OpDelete
}
