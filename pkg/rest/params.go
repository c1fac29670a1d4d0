package rest

import (
	"net/url"
	"strconv"

	"github.com/peluware/freddy/pkg/crud"
)

// PageQueryBaseToParams encodes search and query, omitting empty values.
func PageQueryBaseToParams(q crud.PageQueryBase) url.Values {
	params := url.Values{}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Query != "" {
		params.Set("query", q.Query)
	}
	return params
}

// PageQueryToParams encodes a page query. Absent and zero page or size are
// omitted so the server applies its defaults; each sort becomes one
// "sort=property,direction" value in input order.
func PageQueryToParams(q crud.PageQuery) url.Values {
	params := PageQueryBaseToParams(q.PageQueryBase)
	if q.Page != nil && *q.Page != 0 {
		params.Set("page", strconv.Itoa(*q.Page))
	}
	if q.Size != nil && *q.Size != 0 {
		params.Set("size", strconv.Itoa(*q.Size))
	}
	for _, s := range q.Sorts {
		params.Add("sort", s.Property+","+string(s.Direction))
	}
	return params
}
