package crud

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/peluware/freddy/pkg/problem"
	"github.com/peluware/freddy/pkg/result"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (i item) GetID() int { return i.ID }

func TestPage_JSONShape(t *testing.T) {
	body := []byte(`{"content":[{"id":1,"name":"a"}],"page":{"size":10,"number":1,"totalPages":5,"totalElements":42}}`)
	var p Page[item]
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Page.Number != 1 || p.Page.TotalPages != 5 || p.Page.TotalElements != 42 {
		t.Errorf("unexpected details %+v", p.Page)
	}
	if !p.Page.HasNext() || !p.Page.HasPrevious() {
		t.Errorf("page 2 of 5 should have next and previous")
	}
	if len(p.Content) != 1 || p.Content[0].Name != "a" {
		t.Errorf("unexpected content %+v", p.Content)
	}
}

func TestReplaceByID(t *testing.T) {
	page := Page[item]{
		Content: []item{{1, "a"}, {2, "b"}, {3, "c"}},
		Page:    PageDetails{Size: 3, TotalPages: 1, TotalElements: 3},
	}

	got, found := ReplaceByID(page, item{2, "B"})
	if !found {
		t.Fatal("expected row 2 to match")
	}
	want := []item{{1, "a"}, {2, "B"}, {3, "c"}}
	if !reflect.DeepEqual(got.Content, want) {
		t.Errorf("content = %+v, want %+v", got.Content, want)
	}
	if got.Page != page.Page {
		t.Errorf("metadata changed: %+v", got.Page)
	}
	if page.Content[1].Name != "b" {
		t.Errorf("original page was mutated")
	}

	if _, found := ReplaceByID(page, item{9, "z"}); found {
		t.Errorf("unknown id must not match")
	}
}

func TestOperation_IsWrite(t *testing.T) {
	for _, op := range []Operation{OpCreate, OpUpdate, OpDelete} {
		if !op.IsWrite() {
			t.Errorf("%s should be a write", op)
		}
	}
	for _, op := range []Operation{OpPage, OpFind, OpCount, OpExist} {
		if op.IsWrite() {
			t.Errorf("%s should be a read", op)
		}
	}
}

func TestParseDirection(t *testing.T) {
	if ParseDirection("DESC") != Desc || ParseDirection("asc") != Asc || ParseDirection("") != Asc {
		t.Error("unexpected direction parsing")
	}
}

func TestFindFuncs_FindManyFallsBackToOne(t *testing.T) {
	f := FindFuncs[item, int]{
		One: func(_ context.Context, id int) ReadResult[item] {
			if id < 0 {
				return result.Fail[item](problem.NewErrorDescription("Error", "negativo"))
			}
			return result.Succeed[item, problem.ErrorDescription](item{ID: id})
		},
	}

	r := f.FindMany(context.Background(), []int{1, 2})
	if !r.Success() || len(r.Data()) != 2 {
		t.Fatalf("unexpected result %v", r)
	}

	r = f.FindMany(context.Background(), []int{1, -1})
	if r.Success() || r.Err().Description != "negativo" {
		t.Fatalf("expected failure, got %v", r)
	}
}

type pageOnly struct{ PageFunc[item] }

func TestPresencePredicates(t *testing.T) {
	var v any = pageOnly{PageFunc[item](func(context.Context, PageQuery) ReadResult[Page[item]] {
		return result.Succeed[Page[item], problem.ErrorDescription](EmptyPage[item]())
	})}

	p, ok := IsPageable[item](v)
	if !ok {
		t.Fatal("expected pageable")
	}
	if r := p.Page(context.Background(), PageQuery{}); !r.Success() || r.Data().Content == nil {
		t.Errorf("unexpected page result %v", r)
	}
	if _, ok := IsDeletable[int](v); ok {
		t.Error("page-only value must not be deletable")
	}
	if _, ok := IsReadOperations[item, int](v); ok {
		t.Error("page-only value must not satisfy ReadOperations")
	}

	var d any = DeleteFunc[int](func(context.Context, int) ReadResult[struct{}] {
		return result.Succeed[struct{}, problem.ErrorDescription](struct{}{})
	})
	if _, ok := IsDeletable[int](d); !ok {
		t.Error("delete func should be deletable")
	}
	if _, ok := IsDeletable[string](d); ok {
		t.Error("id type must match")
	}
}

// Property: replacing a row keeps length, order of ids and metadata.
func TestProperty_ReplaceByIDPreservesShape(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("replace keeps ids and metadata", prop.ForAll(
		func(n int, pick int, name string) bool {
			page := Page[item]{Page: PageDetails{Size: n, TotalElements: int64(n)}}
			for i := 0; i < n; i++ {
				page.Content = append(page.Content, item{ID: i, Name: "x"})
			}
			target := pick % n
			got, found := ReplaceByID(page, item{ID: target, Name: name})
			if !found || len(got.Content) != n || got.Page != page.Page {
				return false
			}
			for i, row := range got.Content {
				if row.ID != i {
					return false
				}
				if i == target && row.Name != name {
					return false
				}
				if i != target && row.Name != "x" {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.IntRange(0, 100),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
