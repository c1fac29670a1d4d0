package products

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/entitycrud"
	"github.com/peluware/freddy/pkg/rest"
	"github.com/peluware/freddy/pkg/table"
)

// fakeBackend serves /api/products like the products service.
type fakeBackend struct {
	mu      sync.Mutex
	items   map[int64]Product
	nextID  int64
	queries []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		items: map[int64]Product{
			1: {ID: 1, Name: "Laptop", Price: 899.99, Description: "Laptop de 14 pulgadas", Stock: 4},
			2: {ID: 2, Name: "Mouse", Price: 12.5, Description: "Mouse inalambrico", Stock: 40},
		},
		nextID: 3,
	}
}

func (f *fakeBackend) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	sub := strings.TrimPrefix(r.URL.Path, "/api/products")
	id, _ := strconv.ParseInt(strings.TrimPrefix(sub, "/"), 10, 64)
	switch {
	case r.Method == http.MethodGet && sub == "":
		f.queries = append(f.queries, r.URL.Query().Get("query"))
		ids := make([]int64, 0, len(f.items))
		for id := range f.items {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		content := make([]Product, 0, len(ids))
		for _, id := range ids {
			content = append(content, f.items[id])
		}
		_ = json.NewEncoder(w).Encode(crud.Page[Product]{
			Content: content,
			Page:    crud.PageDetails{Size: 10, Number: 0, TotalPages: 1, TotalElements: int64(len(content))},
		})
	case r.Method == http.MethodGet:
		p, ok := f.items[id]
		if !ok {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"title":"No encontrado","detail":"Producto no encontrado"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(p)
	case r.Method == http.MethodPost:
		var dto ProductDto
		_ = json.NewDecoder(r.Body).Decode(&dto)
		p := Product{ID: f.nextID, Name: dto.Name, Price: dto.Price, Description: dto.Description, Stock: dto.Stock}
		f.items[p.ID] = p
		f.nextID++
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(p)
	case r.Method == http.MethodPut:
		var dto ProductDto
		_ = json.NewDecoder(r.Body).Decode(&dto)
		p := Product{ID: id, Name: dto.Name, Price: dto.Price, Description: dto.Description, Stock: dto.Stock}
		f.items[id] = p
		_ = json.NewEncoder(w).Encode(p)
	case r.Method == http.MethodDelete:
		delete(f.items, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newService(t *testing.T, backend http.Handler) Service {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	c, err := rest.NewClient(rest.Config{BaseURL: srv.URL + "/api"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return NewService(c)
}

func newCrud(t *testing.T, svc Service) (*entitycrud.Crud[Product, ProductDto, int64], *entitycrud.RecordingNotifier) {
	t.Helper()
	notifier := &entitycrud.RecordingNotifier{}
	opts := CrudOptions(svc, Settings{})
	opts.Notifier = notifier
	c, err := entitycrud.New(opts)
	if err != nil {
		t.Fatalf("entitycrud.New() error = %v", err)
	}
	t.Cleanup(c.Close)
	c.Start()
	c.Table().Wait()
	return c, notifier
}

func TestResolver_Messages(t *testing.T) {
	verrs := NewResolver().Resolve(context.Background(), ProductDto{
		Name:        "ab",
		Price:       1.234,
		Description: "corta",
		Stock:       -1,
	})
	got := map[string]string{}
	for _, v := range verrs {
		got[v.Field] = strings.Join(v.Messages, ", ")
	}
	want := map[string]string{
		"name":        "El nombre debe tener al menos 3 caracteres",
		"price":       "El precio debe tener como máximo 2 decimales",
		"description": "La descripción debe tener al menos 10 caracteres",
		"stock":       "El stock no puede ser negativo",
	}
	for field, msg := range want {
		if got[field] != msg {
			t.Errorf("field %s: got %q, want %q", field, got[field], msg)
		}
	}
	if len(got) != len(want) {
		t.Errorf("unexpected fields: %v", got)
	}
}

func TestResolver_AcceptsValidProduct(t *testing.T) {
	verrs := NewResolver().Resolve(context.Background(), ProductDto{
		Name:        "Teclado",
		Price:       25.5,
		Description: "Teclado mecánico en español",
		Stock:       0,
	})
	if len(verrs) != 0 {
		t.Errorf("expected no errors, got %v", verrs)
	}
}

func TestHasAtMostTwoDecimals(t *testing.T) {
	tests := []struct {
		in   float64
		want bool
	}{
		{0, true},
		{10, true},
		{10.5, true},
		{19.99, true},
		{0.1 + 0.2, true},
		{1.234, false},
		{0.001, false},
	}
	for _, tt := range tests {
		if got := hasAtMostTwoDecimals(tt.in); got != tt.want {
			t.Errorf("hasAtMostTwoDecimals(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestColumns(t *testing.T) {
	cols := Columns()
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}
	if strings.Join(headers, "|") != "Nombre|Precio|Descripción|Stock" {
		t.Errorf("unexpected headers %v", headers)
	}

	cells := table.Cells(cols, Product{Name: "Mouse", Price: 1234.5, Description: "Mouse", Stock: 7})
	if cells[0] != "Mouse" || cells[3] != "7" {
		t.Errorf("unexpected cells %v", cells)
	}
	if !strings.HasPrefix(cells[1], "$") || !strings.HasSuffix(cells[1], "50") {
		t.Errorf("unexpected price cell %q", cells[1])
	}
}

func TestValuesOf(t *testing.T) {
	p := Product{ID: 9, Name: "Monitor", Price: 150, Description: "Monitor de 24 pulgadas", Stock: 3}
	dto := ValuesOf(p)
	if dto.Name != p.Name || dto.Price != p.Price || dto.Description != p.Description || dto.Stock != p.Stock {
		t.Errorf("ValuesOf() = %+v", dto)
	}
	if DefaultValues() != (ProductDto{}) {
		t.Errorf("expected empty defaults, got %+v", DefaultValues())
	}
}

func TestCrud_CreateProduct(t *testing.T) {
	backend := newFakeBackend()
	c, notifier := newCrud(t, newService(t, backend))

	if got := len(c.Table().Snapshot().Entities); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}

	s, err := c.OpenCreate(context.Background())
	if err != nil {
		t.Fatalf("OpenCreate() error = %v", err)
	}
	s.Form().SetValues(ProductDto{Name: "Te"})
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected validation failure")
	}
	if fe, ok := s.Form().Error("name"); !ok || fe.Message != "El nombre debe tener al menos 3 caracteres" {
		t.Errorf("unexpected name error %+v", fe)
	}
	if s.Closed() {
		t.Error("surface must stay open after a validation failure")
	}

	s.Form().SetValues(ProductDto{Name: "Teclado", Price: 25, Description: "Teclado mecánico", Stock: 5})
	created, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if created.ID != 3 {
		t.Errorf("expected id 3, got %d", created.ID)
	}
	if !s.Closed() {
		t.Error("surface must close after success")
	}
	c.Table().Wait()
	if got := len(c.Table().Snapshot().Entities); got != 3 {
		t.Errorf("expected refreshed table with 3 rows, got %d", got)
	}
	toasts := notifier.Toasts()
	if len(toasts) != 1 || toasts[0].Title != "Registro creado" {
		t.Errorf("unexpected toasts %+v", toasts)
	}
}

func TestCrud_ColumnFilterSendsRSQL(t *testing.T) {
	backend := newFakeBackend()
	c, _ := newCrud(t, newService(t, backend))

	if !c.Table().SetColumnFilter("name", "lap") {
		t.Fatal("name column must accept filters")
	}
	c.Table().Wait()
	if got := backend.lastQuery(); got != `name=="*lap*"` {
		t.Errorf("unexpected query %q", got)
	}
	if c.Table().SetColumnFilter("price", "1") {
		t.Error("price column must not accept filters")
	}
}

func TestCrud_ReloadAction(t *testing.T) {
	backend := newFakeBackend()
	c, _ := newCrud(t, newService(t, backend))

	backend.mu.Lock()
	backend.items[1] = Product{ID: 1, Name: "Laptop Pro", Price: 999, Description: "Laptop de 16 pulgadas", Stock: 2}
	backend.mu.Unlock()

	row := c.Table().Snapshot().Entities[0]
	if err := c.RunAction(context.Background(), ActionReload, row); err != nil {
		t.Fatalf("RunAction() error = %v", err)
	}
	if got := c.Table().Snapshot().Entities[0].Name; got != "Laptop Pro" {
		t.Errorf("expected reloaded row, got %q", got)
	}

	views := c.RowActions(row)
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	if strings.Join(ids, ",") != "update,delete,reload" {
		t.Errorf("unexpected row actions %v", ids)
	}
}

func TestCrud_UpdateAndDelete(t *testing.T) {
	backend := newFakeBackend()
	c, notifier := newCrud(t, newService(t, backend))
	ctx := context.Background()

	row := c.Table().Snapshot().Entities[1]
	us, err := c.OpenUpdate(ctx, row)
	if err != nil {
		t.Fatalf("OpenUpdate() error = %v", err)
	}
	if us.Form().Values().Name != "Mouse" {
		t.Errorf("update form must start from the entity, got %+v", us.Form().Values())
	}
	us.Form().Update(func(d *ProductDto) { d.Stock = 39 })
	if _, err := us.Submit(ctx); err != nil {
		t.Fatalf("update Submit() error = %v", err)
	}
	if got := c.Table().Snapshot().Entities[1].Stock; got != 39 {
		t.Errorf("expected replaced row stock 39, got %d", got)
	}

	ds, err := c.OpenDelete(ctx, row)
	if err != nil {
		t.Fatalf("OpenDelete() error = %v", err)
	}
	if err := ds.Submit(ctx); err != nil {
		t.Fatalf("delete Submit() error = %v", err)
	}
	c.Table().Wait()
	if got := len(c.Table().Snapshot().Entities); got != 1 {
		t.Errorf("expected 1 row after delete, got %d", got)
	}

	var titles []string
	for _, toast := range notifier.Toasts() {
		titles = append(titles, toast.Title)
	}
	if strings.Join(titles, ",") != "Registro actualizado,Registro eliminado" {
		t.Errorf("unexpected toasts %v", titles)
	}
}
