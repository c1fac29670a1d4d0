package form

import (
	"context"
	"errors"
	"testing"

	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/problem"
	"github.com/peluware/freddy/pkg/result"
)

type product struct {
	ID    int
	Name  string
	Price float64
}

func (p product) GetID() int { return p.ID }

func productDefaults() productDto {
	return productDto{Name: "", Price: 0}
}

func TestCreateFlow_ValidationFailureKeepsValues(t *testing.T) {
	create := crud.CreateFunc[product, productDto](func(context.Context, productDto) crud.WriteResult[product] {
		return result.Fail[product, problem.Failure](problem.ValidationErrors{
			{Field: "name", Messages: []string{"El nombre es obligatorio"}},
		})
	})
	succeeded := false
	flow, err := NewCreateFlow(CreateOptions[product, productDto]{
		Create:        create,
		DefaultValues: productDefaults,
		OnSuccess: func(context.Context, product) error {
			succeeded = true
			return nil
		},
	})
	if err != nil {
		t.Fatalf("NewCreateFlow: %v", err)
	}
	flow.Form().SetValues(productDto{Name: "xx", Price: 3})

	_, err = flow.Submit(context.Background())
	var verrs problem.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected the validation failure to be returned, got %v", err)
	}
	if fe, _ := flow.Form().Error("name"); fe.Message != "El nombre es obligatorio" {
		t.Errorf("unexpected name error %+v", fe)
	}
	if succeeded {
		t.Error("OnSuccess must not run on failure")
	}
	if flow.Form().Values().Name != "xx" {
		t.Error("values must be kept after a failed submission")
	}
	if flow.Form().IsSubmitting() {
		t.Error("submitting flag must be cleared")
	}
}

func TestCreateFlow_SuccessResets(t *testing.T) {
	var sent productDto
	create := crud.CreateFunc[product, productDto](func(_ context.Context, dto productDto) crud.WriteResult[product] {
		sent = dto
		return result.Succeed[product, problem.Failure](product{ID: 7, Name: dto.Name, Price: dto.Price})
	})
	var got product
	flow, _ := NewCreateFlow(CreateOptions[product, productDto]{
		Create:        create,
		DefaultValues: productDefaults,
		OnSuccess: func(_ context.Context, p product) error {
			got = p
			return nil
		},
	})
	flow.Form().SetValues(productDto{Name: "Arroz", Price: 1.25})

	created, err := flow.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sent.Name != "Arroz" || created.ID != 7 || got.ID != 7 {
		t.Errorf("unexpected round trip sent=%+v created=%+v got=%+v", sent, created, got)
	}
	if flow.Form().Values() != productDefaults() {
		t.Errorf("form must reset to defaults, got %+v", flow.Form().Values())
	}
}

func TestCreateFlow_ResolverBlocksSubmission(t *testing.T) {
	calls := 0
	create := crud.CreateFunc[product, productDto](func(context.Context, productDto) crud.WriteResult[product] {
		calls++
		return result.Succeed[product, problem.Failure](product{})
	})
	flow, _ := NewCreateFlow(CreateOptions[product, productDto]{
		Create:        create,
		Resolver:      NewStructResolver[productDto](Messages{"name:required": "El nombre es obligatorio"}),
		DefaultValues: productDefaults,
	})

	if _, err := flow.Submit(context.Background()); err == nil {
		t.Fatal("expected validation error")
	}
	if calls != 0 {
		t.Error("invalid values must not reach the server")
	}
	if fe, _ := flow.Form().Error("name"); fe.Message != "El nombre es obligatorio" {
		t.Errorf("unexpected name error %+v", fe)
	}
}

func TestCreateFlow_DescriptionSetsRootError(t *testing.T) {
	create := crud.CreateFunc[product, productDto](func(context.Context, productDto) crud.WriteResult[product] {
		return result.Fail[product, problem.Failure](problem.ErrorDescription{Title: "Error", Description: "Servicio no disponible"})
	})
	flow, _ := NewCreateFlow(CreateOptions[product, productDto]{Create: create})

	if _, err := flow.Submit(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if msg, _ := flow.Form().RootError(); msg != "Servicio no disponible" {
		t.Errorf("unexpected root error %q", msg)
	}
}

func TestNewFlows_RequireCapability(t *testing.T) {
	if _, err := NewCreateFlow(CreateOptions[product, productDto]{}); !errors.Is(err, crud.ErrNoCapability) {
		t.Errorf("create: expected ErrNoCapability, got %v", err)
	}
	if _, err := NewUpdateFlow(UpdateOptions[product, productDto, int]{}); !errors.Is(err, crud.ErrNoCapability) {
		t.Errorf("update: expected ErrNoCapability, got %v", err)
	}
	if _, err := NewDeleteFlow(DeleteOptions[product, int]{}); !errors.Is(err, crud.ErrNoCapability) {
		t.Errorf("delete: expected ErrNoCapability, got %v", err)
	}
}

func toDto(p product) productDto {
	return productDto{Name: p.Name, Price: p.Price}
}

func TestUpdateFlow_ReseedsFromServer(t *testing.T) {
	var gotID int
	update := crud.UpdateFunc[product, productDto, int](func(_ context.Context, id int, dto productDto) crud.WriteResult[product] {
		gotID = id
		return result.Succeed[product, problem.Failure](product{ID: id, Name: dto.Name + " (editado)", Price: dto.Price})
	})
	flow, err := NewUpdateFlow(UpdateOptions[product, productDto, int]{
		Update:        update,
		DefaultValues: toDto,
	})
	if err != nil {
		t.Fatalf("NewUpdateFlow: %v", err)
	}

	if _, err := flow.Submit(context.Background()); !errors.Is(err, ErrNoEntity) {
		t.Errorf("expected ErrNoEntity, got %v", err)
	}

	flow.SetEntity(product{ID: 3, Name: "Leche", Price: 1})
	if flow.Form().Values().Name != "Leche" {
		t.Fatalf("SetEntity must reseed the form, got %+v", flow.Form().Values())
	}
	flow.Form().Update(func(d *productDto) { d.Name = "Leche entera" })

	updated, err := flow.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gotID != 3 || updated.Name != "Leche entera (editado)" {
		t.Errorf("unexpected update id=%d entity=%+v", gotID, updated)
	}
	if flow.Form().Values().Name != "Leche entera (editado)" {
		t.Errorf("form must reseed from the server entity, got %+v", flow.Form().Values())
	}
	if e, _ := flow.Entity(); e.Name != updated.Name {
		t.Errorf("target entity must follow the update, got %+v", e)
	}
}

func TestUpdateFlow_FailureMapsFields(t *testing.T) {
	update := crud.UpdateFunc[product, productDto, int](func(context.Context, int, productDto) crud.WriteResult[product] {
		return result.Fail[product, problem.Failure](problem.ValidationErrors{
			{Field: "price", Messages: []string{"El precio no puede ser negativo"}},
		})
	})
	flow, _ := NewUpdateFlow(UpdateOptions[product, productDto, int]{Update: update, DefaultValues: toDto})
	flow.SetEntity(product{ID: 1, Name: "Pan", Price: 1})

	if _, err := flow.Submit(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	if fe, _ := flow.Form().Error("price"); fe.Message != "El precio no puede ser negativo" {
		t.Errorf("unexpected price error %+v", fe)
	}
}

func TestDeleteFlow(t *testing.T) {
	fail := false
	del := crud.DeleteFunc[int](func(_ context.Context, id int) crud.ReadResult[struct{}] {
		if fail {
			return result.Fail[struct{}](problem.ErrorDescription{Title: "Error", Description: "No se puede eliminar"})
		}
		return result.Succeed[struct{}, problem.ErrorDescription](struct{}{})
	})
	var deleted product
	flow, _ := NewDeleteFlow(DeleteOptions[product, int]{
		Delete: del,
		OnSuccess: func(_ context.Context, p product) error {
			deleted = p
			return nil
		},
	})

	if err := flow.Submit(context.Background(), product{ID: 4}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if deleted.ID != 4 {
		t.Errorf("OnSuccess must receive the deleted entity, got %+v", deleted)
	}

	fail = true
	err := flow.Submit(context.Background(), product{ID: 5})
	var desc problem.ErrorDescription
	if !errors.As(err, &desc) {
		t.Fatalf("expected description failure, got %v", err)
	}
	if msg, _ := flow.Form().RootError(); msg != "No se puede eliminar" {
		t.Errorf("unexpected root error %q", msg)
	}
}
