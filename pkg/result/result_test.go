package result

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type codeError struct{ code int }

func (e codeError) Error() string { return "code error" }

func TestSucceedAndFail(t *testing.T) {
	ok := Succeed[int, string](7)
	if !ok.Success() || ok.Data() != 7 || ok.Err() != "" {
		t.Fatalf("unexpected success result: %v", ok)
	}

	bad := Fail[int]("boom")
	if bad.Success() || bad.Data() != 0 || bad.Err() != "boom" {
		t.Fatalf("unexpected failure result: %v", bad)
	}
}

func TestUnwrap_ErrorValueIsReturnedAsIs(t *testing.T) {
	want := codeError{code: 42}
	_, err := Unwrap(Fail[string](want))
	var got codeError
	if !errors.As(err, &got) || got != want {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestUnwrap_NonErrorValueIsWrapped(t *testing.T) {
	_, err := Unwrap(Fail[string]([]string{"a", "b"}))
	var fault *Fault[[]string]
	if !errors.As(err, &fault) {
		t.Fatalf("expected *Fault, got %T", err)
	}
	if len(fault.Value) != 2 {
		t.Errorf("expected wrapped value, got %v", fault.Value)
	}
	v, ok := FaultValue[[]string](err)
	if !ok || v[1] != "b" {
		t.Errorf("FaultValue() = %v, %v", v, ok)
	}
}

func TestMustUnwrap_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustUnwrap(Fail[int](codeError{code: 1}))
}

func TestAttempt(t *testing.T) {
	r := Attempt(func() (int, error) { return 0, errors.New("nope") }, func(err error) string { return err.Error() })
	if r.Success() || r.Err() != "nope" {
		t.Fatalf("unexpected attempt result %v", r)
	}
	r = Attempt(func() (int, error) { return 3, nil }, func(err error) string { return err.Error() })
	if !r.Success() || r.Data() != 3 {
		t.Fatalf("unexpected attempt result %v", r)
	}
}

// Property: Succeed then Unwrap returns the value; Fail then Unwrap yields a fault equal to the value.
func TestProperty_UnwrapRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("succeed then unwrap returns data", prop.ForAll(
		func(x string) bool {
			got, err := Unwrap(Succeed[string, codeError](x))
			return err == nil && got == x
		},
		gen.AnyString(),
	))

	properties.Property("fail then unwrap yields the failure value", prop.ForAll(
		func(code int) bool {
			_, err := Unwrap(Fail[string](codeError{code: code}))
			got, ok := FaultValue[codeError](err)
			return ok && got.code == code
		},
		gen.Int(),
	))

	properties.TestingRun(t)
}
