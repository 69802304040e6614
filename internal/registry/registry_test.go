package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/HendryAvila/macbridge/internal/errs"
)

func newTestRegistry() *Registry {
	r := New()
	r.Register(Operation{
		Name:        "notes_create",
		Family:      "notes",
		Description: "Create a note",
		Params: []Param{
			{Name: "title", Type: "string", Required: true, Description: "note title"},
			{Name: "folder", Type: "string", Default: "Claude"},
		},
		Handler: func(_ context.Context, args Args) (string, error) {
			return "created " + args.String("title", "") + " in " + args.String("folder", ""), nil
		},
	})
	r.Register(Operation{
		Name:        "notes_list",
		Family:      "notes",
		Description: "List notes",
		Handler: func(context.Context, Args) (string, error) {
			return "a|b", nil
		},
	})
	r.Register(Operation{
		Name:        "system_status",
		Family:      "system",
		Description: "Status",
		Handler: func(context.Context, Args) (string, error) {
			return "ok", nil
		},
	})
	return r
}

func TestDispatch_UnknownOperation(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Dispatch(context.Background(), "bogus", nil)
	if !errs.IsKind(err, errs.UnknownOperation) {
		t.Fatalf("err = %v, want UnknownOperation", err)
	}
	for _, name := range []string{"notes_create", "notes_list", "system_status"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q should list %s", err, name)
		}
	}
}

func TestDispatch_MissingRequiredParam(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Dispatch(context.Background(), "notes_create", map[string]any{})
	if !errs.IsKind(err, errs.Validation) {
		t.Fatalf("err = %v, want Validation", err)
	}
	if !strings.Contains(err.Error(), "title") {
		t.Errorf("error %q should name the missing parameter", err)
	}
}

func TestDispatch_InjectsDefaults(t *testing.T) {
	r := newTestRegistry()
	out, err := r.Dispatch(context.Background(), "notes_create", map[string]any{"title": "x"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out != "created x in Claude" {
		t.Errorf("out = %q, default folder not injected", out)
	}
}

func TestDispatch_CallerOverridesDefault(t *testing.T) {
	r := newTestRegistry()
	out, _ := r.Dispatch(context.Background(), "notes_create",
		map[string]any{"title": "x", "folder": "Work"})
	if out != "created x in Work" {
		t.Errorf("out = %q", out)
	}
}

func TestDispatch_TypedErrorPassesThrough(t *testing.T) {
	r := New()
	r.Register(Operation{
		Name:   "fail_typed",
		Family: "test",
		Handler: func(context.Context, Args) (string, error) {
			return "", errs.NotFoundf("the thing")
		},
	})
	_, err := r.Dispatch(context.Background(), "fail_typed", nil)
	if !errs.IsKind(err, errs.NotFound) {
		t.Errorf("err = %v, want NotFound to pass through unchanged", err)
	}
}

func TestDispatch_UntypedErrorWrappedAsInternal(t *testing.T) {
	r := New()
	r.Register(Operation{
		Name:   "fail_raw",
		Family: "test",
		Handler: func(context.Context, Args) (string, error) {
			return "", errors.New("panic-adjacent")
		},
	})
	_, err := r.Dispatch(context.Background(), "fail_raw", nil)
	if !errs.IsKind(err, errs.Internal) {
		t.Errorf("err = %v, want Internal wrap", err)
	}
}

func TestDescribe_CatalogListsEveryOperationOnce(t *testing.T) {
	r := newTestRegistry()
	out, err := r.Dispatch(context.Background(), "describe", nil)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if out == "" {
		t.Fatal("catalog is empty")
	}
	for _, name := range r.Names() {
		if got := strings.Count(out, name); got != 1 {
			t.Errorf("catalog mentions %s %d times, want exactly once", name, got)
		}
	}
	// Grouped by family.
	if !strings.Contains(out, "[notes]") || !strings.Contains(out, "[system]") {
		t.Errorf("catalog missing family headers:\n%s", out)
	}
}

func TestDescribe_SingleOperation(t *testing.T) {
	r := newTestRegistry()
	out, err := r.Dispatch(context.Background(), "describe",
		map[string]any{"operation": "notes_create"})
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	for _, want := range []string{"notes_create", "title", "required", "folder", "Claude"} {
		if !strings.Contains(out, want) {
			t.Errorf("doc missing %q:\n%s", want, out)
		}
	}
}

func TestDescribe_UnknownOperation(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Dispatch(context.Background(), "describe",
		map[string]any{"operation": "bogus"})
	if !errs.IsKind(err, errs.UnknownOperation) {
		t.Errorf("err = %v, want UnknownOperation", err)
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	r := newTestRegistry()
	defer func() {
		if recover() == nil {
			t.Error("duplicate registration should panic")
		}
	}()
	r.Register(Operation{Name: "notes_list", Family: "notes"})
}

func TestArgs_Getters(t *testing.T) {
	a := Args{"s": "text", "n": float64(7), "b": true, "i": 3}
	if a.String("s", "") != "text" {
		t.Error("String")
	}
	if a.String("missing", "dflt") != "dflt" {
		t.Error("String default")
	}
	if a.Int("n", 0) != 7 {
		t.Error("Int from float64")
	}
	if a.Int("i", 0) != 3 {
		t.Error("Int from int")
	}
	if a.Int("missing", 9) != 9 {
		t.Error("Int default")
	}
	if !a.Bool("b", false) {
		t.Error("Bool")
	}
	if a.Bool("missing", true) != true {
		t.Error("Bool default")
	}
}
