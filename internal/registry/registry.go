// Package registry declares the operation catalog and routes calls to
// handlers. One generic entry point plus a self-describing catalog instead
// of one endpoint per operation: callers send (action, params), and the
// reserved "describe" action renders documentation on demand.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/macbridge/internal/errs"
)

// Args is the parameter bag a handler receives after validation. The
// typed getters mirror the loose JSON the front-end decodes: numbers
// arrive as float64, everything else as its JSON type.
type Args map[string]any

// String returns the named parameter as a string, or def when absent.
func (a Args) String(name, def string) string {
	if v, ok := a[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return def
}

// Int returns the named parameter as an int, or def when absent or
// unconvertible.
func (a Args) Int(name string, def int) int {
	switch v := a[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// Bool returns the named parameter as a bool, or def when absent.
func (a Args) Bool(name string, def bool) bool {
	if v, ok := a[name].(bool); ok {
		return v
	}
	return def
}

// Param describes one operation parameter. Types are the semantic JSON
// types only; validation here is limited to required-presence — handlers
// own anything richer.
type Param struct {
	Name        string
	Type        string // "string", "number", or "boolean"
	Required    bool
	Default     any
	Description string
}

// HandlerFunc is a pure function of validated parameters. It returns a
// plain-text result or a taxonomy error; anything untyped is wrapped as
// Internal by the dispatcher.
type HandlerFunc func(ctx context.Context, args Args) (string, error)

// Operation is an immutable descriptor plus its handler. Descriptors are
// created once at process start from the static tables in internal/ops
// and never mutated.
type Operation struct {
	Name        string
	Family      string
	Description string
	Params      []Param
	Returns     string
	Example     string
	Handler     HandlerFunc
}

// Registry maps operation names to descriptors. It is written only during
// startup registration and read-only afterwards, so dispatch needs no lock.
type Registry struct {
	ops   map[string]*Operation
	order []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{ops: make(map[string]*Operation)}
}

// Register adds an operation. Duplicate names are a programming error and
// panic at startup rather than shadowing silently.
func (r *Registry) Register(op Operation) {
	if _, exists := r.ops[op.Name]; exists {
		panic("registry: duplicate operation " + op.Name)
	}
	o := op
	r.ops[op.Name] = &o
	r.order = append(r.order, op.Name)
}

// Names returns every registered operation name in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Operations returns every descriptor in registration order.
func (r *Registry) Operations() []*Operation {
	out := make([]*Operation, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.ops[name])
	}
	return out
}

// Dispatch routes one call. "describe" renders the catalog (or a single
// operation's documentation when params carries an "operation" name);
// anything else validates required parameters, injects defaults, and
// invokes the handler.
func (r *Registry) Dispatch(ctx context.Context, action string, params map[string]any) (string, error) {
	if action == "describe" {
		return r.describe(Args(params).String("operation", ""))
	}

	op, ok := r.ops[action]
	if !ok {
		return "", errs.UnknownOperationf(action, r.order)
	}

	args := make(Args, len(params))
	for k, v := range params {
		args[k] = v
	}
	for _, p := range op.Params {
		if _, present := args[p.Name]; present {
			continue
		}
		if p.Required {
			return "", errs.Validationf("operation %s requires parameter %q (%s): %s", op.Name, p.Name, p.Type, p.Description)
		}
		if p.Default != nil {
			args[p.Name] = p.Default
		}
	}

	result, err := op.Handler(ctx, args)
	if err != nil {
		return "", errs.From(err)
	}
	return result, nil
}

// describe renders the grouped catalog, or one operation's full
// documentation when name is non-empty.
func (r *Registry) describe(name string) (string, error) {
	if name != "" {
		op, ok := r.ops[name]
		if !ok {
			return "", errs.UnknownOperationf(name, r.order)
		}
		return renderOperation(op), nil
	}
	return r.renderCatalog(), nil
}

func (r *Registry) renderCatalog() string {
	families := make(map[string][]*Operation)
	var order []string
	for _, name := range r.order {
		op := r.ops[name]
		if _, seen := families[op.Family]; !seen {
			order = append(order, op.Family)
		}
		families[op.Family] = append(families[op.Family], op)
	}

	var sb strings.Builder
	sb.WriteString("Available operations (call describe with operation=<name> for full docs):\n")
	for _, family := range order {
		fmt.Fprintf(&sb, "\n[%s]\n", family)
		for _, op := range families[family] {
			fmt.Fprintf(&sb, "  %-24s %s\n", op.Name, op.Description)
		}
	}
	return sb.String()
}

func renderOperation(op *Operation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s — %s\n\n", op.Name, op.Description)

	if len(op.Params) == 0 {
		sb.WriteString("Parameters: none\n")
	} else {
		sb.WriteString("Parameters:\n")
		for _, p := range op.Params {
			req := "optional"
			if p.Required {
				req = "required"
			}
			fmt.Fprintf(&sb, "  %s (%s, %s)", p.Name, p.Type, req)
			if p.Default != nil {
				fmt.Fprintf(&sb, " [default: %v]", p.Default)
			}
			if p.Description != "" {
				fmt.Fprintf(&sb, " — %s", p.Description)
			}
			sb.WriteString("\n")
		}
	}

	if op.Returns != "" {
		fmt.Fprintf(&sb, "\nReturns: %s\n", op.Returns)
	}
	if op.Example != "" {
		fmt.Fprintf(&sb, "\nExample:\n  %s\n", op.Example)
	}
	return sb.String()
}
