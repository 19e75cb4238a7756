package adapter

import (
	"slices"
	"strings"

	"payment-switch/internal/model"
)

// Registry holds the enabled methods, keyed by lower-cased kind.
// Methods disabled in config are never registered, so lookup doubles as the
// capability check.
type Registry struct {
	methods map[model.MethodKind]Method
}

// NewRegistry creates a registry from methods. Nil methods are skipped and a
// later method replaces an earlier one of the same kind.
func NewRegistry(methods ...Method) *Registry {
	r := &Registry{methods: map[model.MethodKind]Method{}}
	for _, m := range methods {
		if m == nil {
			continue
		}
		kind := model.MethodKind(strings.ToLower(strings.TrimSpace(string(m.Kind()))))
		if kind == "" {
			continue
		}
		r.methods[kind] = m
	}
	return r
}

// Get looks up a method by name. Aliases accepted by model.ParseMethodKind work.
func (r *Registry) Get(name string) (Method, bool) {
	if r == nil {
		return nil, false
	}
	kind, ok := model.ParseMethodKind(name)
	if !ok {
		kind = model.MethodKind(strings.ToLower(strings.TrimSpace(name)))
	}
	m, ok := r.methods[kind]
	return m, ok
}

// Kinds returns the registered kinds in display order.
func (r *Registry) Kinds() []model.MethodKind {
	if r == nil {
		return nil
	}
	kinds := make([]model.MethodKind, 0, len(r.methods))
	for k := range r.methods {
		kinds = append(kinds, k)
	}
	slices.SortFunc(kinds, func(a, b model.MethodKind) int {
		if d := displayRank(a) - displayRank(b); d != 0 {
			return d
		}
		return strings.Compare(string(a), string(b))
	})
	return kinds
}

// displayRank orders known kinds first, unknown kinds after.
func displayRank(k model.MethodKind) int {
	if i := slices.Index(model.MethodKinds, k); i >= 0 {
		return i
	}
	return len(model.MethodKinds)
}
