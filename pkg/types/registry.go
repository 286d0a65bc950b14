package types

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownType is returned when a textual type name has no registration.
var ErrUnknownType = errors.New("unknown type")

// DecodeError reports a literal that does not fit its declared type.
type DecodeError struct {
	Type *Type
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s literal: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Registry maps stable textual names to type handles.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewRegistry returns a registry preloaded with the builtin scalar types.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]*Type)}
	for _, t := range []*Type{Float64, Float32, Int, Int64, Bool, Complex128, String} {
		r.types[t.GoType()] = t
	}
	r.types["path"] = PathType
	r.types["trigger"] = Trigger
	return r
}

// Register binds name to t, replacing any previous binding.
func (r *Registry) Register(name string, t *Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = t
}

// Lookup resolves a textual name. Names of the form "[]T" resolve to vectors of T.
func (r *Registry) Lookup(name string) (*Type, error) {
	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}
	if len(name) > 2 && name[:2] == "[]" {
		elem, err := r.Lookup(name[2:])
		if err != nil {
			return nil, err
		}
		return Vector(elem), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Names lists registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
