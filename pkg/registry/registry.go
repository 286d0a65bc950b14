package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/actgraph/pkg/node"
)

// ErrUnknownKind is returned when no constructor is registered under a kind name.
var ErrUnknownKind = errors.New("unknown node kind")

// Constructor builds a node from its literal construction arguments.
type Constructor func(args map[string]any) (node.Node, error)

// Registry manages the available node kinds.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]entry
}

type entry struct {
	ctor Constructor
	doc  string
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]entry),
	}
}

// Register adds a node kind to the registry.
// If a kind with the same name exists, it is overwritten.
func (r *Registry) Register(kind, doc string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = entry{ctor: ctor, doc: doc}
}

// New looks up a kind by name and constructs a node instance.
// Returns an error if the kind is not found or rejects its arguments.
func (r *Registry) New(kind string, args map[string]any) (node.Node, error) {
	r.mu.RLock()
	e, ok := r.kinds[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	n, err := e.ctor(args)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", kind, err)
	}
	return n, nil
}

// Names returns the registered kinds in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Description summarises a kind: its documentation and the ports of a default instance.
type Description struct {
	Kind    string
	Doc     string
	Inputs  []string
	Outputs []string
}

// Describe constructs a default instance of kind to report its ports.
func (r *Registry) Describe(kind string) (Description, error) {
	r.mu.RLock()
	e, ok := r.kinds[kind]
	r.mu.RUnlock()
	if !ok {
		return Description{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	n, err := e.ctor(nil)
	if err != nil {
		return Description{Kind: kind, Doc: e.doc}, nil
	}
	return Description{Kind: kind, Doc: e.doc, Inputs: n.Inputs(), Outputs: n.Outputs()}, nil
}

// DecodeArgs decodes construction arguments into target, rejecting unknown keys.
func DecodeArgs(args map[string]any, target any) error {
	if len(args) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
