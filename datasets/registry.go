package datasets

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/Noofbiz/datapipe/logger"
	"github.com/Noofbiz/datapipe/metrics"
)

// ErrNotFound is returned by Create when no dataset type is registered under
// the configured type name.
var ErrNotFound = errors.New("dataset type not found")

// Factory builds a dataset from its full configuration mapping.
type Factory func(opts Options) (Dataset, error)

// Registry maps dataset type names to factories. Entries are only ever
// added; the first registration of a name is final.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	log       logger.Logger
	metrics   metrics.Recorder
}

// NewRegistry returns an empty registry. A nil log or rec discards output.
func NewRegistry(log logger.Logger, rec metrics.Recorder) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		log:       logger.OrNop(log),
		metrics:   metrics.OrNop(rec),
	}
}

// Register adds f under typ. It panics when typ is empty, f is nil or typ is
// already taken, since a second definition of a type would otherwise be
// silently shadowed.
func (r *Registry) Register(typ string, f Factory) {
	if typ == "" {
		panic("datasets: Register with empty type name")
	}
	if f == nil {
		panic("datasets: Register factory is nil for " + typ)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[typ]; dup {
		panic("datasets: Register called twice for " + typ)
	}
	r.factories[typ] = f
}

// SetRecorder replaces the metrics recorder.
func (r *Registry) SetRecorder(rec metrics.Recorder) {
	r.mu.Lock()
	r.metrics = metrics.OrNop(rec)
	r.mu.Unlock()
}

// Lookup returns the factory registered under typ.
func (r *Registry) Lookup(typ string) (Factory, bool) {
	r.mu.RLock()
	f, ok := r.factories[typ]
	r.mu.RUnlock()
	return f, ok
}

// Types lists the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for typ := range r.factories {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// Create builds the dataset named by opts["type"], passing it the whole
// mapping. Nothing is constructed when the type is unknown.
func (r *Registry) Create(opts Options) (Dataset, error) {
	typ := opts.Type()
	if typ == "" {
		return nil, fmt.Errorf("dataset options: missing type: %w", ErrNotFound)
	}
	f, ok := r.Lookup(typ)
	if !ok {
		return nil, fmt.Errorf("dataset %s is not found: %w", typ, ErrNotFound)
	}
	name := opts.Name()
	if name == "" {
		return nil, fmt.Errorf("dataset options for %s: missing name", typ)
	}

	ds, err := f(opts)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	log, rec := r.log, r.metrics
	r.mu.RUnlock()
	rec.DatasetCreated(typ)
	log.Infof("Dataset %s - %s is created.", TypeName(ds), name)
	return ds, nil
}

// TypeName returns the concrete type name of ds without package or pointer
// decoration.
func TypeName(ds Dataset) string {
	t := reflect.TypeOf(ds)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

var defaultRegistry = NewRegistry(logger.New("datasets"), nil)

// Default returns the process-wide registry the built-in types register in.
func Default() *Registry { return defaultRegistry }

// Register adds f to the default registry.
func Register(typ string, f Factory) { defaultRegistry.Register(typ, f) }

// Create builds a dataset from the default registry.
func Create(opts Options) (Dataset, error) { return defaultRegistry.Create(opts) }

// Types lists the types in the default registry.
func Types() []string { return defaultRegistry.Types() }
