// Package registry maps Go types onto the functions that dump them into a
// container tree and load them back.
//
// Dispatch walks a chain of keys from most to least specific: the exact
// type key, registered interfaces, the kind family and finally the object
// catch-all, which New always installs. The chain computed at dump time is
// recorded in the type tag and walked again by the loader.
//
// Registration is not synchronised with dump and load beyond per-entry
// atomicity. Register handlers at start-up, before the registry is shared.
package registry

import (
	"reflect"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/born-ml/hpickle/internal/config"
	"github.com/born-ml/hpickle/internal/container"
	"github.com/born-ml/hpickle/internal/typetag"
)

// DumpFunc writes v under parent. An empty name means v is merged into
// parent itself.
type DumpFunc func(r *Registry, v any, parent *container.Group, name string) error

// LoadFunc rebuilds a value from a tagged group.
type LoadFunc func(r *Registry, g *container.Group, t typetag.Type) (any, error)

// Registry holds the dumper, loader and type tables.
type Registry struct {
	dumpers *xsync.MapOf[string, DumpFunc]
	loaders *xsync.MapOf[string, LoadFunc]
	types   *xsync.MapOf[string, reflect.Type]

	mu     sync.RWMutex
	ifaces []reflect.Type

	threshold int
	logger    *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithThreshold sets the opaque blob size at which blobs are stored as
// datasets instead of attributes.
func WithThreshold(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.threshold = n
		}
	}
}

// WithLogger sets the logger used for dispatch decisions.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a registry holding only the object catch-all pair.
func New(opts ...Option) *Registry {
	r := &Registry{
		dumpers:   xsync.NewMapOf[string, DumpFunc](),
		loaders:   xsync.NewMapOf[string, LoadFunc](),
		types:     xsync.NewMapOf[string, reflect.Type](),
		threshold: config.DefaultThreshold,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.installObject()
	return r
}

// Clone returns a registry with copies of all tables. Options may
// override the threshold and logger.
func (r *Registry) Clone(opts ...Option) *Registry {
	c := &Registry{
		dumpers:   xsync.NewMapOf[string, DumpFunc](),
		loaders:   xsync.NewMapOf[string, LoadFunc](),
		types:     xsync.NewMapOf[string, reflect.Type](),
		threshold: r.threshold,
		logger:    r.logger,
	}
	r.dumpers.Range(func(k string, fn DumpFunc) bool {
		c.dumpers.Store(k, fn)
		return true
	})
	r.loaders.Range(func(k string, fn LoadFunc) bool {
		c.loaders.Store(k, fn)
		return true
	})
	r.types.Range(func(k string, t reflect.Type) bool {
		c.types.Store(k, t)
		return true
	})
	r.mu.RLock()
	c.ifaces = append([]reflect.Type(nil), r.ifaces...)
	r.mu.RUnlock()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Threshold returns the blob placement threshold in bytes.
func (r *Registry) Threshold() int { return r.threshold }

// Logger returns the registry logger.
func (r *Registry) Logger() *zap.Logger { return r.logger }

func (r *Registry) addInterface(t reflect.Type) {
	if t.Kind() != reflect.Interface {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, known := range r.ifaces {
		if known == t {
			return
		}
	}
	r.ifaces = append(r.ifaces, t)
}

// RegisterDumper installs fn for t, replacing any previous entry. An
// interface type joins the interface priority list after those already
// registered.
func (r *Registry) RegisterDumper(t reflect.Type, fn DumpFunc) {
	r.addInterface(t)
	if t.Kind() != reflect.Interface {
		r.RegisterType(t)
	}
	r.dumpers.Store(TypeKey(t), fn)
}

// RegisterLoader installs fn for t, replacing any previous entry.
func (r *Registry) RegisterLoader(t reflect.Type, fn LoadFunc) {
	r.addInterface(t)
	if t.Kind() != reflect.Interface {
		r.RegisterType(t)
	}
	r.loaders.Store(TypeKey(t), fn)
}

// RegisterFamilyDumper installs fn for every type of family f.
func (r *Registry) RegisterFamilyDumper(f Family, fn DumpFunc) {
	r.dumpers.Store(string(f), fn)
}

// RegisterFamilyLoader installs fn for every type of family f.
func (r *Registry) RegisterFamilyLoader(f Family, fn LoadFunc) {
	r.loaders.Store(string(f), fn)
}

// RegisterType makes t resolvable by its key when loading.
func (r *Registry) RegisterType(t reflect.Type) {
	if t == nil {
		return
	}
	r.types.Store(TypeKey(t), t)
}

// ResolveType implements typetag.Resolver.
func (r *Registry) ResolveType(key string) (reflect.Type, bool) {
	return r.types.Load(key)
}

// HasDumper reports whether a dumper is registered under key.
func (r *Registry) HasDumper(key string) bool {
	_, ok := r.dumpers.Load(key)
	return ok
}

// HasLoader reports whether a loader is registered under key.
func (r *Registry) HasLoader(key string) bool {
	_, ok := r.loaders.Load(key)
	return ok
}
