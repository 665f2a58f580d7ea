package orm

import (
	"github.com/ValentinKolb/dORM/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry maps connection names to live engines. It is an explicit value
// with a documented lifecycle (Register, many operations, Teardown) rather
// than process-global state; create one per process and pass it around.
type Registry struct {
	conns *xsync.MapOf[string, IEngine]
}

func NewRegistry() *Registry {
	return &Registry{
		conns: xsync.NewMapOf[string, IEngine](),
	}
}

// Register creates an engine on the given store channel, installs the
// supplied collection definitions and stores the connection under name.
// Registering a name twice is a SchemaError.
func (r *Registry) Register(name string, s store.IStore, definitions []CollectionDefinition) (IEngine, error) {
	engine := NewEngine(s)

	if _, loaded := r.conns.LoadOrStore(name, engine); loaded {
		return nil, newError(KindSchema, "connection %q is already registered", name)
	}

	for _, def := range definitions {
		if err := engine.Define(def.Name, def); err != nil {
			r.conns.Delete(name)
			return nil, err
		}
	}
	log.Infof("registered connection %q (%d collections)", name, len(definitions))
	return engine, nil
}

// Get returns the engine of a registered connection or a NotFoundError.
func (r *Registry) Get(name string) (IEngine, error) {
	engine, ok := r.conns.Load(name)
	if !ok {
		return nil, newError(KindNotFound, "connection %q is not registered", name)
	}
	return engine, nil
}

// Teardown removes a connection from the registry. The underlying store
// channel is owned by the caller and is not closed here. Tearing down an
// unknown name is a NotFoundError.
func (r *Registry) Teardown(name string) error {
	if _, ok := r.conns.LoadAndDelete(name); !ok {
		return newError(KindNotFound, "connection %q is not registered", name)
	}
	log.Infof("teardown of connection %q", name)
	return nil
}
