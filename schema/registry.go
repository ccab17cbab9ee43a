package schema

import (
	"reflect"
	"sync"
)

// Registry holds the model descriptors of one application. Descriptors are
// frozen when registered; the registry itself is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]*Model
	byName map[string]*Model
	order  []*Model
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: map[reflect.Type]*Model{},
		byName: map[string]*Model{},
	}
}

// Register describes v and registers it with the given constraints.
func (r *Registry) Register(v any, constraints ...Constraint) (*Model, error) {
	m, err := Describe(v)
	if err != nil {
		return nil, err
	}
	return r.RegisterModel(m, constraints...)
}

// MustRegister is like Register but panics on error. It is meant for
// package-level model declarations.
func (r *Registry) MustRegister(v any, constraints ...Constraint) *Model {
	m, err := r.Register(v, constraints...)
	if err != nil {
		panic(err)
	}
	return m
}

// RegisterModel registers a descriptor built by Describe or NewModel. The
// registered descriptor is a copy carrying the validated constraints.
func (r *Registry) RegisterModel(m *Model, constraints ...Constraint) (*Model, error) {
	if m == nil {
		return nil, Configf("", "cannot register nil model")
	}
	cons, err := validateConstraints(m, constraints)
	if err != nil {
		return nil, err
	}
	frozen := m.withConstraints(cons)

	r.mu.Lock()
	defer r.mu.Unlock()
	if frozen.typ != nil {
		if _, dup := r.byType[frozen.typ]; dup {
			return nil, Configf(frozen.name, "type %s is already registered", frozen.typ)
		}
	}
	if _, dup := r.byName[frozen.name]; dup {
		return nil, Configf(frozen.name, "model name is already registered")
	}
	if other, dup := r.byName[frozen.table]; dup && other.table == frozen.table {
		return nil, Configf(frozen.name, "table %s is already registered by %s", frozen.table, other.name)
	}
	if frozen.typ != nil {
		r.byType[frozen.typ] = frozen
	}
	r.byName[frozen.name] = frozen
	if frozen.table != frozen.name {
		r.byName[frozen.table] = frozen
	}
	r.order = append(r.order, frozen)
	return frozen, nil
}

// Model returns the descriptor registered for v's type. v may be a value,
// a pointer, a reflect.Type or a model or table name.
func (r *Registry) Model(v any) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch v := v.(type) {
	case *Model:
		if v != nil {
			if m, ok := r.byName[v.name]; ok && m.table == v.table {
				return m, nil
			}
			return nil, Configf(v.name, "model is not registered")
		}
	case string:
		if m, ok := r.byName[v]; ok {
			return m, nil
		}
		return nil, Configf(v, "model is not registered")
	case reflect.Type:
		return r.byTypeLocked(v)
	case nil:
	default:
		return r.byTypeLocked(reflect.TypeOf(v))
	}
	return nil, Configf("", "cannot resolve model from nil")
}

func (r *Registry) byTypeLocked(t reflect.Type) (*Model, error) {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if m, ok := r.byType[t]; ok {
		return m, nil
	}
	return nil, Configf(t.String(), "model is not registered")
}

// ModelByName returns the descriptor registered under a model or table name.
func (r *Registry) ModelByName(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[name]
	return m, ok
}

// Models returns the registered descriptors in registration order.
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Model, len(r.order))
	copy(out, r.order)
	return out
}

// Validate checks cross-model references: every foreign key must target a
// registered table and declared columns.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.order {
		for _, fk := range m.ForeignKeys() {
			target, ok := r.byName[fk.Table]
			if !ok || target.table != fk.Table {
				return Configf(m.name, "foreign key references unknown table %s", fk.Table)
			}
			for _, col := range fk.References {
				if !target.HasColumn(col) {
					return &ConfigurationError{Model: m.name, Column: col, Reason: "foreign key references unknown column of " + fk.Table}
				}
			}
		}
	}
	return nil
}

// PrimaryKey returns the primary key of the model registered for v. ok is
// false when v is not registered or has no primary key.
func (r *Registry) PrimaryKey(v any) (PrimaryKey, bool) {
	m, err := r.Model(v)
	if err != nil {
		return PrimaryKey{}, false
	}
	return m.PrimaryKey()
}

// ForeignKeys returns the foreign keys of the model registered for v.
func (r *Registry) ForeignKeys(v any) []ForeignKey {
	m, err := r.Model(v)
	if err != nil {
		return nil
	}
	return m.ForeignKeys()
}

// UniqueConstraints returns the unique constraints of the model registered
// for v.
func (r *Registry) UniqueConstraints(v any) []Unique {
	m, err := r.Model(v)
	if err != nil {
		return nil
	}
	return m.UniqueConstraints()
}

// IsNullable reports whether column of the model registered for v may hold
// NULL. An unregistered model or unknown column is a ConfigurationError.
func (r *Registry) IsNullable(v any, column string) (bool, error) {
	m, err := r.Model(v)
	if err != nil {
		return false, err
	}
	return m.IsNullable(column)
}
