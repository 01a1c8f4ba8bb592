package stats

import "fmt"

// Mode says how a statistic participates in aggregation.
type Mode int

const (
	// ModeSum statistics are merged across a group with the shape's merge rule.
	ModeSum Mode = iota
	// ModeDerived statistics are not folded; their group value is computed
	// after aggregation from other, already-merged statistics.
	ModeDerived
)

// Func computes one statistic for one record. Functions must be pure: no
// state across records, no dependency on any other record.
type Func func(*Context) Value

// Declaration binds a statistic name to its shape, aggregation mode and leaf
// function. Derived declarations carry a nil Fn; their values are filled in
// by the aggregate layer.
type Declaration struct {
	Name  string
	Shape Shape
	Mode  Mode
	Fn    Func
}

// Registry is the fixed set of declared statistics. It is assembled once at
// startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	decls  []Declaration
	byName map[string]Declaration
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Declaration)}
}

func (r *Registry) Register(d Declaration) error {
	if d.Name == "" {
		return fmt.Errorf("statistic name cannot be empty")
	}
	if d.Fn == nil && d.Mode != ModeDerived {
		return fmt.Errorf("statistic %q: summed statistics need a leaf function", d.Name)
	}
	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("statistic %q is already registered", d.Name)
	}
	r.byName[d.Name] = d
	r.decls = append(r.decls, d)
	return nil
}

func (r *Registry) mustRegister(d Declaration) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Declarations returns every declaration in registration order.
func (r *Registry) Declarations() []Declaration {
	return r.decls
}

// Lookup returns the declaration for a statistic name.
func (r *Registry) Lookup(name string) (Declaration, bool) {
	d, ok := r.byName[name]
	return d, ok
}
