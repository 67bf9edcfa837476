package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/pinnlab/internal/ode"
)

var registry = map[string]func() ode.Integrator{
	"euler":    func() ode.Integrator { return NewEuler() },
	"midpoint": func() ode.Integrator { return NewMidpoint() },
	"rk4":      func() ode.Integrator { return NewRK4() },
}

// Get returns a fresh integrator by name.
func Get(name string) (ode.Integrator, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s (available: %v)", name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
