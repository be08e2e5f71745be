// Package modulemanager provides module dependency management and initialization ordering
package modulemanager

import (
	"fmt"
	"sort"
)

// DependencyProvider is an optional interface for modules that declare dependencies
type DependencyProvider interface {
	// Dependencies returns the list of module IDs this module depends on
	Dependencies() []string
}

// initializationOrder topologically sorts modules by their declared
// dependencies. Ties are broken by module ID so the order is deterministic.
func initializationOrder(modules map[string]Module) ([]Module, error) {
	ids := make([]string, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	deps := make(map[string][]string, len(modules))
	for _, id := range ids {
		if provider, ok := modules[id].(DependencyProvider); ok {
			for _, depID := range provider.Dependencies() {
				if _, exists := modules[depID]; !exists {
					return nil, fmt.Errorf("module %s depends on unknown module %s", id, depID)
				}
				deps[id] = append(deps[id], depID)
			}
		}
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)

	state := make(map[string]int, len(modules))
	order := make([]Module, 0, len(modules))

	var visit func(string, []string) error
	visit = func(id string, path []string) error {
		switch state[id] {
		case done:
			return nil
		case inStack:
			return fmt.Errorf("circular dependency detected: %v", append(path, id))
		}

		state[id] = inStack
		for _, depID := range deps[id] {
			if err := visit(depID, append(path, id)); err != nil {
				return err
			}
		}
		state[id] = done
		order = append(order, modules[id])
		return nil
	}

	for _, id := range ids {
		if err := visit(id, nil); err != nil {
			return nil, err
		}
	}

	return order, nil
}
