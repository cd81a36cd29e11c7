package adapter

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds an adapter for one backend kind from a profile.
type Factory func(profile *Profile) (Adapter, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[Kind]Factory)
)

// Register installs a factory for a backend kind. Backend packages call
// this from init; importing a backend package makes its kind available.
func Register(kind Kind, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("adapter: Register with nil factory")
	}
	if _, dup := registry[kind]; dup {
		panic(fmt.Sprintf("adapter: Register called twice for kind %q", kind))
	}
	registry[kind] = factory
}

// New builds an adapter for the profile's kind.
func New(profile *Profile) (Adapter, error) {
	if profile == nil {
		return nil, fmt.Errorf("adapter: nil profile")
	}
	registryMu.RLock()
	factory, ok := registry[profile.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("adapter: no driver registered for kind %q (registered: %v)",
			profile.Kind, Kinds())
	}
	return factory(profile)
}

// Kinds lists the registered backend kinds, sorted.
func Kinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
