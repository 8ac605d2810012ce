// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package index

import (
	"fmt"
	"sync"
)

// Factory constructs a VectorIndex provider.
type Factory func() (VectorIndex, error)

// Registry maps provider names to factories and caches constructed
// providers. Provider names are validated at call time, so an unknown name
// surfaces as a request error rather than a startup failure.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	providers map[string]VectorIndex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		providers: make(map[string]VectorIndex),
	}
}

// Register adds a provider factory under a name. Registering the same name
// twice replaces the factory but keeps any already-constructed provider.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns the provider registered under name, constructing it on first
// use. Construction failures are not cached; a later call retries.
func (r *Registry) Get(name string) (VectorIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if provider, ok := r.providers[name]; ok {
		return provider, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	provider, err := factory()
	if err != nil {
		return nil, fmt.Errorf("constructing provider %q: %w", name, err)
	}
	r.providers[name] = provider
	return provider, nil
}

// Names lists the registered provider names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// Close closes every constructed provider, returning the first error.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, provider := range r.providers {
		if err := provider.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing provider %q: %w", name, err)
		}
		delete(r.providers, name)
	}
	return firstErr
}
