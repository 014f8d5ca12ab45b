package windows

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"aqualess/internal/domain"
	"aqualess/internal/eventbus"
)

// Controller is a named auxiliary window
type Controller interface {
	Activate()
}

// Factory builds the window for a name that is not open yet
type Factory interface {
	RequestAuxiliaryWindow(name string) (Controller, error)
}

// Registry keeps at most one window per name
type Registry struct {
	factory Factory
	bus     eventbus.EventBus

	mu      sync.Mutex
	windows map[string]Controller
}

func NewRegistry(factory Factory, bus eventbus.EventBus) *Registry {
	return &Registry{
		factory: factory,
		bus:     bus,
		windows: make(map[string]Controller),
	}
}

// Register records c under name
func (r *Registry) Register(name string, c Controller) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.windows[name]; ok {
		return fmt.Errorf("window %q: %w", name, domain.ErrDuplicateName)
	}
	r.windows[name] = c
	return nil
}

// Unregister forgets name. Unknown names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	_, ok := r.windows[name]
	delete(r.windows, name)
	r.mu.Unlock()

	if ok && r.bus != nil {
		r.bus.Publish(eventbus.WindowClosedEvent{Name: name})
	}
}

// Open brings the window called name to the front, building it first if
// needed.
func (r *Registry) Open(name string) (Controller, error) {
	if c, ok := r.Lookup(name); ok {
		c.Activate()
		return c, nil
	}

	c, err := r.factory.RequestAuxiliaryWindow(name)
	if err != nil {
		return nil, fmt.Errorf("open window %q: %w", name, err)
	}

	if err := r.Register(name, c); err != nil {
		if !errors.Is(err, domain.ErrDuplicateName) {
			return nil, err
		}
		// someone registered the same name while we were building; use theirs
		existing, ok := r.Lookup(name)
		if !ok {
			return nil, err
		}
		existing.Activate()
		return existing, nil
	}

	if r.bus != nil {
		r.bus.Publish(eventbus.WindowOpenedEvent{Name: name})
	}
	c.Activate()
	return c, nil
}

func (r *Registry) Lookup(name string) (Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.windows[name]
	return c, ok
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.windows))
	for name := range r.windows {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)
	return names
}
