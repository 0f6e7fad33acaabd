package lifespan

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Sentinel errors for resource lookups.
var (
	ErrUnknownResource = errors.New("lifespan: unknown resource")
	ErrResourceType    = errors.New("lifespan: resource type mismatch")
)

// State is the ordered registry of live resources produced by events.
//
// State performs no synchronization. The Lifespan is its only writer and
// mutates it during Startup and Shutdown; request handlers only read it
// once startup has completed.
type State struct {
	names []string
	data  map[string]any
}

// NewState returns an empty State.
func NewState() *State {
	return &State{data: make(map[string]any)}
}

// Set stores value under name, replacing any previous value.
func (s *State) Set(name string, value any) {
	if _, ok := s.data[name]; !ok {
		s.names = append(s.names, name)
	}
	s.data[name] = value
}

// Get returns the resource stored under name.
func (s *State) Get(name string) (any, error) {
	v, ok := s.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	return v, nil
}

// GetOr returns the resource stored under name, or def when absent.
func (s *State) GetOr(name string, def any) any {
	if v, ok := s.data[name]; ok {
		return v
	}
	return def
}

// Has reports whether a resource is stored under name.
func (s *State) Has(name string) bool {
	_, ok := s.data[name]
	return ok
}

// Delete removes the resource stored under name.
func (s *State) Delete(name string) error {
	if _, ok := s.data[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownResource, name)
	}
	delete(s.data, name)
	s.names = slices.DeleteFunc(s.names, func(n string) bool { return n == name })
	return nil
}

// Names yields resource names in insertion order.
func (s *State) Names() iter.Seq[string] {
	return slices.Values(slices.Clone(s.names))
}

// Len returns the number of stored resources.
func (s *State) Len() int { return len(s.names) }

// Clear removes every resource. It is safe to call repeatedly.
func (s *State) Clear() {
	s.names = nil
	clear(s.data)
}

func (s *State) String() string {
	var b strings.Builder
	b.WriteString("State(")
	for i, name := range s.names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", name, s.data[name])
	}
	b.WriteString(")")
	return b.String()
}

// Lookup returns the resource stored under name as a T.
func Lookup[T any](s *State, name string) (T, error) {
	var zero T
	v, err := s.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T", ErrResourceType, name, v)
	}
	return typed, nil
}
