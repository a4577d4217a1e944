package core

import (
	"errors"
	"sync"
)

// Scope owns a stack of release functions. Resources are released in reverse
// order of acquisition and Close runs the stack exactly once, whatever the
// exit path of the owner was.
type Scope struct {
	name     string
	releases []release
	once     sync.Once
	err      error
}

type release struct {
	what string
	fn   func() error
}

func NewScope(name string) *Scope {
	return &Scope{name: name}
}

// Defer registers fn to be called when the scope is closed.
func (s *Scope) Defer(what string, fn func() error) {
	s.releases = append(s.releases, release{what: what, fn: fn})
}

// DeferFunc is Defer for release functions that cannot fail.
func (s *Scope) DeferFunc(what string, fn func()) {
	s.Defer(what, func() error {
		fn()
		return nil
	})
}

// Len returns the number of resources still owned by the scope.
func (s *Scope) Len() int {
	return len(s.releases)
}

// Close releases every registered resource. Subsequent calls return the
// result of the first one.
func (s *Scope) Close() error {
	s.once.Do(func() {
		var errs []error
		for i := len(s.releases) - 1; i >= 0; i-- {
			r := s.releases[i]
			LogDebug("%s: releasing %s", s.name, r.what)
			if err := r.fn(); err != nil {
				LogError("%s: failed to release %s: %s", s.name, r.what, err)
				errs = append(errs, err)
			}
		}
		s.releases = nil
		s.err = errors.Join(errs...)
	})
	return s.err
}
