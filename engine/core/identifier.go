package core

import "fmt"

// Registry hands out small integer ids for backend objects so that the
// simulation core can reference them without knowing the concrete type.
// Released ids are reused.
type Registry[T any] struct {
	owners []*T
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

func (r *Registry[T]) Acquire(owner T) uint32 {
	length := uint32(len(r.owners))
	for i := uint32(0); i < length; i++ {
		// Existing free spot. Take it.
		if r.owners[i] == nil {
			r.owners[i] = &owner
			return i
		}
	}

	// No free slot, the new id is the old length.
	r.owners = append(r.owners, &owner)
	return length
}

func (r *Registry[T]) Get(id uint32) (T, error) {
	var zero T
	if id >= uint32(len(r.owners)) || r.owners[id] == nil {
		return zero, fmt.Errorf("registry: id '%d' is not registered", id)
	}
	return *r.owners[id], nil
}

func (r *Registry[T]) Release(id uint32) error {
	length := uint32(len(r.owners))
	if id >= length {
		return fmt.Errorf("registry: id '%d' out of range (max=%d). Nothing was done", id, length)
	}
	r.owners[id] = nil
	return nil
}

// Len returns the number of live entries.
func (r *Registry[T]) Len() int {
	n := 0
	for _, o := range r.owners {
		if o != nil {
			n++
		}
	}
	return n
}
