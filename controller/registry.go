package controller

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ID identifies a hardware controller.
type ID uint8

const (
	Controller0 ID = iota
	Controller1
	// ControllerCount is the number of controllers on the target.
	ControllerCount
)

func (id ID) String() string {
	return fmt.Sprintf("I2C%d", uint8(id))
}

// Board hands out the register block of each controller.
type Board interface {
	Peripheral(id ID) (Peripheral, error)
}

type BoardFunc func(id ID) (Peripheral, error)

func (f BoardFunc) Peripheral(id ID) (Peripheral, error) {
	return f(id)
}

// Registry maps controller ids to lazily built controllers. A controller is
// constructed on the first Get for its id and returned by every later call;
// entries are never removed.
type Registry struct {
	mx          sync.Mutex
	board       Board
	opts        []Option
	controllers [ControllerCount]atomic.Pointer[Controller]
}

// NewRegistry returns a registry building controllers from board with the
// given options.
func NewRegistry(board Board, opts ...Option) *Registry {
	return &Registry{board: board, opts: opts}
}

// Get returns the controller for id, building it on first access.
func (r *Registry) Get(id ID) (*Controller, error) {
	if id >= ControllerCount {
		return nil, fmt.Errorf("%w: %d", ErrInvalidController, id)
	}
	if c := r.controllers[id].Load(); c != nil {
		return c, nil
	}
	r.mx.Lock()
	defer r.mx.Unlock()
	if c := r.controllers[id].Load(); c != nil {
		return c, nil
	}
	if r.board == nil {
		return nil, fmt.Errorf("%w %s: registry has no board", ErrNoPeripheral, id)
	}
	p, err := r.board.Peripheral(id)
	if err != nil {
		return nil, fmt.Errorf("could not get peripheral of %s: %w", id, err)
	}
	c, err := New(id, p, r.opts...)
	if err != nil {
		return nil, err
	}
	r.controllers[id].Store(c)
	return c, nil
}
