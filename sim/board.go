package sim

import (
	"fmt"
	"sync"

	"github.com/mklimuk/i2cctl/controller"
)

// Board is a simulated target with one peripheral per controller id.
type Board struct {
	peripherals [controller.ControllerCount]*Peripheral
}

var _ controller.Board = &Board{}

func NewBoard() *Board {
	b := &Board{}
	for id := range b.peripherals {
		b.peripherals[id] = NewPeripheral(controller.ID(id))
	}
	return b
}

func (b *Board) Peripheral(id controller.ID) (controller.Peripheral, error) {
	if id >= controller.ControllerCount {
		return nil, fmt.Errorf("%w: %d", controller.ErrInvalidController, id)
	}
	return b.peripherals[id], nil
}

// Sim returns the simulated peripheral of id for inspection and fault
// injection. It returns nil for an unknown id.
func (b *Board) Sim(id controller.ID) *Peripheral {
	if id >= controller.ControllerCount {
		return nil
	}
	return b.peripherals[id]
}

// Pin records the configuration applied by the controller.
type Pin struct {
	mx         sync.Mutex
	name       string
	enabled    bool
	mapped     bool
	controller controller.ID
	role       controller.Role
	configured bool
	mode       controller.PinMode
}

var _ controller.Pin = &Pin{}

func NewPin(name string) *Pin {
	return &Pin{name: name}
}

func (p *Pin) Name() string {
	return p.name
}

func (p *Pin) EnablePeripheral() {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.enabled = true
}

func (p *Pin) MapTo(id controller.ID, role controller.Role) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.mapped = true
	p.controller = id
	p.role = role
}

func (p *Pin) Configure(mode controller.PinMode) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.configured = true
	p.mode = mode
}

// PinState is a snapshot of a simulated pin.
type PinState struct {
	Enabled    bool
	Mapped     bool
	Controller controller.ID
	Role       controller.Role
	Configured bool
	Mode       controller.PinMode
}

func (p *Pin) State() PinState {
	p.mx.Lock()
	defer p.mx.Unlock()
	return PinState{
		Enabled:    p.enabled,
		Mapped:     p.mapped,
		Controller: p.controller,
		Role:       p.role,
		Configured: p.configured,
		Mode:       p.mode,
	}
}
