// Package adapter exposes controllers to gobot drivers. Adaptor implements
// the gobot i2c.Connector so drivers such as i2c.GenericDriver can be used
// on a registry's controllers; the bus number is the controller id.
package adapter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/i2cctl/controller"
	"gobot.io/x/gobot/v2"
	"gobot.io/x/gobot/v2/drivers/i2c"
)

var (
	_ gobot.Adaptor  = &Adaptor{}
	_ i2c.Connector  = &Adaptor{}
	_ i2c.Connection = &connection{}
)

// maxBlock is the SMBus block size limit.
const maxBlock = 32

var ErrBlockTooLong = errors.New("block longer than 32 bytes")

type Adaptor struct {
	mx         sync.Mutex
	name       string
	registry   *controller.Registry
	defaultBus controller.ID
	connected  bool
}

type Option func(*Adaptor)

// WithDefaultBus selects the controller used by drivers that do not set a bus.
func WithDefaultBus(id controller.ID) Option {
	return func(a *Adaptor) {
		a.defaultBus = id
	}
}

func NewAdaptor(r *controller.Registry, opts ...Option) *Adaptor {
	a := &Adaptor{
		name:     gobot.DefaultName("I2cctl"),
		registry: r,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adaptor) Name() string {
	a.mx.Lock()
	defer a.mx.Unlock()
	return a.name
}

func (a *Adaptor) SetName(n string) {
	a.mx.Lock()
	defer a.mx.Unlock()
	a.name = n
}

// Connect checks that every controller can be obtained from the registry.
func (a *Adaptor) Connect() error {
	a.mx.Lock()
	defer a.mx.Unlock()
	for id := controller.ID(0); id < controller.ControllerCount; id++ {
		if _, err := a.registry.Get(id); err != nil {
			return fmt.Errorf("could not connect %s: %w", id, err)
		}
	}
	a.connected = true
	return nil
}

func (a *Adaptor) Finalize() error {
	a.mx.Lock()
	defer a.mx.Unlock()
	a.connected = false
	return nil
}

func (a *Adaptor) DefaultI2cBus() int {
	return int(a.defaultBus)
}

func (a *Adaptor) GetI2cConnection(address int, busNr int) (i2c.Connection, error) {
	if address < 0 || address > 0x7F {
		return nil, fmt.Errorf("invalid i2c address %#x", address)
	}
	if busNr < 0 || busNr >= int(controller.ControllerCount) {
		return nil, fmt.Errorf("%w: bus %d", controller.ErrInvalidController, busNr)
	}
	c, err := a.registry.Get(controller.ID(busNr))
	if err != nil {
		return nil, err
	}
	return &connection{c: c, addr: uint8(address)}, nil
}
