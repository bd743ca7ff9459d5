// Package i2c bridges controllers to periph.io. Bus exposes a controller as
// a periph bus so periph and tinygo device drivers can run on it; GenericBus
// goes the other way and drives any periph bus through the i2cctl
// interfaces.
package i2c

import (
	"errors"
	"fmt"

	"github.com/mklimuk/i2cctl/controller"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

var (
	_ i2c.BusCloser = &Bus{}
	_ drivers.I2C   = &Bus{}
)

var ErrAddressRange = errors.New("address out of 7-bit range")

// Bus runs periph transactions on a controller. Each Tx is one framed
// transfer: a start, the write part, a repeated start, the read part and a
// stop.
type Bus struct {
	c    *controller.Controller
	name string
}

func NewBus(c *controller.Controller) *Bus {
	return &Bus{c: c, name: c.String()}
}

func (b *Bus) String() string {
	return b.name
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("%s: %w: %#x", b.name, ErrAddressRange, addr)
	}
	a := uint8(addr)
	var err error
	switch {
	case len(w) > 0 && len(r) > 0:
		err = b.c.WriteRead(a, w, r, true, true)
	case len(w) > 0:
		err = b.c.Write(a, w, true, true)
	case len(r) > 0:
		err = b.c.Read(a, r, true, true)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s tx %#02x: %w", b.name, a, err)
	}
	return nil
}

// SetSpeed selects the fastest speed grade not above f.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("%s: invalid bus frequency %s", b.name, f)
	}
	return b.c.SetSpeed(controller.SpeedFor(f))
}

// Close is a no-op, controllers live as long as their registry.
func (b *Bus) Close() error {
	return nil
}

// Register makes the controllers of r available through i2creg under
// prefix followed by the controller name (for example "I2C0"). Without a
// prefix the controller id is also registered as the bus number.
func Register(prefix string, r *controller.Registry, ids ...controller.ID) error {
	if len(ids) == 0 {
		for id := controller.ID(0); id < controller.ControllerCount; id++ {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		number := -1
		if prefix == "" {
			number = int(id)
		}
		err := i2creg.Register(prefix+id.String(), nil, number, opener(r, id))
		if err != nil {
			return fmt.Errorf("could not register %s: %w", id, err)
		}
	}
	return nil
}

func opener(r *controller.Registry, id controller.ID) i2creg.Opener {
	return func() (i2c.BusCloser, error) {
		c, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		return NewBus(c), nil
	}
}
