package i2c

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mklimuk/i2cctl"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var (
	_ i2cctl.Reader = &GenericBus{}
	_ i2cctl.Writer = &GenericBus{}
)

// ErrSplitTransfer is returned for transfers that would leave the bus open;
// periph transactions always end with a stop.
var ErrSplitTransfer = errors.New("periph bus supports framed transfers only")

// GenericBus drives a periph bus through the i2cctl interfaces.
type GenericBus struct {
	bus i2c.BusCloser
}

// Open initializes the host drivers and opens the named bus. An empty name
// opens the first available one.
func Open(name string) (*GenericBus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return NewGenericBus(bus), nil
}

func NewGenericBus(bus i2c.BusCloser) *GenericBus {
	return &GenericBus{bus: bus}
}

func (b *GenericBus) Read(addr uint8, buf []byte, start, stop bool) error {
	if !start || !stop {
		return ErrSplitTransfer
	}
	err := b.bus.Tx(uint16(addr), nil, buf)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", addr, err)
	}
	return nil
}

func (b *GenericBus) Write(addr uint8, buf []byte, start, stop bool) error {
	if !start || !stop {
		return ErrSplitTransfer
	}
	err := b.bus.Tx(uint16(addr), buf, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", addr, err)
	}
	return nil
}

func (b *GenericBus) WriteRead(addr uint8, w, r []byte, start, stop bool) error {
	if !start || !stop {
		return ErrSplitTransfer
	}
	err := b.bus.Tx(uint16(addr), w, r)
	if err != nil {
		return fmt.Errorf("could not transfer on i2c bus %x: %w", addr, err)
	}
	return nil
}

func (b *GenericBus) String() string {
	return b.bus.String()
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
