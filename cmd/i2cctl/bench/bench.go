// Package bench assembles a simulated board from configuration and shares
// it between the commands of one CLI run.
package bench

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl/adapter"
	"github.com/mklimuk/i2cctl/controller"
	"github.com/mklimuk/i2cctl/pkg/config"
	"github.com/mklimuk/i2cctl/sim"
)

const metadataKey = "bench"

type Bench struct {
	Config   *config.Config
	Board    *sim.Board
	Registry *controller.Registry
	Adaptor  *adapter.Adaptor
	devices  map[controller.ID]map[uint8]sim.Device
}

// New builds the board described by cfg and sets up every configured
// controller.
func New(cfg *config.Config, logger *slog.Logger) (*Bench, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Bench{
		Config:  cfg,
		Board:   sim.NewBoard(),
		devices: make(map[controller.ID]map[uint8]sim.Device),
	}
	opts := []controller.Option{controller.WithLogger(logger)}
	if cfg.PollLimit != nil {
		opts = append(opts, controller.WithPollLimit(*cfg.PollLimit))
	}
	b.Registry = controller.NewRegistry(b.Board, opts...)
	b.Adaptor = adapter.NewAdaptor(b.Registry)

	for _, ctrl := range cfg.Controllers {
		p := b.Board.Sim(ctrl.ID)
		b.devices[ctrl.ID] = make(map[uint8]sim.Device)
		for _, dev := range ctrl.Devices {
			d := newDevice(dev)
			p.Attach(dev.Addr, d)
			b.devices[ctrl.ID][dev.Addr] = d
		}
		c, err := b.Registry.Get(ctrl.ID)
		if err != nil {
			return nil, err
		}
		if err = c.Setup(sim.NewPin(ctrl.SDA), sim.NewPin(ctrl.SCL), ctrl.Speed); err != nil {
			return nil, fmt.Errorf("could not set up %s: %w", ctrl.ID, err)
		}
		p.ClearTrace()
	}
	return b, nil
}

func newDevice(dev config.Device) sim.Device {
	if dev.Kind == config.KindEcho {
		return sim.NewEcho()
	}
	m := sim.NewMemory(dev.MemorySize(), dev.PointerWidth)
	for _, block := range dev.Contents {
		m.Load(block.Offset, block.Data)
	}
	return m
}

// From returns the bench of the running app, building it from the --config
// flag on first use.
func From(c *cli.Context) (*Bench, error) {
	if b, ok := c.App.Metadata[metadataKey].(*Bench); ok {
		return b, nil
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	b, err := New(cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]interface{})
	}
	c.App.Metadata[metadataKey] = b
	return b, nil
}

// Bus returns the controller selected with the --bus flag.
func Bus(c *cli.Context) (*controller.Controller, *sim.Peripheral, error) {
	b, err := From(c)
	if err != nil {
		return nil, nil, err
	}
	n := c.Uint("bus")
	if n >= uint(controller.ControllerCount) {
		return nil, nil, fmt.Errorf("%w: %d", controller.ErrInvalidController, n)
	}
	id := controller.ID(n)
	ctrl, err := b.Registry.Get(id)
	if err != nil {
		return nil, nil, err
	}
	return ctrl, b.Board.Sim(id), nil
}

// Device returns the simulated target attached at addr on id.
func (b *Bench) Device(id controller.ID, addr uint8) (sim.Device, bool) {
	d, ok := b.devices[id][addr]
	return d, ok
}
