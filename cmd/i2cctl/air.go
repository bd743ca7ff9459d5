package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl/air"
	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
	"github.com/mklimuk/i2cctl/controller"
	"github.com/mklimuk/i2cctl/i2c"
)

var airFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "periph",
		Usage: "run through the named periph bus (bench-I2C0, /dev/i2c-1) instead of the controller",
	},
	&cli.DurationFlag{
		Name:  "tx-delay",
		Value: 100 * time.Millisecond,
		Usage: "guard delay between a register write and the read",
	},
	&cli.DurationFlag{
		Name:  "read-delay",
		Value: 1500 * time.Millisecond,
		Usage: "settle time after a measurement",
	},
}

var airCmd = cli.Command{
	Name:  "air",
	Usage: "drive an AGS02MA TVOC sensor",
	Subcommands: []*cli.Command{
		&airReadCmd,
		&airCalibrateCmd,
	},
}

// withAGS02MA runs fn on the sensor, wired either to the selected controller
// or to a periph bus.
func withAGS02MA(c *cli.Context, fn func(ctx context.Context, s *air.AGS02MA) error) error {
	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()
	opts := []air.Option{
		air.WithTxDelay(c.Duration("tx-delay")),
		air.WithReadDelay(c.Duration("read-delay")),
	}
	name := c.String("periph")
	if name == "" {
		return transfer(c, func(ctrl *controller.Controller) error {
			s := air.NewAGS02MA(ctrl, opts...)
			defer s.Close(ctx)
			return fn(ctx, s)
		})
	}
	if err := registerBuses(c); err != nil {
		return err
	}
	bus, err := i2c.Open(name)
	if err != nil {
		return console.Exit(1, "adapter initialization error: %s", console.Red(err))
	}
	defer func() {
		if err := bus.Close(); err != nil {
			console.Errorf("error closing bus: %s", console.Red(err))
		}
	}()
	s := air.NewAGS02MA(bus, opts...)
	defer s.Close(ctx)
	return fn(ctx, s)
}

var airCalibrateCmd = cli.Command{
	Name:  "calibrate",
	Flags: airFlags,
	Action: func(c *cli.Context) error {
		return withAGS02MA(c, func(ctx context.Context, s *air.AGS02MA) error {
			if err := s.Calibrate(ctx); err != nil {
				return console.Exit(1, "error calibrating: %s", console.Red(err))
			}
			console.Printf("calibrated\n")
			return nil
		})
	},
}

var airReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Flags:   airFlags,
	Action: func(c *cli.Context) error {
		return withAGS02MA(c, func(ctx context.Context, s *air.AGS02MA) error {
			ver, err := s.ReadVersion(ctx)
			if err != nil {
				return console.Exit(1, "error reading version: %s", console.Red(err))
			}
			resistance, err := s.ReadResistance(ctx)
			if err != nil {
				return console.Exit(1, "error reading resistance: %s", console.Red(err))
			}
			console.Printf("version: %d\n", ver)
			console.Printf("resistance: %d\n", resistance)
			ppb, err := s.GetTVOC(ctx)
			if err != nil {
				return console.Exit(1, "error getting TVOC read: %s", console.Red(err))
			}
			console.Printf("%d ppb\n", ppb)
			return nil
		})
	},
}
