package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl/accel"
	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
	"github.com/mklimuk/i2cctl/controller"
)

var motionCmd = cli.Command{
	Name:  "motion",
	Usage: "drive a BMA220 accelerometer",
	Subcommands: []*cli.Command{
		&motionInitCmd,
		&motionCheckCmd,
		&motionResetCmd,
		&motionAccelCmd,
	},
}

func withBMA220(c *cli.Context, fn func(s *accel.BMA220) error) error {
	return transfer(c, func(ctrl *controller.Controller) error {
		s := accel.NewBMA220(ctrl)
		id, err := s.ReadChipID()
		if err != nil {
			return console.Exit(1, "could not read chip id: %s", console.Red(err))
		}
		console.Debugf("bma220 chip id %#02x", id)
		return fn(s)
	})
}

var motionInitCmd = cli.Command{
	Name: "init",
	Action: func(c *cli.Context) error {
		return withBMA220(c, func(s *accel.BMA220) error {
			if err := s.InitMotionDetection(); err != nil {
				return console.Exit(1, "error initializing BMA220: %s", console.Red(err))
			}
			console.Info("motion detection enabled")
			return nil
		})
	},
}

var motionCheckCmd = cli.Command{
	Name: "check",
	Action: func(c *cli.Context) error {
		return withBMA220(c, func(s *accel.BMA220) error {
			motion, err := s.CheckMotionInterrupt()
			if err != nil {
				return console.Exit(1, "error checking motion detection on BMA220: %s", console.Red(err))
			}
			if motion > 0 {
				console.Printf("motion interrupt: %s\n", console.Yellow(motion))
			} else {
				console.Printf("motion interrupt: %s\n", console.Green(motion))
			}
			return nil
		})
	},
}

var motionResetCmd = cli.Command{
	Name: "reset",
	Action: func(c *cli.Context) error {
		return withBMA220(c, func(s *accel.BMA220) error {
			if err := s.ResetMotionInterrupt(); err != nil {
				return console.Exit(1, "error resetting motion detection on BMA220: %s", console.Red(err))
			}
			return nil
		})
	},
}

var motionAccelCmd = cli.Command{
	Name:    "accel",
	Aliases: []string{"acc"},
	Action: func(c *cli.Context) error {
		return withBMA220(c, func(s *accel.BMA220) error {
			x, y, z, err := s.ReadAcceleration()
			if err != nil {
				return console.Exit(1, "error reading acceleration: %s", console.Red(err))
			}
			console.Printf("x: %s y: %s z: %s\n", console.White(x), console.White(y), console.White(z))
			return nil
		})
	},
}
