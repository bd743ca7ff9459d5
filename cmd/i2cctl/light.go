package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
	"github.com/mklimuk/i2cctl/controller"
	"github.com/mklimuk/i2cctl/environment"
)

var lightCmd = cli.Command{
	Name:  "light",
	Usage: "read an ambient light sensor",
	Subcommands: []*cli.Command{
		&lightReadCmd,
	},
}

var lightReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Value: "l",
			Usage: "l when ADDR is pulled low, h when high",
		},
		&cli.StringFlag{
			Name:  "mode",
			Value: "high",
			Usage: "low, high or high2",
		},
	},
	Action: func(c *cli.Context) error {
		var addr byte
		switch c.String("addr") {
		case "h":
			addr = environment.BH1750AddrHigh
		default:
			addr = environment.BH1750AddrLow
		}
		var mode environment.BH1750Mode
		switch c.String("mode") {
		case "low":
			mode = environment.BH1750LowResolution
		case "high":
			mode = environment.BH1750HighResolution
		case "high2":
			mode = environment.BH1750HighResolution2
		default:
			return console.Exit(1, "unknown mode %q", c.String("mode"))
		}
		ctx, cancel := context.WithTimeout(c.Context, 5*time.Second)
		defer cancel()
		return transfer(c, func(ctrl *controller.Controller) error {
			s := environment.NewBH1750(ctrl, addr)
			s.SetMode(mode)
			lux, err := s.GetLux(ctx)
			if err != nil {
				return console.Exit(1, "error getting light sensor read: %s", console.Red(err))
			}
			console.PInfof(console.PictoLight, "%s lux", console.White(lux))
			return nil
		})
	},
}
