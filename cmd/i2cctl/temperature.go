package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
	"github.com/mklimuk/i2cctl/controller"
	"github.com/mklimuk/i2cctl/environment"
)

var tempReadCmd = cli.Command{
	Name:    "temperature",
	Aliases: []string{"temp"},
	Usage:   "read a temperature sensor",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "sensor",
			Aliases: []string{"s"},
			Value:   "tc74",
			Usage:   "tc74 or shtc3",
		},
		&cli.StringFlag{
			Name:  "addr",
			Usage: "sensor address, the sensor default when empty",
		},
	},
	Action: func(c *cli.Context) error {
		ctx, cancel := context.WithTimeout(c.Context, 5*time.Second)
		defer cancel()
		return transfer(c, func(ctrl *controller.Controller) error {
			switch c.String("sensor") {
			case "tc74":
				var opts []environment.TC74ConfigOption
				if c.String("addr") != "" {
					addr, err := parseAddr(c.String("addr"))
					if err != nil {
						return console.Exit(1, "%v", err)
					}
					opts = append(opts, environment.WithAddress(addr))
				}
				s := environment.NewTC74(ctrl, opts...)
				temp, err := s.GetTemperature(ctx)
				if err != nil {
					return console.Exit(1, "error getting temperature read: %s", console.Red(err))
				}
				console.Printf("%s %s\n", console.PictoThermometer, console.White(temp))
			case "shtc3":
				s := environment.NewSHTC3(ctrl)
				temp, hum, err := s.GetTempAndHum(ctx)
				if err != nil {
					return console.Exit(1, "error getting temperature read: %s", console.Red(err))
				}
				console.Printf("%s  %s\n%s %s\n", console.PictoThermometer, console.White(temp), console.PictoHumidity, console.White(hum))
			default:
				return console.Exit(1, "unknown sensor %q", c.String("sensor"))
			}
			return nil
		})
	},
}
