package main

import (
	"strings"

	"github.com/urfave/cli/v2"
	"periph.io/x/conn/v3/i2c/i2creg"

	"github.com/mklimuk/i2cctl/cmd/i2cctl/bench"
	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
	"github.com/mklimuk/i2cctl/i2c"
)

const busPrefix = "bench-"
const registeredKey = "periph-registered"

// registerBuses exposes the bench controllers in the periph registry once
// per process.
func registerBuses(c *cli.Context) error {
	if c.App.Metadata[registeredKey] == true {
		return nil
	}
	b, err := bench.From(c)
	if err != nil {
		return console.Exit(1, "could not build bench: %v", err)
	}
	if err = i2c.Register(busPrefix, b.Registry); err != nil {
		return console.Exit(1, "could not register buses: %v", err)
	}
	c.App.Metadata[registeredKey] = true
	return nil
}

var busesCmd = cli.Command{
	Name:  "buses",
	Usage: "list the periph i2c buses, bench controllers included",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "probe",
			Usage: "read one byte from this address on every bench bus through periph",
		},
	},
	Action: func(c *cli.Context) error {
		if err := registerBuses(c); err != nil {
			return err
		}
		var addr uint8
		probe := c.String("probe") != ""
		if probe {
			var err error
			addr, err = parseAddr(c.String("probe"))
			if err != nil {
				return console.Exit(1, "%v", err)
			}
		}
		for _, ref := range i2creg.All() {
			line := ref.Name
			if len(ref.Aliases) > 0 {
				line += " (" + strings.Join(ref.Aliases, ", ") + ")"
			}
			if !probe || !strings.HasPrefix(ref.Name, busPrefix) {
				console.Print(line)
				continue
			}
			bus, err := i2c.Open(ref.Name)
			if err != nil {
				console.Warnf("%s: %v", line, err)
				continue
			}
			buf := make([]byte, 1)
			err = bus.Read(addr, buf, true, true)
			_ = bus.Close()
			if err != nil {
				console.Printf("%s: %s\n", line, console.Red(err))
				continue
			}
			console.Printf("%s: %s\n", line, console.Green(buf[0]))
		}
		return nil
	},
}
