package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl/cmd/i2cctl/bench"
	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "print the effective bench configuration as YAML",
	Action: func(c *cli.Context) error {
		b, err := bench.From(c)
		if err != nil {
			return console.Exit(1, "could not build bench: %v", err)
		}
		data, err := b.Config.Marshal()
		if err != nil {
			return console.Exit(1, "could not marshal configuration: %v", err)
		}
		console.Printf("%s", data)
		return nil
	},
}
