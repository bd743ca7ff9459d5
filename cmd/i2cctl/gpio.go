package main

import (
	"encoding/hex"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
	"github.com/mklimuk/i2cctl/controller"
	"github.com/mklimuk/i2cctl/gpio"
)

var portFlag = &cli.StringFlag{
	Name:    "port",
	Aliases: []string{"p"},
	Value:   "a",
	Usage:   "a or b",
}

var addrFlag = &cli.StringFlag{
	Name:  "addr",
	Value: "21",
	Usage: "expander address",
}

var gpioCmd = cli.Command{
	Name:  "gpio",
	Usage: "drive an MCP23017 port expander",
	Flags: []cli.Flag{addrFlag},
	Subcommands: []*cli.Command{
		&gpioStatusCmd,
		&gpioReadCmd,
		&gpioConfigureCmd,
		&gpioPullCmd,
		&gpioWriteCmd,
	},
}

func parsePort(s string) (gpio.Port, error) {
	switch strings.ToLower(s) {
	case "", "a":
		return gpio.PortA, nil
	case "b":
		return gpio.PortB, nil
	}
	return 0, console.Exit(1, "unknown port %q", s)
}

// withExpander runs fn against the expander selected with --addr.
func withExpander(c *cli.Context, fn func(exp *gpio.MCP23017, p gpio.Port) error) error {
	addr, err := parseAddr(c.String("addr"))
	if err != nil {
		return console.Exit(1, "%v", err)
	}
	p, err := parsePort(c.String("port"))
	if err != nil {
		return err
	}
	return transfer(c, func(ctrl *controller.Controller) error {
		return fn(gpio.NewMCP23017(ctrl, addr), p)
	})
}

// byteArg decodes the single hex byte argument of a command.
func byteArg(c *cli.Context) (byte, error) {
	if c.NArg() != 1 {
		return 0, console.Exit(1, "expected 1 argument, got %d", c.NArg())
	}
	data, err := hex.DecodeString(c.Args().Get(0))
	if err != nil || len(data) != 1 {
		return 0, console.Exit(1, "could not decode data %q", c.Args().Get(0))
	}
	return data[0], nil
}

var gpioReadCmd = cli.Command{
	Name: "read",
	Action: func(c *cli.Context) error {
		return withExpander(c, func(exp *gpio.MCP23017, _ gpio.Port) error {
			levels, err := exp.Read()
			if err != nil {
				return console.Exit(1, "could not read gpio: %v", err)
			}
			console.Printf("%s I/O A: %#02X\n%s I/O B: %#02X\n", console.PictoPin, levels[0], console.PictoPin, levels[1])
			return nil
		})
	},
}

var gpioStatusCmd = cli.Command{
	Name:  "status",
	Flags: []cli.Flag{portFlag},
	Action: func(c *cli.Context) error {
		return withExpander(c, func(exp *gpio.MCP23017, p gpio.Port) error {
			data, err := exp.ReadSettings(p)
			if err != nil {
				return console.Exit(1, "could not read settings: %v", err)
			}
			console.Printf("IOCON content: %#02X\n", data)
			return nil
		})
	},
}

var gpioConfigureCmd = cli.Command{
	Name:      "configure",
	Usage:     "write the IOCON register",
	ArgsUsage: "<hex>",
	Flags:     []cli.Flag{portFlag},
	Action: func(c *cli.Context) error {
		data, err := byteArg(c)
		if err != nil {
			return err
		}
		return withExpander(c, func(exp *gpio.MCP23017, p gpio.Port) error {
			if err := exp.WriteSettings(p, data); err != nil {
				return console.Exit(1, "could not write settings: %v", err)
			}
			console.Printf("wrote IOCON content: %#02X\n", data)
			return nil
		})
	},
}

var gpioPullCmd = cli.Command{
	Name:      "pull",
	Usage:     "write the GPPU register",
	ArgsUsage: "<hex>",
	Flags:     []cli.Flag{portFlag},
	Action: func(c *cli.Context) error {
		data, err := byteArg(c)
		if err != nil {
			return err
		}
		return withExpander(c, func(exp *gpio.MCP23017, p gpio.Port) error {
			if err := exp.PullUp(p, data); err != nil {
				return console.Exit(1, "could not write pull up settings: %v", err)
			}
			console.Printf("wrote GPPU content: %#02X\n", data)
			return nil
		})
	},
}

var gpioWriteCmd = cli.Command{
	Name:      "write",
	Usage:     "configure a port as output and set its latch",
	ArgsUsage: "<hex>",
	Flags:     []cli.Flag{portFlag},
	Action: func(c *cli.Context) error {
		data, err := byteArg(c)
		if err != nil {
			return err
		}
		return withExpander(c, func(exp *gpio.MCP23017, p gpio.Port) error {
			if err := exp.Init(p, 0x00); err != nil {
				return console.Exit(1, "could not initialize gpio: %v", err)
			}
			if err := exp.WritePort(p, data); err != nil {
				return console.Exit(1, "could not write gpio: %v", err)
			}
			console.Printf("%s wrote OLAT content: %#02X\n", console.PictoPin, data)
			return nil
		})
	},
}
