package command

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl/cmd/i2cctl/bench"
	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
	"github.com/mklimuk/i2cctl/memory/eeprom"
)

var memoryFlags = []cli.Flag{
	&cli.StringFlag{Name: "addr", Usage: "memory device address", Value: "50"},
	&cli.IntFlag{Name: "offset", Usage: "memory offset", Required: true},
	&cli.IntFlag{Name: "capacity", Usage: "memory size in bytes", Value: 4096},
	&cli.IntFlag{Name: "page", Usage: "page size in bytes", Value: 32},
}

func memoryDevice(c *cli.Context) (*eeprom.EEPROM, uint16, error) {
	addr, err := strconv.ParseUint(strings.TrimPrefix(c.String("addr"), "0x"), 16, 7)
	if err != nil {
		return nil, 0, console.Exit(1, "invalid address %q", c.String("addr"))
	}
	offset := c.Int("offset")
	if offset < 0 || offset > 0xFFFF {
		return nil, 0, console.Exit(1, "offset out of range (0-0xFFFF): %d", offset)
	}
	if c.Int("page") <= 0 {
		return nil, 0, console.Exit(1, "invalid page size: %d", c.Int("page"))
	}
	ctrl, _, err := bench.Bus(c)
	if err != nil {
		return nil, 0, console.Exit(1, "could not open bus: %v", err)
	}
	e := eeprom.New(ctrl, uint8(addr), eeprom.WithCapacity(c.Int("capacity")), eeprom.WithPageSize(c.Int("page")))
	return e, uint16(offset), nil
}

var MemoryReadCmd = &cli.Command{
	Name:  "read",
	Usage: "read a 24xx serial EEPROM",
	Flags: append([]cli.Flag{
		&cli.IntFlag{Name: "length", Usage: "number of bytes to read", Value: 16},
	}, memoryFlags...),
	Action: func(c *cli.Context) error {
		e, offset, err := memoryDevice(c)
		if err != nil {
			return err
		}
		length := c.Int("length")
		if length <= 0 || length > 256 {
			return console.Exit(1, "length out of range: %d", length)
		}
		data, err := e.Read(offset, length)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		console.Print(hex.Dump(data))
		return nil
	},
}

var MemoryWriteCmd = &cli.Command{
	Name:  "write",
	Usage: "write a 24xx serial EEPROM page by page",
	Flags: append([]cli.Flag{
		&cli.StringFlag{Name: "data", Usage: "hex bytes to write (e.g. '01FF23')", Required: true},
	}, memoryFlags...),
	Action: func(c *cli.Context) error {
		e, offset, err := memoryDevice(c)
		if err != nil {
			return err
		}
		data, err := hex.DecodeString(c.String("data"))
		if err != nil {
			return console.Exit(1, "invalid data hex string: %v", err)
		}
		if err = e.Write(offset, data); err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		console.Printf("wrote %d bytes to memory %#04x: % X\n", len(data), offset, data)
		return nil
	},
}

var MemoryCmd = &cli.Command{
	Name:    "memory",
	Aliases: []string{"mem"},
	Usage:   "serial EEPROM operations",
	Subcommands: []*cli.Command{
		MemoryReadCmd,
		MemoryWriteCmd,
	},
}
