package command

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/i2cctl/cmd/i2cctl/bench"
	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
)

// MCP4661 addresses selectable with the A2:A0 pins.
var mcp4661Addresses = []uint8{0b0101000, 0b0101001, 0b0101010, 0b0101011, 0b0101100, 0b0101101}

// MCP446x commands
const (
	OpWrite     byte = 0x00
	OpIncrement byte = 0x01
	OpDecrement byte = 0x02
	OpRead      byte = 0x03
)

// Address map
const (
	AddrVolatileWiper0  byte = 0x00
	AddrVolatileWiper1  byte = 0x01
	AddrPermanentWiper0 byte = 0x02
	AddrPermanentWiper1 byte = 0x03
	AddrVolatileTCON0   byte = 0x04
	AddrStatus          byte = 0x05
)

// control builds the command byte: register on bits 7:4, command on bits
// 3:2 and the two high data bits on bits 1:0.
func control(reg, op byte, value uint16) byte {
	return reg<<4 | op<<2 | byte(value>>8)&0x03
}

func knob(c *cli.Context, addr uint8) (*i2c.GenericDriver, error) {
	b, err := bench.From(c)
	if err != nil {
		return nil, err
	}
	if err = b.Adaptor.Connect(); err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	board := i2c.NewGenericDriver(b.Adaptor, "mcp4661", int(addr), func(cfg i2c.Config) {
		cfg.SetBus(int(c.Uint("bus")))
	})
	if err = board.Start(); err != nil {
		return nil, fmt.Errorf("start error: %w", err)
	}
	return board, nil
}

func getKnobValue(c *cli.Context, addr uint8) (uint16, error) {
	board, err := knob(c, addr)
	if err != nil {
		return 0, err
	}
	defer func() { _ = board.Halt() }()
	if err = board.Write([]byte{control(AddrVolatileWiper0, OpRead, 0)}); err != nil {
		return 0, fmt.Errorf("command error: %w", err)
	}
	data := make([]byte, 2)
	if err = board.Read(data); err != nil {
		return 0, fmt.Errorf("read error: %w", err)
	}
	wiper := uint16(data[0])<<8 | uint16(data[1])
	return wiper & 0x03FF, nil
}

var PotentiometerGetCmd = &cli.Command{
	Name:  "get",
	Usage: "get potentiometer values",
	Action: func(c *cli.Context) error {
		for i, addr := range mcp4661Addresses {
			val, err := getKnobValue(c, addr)
			if err != nil {
				slog.Debug("knob read error", "knob", i, "addr", addr, "error", err)
				continue
			}
			console.Printf("knob %s (addr %s) value: %s\n", console.White(i), console.White(fmt.Sprintf("%#x", addr)), console.White(val))
		}
		return nil
	},
}

var PotentiometerSetCmd = &cli.Command{
	Name:      "set",
	Usage:     "set a volatile wiper",
	ArgsUsage: "<knob 0-5> <value 0-256>",
	Action: func(c *cli.Context) error {
		if c.NArg() < 2 {
			return console.Exit(1, "expected 2 arguments, got %d", c.NArg())
		}
		knobIdx, err := strconv.Atoi(c.Args().Get(0))
		if err != nil || knobIdx < 0 || knobIdx >= len(mcp4661Addresses) {
			return console.Exit(1, "invalid knob index: %s", c.Args().Get(0))
		}
		val, err := strconv.Atoi(c.Args().Get(1))
		if err != nil || val < 0 || val > 256 {
			return console.Exit(1, "invalid value: %s", c.Args().Get(1))
		}
		addr := mcp4661Addresses[knobIdx]
		board, err := knob(c, addr)
		if err != nil {
			return console.Exit(1, "knob %d (addr %#x): %v", knobIdx, addr, err)
		}
		defer func() { _ = board.Halt() }()
		command := []byte{control(AddrVolatileWiper0, OpWrite, uint16(val)), byte(val)}
		if err = board.Write(command); err != nil {
			return console.Exit(1, "knob %d (addr %#x) write error: %v", knobIdx, addr, err)
		}
		console.Printf("knob %s (addr %s) set to %s\n", console.White(knobIdx), console.White(fmt.Sprintf("%#x", addr)), console.White(val))
		return nil
	},
}

var PotentiometerCmd = &cli.Command{
	Name:    "potentiometer",
	Aliases: []string{"pot"},
	Usage:   "control an MCP4661 digital potentiometer",
	Subcommands: []*cli.Command{
		PotentiometerGetCmd,
		PotentiometerSetCmd,
	},
}
