package main

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl/cmd/i2cctl/bench"
	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
	"github.com/mklimuk/i2cctl/controller"
	"github.com/mklimuk/i2cctl/sim"
)

// parseAddr accepts a 7-bit address in hex, with or without the 0x prefix.
func parseAddr(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 8)
	if err != nil || v > 0x7F {
		return 0, fmt.Errorf("invalid 7-bit address %q", s)
	}
	return uint8(v), nil
}

func parseOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(s) {
	case "", "be", "big":
		return binary.BigEndian, nil
	case "le", "little":
		return binary.LittleEndian, nil
	}
	return nil, fmt.Errorf("unknown byte order %q", s)
}

// transfer runs fn on the selected controller and prints its phase trace
// when verbose.
func transfer(c *cli.Context, fn func(ctrl *controller.Controller) error) error {
	ctrl, p, err := bench.Bus(c)
	if err != nil {
		return console.Exit(1, "could not open bus: %v", err)
	}
	p.ClearTrace()
	err = fn(ctrl)
	printTrace(p)
	return err
}

func printTrace(p *sim.Peripheral) {
	for _, ph := range p.Trace() {
		console.Debugf("%s", ph)
	}
}

var readCmd = cli.Command{
	Name:      "read",
	Usage:     "read bytes from a target",
	ArgsUsage: "<addr> [count]",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "no-start", Usage: "continue an open transfer"},
		&cli.BoolFlag{Name: "no-stop", Usage: "leave the bus open"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return console.Exit(1, "expected at least 1 argument, got %d", c.NArg())
		}
		addr, err := parseAddr(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		count := 1
		if c.NArg() > 1 {
			count, err = strconv.Atoi(c.Args().Get(1))
			if err != nil || count < 0 {
				return console.Exit(1, "invalid byte count %q", c.Args().Get(1))
			}
		}
		buf := make([]byte, count)
		err = transfer(c, func(ctrl *controller.Controller) error {
			return ctrl.Read(addr, buf, !c.Bool("no-start"), !c.Bool("no-stop"))
		})
		if err != nil {
			return console.Exit(1, "could not read from %#02x: %s", addr, console.Red(err))
		}
		console.Print(hex.Dump(buf))
		return nil
	},
}

var writeCmd = cli.Command{
	Name:      "write",
	Usage:     "write hex bytes to a target",
	ArgsUsage: "<addr> <hex>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "no-start", Usage: "continue an open transfer"},
		&cli.BoolFlag{Name: "no-stop", Usage: "leave the bus open"},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask before writing to reserved addresses"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(1, "expected 2 arguments, got %d", c.NArg())
		}
		addr, err := parseAddr(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		data, err := hex.DecodeString(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "could not decode data: %v", err)
		}
		if addr < 0x08 && !c.Bool("yes") {
			answer, err := console.Prompt(fmt.Sprintf("%#02x is a reserved address, write anyway?", addr), console.No, console.Yes)
			if err != nil || answer != console.Yes {
				return console.Exit(1, "write aborted")
			}
		}
		err = transfer(c, func(ctrl *controller.Controller) error {
			return ctrl.Write(addr, data, !c.Bool("no-start"), !c.Bool("no-stop"))
		})
		if err != nil {
			return console.Exit(1, "could not write to %#02x: %s", addr, console.Red(err))
		}
		console.Infof("wrote %d bytes to %s", len(data), console.White(fmt.Sprintf("%#02x", addr)))
		return nil
	},
}

var regReadCmd = cli.Command{
	Name:      "regread",
	Aliases:   []string{"rr"},
	Usage:     "write a register address and read the value after a repeated start",
	ArgsUsage: "<addr> <reg>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "width", Aliases: []string{"w"}, Value: 8, Usage: "value width in bits: 8, 16 or 32"},
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "read count bytes instead of a scalar"},
		&cli.StringFlag{Name: "order", Value: "be", Usage: "byte order: be or le"},
		&cli.BoolFlag{Name: "reg16", Usage: "register address is 16 bits wide"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(1, "expected 2 arguments, got %d", c.NArg())
		}
		addr, err := parseAddr(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		bits := 8
		if c.Bool("reg16") {
			bits = 16
		}
		reg, err := strconv.ParseUint(strings.TrimPrefix(c.Args().Get(1), "0x"), 16, bits)
		if err != nil {
			return console.Exit(1, "invalid register %q", c.Args().Get(1))
		}
		order, err := parseOrder(c.String("order"))
		if err != nil {
			return console.Exit(1, "%v", err)
		}
		var out string
		err = transfer(c, func(ctrl *controller.Controller) error {
			res, err := readRegister(ctrl, addr, reg, c.Bool("reg16"), c.Int("width"), c.Int("count"), order)
			if err == nil {
				out = res.String()
			}
			return err
		})
		if err != nil {
			return console.Exit(1, "could not read register %#x of %#02x: %s", reg, addr, console.Red(err))
		}
		console.Print(out)
		return nil
	},
}

type hexValue struct {
	v     uint64
	width int
}

func (h hexValue) String() string {
	return fmt.Sprintf("%#0*x", h.width/4, h.v)
}

type hexBytes []byte

func (h hexBytes) String() string {
	return strings.TrimRight(hex.Dump(h), "\n")
}

func readRegister(ctrl *controller.Controller, addr uint8, reg uint64, reg16 bool, width, count int, order binary.ByteOrder) (fmt.Stringer, error) {
	if count > 0 {
		buf := make([]byte, count)
		var err error
		if reg16 {
			err = ctrl.Write16Read(addr, uint16(reg), buf, order, true, true)
		} else {
			err = ctrl.Write8Read(addr, uint8(reg), buf, true, true)
		}
		return hexBytes(buf), err
	}
	var v uint64
	var err error
	switch {
	case width == 8 && reg16:
		var r uint8
		r, err = ctrl.Write16Read8(addr, uint16(reg), order, true, true)
		v = uint64(r)
	case width == 8:
		var r uint8
		r, err = ctrl.Write8Read8(addr, uint8(reg), true, true)
		v = uint64(r)
	case width == 16 && reg16:
		var r uint16
		r, err = ctrl.Write16Read16(addr, uint16(reg), order, true, true)
		v = uint64(r)
	case width == 16:
		var r uint16
		r, err = ctrl.Write8Read16(addr, uint8(reg), order, true, true)
		v = uint64(r)
	case width == 32 && reg16:
		var r uint32
		r, err = ctrl.Write16Read32(addr, uint16(reg), order, true, true)
		v = uint64(r)
	case width == 32:
		var r uint32
		r, err = ctrl.Write8Read32(addr, uint8(reg), order, true, true)
		v = uint64(r)
	default:
		return nil, fmt.Errorf("unsupported width %d", width)
	}
	return hexValue{v: v, width: width}, err
}

var scanCmd = cli.Command{
	Name:  "scan",
	Usage: "probe every unreserved address and list the ones that acknowledge",
	Action: func(c *cli.Context) error {
		var found []uint8
		var failures []string
		err := transfer(c, func(ctrl *controller.Controller) error {
			for addr := uint8(0x08); addr <= 0x77; addr++ {
				_, err := ctrl.Read8(addr, true, true)
				switch {
				case err == nil:
					found = append(found, addr)
				case errors.Is(err, controller.ErrAddrNack):
				default:
					failures = append(failures, fmt.Sprintf("%#02x: %v", addr, err))
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		printGrid(found)
		for _, f := range failures {
			console.Warn(f)
		}
		return nil
	},
}

// printGrid prints found addresses in the i2cdetect layout.
func printGrid(found []uint8) {
	acked := make(map[uint8]bool, len(found))
	for _, a := range found {
		acked[a] = true
	}
	var sb strings.Builder
	sb.WriteString("     0  1  2  3  4  5  6  7  8  9  a  b  c  d  e  f\n")
	for row := 0; row < 8; row++ {
		fmt.Fprintf(&sb, "%02x: ", row*16)
		for col := 0; col < 16; col++ {
			addr := uint8(row*16 + col)
			switch {
			case addr < 0x08 || addr > 0x77:
				sb.WriteString("   ")
			case acked[addr]:
				fmt.Fprintf(&sb, "%s ", console.Green(fmt.Sprintf("%02x", addr)))
			default:
				sb.WriteString("-- ")
			}
		}
		sb.WriteString("\n")
	}
	console.Printf("%s", sb.String())
}
