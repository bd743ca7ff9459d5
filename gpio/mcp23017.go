package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/i2cctl/controller"
)

type registry int

const DefaultMCP23017Address = 0x21

const (
	IODIRA registry = iota
	IOPOLA
	GPINTENA
	DEFVALA
	INTCONA
	IOCONA
	GPPUA
	INTFA
	INTCAPA
	GPIOA
	OLATA
	IODIRB
	IOPOLB
	GPINTENB
	DEFVALB
	INTCONB
	IOCONB
	GPPUB
	INTFB
	INTCAPB
	GPIOB
	OLATB
)

// BankAddr maps registers to addresses for IOCON.BANK = 0 and 1.
var BankAddr = [2]map[registry]byte{
	{
		IODIRA:   0x00,
		IOPOLA:   0x02,
		GPINTENA: 0x04,
		DEFVALA:  0x06,
		INTCONA:  0x08,
		IOCONA:   0x0A,
		GPPUA:    0x0C,
		INTFA:    0x0E,
		INTCAPA:  0x10,
		GPIOA:    0x12,
		OLATA:    0x14,
		IODIRB:   0x01,
		IOPOLB:   0x03,
		GPINTENB: 0x05,
		DEFVALB:  0x07,
		INTCONB:  0x09,
		IOCONB:   0x0B,
		GPPUB:    0x0D,
		INTFB:    0x0F,
		INTCAPB:  0x11,
		GPIOB:    0x13,
		OLATB:    0x15,
	},
	{
		IODIRA:   0x00,
		IOPOLA:   0x01,
		GPINTENA: 0x02,
		DEFVALA:  0x03,
		INTCONA:  0x04,
		IOCONA:   0x05,
		GPPUA:    0x06,
		INTFA:    0x07,
		INTCAPA:  0x08,
		GPIOA:    0x09,
		OLATA:    0x0A,
		IODIRB:   0x10,
		IOPOLB:   0x11,
		GPINTENB: 0x12,
		DEFVALB:  0x13,
		INTCONB:  0x14,
		IOCONB:   0x15,
		GPPUB:    0x16,
		INTFB:    0x17,
		INTCAPB:  0x18,
		GPIOB:    0x19,
		OLATB:    0x1A,
	},
}

// ioconBank is the BANK bit of IOCON.
const ioconBank = 0x80

// Bus is the transfer surface of the expander.
type Bus interface {
	Write(addr uint8, buf []byte, start, stop bool) error
	Write8Read8(addr, w uint8, start, stop bool) (uint8, error)
}

// Port is one of the two 8-bit ports.
type Port int

const (
	PortA Port = iota
	PortB
)

func (p Port) String() string {
	if p == PortB {
		return "B"
	}
	return "A"
}

func (p Port) reg(a, b registry) registry {
	if p == PortB {
		return b
	}
	return a
}

/*
	Steps to read GPIO:

1. Set 0xFF to IODIR registry (all inputs) - 0x00(A)/0x01(B)
2. Configure pull-up? 0x06
3. Read port register 0x09
*/
type MCP23017 struct {
	mx         sync.Mutex
	transport  Bus
	bank       int
	address    uint8
	retryLimit int
}

type Option func(*MCP23017)

// WithRetries sets how many times a transfer is attempted when another
// master wins arbitration.
func WithRetries(n int) Option {
	return func(m *MCP23017) {
		if n > 0 {
			m.retryLimit = n
		}
	}
}

func NewMCP23017(bus Bus, address uint8, opts ...Option) *MCP23017 {
	m := &MCP23017{retryLimit: 1, transport: bus, address: address}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// retry runs op until it succeeds, fails with an error other than lost
// arbitration or the retry limit is reached.
func (m *MCP23017) retry(what string, op func() error) error {
	var err error
	for i := m.retryLimit; i > 0; i-- {
		err = op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, controller.ErrArbLost) {
			return fmt.Errorf("mcp23017: could not %s: %w", what, err)
		}
	}
	return fmt.Errorf("mcp23017: could not %s (retry limit reached): %w", what, err)
}

func (m *MCP23017) writeRegistry(reg registry, value byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.transport.Write(m.address, []byte{BankAddr[m.bank][reg], value}, true, true)
}

func (m *MCP23017) readRegistry(reg registry) (byte, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.transport.Write8Read8(m.address, BankAddr[m.bank][reg], true, true)
}

func (m *MCP23017) write(what string, reg registry, value byte) error {
	return m.retry(what, func() error {
		return m.writeRegistry(reg, value)
	})
}

func (m *MCP23017) read(what string, reg registry) (byte, error) {
	var res byte
	err := m.retry(what, func() error {
		var err error
		res, err = m.readRegistry(reg)
		return err
	})
	return res, err
}

// Init sets the IODIR register of port p; a set bit makes the pin an input.
func (m *MCP23017) Init(p Port, inout byte) error {
	return m.write("initialize gpio "+p.String()+" set", p.reg(IODIRA, IODIRB), inout)
}

// PullUp sets the pull up resistors of port p.
func (m *MCP23017) PullUp(p Port, settings byte) error {
	return m.write("set pull-up on gpio "+p.String()+" set", p.reg(GPPUA, GPPUB), settings)
}

// ReadPort reads the pin levels of port p.
func (m *MCP23017) ReadPort(p Port) (byte, error) {
	return m.read("read gpio "+p.String()+" set", p.reg(GPIOA, GPIOB))
}

// WritePort sets the output latch of port p.
func (m *MCP23017) WritePort(p Port, value byte) error {
	return m.write("write gpio "+p.String()+" set", p.reg(OLATA, OLATB), value)
}

// Read returns the levels of port A and port B.
func (m *MCP23017) Read() ([]byte, error) {
	res := make([]byte, 2)
	var err error
	res[0], err = m.ReadPort(PortA)
	if err != nil {
		return nil, err
	}
	res[1], err = m.ReadPort(PortB)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ReadSettings reads the IOCON register.
func (m *MCP23017) ReadSettings(p Port) (byte, error) {
	return m.read("read settings of gpio "+p.String()+" set", p.reg(IOCONA, IOCONB))
}

// WriteSettings writes the IOCON register. Changing the BANK bit switches
// the register map used for later transfers.
func (m *MCP23017) WriteSettings(p Port, settings byte) error {
	err := m.write("write settings on gpio "+p.String()+" set", p.reg(IOCONA, IOCONB), settings)
	if err != nil {
		return err
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	if settings&ioconBank != 0 {
		m.bank = 1
	} else {
		m.bank = 0
	}
	return nil
}
