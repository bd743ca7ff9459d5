package controller

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3/physic"
)

// Command is the busy-state control verb issued to the master peripheral.
// Transfer direction is taken from the last SetAddress call.
type Command uint8

const (
	// CmdSingle starts, transfers one byte and stops.
	CmdSingle Command = iota
	// CmdBurstStart starts and transfers the first byte of a burst.
	CmdBurstStart
	// CmdBurstContinue transfers one more byte without framing.
	CmdBurstContinue
	// CmdBurstFinish transfers the last byte and stops.
	CmdBurstFinish
)

func (c Command) String() string {
	switch c {
	case CmdSingle:
		return "SINGLE"
	case CmdBurstStart:
		return "BURST_START"
	case CmdBurstContinue:
		return "BURST_CONT"
	case CmdBurstFinish:
		return "BURST_FINISH"
	default:
		return fmt.Sprintf("Command(%d)", uint8(c))
	}
}

// Peripheral is the register-level capability set of one master controller.
// Implementations address a single register block; they are not required to
// be safe for concurrent use since the controller serializes access.
type Peripheral interface {
	// Enable gates the peripheral clock on and resets the block.
	Enable() error
	// Init programs the bus clock and enables the master.
	Init(speed Speed) error
	SetAddress(addr uint8, receive bool)
	Put(data byte)
	Get() byte
	Control(cmd Command)
	Busy() bool
	// Fault reports the error status of the last issued command.
	Fault() Fault
	// BindInterrupt registers the handler called from the controller interrupt vector.
	BindInterrupt(handler func())
}

// Role is the function a pin takes on the bus.
type Role uint8

const (
	RoleSDA Role = iota
	RoleSCL
)

func (r Role) String() string {
	if r == RoleSCL {
		return "SCL"
	}
	return "SDA"
}

// PinMode is the electrical configuration applied to a bus pin.
type PinMode uint8

const (
	// ModeI2CData is open-drain with the alternate function selected.
	ModeI2CData PinMode = iota
	// ModeI2CClock is the clock line variant (push-pull capable on some parts).
	ModeI2CClock
)

// Pin is the pin configuration collaborator.
type Pin interface {
	Name() string
	EnablePeripheral()
	MapTo(id ID, role Role)
	Configure(mode PinMode)
}

// Speed selects the bus clock.
type Speed uint8

const (
	SpeedStandard Speed = iota
	SpeedFast
)

// Frequency returns the SCL frequency of the speed grade.
func (s Speed) Frequency() physic.Frequency {
	if s == SpeedFast {
		return 400 * physic.KiloHertz
	}
	return 100 * physic.KiloHertz
}

func (s Speed) String() string {
	if s == SpeedFast {
		return "fast"
	}
	return "standard"
}

// SpeedFor returns the fastest speed grade not exceeding f.
func SpeedFor(f physic.Frequency) Speed {
	if f >= 400*physic.KiloHertz {
		return SpeedFast
	}
	return SpeedStandard
}

// ParseSpeed accepts "standard", "fast", "100k" and "400k".
func ParseSpeed(s string) (Speed, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "100k", "100khz":
		return SpeedStandard, nil
	case "fast", "400k", "400khz":
		return SpeedFast, nil
	}
	return SpeedStandard, fmt.Errorf("unknown bus speed %q", s)
}

// UnmarshalText lets Speed be decoded from configuration files.
func (s *Speed) UnmarshalText(text []byte) error {
	v, err := ParseSpeed(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Speed) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
