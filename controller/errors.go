package controller

import (
	"errors"
	"fmt"
)

// Fault is a bus fault kind reported by the peripheral. The zero value means
// no error and is never returned as an error.
type Fault uint8

const (
	FaultNone Fault = 0x00
	// ErrBusFault is the error status without a specific cause, reported while
	// the peripheral is busy in a faulted state.
	ErrBusFault Fault = 0x02
	// ErrAddrNack means the target did not acknowledge its address.
	ErrAddrNack Fault = 0x04
	// ErrDataNack means the target did not acknowledge a data byte.
	ErrDataNack Fault = 0x08
	// ErrArbLost means another master won arbitration.
	ErrArbLost Fault = 0x10
	// ErrUnresponsive is raised by the driver when the busy flag did not clear
	// within the poll limit.
	ErrUnresponsive Fault = 0x40
	// ErrClockTimeout means the clock line was held low past the bus timeout.
	ErrClockTimeout Fault = 0x80
)

func (f Fault) Error() string {
	switch f {
	case FaultNone:
		return "i2c: no error"
	case ErrBusFault:
		return "i2c: bus fault"
	case ErrAddrNack:
		return "i2c: address not acknowledged"
	case ErrDataNack:
		return "i2c: data not acknowledged"
	case ErrArbLost:
		return "i2c: arbitration lost"
	case ErrUnresponsive:
		return "i2c: peripheral not responding"
	case ErrClockTimeout:
		return "i2c: clock timeout"
	default:
		return fmt.Sprintf("i2c: fault %#02x", uint8(f))
	}
}

// err converts a status value into an error, nil for FaultNone.
func (f Fault) err() error {
	if f == FaultNone {
		return nil
	}
	return f
}

var (
	ErrInvalidController = errors.New("invalid i2c controller")
	ErrNoPeripheral      = errors.New("no peripheral for i2c controller")
)
