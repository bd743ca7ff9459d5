// Package eeprom drives 24xx-series I2C serial EEPROMs with a two byte
// memory address, such as the 24LC32 or 24LC256.
//
// Example usage:
//
//	e := eeprom.New(ctrl, 0x50, eeprom.WithCapacity(32768), eeprom.WithPageSize(64))
//	data, _ := e.Read(0x0000, 16)
//	err := e.Write(0x1000, []byte("i2cctl"))
package eeprom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/mklimuk/i2cctl"
	"github.com/mklimuk/i2cctl/controller"
)

const (
	DefaultAddress = 0x50

	defaultPageSize = 32
	defaultCapacity = 4096

	// writeCycle bounds the internal write cycle (5 ms max in the datasheets).
	writeCycle = 10 * time.Millisecond
)

var ErrOutOfRange = errors.New("eeprom: access out of range")

type Bus interface {
	i2cctl.Writer
	Read8(addr uint8, start, stop bool) (uint8, error)
	Write16Read(addr uint8, w uint16, r []byte, order binary.ByteOrder, start, stop bool) error
}

type EEPROM struct {
	bus      Bus
	addr     uint8
	pageSize int
	capacity int
	poll     time.Duration
}

type Option func(*EEPROM)

func WithPageSize(n int) Option {
	return func(e *EEPROM) {
		e.pageSize = n
	}
}

func WithCapacity(n int) Option {
	return func(e *EEPROM) {
		e.capacity = n
	}
}

// WithPollInterval sets the pause between acknowledge polls while a write
// cycle is running.
func WithPollInterval(d time.Duration) Option {
	return func(e *EEPROM) {
		e.poll = d
	}
}

func New(bus Bus, addr uint8, opts ...Option) *EEPROM {
	e := &EEPROM{
		bus:      bus,
		addr:     addr,
		pageSize: defaultPageSize,
		capacity: defaultCapacity,
		poll:     500 * time.Microsecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Read returns length bytes starting at address using a random read: the
// address is written and the data read after a repeated start.
func (e *EEPROM) Read(address uint16, length int) ([]byte, error) {
	if length < 0 || int(address)+length > e.capacity {
		return nil, ErrOutOfRange
	}
	if length == 0 {
		return []byte{}, nil
	}
	data := make([]byte, length)
	if err := e.bus.Write16Read(e.addr, address, data, binary.BigEndian, true, true); err != nil {
		return nil, fmt.Errorf("eeprom: could not read %d bytes at %#04x: %w", length, address, err)
	}
	return data, nil
}

// Write splits data on page boundaries and waits for the write cycle of each
// page to complete.
func (e *EEPROM) Write(address uint16, data []byte) error {
	if int(address)+len(data) > e.capacity {
		return ErrOutOfRange
	}
	offset := 0
	for offset < len(data) {
		space := e.pageSize - int(address)%e.pageSize
		chunk := data[offset:]
		if len(chunk) > space {
			chunk = chunk[:space]
		}
		if err := e.pageWrite(address, chunk); err != nil {
			return err
		}
		offset += len(chunk)
		address += uint16(len(chunk))
	}
	return nil
}

// pageWrite sends the address and the data as one framed transfer.
func (e *EEPROM) pageWrite(address uint16, data []byte) error {
	buf := binary.BigEndian.AppendUint16(make([]byte, 0, 2+len(data)), address)
	buf = append(buf, data...)
	if err := e.bus.Write(e.addr, buf, true, true); err != nil {
		return fmt.Errorf("eeprom: could not write page at %#04x: %w", address, err)
	}
	return e.waitUntilReady(writeCycle)
}

// waitUntilReady polls the device until it acknowledges its address again.
func (e *EEPROM) waitUntilReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := e.bus.Read8(e.addr, true, true)
		if !errors.Is(err, controller.ErrAddrNack) {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("eeprom: timeout waiting for write completion")
		}
		time.Sleep(e.poll)
	}
}
