// Package controller implements a synchronous I2C master on top of a
// register-level peripheral. Every logical transfer is broken into byte
// phases, each issued to the peripheral and polled to completion before the
// next one; a fault on any phase ends the transfer.
//
// A controller is obtained from a Registry (or built with New), configured
// once with Setup and then shared by any number of goroutines. Each public
// operation holds the controller lock for its whole duration so compound
// transfers never interleave on the wire.
package controller

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mklimuk/i2cctl"
)

var _ i2cctl.Bus = &Controller{}

// DefaultPollLimit bounds the busy-poll loop of a single phase.
const DefaultPollLimit = 100_000

type Options struct {
	// PollLimit is the number of busy polls after which a phase fails with
	// ErrUnresponsive. Zero waits forever.
	PollLimit int
	// Locker guards whole transactions. Defaults to a sync.Mutex.
	Locker sync.Locker
	Logger *slog.Logger
}

type Option func(*Options)

func WithPollLimit(limit int) Option {
	return func(o *Options) {
		o.PollLimit = limit
	}
}

func WithLocker(l sync.Locker) Option {
	return func(o *Options) {
		o.Locker = l
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// Controller is one I2C master controller.
type Controller struct {
	id        ID
	periph    Peripheral
	mx        sync.Locker
	pollLimit int
	log       *slog.Logger

	sda   Pin
	scl   Pin
	speed Speed

	onComplete atomic.Pointer[func()]
}

// New builds a controller for the given peripheral and binds its interrupt
// vector. Most callers should go through Registry.Get, which guarantees a
// single controller per id.
func New(id ID, p Peripheral, opts ...Option) (*Controller, error) {
	if id >= ControllerCount {
		return nil, fmt.Errorf("%w: %d", ErrInvalidController, id)
	}
	if p == nil {
		return nil, fmt.Errorf("%w %s", ErrNoPeripheral, id)
	}
	config := Options{
		PollLimit: DefaultPollLimit,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Locker == nil {
		config.Locker = &sync.Mutex{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	c := &Controller{
		id:        id,
		periph:    p,
		mx:        config.Locker,
		pollLimit: config.PollLimit,
		log:       config.Logger.With("controller", id.String()),
	}
	p.BindInterrupt(c.handleInterrupt)
	return c, nil
}

func (c *Controller) ID() ID {
	return c.id
}

func (c *Controller) String() string {
	return c.id.String()
}

// done logs a failed operation and passes its result through.
func (c *Controller) done(op string, addr uint8, err error) error {
	if err != nil {
		c.log.Debug("i2c transfer failed", "op", op, "addr", fmt.Sprintf("%#02x", addr), "error", err)
	}
	return err
}

// Read reads len(buf) bytes from addr. Bytes received before a fault are
// left in buf.
func (c *Controller) Read(addr uint8, buf []byte, start, stop bool) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.done("read", addr, c.readBytes(addr, buf, start, stop))
}

func (c *Controller) Read8(addr uint8, start, stop bool) (uint8, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	var data uint8
	err := c.phaseReadByte(addr, start, stop, &data)
	return data, c.done("read8", addr, err)
}

func (c *Controller) Write(addr uint8, buf []byte, start, stop bool) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.done("write", addr, c.writeBytes(addr, buf, start, stop))
}

func (c *Controller) Write8(addr, data uint8, start, stop bool) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.done("write8", addr, c.phaseWriteByte(addr, data, start, stop))
}

// WriteRead writes w without a stop condition and reads r after a repeated
// start.
func (c *Controller) WriteRead(addr uint8, w, r []byte, start, stop bool) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	err := c.writeBytes(addr, w, start, false)
	if err != nil {
		return c.done("writeRead", addr, err)
	}
	return c.done("writeRead", addr, c.readBytes(addr, r, true, stop))
}

func (c *Controller) Write8Read(addr, w uint8, r []byte, start, stop bool) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	err := c.phaseWriteByte(addr, w, start, false)
	if err != nil {
		return c.done("write8read", addr, err)
	}
	return c.done("write8read", addr, c.readBytes(addr, r, true, stop))
}

func (c *Controller) Write8Read8(addr, w uint8, start, stop bool) (uint8, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	err := c.phaseWriteByte(addr, w, start, false)
	if err != nil {
		return 0, c.done("write8read8", addr, err)
	}
	var data uint8
	err = c.phaseReadByte(addr, true, stop, &data)
	if err != nil {
		return 0, c.done("write8read8", addr, err)
	}
	return data, nil
}

func (c *Controller) Read16(addr uint8, order binary.ByteOrder, start, stop bool) (uint16, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	v, err := c.read16(addr, order, start, stop)
	return v, c.done("read16", addr, err)
}

func (c *Controller) Read32(addr uint8, order binary.ByteOrder, start, stop bool) (uint32, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	v, err := c.read32(addr, order, start, stop)
	return v, c.done("read32", addr, err)
}

func (c *Controller) Write16(addr uint8, data uint16, order binary.ByteOrder, start, stop bool) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.done("write16", addr, c.write16(addr, data, order, start, stop))
}

func (c *Controller) Write32(addr uint8, data uint32, order binary.ByteOrder, start, stop bool) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.done("write32", addr, c.write32(addr, data, order, start, stop))
}

// Write8Read16 writes a register address and reads a 16-bit value in the
// given byte order.
func (c *Controller) Write8Read16(addr, w uint8, order binary.ByteOrder, start, stop bool) (uint16, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	err := c.phaseWriteByte(addr, w, start, false)
	if err != nil {
		return 0, c.done("write8read16", addr, err)
	}
	v, err := c.read16(addr, order, true, stop)
	return v, c.done("write8read16", addr, err)
}

func (c *Controller) Write8Read32(addr, w uint8, order binary.ByteOrder, start, stop bool) (uint32, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	err := c.phaseWriteByte(addr, w, start, false)
	if err != nil {
		return 0, c.done("write8read32", addr, err)
	}
	v, err := c.read32(addr, order, true, stop)
	return v, c.done("write8read32", addr, err)
}

// Write16Read writes a 16-bit register address in the given byte order and
// reads r after a repeated start.
func (c *Controller) Write16Read(addr uint8, w uint16, r []byte, order binary.ByteOrder, start, stop bool) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	err := c.write16(addr, w, order, start, false)
	if err != nil {
		return c.done("write16read", addr, err)
	}
	return c.done("write16read", addr, c.readBytes(addr, r, true, stop))
}

func (c *Controller) Write16Read8(addr uint8, w uint16, order binary.ByteOrder, start, stop bool) (uint8, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	err := c.write16(addr, w, order, start, false)
	if err != nil {
		return 0, c.done("write16read8", addr, err)
	}
	var data uint8
	err = c.phaseReadByte(addr, true, stop, &data)
	if err != nil {
		return 0, c.done("write16read8", addr, err)
	}
	return data, nil
}

// Write16Read16 uses order for both the written address and the value read.
func (c *Controller) Write16Read16(addr uint8, w uint16, order binary.ByteOrder, start, stop bool) (uint16, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	err := c.write16(addr, w, order, start, false)
	if err != nil {
		return 0, c.done("write16read16", addr, err)
	}
	v, err := c.read16(addr, order, true, stop)
	return v, c.done("write16read16", addr, err)
}

func (c *Controller) Write16Read32(addr uint8, w uint16, order binary.ByteOrder, start, stop bool) (uint32, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	err := c.write16(addr, w, order, start, false)
	if err != nil {
		return 0, c.done("write16read32", addr, err)
	}
	v, err := c.read32(addr, order, true, stop)
	return v, c.done("write16read32", addr, err)
}
