// Package air drives the Aosong AGS02MA TVOC sensor.
package air

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mklimuk/i2cctl"
)

// DefaultAddress is the 7-bit address of the AGS02MA. The datasheet lists
// 0x34/0x35, the address shifted with the direction bit.
const DefaultAddress = 0x1A

const (
	regTVOC       byte = 0x00
	regCalibrate  byte = 0x01
	regVersion    byte = 0x11
	regResistance byte = 0x20
)

// statusBitRDY is set while the sensor is not ready or pre-heating.
const statusBitRDY = 0x01

var (
	ErrNotReady = errors.New("ags02ma: data not ready or sensor in pre-heat stage")
	ErrCRC      = errors.New("ags02ma: crc mismatch")
)

const (
	TVOCModeDirectRead    byte = 0x00
	TVOCModeRegisterWrite byte = 0x01
)

type Bus interface {
	i2cctl.Reader
	i2cctl.Writer
}

type Options struct {
	Address        uint8
	ConfigureDelay time.Duration
	ReadDelay      time.Duration
	TxDelay        time.Duration
	TVOCMode       byte
}

type Option func(*Options)

func WithAddress(addr uint8) Option {
	return func(o *Options) {
		o.Address = addr
	}
}

func WithConfigureDelay(delay time.Duration) Option {
	return func(o *Options) {
		o.ConfigureDelay = delay
	}
}

func WithReadDelay(delay time.Duration) Option {
	return func(o *Options) {
		o.ReadDelay = delay
	}
}

func WithTxDelay(delay time.Duration) Option {
	return func(o *Options) {
		o.TxDelay = delay
	}
}

func WithTVOCMode(mode byte) Option {
	return func(o *Options) {
		o.TVOCMode = mode
	}
}

// AGS02MA reads TVOC concentration in ppb. The sensor needs a settle time
// after some commands; the next operation waits for it instead of the one
// that caused it.
type AGS02MA struct {
	mx        sync.Mutex
	delayMx   sync.Mutex
	delayDone chan struct{} // closed when the settle time of the last operation has passed

	config Options
	bus    Bus
	buf    [5]byte
}

func NewAGS02MA(bus Bus, opts ...Option) *AGS02MA {
	config := Options{
		Address:        DefaultAddress,
		ConfigureDelay: 2 * time.Second,
		ReadDelay:      1500 * time.Millisecond,
		TxDelay:        100 * time.Millisecond,
		TVOCMode:       TVOCModeRegisterWrite,
	}
	for _, opt := range opts {
		opt(&config)
	}
	ch := make(chan struct{})
	close(ch)
	return &AGS02MA{config: config, bus: bus, delayDone: ch}
}

func (s *AGS02MA) waitForDelay(ctx context.Context) error {
	s.delayMx.Lock()
	ch := s.delayDone
	s.delayMx.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AGS02MA) scheduleDelay(ctx context.Context, d time.Duration) {
	ch := make(chan struct{})
	s.delayMx.Lock()
	s.delayDone = ch
	s.delayMx.Unlock()
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		close(ch)
	}()
}

// Close waits for the pending settle time.
func (s *AGS02MA) Close(ctx context.Context) {
	_ = s.waitForDelay(ctx)
}

// Configure switches the sensor to continuous TVOC measurement.
func (s *AGS02MA) Configure(ctx context.Context) error {
	if err := s.waitForDelay(ctx); err != nil {
		return err
	}
	s.mx.Lock()
	err := s.bus.Write(s.config.Address, []byte{regTVOC, 0x00, 0xFF, 0x00, 0xFF, 0x30}, true, true)
	s.mx.Unlock()
	if err != nil {
		return fmt.Errorf("ags02ma: configuration write failed: %w", err)
	}
	s.scheduleDelay(ctx, s.config.ConfigureDelay)
	return nil
}

func (s *AGS02MA) GetTVOC(ctx context.Context) (uint32, error) {
	if s.config.TVOCMode == TVOCModeDirectRead {
		return s.GetTVOCDirectRead(ctx)
	}
	return s.GetTVOCWithRegisterWrite(ctx)
}

// GetTVOCDirectRead reads the data frame without addressing the register
// first. The first byte is the status, the next three the ppb value.
func (s *AGS02MA) GetTVOCDirectRead(ctx context.Context) (uint32, error) {
	if err := s.waitForDelay(ctx); err != nil {
		return 0, err
	}
	s.mx.Lock()
	err := s.bus.Read(s.config.Address, s.buf[:], true, true)
	frame := s.buf
	s.mx.Unlock()
	if err != nil {
		return 0, fmt.Errorf("ags02ma: read failed: %w", err)
	}
	if frame[0]&statusBitRDY != 0 {
		return 0, ErrNotReady
	}
	s.scheduleDelay(ctx, s.config.ReadDelay)
	return ppb(frame), nil
}

func (s *AGS02MA) GetTVOCWithRegisterWrite(ctx context.Context) (uint32, error) {
	frame, err := s.exchange(ctx, regTVOC, "read tvoc")
	if err != nil {
		return 0, err
	}
	if frame[0]&statusBitRDY != 0 {
		return 0, ErrNotReady
	}
	s.scheduleDelay(ctx, s.config.ReadDelay)
	return ppb(frame), nil
}

func (s *AGS02MA) ReadVersion(ctx context.Context) (int, error) {
	frame, err := s.exchange(ctx, regVersion, "read version")
	if err != nil {
		return 0, err
	}
	return int(frame[3]), nil
}

func (s *AGS02MA) ReadResistance(ctx context.Context) (int, error) {
	frame, err := s.exchange(ctx, regResistance, "read resistance")
	if err != nil {
		return 0, err
	}
	s.scheduleDelay(ctx, s.config.ReadDelay)
	return int(frame[3]), nil
}

func (s *AGS02MA) Calibrate(ctx context.Context) error {
	if _, err := s.exchange(ctx, regCalibrate, "calibrate"); err != nil {
		return err
	}
	s.scheduleDelay(ctx, s.config.ReadDelay)
	return nil
}

// exchange addresses reg, waits the guard delay and reads a CRC checked
// frame. The register is written in its own transfer; the sensor does not
// support a repeated start.
func (s *AGS02MA) exchange(ctx context.Context, reg byte, what string) ([5]byte, error) {
	var frame [5]byte
	if err := s.waitForDelay(ctx); err != nil {
		return frame, err
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	if err := s.bus.Write(s.config.Address, []byte{reg}, true, true); err != nil {
		return frame, fmt.Errorf("ags02ma: could not %s: write reg %#02x failed: %w", what, reg, err)
	}
	timer := time.NewTimer(s.config.TxDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return frame, ctx.Err()
	}
	if err := s.bus.Read(s.config.Address, s.buf[:], true, true); err != nil {
		return frame, fmt.Errorf("ags02ma: could not %s: read failed: %w", what, err)
	}
	frame = s.buf
	if crc := checkCRC(frame[:4]); crc != frame[4] {
		return frame, fmt.Errorf("%w: expected %#x, got %#x", ErrCRC, frame[4], crc)
	}
	return frame, nil
}

func ppb(frame [5]byte) uint32 {
	return uint32(frame[1])<<16 | uint32(frame[2])<<8 | uint32(frame[3])
}

// checkCRC is CRC-8 with initial value 0xFF and polynomial 0x31.
func checkCRC(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for range 8 {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
