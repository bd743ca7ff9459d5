package accel

import (
	"fmt"
)

const (
	regAccX          = 0x04
	regAccY          = 0x06
	regAccZ          = 0x08
	regRange         = 0x22
	regLatch         = 0x1C
	regSlopeSettings = 0x12
	regSlopeDet      = 0x1A
	regWatchdog      = 0x2E
	regInterrupts    = 0x18
	regChipID        = 0x00
)

const DefaultAddress = 0x0A

// ChipID is the content of the chip id register.
const ChipID = 0xDD

// Bus is the transfer surface of the accelerometer.
type Bus interface {
	Write(addr uint8, buf []byte, start, stop bool) error
	Write8Read8(addr, w uint8, start, stop bool) (uint8, error)
}

// BMA220 represents Bosh BMA220 accelerometer
type BMA220 struct {
	transport Bus
	addr      uint8
}

func NewBMA220(bus Bus) *BMA220 {
	return &BMA220{transport: bus, addr: DefaultAddress}
}

func (b *BMA220) write(reg, value byte) error {
	return b.transport.Write(b.addr, []byte{reg, value}, true, true)
}

// ReadChipID reads the chip id register, ChipID on a genuine part.
func (b *BMA220) ReadChipID() (byte, error) {
	id, err := b.transport.Write8Read8(b.addr, regChipID, true, true)
	if err != nil {
		return 0, fmt.Errorf("bma220: could not read chip id: %w", err)
	}
	return id, nil
}

/*
en_slope_x (0x1A.5) enable slope detection on x-axis
en_slope_y (0x1A.4) enable slope detection on y-axis
en_slope_z (0x1A.3) enable slope detection on z-axis
slope_th (0x12[5:2]) define the threshold level of the slope 1 LSB threshold is 1 LSB of acc_data
slope_dur (0x12[1:0]) define the number of consecutive slope data points above slope_th which are required to set the interrupt (“00” = 1,”01” = 2,”10” = 3, “11” = 4)
slope_filt (0x12.6) defines whether filtered or unfiltered acceleration data should be used (evaluated) (‘0’=unfiltered, ‘1’=filtered)
slope_int (0x0C.0) whetherslopeinterrupthasbeentriggered
*/
func (b *BMA220) InitMotionDetection() error {
	steps := []struct {
		reg, value byte
		what       string
	}{
		{regRange, 0x03, "set detection sensitivity"},
		// permanent interrupt latch lat_int[2:0] = 111
		{regLatch, 0b01110000, "set interrupt settings"},
		{regSlopeDet, 0b00111000, "enable slope detection"},
		// default 0x45
		{regSlopeSettings, 0x45, "set slope detection settings"},
		{regWatchdog, 0x06, "set watchdog settings"},
	}
	for _, s := range steps {
		if err := b.write(s.reg, s.value); err != nil {
			return fmt.Errorf("bma220: could not %s: %w", s.what, err)
		}
	}
	return nil
}

// CheckMotionInterrupt returns 1 when slope detection has fired.
func (b *BMA220) CheckMotionInterrupt() (int, error) {
	v, err := b.transport.Write8Read8(b.addr, regInterrupts, true, true)
	if err != nil {
		return 0, fmt.Errorf("bma220: could not read registry content: %w", err)
	}
	// slope detection is on bit 0
	return int(v & 0x01), nil
}

func (b *BMA220) ResetMotionInterrupt() error {
	err := b.write(regLatch, 0b11110000)
	if err != nil {
		return fmt.Errorf("bma220: could not reset interrupt: %w", err)
	}
	return nil
}

// ReadAcceleration returns the raw 6-bit two's complement value of each axis.
func (b *BMA220) ReadAcceleration() (x, y, z int8, err error) {
	var axes [3]int8
	for i, reg := range []byte{regAccX, regAccY, regAccZ} {
		v, err := b.transport.Write8Read8(b.addr, reg, true, true)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("bma220: could not read axis %d: %w", i, err)
		}
		// data sits in bits 7:2
		axes[i] = int8(v) >> 2
	}
	return axes[0], axes[1], axes[2], nil
}
