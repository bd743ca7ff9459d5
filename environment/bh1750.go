package environment

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

const BH1750AddrHigh = 0b1011100
const BH1750AddrLow = 0b0100011

// BH1750Mode is a one-time measurement instruction.
type BH1750Mode struct {
	opCode uint8
	// measurement time at the datasheet maximum plus margin
	wait time.Duration
	// counts per lux multiplier
	scale uint32
}

var (
	BH1750LowResolution  = BH1750Mode{opCode: 0b00100011, wait: 25 * time.Millisecond, scale: 1}
	BH1750HighResolution = BH1750Mode{opCode: 0b00100000, wait: 180 * time.Millisecond, scale: 1}
	// BH1750HighResolution2 has 0.5 lx resolution.
	BH1750HighResolution2 = BH1750Mode{opCode: 0b00100001, wait: 180 * time.Millisecond, scale: 2}
)

var _ LightSensor = &BH1750{}

type BH1750 struct {
	transport Bus
	addr      uint8
	mode      BH1750Mode
}

func NewBH1750(bus Bus, addr uint8) *BH1750 {
	return &BH1750{
		addr:      addr,
		transport: bus,
		mode:      BH1750LowResolution,
	}
}

func (sensor *BH1750) SetMode(mode BH1750Mode) {
	sensor.mode = mode
}

func (sensor *BH1750) GetLux(ctx context.Context) (int, error) {
	err := sensor.transport.Write8(sensor.addr, sensor.mode.opCode, true, true)
	if err != nil {
		return 0, fmt.Errorf("bh1750: could not write command: %w", err)
	}
	if err = wait(ctx, sensor.mode.wait); err != nil {
		return 0, err
	}
	raw, err := sensor.transport.Read16(sensor.addr, binary.BigEndian, true, true)
	if err != nil {
		return 0, fmt.Errorf("bh1750: could not read data: %w", err)
	}
	// lx = counts / 1.2
	return int(uint32(raw) * 5 / (6 * sensor.mode.scale)), nil
}
