package environment

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// SHTC3 I2C address (7-bit)
const SHTC3Address = 0x70

// Commands (Big Endian on the wire)
const (
	shtc3CmdWake  uint16 = 0x3517
	shtc3CmdSleep uint16 = 0xB098
	shtc3CmdID    uint16 = 0xEFC8

	// Normal power, clock stretching disabled
	// Measure T first, then RH
	shtc3CmdMeasureTFirstNoCS uint16 = 0x7866
)

var ErrCRC = errors.New("crc mismatch")

var (
	_ Thermometer = &SHTC3{}
	_ Hygrometer  = &SHTC3{}
)

// SHTC3 represents Sensirion SHTC3 Temperature/Humidity sensor
// Typical usage:
//
//	s := NewSHTC3(bus)
//	t, h, err := s.GetTempAndHum(ctx)
type SHTC3 struct {
	transport Bus
	lastTemp  float32
	lastHum   float32
}

func NewSHTC3(bus Bus) *SHTC3 {
	return &SHTC3{transport: bus}
}

// GetTemperature performs a single measurement and returns temperature in Celsius.
func (s *SHTC3) GetTemperature(ctx context.Context) (float32, error) {
	if err := s.measure(ctx); err != nil {
		return 0, err
	}
	return s.lastTemp, nil
}

// GetHumidity performs a single measurement and returns relative humidity in %RH.
func (s *SHTC3) GetHumidity(ctx context.Context) (float32, error) {
	if err := s.measure(ctx); err != nil {
		return 0, err
	}
	return s.lastHum, nil
}

func (s *SHTC3) GetTempAndHum(ctx context.Context) (float32, float32, error) {
	if err := s.measure(ctx); err != nil {
		return 0, 0, err
	}
	return s.lastTemp, s.lastHum, nil
}

// ReadID returns the ID register of the sensor.
func (s *SHTC3) ReadID(ctx context.Context) (uint16, error) {
	buf := make([]byte, 3)
	err := s.transport.Write16Read(SHTC3Address, shtc3CmdID, buf, binary.BigEndian, true, true)
	if err != nil {
		return 0, fmt.Errorf("shtc3: id read failed: %w", err)
	}
	if shtCRC8(buf[0:2]) != buf[2] {
		return 0, fmt.Errorf("shtc3: id %w", ErrCRC)
	}
	return binary.BigEndian.Uint16(buf[0:2]), nil
}

func (s *SHTC3) measure(ctx context.Context) error {
	if err := s.writeCmd(shtc3CmdWake); err != nil {
		return fmt.Errorf("shtc3: wake failed: %w", err)
	}
	// wake up time is below 240us
	if err := wait(ctx, time.Millisecond); err != nil {
		return err
	}
	if err := s.writeCmd(shtc3CmdMeasureTFirstNoCS); err != nil {
		return fmt.Errorf("shtc3: measure command failed: %w", err)
	}
	// typical measurement time ~12.1 ms in normal mode
	if err := wait(ctx, 15*time.Millisecond); err != nil {
		return err
	}

	// T[0:2], CRC, RH[3:5], CRC
	buf := make([]byte, 6)
	if err := s.transport.Read(SHTC3Address, buf, true, true); err != nil {
		return fmt.Errorf("shtc3: read failed: %w", err)
	}
	if shtCRC8(buf[0:2]) != buf[2] {
		return fmt.Errorf("shtc3: temperature %w", ErrCRC)
	}
	if shtCRC8(buf[3:5]) != buf[5] {
		return fmt.Errorf("shtc3: humidity %w", ErrCRC)
	}
	s.lastTemp = convertSHTC3Temperature(binary.BigEndian.Uint16(buf[0:2]))
	s.lastHum = convertSHTC3Humidity(binary.BigEndian.Uint16(buf[3:5]))

	if err := s.writeCmd(shtc3CmdSleep); err != nil {
		return fmt.Errorf("shtc3: sleep failed: %w", err)
	}
	return nil
}

func (s *SHTC3) writeCmd(cmd uint16) error {
	return s.transport.Write16(SHTC3Address, cmd, binary.BigEndian, true, true)
}

// T(C) = -45 + 175 * raw / 65535
func convertSHTC3Temperature(raw uint16) float32 {
	return -45.0 + (175.0 * float32(raw) / 65535.0)
}

// RH(%) = 100 * raw / 65535
func convertSHTC3Humidity(raw uint16) float32 {
	return 100.0 * float32(raw) / 65535.0
}

// Sensirion CRC-8, polynomial 0x31, init 0xFF
func shtCRC8(data []byte) byte {
	var crc byte = 0xFF
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if (crc & 0x80) != 0 {
				crc = (crc << 1) ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// SHTC3Frame encodes a raw measurement as the sensor sends it, with CRCs.
// It is used to preload simulated sensors.
func SHTC3Frame(rawT, rawRH uint16) []byte {
	buf := make([]byte, 6)
	binary.BigEndian.PutUint16(buf[0:2], rawT)
	buf[2] = shtCRC8(buf[0:2])
	binary.BigEndian.PutUint16(buf[3:5], rawRH)
	buf[5] = shtCRC8(buf[3:5])
	return buf
}
