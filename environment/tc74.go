package environment

import (
	"context"
	"fmt"
)

const (
	TC74DefaultAddress = 0x4D

	tc74TempRegister   = 0x00
	tc74ConfigRegister = 0x01

	tc74DataReady = 0x40
	tc74Standby   = 0x80
)

var _ Thermometer = &TC74{}

// TC74 represents a Microchip TC74 Digital Temperature Sensor
// See: https://ww1.microchip.com/downloads/en/DeviceDoc/21462D.pdf
type TC74 struct {
	transport Bus
	address   uint8
	lastTemp  float32
}

type TC74Config struct {
	Address uint8
}

type TC74ConfigOption func(*TC74Config)

func WithAddress(address uint8) TC74ConfigOption {
	return func(c *TC74Config) {
		c.Address = address
	}
}

// NewTC74 creates a TC74 driver at the default address 0x4D unless an
// address option is given.
func NewTC74(bus Bus, opts ...TC74ConfigOption) *TC74 {
	config := &TC74Config{
		Address: TC74DefaultAddress,
	}
	for _, opt := range opts {
		opt(config)
	}
	return &TC74{transport: bus, address: config.Address}
}

// GetConfig reads the configuration register.
func (sensor *TC74) GetConfig(ctx context.Context) (byte, error) {
	config, err := sensor.transport.Write8Read8(sensor.address, tc74ConfigRegister, true, true)
	if err != nil {
		return 0, fmt.Errorf("tc74: could not read config register: %w", err)
	}
	return config, nil
}

// GetTemperature reads the temperature in Celsius. While the sensor has no
// fresh conversion (DATA_RDY clear) the last value read is returned.
func (sensor *TC74) GetTemperature(ctx context.Context) (float32, error) {
	config, err := sensor.GetConfig(ctx)
	if err != nil {
		return 0, err
	}
	if config&tc74DataReady == 0 {
		return sensor.lastTemp, nil
	}
	raw, err := sensor.transport.Write8Read8(sensor.address, tc74TempRegister, true, true)
	if err != nil {
		return 0, fmt.Errorf("tc74: could not read temp register: %w", err)
	}
	// two's complement
	sensor.lastTemp = float32(int8(raw))
	return sensor.lastTemp, nil
}

// SetStandby switches the sensor between standby and normal conversion.
func (sensor *TC74) SetStandby(ctx context.Context, standby bool) error {
	var config byte
	if standby {
		config = tc74Standby
	}
	err := sensor.transport.Write(sensor.address, []byte{tc74ConfigRegister, config}, true, true)
	if err != nil {
		return fmt.Errorf("tc74: could not write config register: %w", err)
	}
	return nil
}

func (sensor *TC74) GetHumidity(ctx context.Context) (float32, error) {
	return 0, fmt.Errorf("tc74: %w", ErrUnsupported)
}
