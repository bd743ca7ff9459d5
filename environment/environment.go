// Package environment holds drivers for temperature, humidity and ambient
// light sensors.
package environment

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/mklimuk/i2cctl"
)

var ErrUnsupported = errors.New("measurement not supported by sensor")

// Bus is the transfer surface the sensors need.
type Bus interface {
	i2cctl.Reader
	i2cctl.Writer
	i2cctl.RegisterBus
	Write16Read(addr uint8, w uint16, r []byte, order binary.ByteOrder, start, stop bool) error
}

type Thermometer interface {
	GetTemperature(ctx context.Context) (float32, error)
}

type Hygrometer interface {
	GetHumidity(ctx context.Context) (float32, error)
}

type LightSensor interface {
	GetLux(ctx context.Context) (int, error)
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
