package controller

import "fmt"

// Setup binds the bus pins, brings the peripheral out of reset, configures
// both pins for the bus and initialises the master at speed. It finishes
// with one discarded receive so that residual state does not leak into the
// first real transfer.
func (c *Controller) Setup(sda, scl Pin, speed Speed) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.sda = sda
	c.scl = scl

	if err := c.periph.Enable(); err != nil {
		return fmt.Errorf("could not enable peripheral of %s: %w", c.id, err)
	}
	configurePin(c.id, sda, RoleSDA, ModeI2CData)
	configurePin(c.id, scl, RoleSCL, ModeI2CClock)

	if err := c.periph.Init(speed); err != nil {
		return fmt.Errorf("could not initialize %s at %s speed: %w", c.id, speed, err)
	}
	c.speed = speed

	// discard receive
	c.periph.Control(CmdSingle)
	if err := c.waitFinish(); err != nil {
		c.log.Debug("discard receive reported a fault", "error", err)
	}
	c.log.Info("i2c controller configured", "sda", pinName(sda), "scl", pinName(scl), "speed", speed.String())
	return nil
}

// SetSpeed reprograms the bus clock of a configured controller.
func (c *Controller) SetSpeed(speed Speed) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if err := c.periph.Init(speed); err != nil {
		return fmt.Errorf("could not set %s speed to %s: %w", c.id, speed, err)
	}
	c.speed = speed
	return nil
}

func (c *Controller) Speed() Speed {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.speed
}

// Pins returns the data and clock pins bound by Setup, nil before.
func (c *Controller) Pins() (sda, scl Pin) {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.sda, c.scl
}

func configurePin(id ID, p Pin, role Role, mode PinMode) {
	if p == nil {
		return
	}
	p.EnablePeripheral()
	p.MapTo(id, role)
	p.Configure(mode)
}

func pinName(p Pin) string {
	if p == nil {
		return "-"
	}
	return p.Name()
}
