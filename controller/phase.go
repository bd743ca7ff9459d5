package controller

// command selects the control verb for a phase from its framing flags.
// The table is the same for both directions.
func command(start, stop bool) Command {
	switch {
	case start && stop:
		return CmdSingle
	case start:
		return CmdBurstStart
	case stop:
		return CmdBurstFinish
	default:
		return CmdBurstContinue
	}
}

// phaseWriteByte transmits one byte to addr.
func (c *Controller) phaseWriteByte(addr, data uint8, start, stop bool) error {
	c.periph.SetAddress(addr, false)
	c.periph.Put(data)
	c.periph.Control(command(start, stop))
	if f := c.periph.Fault(); f != FaultNone {
		return f
	}
	return c.waitFinish()
}

// phaseReadByte receives one byte from addr into dst. dst is written once
// the byte has been fetched from the peripheral, even if the status read
// that follows reports a fault.
func (c *Controller) phaseReadByte(addr uint8, start, stop bool, dst *uint8) error {
	c.periph.SetAddress(addr, true)
	c.periph.Control(command(start, stop))
	if f := c.periph.Fault(); f != FaultNone {
		return f
	}
	err := c.waitFinish()
	if err != nil {
		return err
	}
	*dst = c.periph.Get()
	return c.periph.Fault().err()
}

// waitFinish polls the busy flag, returning on the first fault seen. The
// status is read once more after busy clears since a fault may assert
// between the last check and the flag dropping.
func (c *Controller) waitFinish() error {
	polls := 0
	for c.periph.Busy() {
		if f := c.periph.Fault(); f != FaultNone {
			return f
		}
		polls++
		if c.pollLimit > 0 && polls >= c.pollLimit {
			return ErrUnresponsive
		}
	}
	return c.periph.Fault().err()
}
