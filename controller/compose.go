package controller

import "encoding/binary"

// byteOrder defaults to big endian, most significant byte first.
func byteOrder(order binary.ByteOrder) binary.ByteOrder {
	if order == nil {
		return binary.BigEndian
	}
	return order
}

// writeBytes sends buf as one burst: only the first phase may carry the
// start condition and only the last one the stop. An empty buf issues
// nothing.
func (c *Controller) writeBytes(addr uint8, buf []byte, start, stop bool) error {
	last := len(buf) - 1
	for i, b := range buf {
		err := c.phaseWriteByte(addr, b, start && i == 0, stop && i == last)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) readBytes(addr uint8, buf []byte, start, stop bool) error {
	last := len(buf) - 1
	for i := range buf {
		err := c.phaseReadByte(addr, start && i == 0, stop && i == last, &buf[i])
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) write16(addr uint8, v uint16, order binary.ByteOrder, start, stop bool) error {
	var b [2]byte
	byteOrder(order).PutUint16(b[:], v)
	return c.writeBytes(addr, b[:], start, stop)
}

func (c *Controller) write32(addr uint8, v uint32, order binary.ByteOrder, start, stop bool) error {
	var b [4]byte
	byteOrder(order).PutUint32(b[:], v)
	return c.writeBytes(addr, b[:], start, stop)
}

func (c *Controller) read16(addr uint8, order binary.ByteOrder, start, stop bool) (uint16, error) {
	var b [2]byte
	if err := c.readBytes(addr, b[:], start, stop); err != nil {
		return 0, err
	}
	return byteOrder(order).Uint16(b[:]), nil
}

func (c *Controller) read32(addr uint8, order binary.ByteOrder, start, stop bool) (uint32, error) {
	var b [4]byte
	if err := c.readBytes(addr, b[:], start, stop); err != nil {
		return 0, err
	}
	return byteOrder(order).Uint32(b[:]), nil
}
