package adapter

import (
	"encoding/binary"
	"fmt"

	"github.com/mklimuk/i2cctl"
)

// connection maps the SMBus-style operations onto framed controller
// transfers to one address. Words are little endian as on SMBus.
type connection struct {
	c    i2cctl.Bus
	addr uint8
}

func (c *connection) Read(b []byte) (int, error) {
	if err := c.c.Read(c.addr, b, true, true); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *connection) Write(b []byte) (int, error) {
	if err := c.c.Write(c.addr, b, true, true); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *connection) Close() error {
	return nil
}

func (c *connection) ReadByte() (byte, error) {
	return c.c.Read8(c.addr, true, true)
}

func (c *connection) ReadByteData(reg uint8) (uint8, error) {
	return c.c.Write8Read8(c.addr, reg, true, true)
}

func (c *connection) ReadWordData(reg uint8) (uint16, error) {
	return c.c.Write8Read16(c.addr, reg, binary.LittleEndian, true, true)
}

func (c *connection) ReadBlockData(reg uint8, b []byte) error {
	if len(b) > maxBlock {
		return fmt.Errorf("read block of %d bytes: %w", len(b), ErrBlockTooLong)
	}
	return c.c.Write8Read(c.addr, reg, b, true, true)
}

func (c *connection) WriteByte(val byte) error {
	return c.c.Write8(c.addr, val, true, true)
}

func (c *connection) WriteByteData(reg uint8, val uint8) error {
	return c.c.Write(c.addr, []byte{reg, val}, true, true)
}

func (c *connection) WriteWordData(reg uint8, val uint16) error {
	buf := []byte{reg, 0, 0}
	binary.LittleEndian.PutUint16(buf[1:], val)
	return c.c.Write(c.addr, buf, true, true)
}

func (c *connection) WriteBlockData(reg uint8, b []byte) error {
	if len(b) > maxBlock {
		return fmt.Errorf("write block of %d bytes: %w", len(b), ErrBlockTooLong)
	}
	return c.c.Write(c.addr, append([]byte{reg}, b...), true, true)
}

func (c *connection) WriteBytes(b []byte) error {
	return c.c.Write(c.addr, b, true, true)
}
