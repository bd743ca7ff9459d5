package i2cctl

import "encoding/binary"

// Reader reads a buffer from a target. start and stop select whether the
// transfer opens with a (repeated) start condition and closes with a stop.
type Reader interface {
	Read(addr uint8, buf []byte, start, stop bool) error
}

type Writer interface {
	Write(addr uint8, buf []byte, start, stop bool) error
}

// RegisterBus is the write-address-then-read-value surface used by drivers
// of register-addressed devices.
type RegisterBus interface {
	Write8(addr, data uint8, start, stop bool) error
	Write16(addr uint8, data uint16, order binary.ByteOrder, start, stop bool) error
	Write8Read(addr, w uint8, r []byte, start, stop bool) error
	Write8Read8(addr, w uint8, start, stop bool) (uint8, error)
	Write8Read16(addr, w uint8, order binary.ByteOrder, start, stop bool) (uint16, error)
	Read16(addr uint8, order binary.ByteOrder, start, stop bool) (uint16, error)
}

// Bus is the complete transaction surface of a master controller.
type Bus interface {
	Reader
	Writer
	RegisterBus
	Read8(addr uint8, start, stop bool) (uint8, error)
	Read32(addr uint8, order binary.ByteOrder, start, stop bool) (uint32, error)
	Write32(addr uint8, data uint32, order binary.ByteOrder, start, stop bool) error
	WriteRead(addr uint8, w, r []byte, start, stop bool) error
	Write8Read32(addr, w uint8, order binary.ByteOrder, start, stop bool) (uint32, error)
	Write16Read(addr uint8, w uint16, r []byte, order binary.ByteOrder, start, stop bool) error
	Write16Read8(addr uint8, w uint16, order binary.ByteOrder, start, stop bool) (uint8, error)
	Write16Read16(addr uint8, w uint16, order binary.ByteOrder, start, stop bool) (uint16, error)
	Write16Read32(addr uint8, w uint16, order binary.ByteOrder, start, stop bool) (uint32, error)
}
