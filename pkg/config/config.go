// Package config describes the controllers of a bench and the simulated
// targets attached to them.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/i2cctl/controller"
)

// Version is set at build time.
var Version = "dev"

const (
	KindEcho   = "echo"
	KindMemory = "memory"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	// PollLimit overrides controller.DefaultPollLimit, 0 waits forever.
	PollLimit   *int         `yaml:"poll_limit,omitempty"`
	Controllers []Controller `yaml:"controllers"`
}

type Controller struct {
	ID      controller.ID    `yaml:"id"`
	SDA     string           `yaml:"sda"`
	SCL     string           `yaml:"scl"`
	Speed   controller.Speed `yaml:"speed"`
	Devices []Device         `yaml:"devices,omitempty"`
}

// Device is a simulated target.
type Device struct {
	Name         string  `yaml:"name,omitempty"`
	Addr         uint8   `yaml:"addr"`
	Kind         string  `yaml:"kind"`
	Size         int     `yaml:"size,omitempty"`
	PointerWidth int     `yaml:"pointer_width,omitempty"`
	Contents     []Block `yaml:"contents,omitempty"`
}

// Block is initial memory content at an offset.
type Block struct {
	Offset int      `yaml:"offset"`
	Data   HexBytes `yaml:"data"`
}

// HexBytes is a byte string written as hex digits; spaces are ignored.
type HexBytes []byte

func (h *HexBytes) UnmarshalText(text []byte) error {
	s := strings.ReplaceAll(string(text), " ", "")
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return fmt.Errorf("could not decode hex data: %w", err)
	}
	*h = b
	return nil
}

func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h)), nil
}

// Load reads the configuration file at path, the default bench when path is
// empty.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Controller returns the configuration of id.
func (c *Config) Controller(id controller.ID) (Controller, bool) {
	for _, ctrl := range c.Controllers {
		if ctrl.ID == id {
			return ctrl, true
		}
	}
	return Controller{}, false
}

func (c *Config) Validate() error {
	if c.PollLimit != nil && *c.PollLimit < 0 {
		return fmt.Errorf("%w: negative poll limit", ErrInvalid)
	}
	seen := make(map[controller.ID]bool)
	for _, ctrl := range c.Controllers {
		if ctrl.ID >= controller.ControllerCount {
			return fmt.Errorf("%w: %w %d", ErrInvalid, controller.ErrInvalidController, ctrl.ID)
		}
		if seen[ctrl.ID] {
			return fmt.Errorf("%w: %s configured twice", ErrInvalid, ctrl.ID)
		}
		seen[ctrl.ID] = true
		addrs := make(map[uint8]bool)
		for _, dev := range ctrl.Devices {
			if err := dev.validate(); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalid, ctrl.ID, err)
			}
			if addrs[dev.Addr] {
				return fmt.Errorf("%w: %s: address %#02x used twice", ErrInvalid, ctrl.ID, dev.Addr)
			}
			addrs[dev.Addr] = true
		}
	}
	return nil
}

func (d Device) validate() error {
	if d.Addr > 0x7F {
		return fmt.Errorf("device address %#x out of range", d.Addr)
	}
	switch d.Kind {
	case KindEcho:
		if len(d.Contents) > 0 {
			return fmt.Errorf("echo device %#02x cannot have contents", d.Addr)
		}
	case KindMemory:
		if d.PointerWidth != 1 && d.PointerWidth != 2 {
			return fmt.Errorf("memory device %#02x: pointer width must be 1 or 2", d.Addr)
		}
		for _, b := range d.Contents {
			if b.Offset < 0 || b.Offset+len(b.Data) > d.MemorySize() {
				return fmt.Errorf("memory device %#02x: block at %#x exceeds size %d", d.Addr, b.Offset, d.MemorySize())
			}
		}
	default:
		return fmt.Errorf("unknown device kind %q", d.Kind)
	}
	return nil
}

// MemorySize is the configured size or the range of the register pointer.
func (d Device) MemorySize() int {
	if d.Size > 0 {
		return d.Size
	}
	return 1 << (8 * d.PointerWidth)
}

// Default is a bench with the sensors known to the CLI preloaded with
// plausible readings.
func Default() *Config {
	return &Config{
		Controllers: []Controller{
			{
				ID:    controller.Controller0,
				SDA:   "PB3",
				SCL:   "PB2",
				Speed: controller.SpeedStandard,
				Devices: []Device{
					{Name: "tc74", Addr: 0x4D, Kind: KindMemory, Size: 2, PointerWidth: 1,
						Contents: []Block{{Offset: 0, Data: HexBytes{0x19, 0x40}}}},
					{Name: "bh1750", Addr: 0x23, Kind: KindMemory, PointerWidth: 1,
						Contents: []Block{{Offset: 0x20, Data: HexBytes{0x01, 0x2C, 0x00, 0x01, 0x2C}}}},
					{Name: "mcp23017", Addr: 0x21, Kind: KindMemory, Size: 32, PointerWidth: 1,
						Contents: []Block{{Offset: 0x12, Data: HexBytes{0x0F, 0xF0}}}},
					{Name: "bma220", Addr: 0x0A, Kind: KindMemory, Size: 64, PointerWidth: 1,
						Contents: []Block{{Offset: 0, Data: HexBytes{0xDD}}}},
					{Name: "ags02ma", Addr: 0x1A, Kind: KindMemory, Size: 48, PointerWidth: 1,
						Contents: []Block{
							{Offset: 0x00, Data: HexBytes{0x00, 0x00, 0x01, 0xF4, 0x65, 0x44}},
							{Offset: 0x11, Data: HexBytes{0x00, 0x00, 0x00, 0x76, 0x89}},
							{Offset: 0x20, Data: HexBytes{0x00, 0x00, 0x00, 0x2A, 0x8A}},
						}},
					{Name: "echo", Addr: 0x30, Kind: KindEcho},
				},
			},
			{
				ID:    controller.Controller1,
				SDA:   "PA7",
				SCL:   "PA6",
				Speed: controller.SpeedFast,
				Devices: []Device{
					{Name: "shtc3", Addr: 0x70, Kind: KindMemory, PointerWidth: 2,
						Contents: []Block{
							{Offset: 0x7866, Data: HexBytes{0x66, 0x66, 0x93, 0x80, 0x00, 0xA2}},
							{Offset: 0xEFC8, Data: HexBytes{0x08, 0x87, 0x5B}},
						}},
					{Name: "mcp4661", Addr: 0x28, Kind: KindMemory, Size: 16, PointerWidth: 1},
					{Name: "eeprom", Addr: 0x50, Kind: KindMemory, Size: 4096, PointerWidth: 2},
				},
			},
		},
	}
}
