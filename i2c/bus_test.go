package i2c

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/i2cctl/controller"
	"github.com/mklimuk/i2cctl/sim"
)

var registered atomic.Int32

func newBus(t *testing.T) (*Bus, *sim.Peripheral) {
	t.Helper()
	board := sim.NewBoard()
	reg := controller.NewRegistry(board)
	c, err := reg.Get(controller.Controller0)
	require.NoError(t, err)
	require.NoError(t, c.Setup(sim.NewPin("PB3"), sim.NewPin("PB2"), controller.SpeedStandard))
	p := board.Sim(controller.Controller0)
	p.ClearTrace()
	return NewBus(c), p
}

func TestBus_Tx(t *testing.T) {
	b, p := newBus(t)
	mem := sim.NewMemory(256, 1)
	mem.Load(0x20, []byte{0xCA, 0xFE})
	p.Attach(0x50, mem)

	r := make([]byte, 2)
	require.NoError(t, b.Tx(0x50, []byte{0x20}, r))
	assert.Equal(t, []byte{0xCA, 0xFE}, r)

	require.NoError(t, b.Tx(0x50, []byte{0x30, 1, 2, 3}, nil))
	assert.Equal(t, []byte{1, 2, 3}, mem.Bytes(0x30, 3))

	require.NoError(t, b.Tx(0x50, nil, r))
	assert.Equal(t, []byte{0, 0}, r)

	trace := p.Trace()
	require.Len(t, trace, 3+4+2)
	assert.True(t, trace[0].Start())
	assert.True(t, trace[1].Start(), "repeated start")
	assert.True(t, trace[2].Stop())
}

func TestBus_TxErrors(t *testing.T) {
	b, p := newBus(t)

	assert.ErrorIs(t, b.Tx(0x80, []byte{1}, nil), ErrAddressRange)
	assert.ErrorIs(t, b.Tx(0x42, []byte{1}, nil), controller.ErrAddrNack)
	assert.NoError(t, b.Tx(0x42, nil, nil))
	assert.Len(t, p.Trace(), 1)
}

func TestBus_SetSpeed(t *testing.T) {
	b, p := newBus(t)

	require.NoError(t, b.SetSpeed(400*physic.KiloHertz))
	assert.Equal(t, controller.SpeedFast, p.Speed())
	require.NoError(t, b.SetSpeed(100*physic.KiloHertz))
	assert.Equal(t, controller.SpeedStandard, p.Speed())
	assert.Error(t, b.SetSpeed(0))
	assert.Equal(t, "I2C0", b.String())
	assert.NoError(t, b.Close())
}

func TestRegister(t *testing.T) {
	board := sim.NewBoard()
	reg := controller.NewRegistry(board)
	prefix := fmt.Sprintf("test%d-", registered.Add(1))
	require.NoError(t, Register(prefix, reg, controller.Controller1))
	t.Cleanup(func() {
		_ = i2creg.Unregister(prefix + "I2C1")
	})
	board.Sim(controller.Controller1).Attach(0x30, sim.NewEcho())
	c, err := reg.Get(controller.Controller1)
	require.NoError(t, err)
	require.NoError(t, c.Setup(nil, nil, controller.SpeedStandard))

	bus, err := i2creg.Open(prefix + "I2C1")
	require.NoError(t, err)
	g := NewGenericBus(bus)
	defer g.Close()

	require.NoError(t, g.Write(0x30, []byte{7, 8}, true, true))
	buf := make([]byte, 2)
	require.NoError(t, g.Read(0x30, buf, true, true))
	assert.Equal(t, []byte{7, 8}, buf)
	assert.Equal(t, "I2C1", g.String())

	assert.Error(t, Register(prefix, reg, controller.Controller1), "duplicate name")
}

func TestGenericBus_SplitTransfer(t *testing.T) {
	b, _ := newBus(t)
	g := NewGenericBus(b)

	assert.ErrorIs(t, g.Write(0x30, []byte{1}, true, false), ErrSplitTransfer)
	assert.ErrorIs(t, g.Read(0x30, make([]byte, 1), false, true), ErrSplitTransfer)
	assert.ErrorIs(t, g.WriteRead(0x30, []byte{1}, make([]byte, 1), false, false), ErrSplitTransfer)
	err := g.WriteRead(0x31, []byte{1}, make([]byte, 1), true, true)
	assert.ErrorIs(t, err, controller.ErrAddrNack)
	assert.Contains(t, err.Error(), "could not transfer on i2c bus 31")
}
