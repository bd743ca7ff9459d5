package controller_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2cctl/controller"
	"github.com/mklimuk/i2cctl/sim"
)

func TestSetup(t *testing.T) {
	board := sim.NewBoard()
	reg := controller.NewRegistry(board)
	c, err := reg.Get(controller.Controller1)
	require.NoError(t, err)
	sda, scl := sim.NewPin("PA7"), sim.NewPin("PA6")

	require.NoError(t, c.Setup(sda, scl, controller.SpeedFast))

	assert.Equal(t, sim.PinState{
		Enabled: true, Mapped: true, Controller: controller.Controller1,
		Role: controller.RoleSDA, Configured: true, Mode: controller.ModeI2CData,
	}, sda.State())
	assert.Equal(t, sim.PinState{
		Enabled: true, Mapped: true, Controller: controller.Controller1,
		Role: controller.RoleSCL, Configured: true, Mode: controller.ModeI2CClock,
	}, scl.State())

	p := board.Sim(controller.Controller1)
	assert.True(t, p.Initialized())
	assert.Equal(t, controller.SpeedFast, p.Speed())
	assert.Equal(t, controller.SpeedFast, c.Speed())
	// discard receive
	require.Len(t, p.Trace(), 1)
	assert.Equal(t, controller.CmdSingle, p.Trace()[0].Cmd)

	gotSDA, gotSCL := c.Pins()
	assert.Same(t, sda, gotSDA)
	assert.Same(t, scl, gotSCL)
}

func TestSetSpeed(t *testing.T) {
	c, p := setup(t)

	require.NoError(t, c.SetSpeed(controller.SpeedFast))
	assert.Equal(t, controller.SpeedFast, p.Speed())
	assert.Equal(t, controller.SpeedFast, c.Speed())
}

type brokenPeripheral struct {
	*sim.Peripheral
}

func (brokenPeripheral) Enable() error {
	return errors.New("reset line stuck")
}

func TestSetup_EnableFails(t *testing.T) {
	p := brokenPeripheral{sim.NewPeripheral(controller.Controller0)}
	c, err := controller.New(controller.Controller0, p)
	require.NoError(t, err)

	err = c.Setup(sim.NewPin("PB3"), sim.NewPin("PB2"), controller.SpeedStandard)
	assert.ErrorContains(t, err, "reset line stuck")
	assert.False(t, p.Initialized())
	assert.Empty(t, p.Trace())
}

func TestSetup_NilPins(t *testing.T) {
	c, err := controller.New(controller.Controller0, sim.NewPeripheral(controller.Controller0))
	require.NoError(t, err)
	assert.NoError(t, c.Setup(nil, nil, controller.SpeedStandard))
}
