package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/conn/v3/physic"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		start, stop bool
		expected    Command
	}{
		{true, true, CmdSingle},
		{true, false, CmdBurstStart},
		{false, false, CmdBurstContinue},
		{false, true, CmdBurstFinish},
	}
	for _, test := range tests {
		t.Run(test.expected.String(), func(t *testing.T) {
			assert.Equal(t, test.expected, command(test.start, test.stop))
		})
	}
}

func TestFault_Error(t *testing.T) {
	assert.Nil(t, FaultNone.err())
	assert.Equal(t, ErrDataNack, ErrDataNack.err())
	assert.Equal(t, "i2c: address not acknowledged", ErrAddrNack.Error())
	assert.Equal(t, "i2c: fault 0x20", Fault(0x20).Error())
}

func TestParseSpeed(t *testing.T) {
	tests := []struct {
		given    string
		expected Speed
		fail     bool
	}{
		{"standard", SpeedStandard, false},
		{"", SpeedStandard, false},
		{"100k", SpeedStandard, false},
		{"Fast", SpeedFast, false},
		{"400kHz", SpeedFast, false},
		{"1M", SpeedStandard, true},
	}
	for _, test := range tests {
		t.Run(test.given, func(t *testing.T) {
			s, err := ParseSpeed(test.given)
			if test.fail {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.expected, s)
		})
	}
}

func TestSpeedFor(t *testing.T) {
	assert.Equal(t, SpeedStandard, SpeedFor(100*physic.KiloHertz))
	assert.Equal(t, SpeedStandard, SpeedFor(399*physic.KiloHertz))
	assert.Equal(t, SpeedFast, SpeedFor(400*physic.KiloHertz))
	assert.Equal(t, SpeedFast, SpeedFor(physic.MegaHertz))
	assert.Equal(t, 400*physic.KiloHertz, SpeedFast.Frequency())
}

func TestNew_InvalidArguments(t *testing.T) {
	_, err := New(ControllerCount, nil)
	assert.ErrorIs(t, err, ErrInvalidController)
	_, err = New(Controller1, nil)
	assert.ErrorIs(t, err, ErrNoPeripheral)
}
