package controller_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2cctl/controller"
	"github.com/mklimuk/i2cctl/sim"
)

func TestRegistry_NilBoard(t *testing.T) {
	reg := controller.NewRegistry(nil)
	c, err := reg.Get(controller.Controller0)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, controller.ErrNoPeripheral)
}

func TestRegistry_Get(t *testing.T) {
	reg := controller.NewRegistry(sim.NewBoard())

	c0, err := reg.Get(controller.Controller0)
	require.NoError(t, err)
	again, err := reg.Get(controller.Controller0)
	require.NoError(t, err)
	assert.Same(t, c0, again)
	assert.Equal(t, controller.Controller0, c0.ID())
	assert.Equal(t, "I2C0", c0.String())

	c1, err := reg.Get(controller.Controller1)
	require.NoError(t, err)
	assert.NotSame(t, c0, c1)
}

func TestRegistry_InvalidID(t *testing.T) {
	reg := controller.NewRegistry(sim.NewBoard())

	c, err := reg.Get(controller.ControllerCount)
	assert.ErrorIs(t, err, controller.ErrInvalidController)
	assert.Nil(t, c)
	_, err = reg.Get(controller.ID(200))
	assert.ErrorIs(t, err, controller.ErrInvalidController)
}

func TestRegistry_ConcurrentFirstAccess(t *testing.T) {
	board := sim.NewBoard()
	var built atomic.Int32
	reg := controller.NewRegistry(controller.BoardFunc(func(id controller.ID) (controller.Peripheral, error) {
		built.Add(1)
		return board.Peripheral(id)
	}))

	const callers = 32
	got := make([]*controller.Controller, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := reg.Get(controller.Controller1)
			assert.NoError(t, err)
			got[i] = c
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), built.Load())
	for _, c := range got {
		assert.Same(t, got[0], c)
	}
}

func TestRegistry_BoardError(t *testing.T) {
	board := sim.NewBoard()
	fail := true
	reg := controller.NewRegistry(controller.BoardFunc(func(id controller.ID) (controller.Peripheral, error) {
		if fail {
			return nil, errors.New("clock gate locked")
		}
		return board.Peripheral(id)
	}))

	_, err := reg.Get(controller.Controller0)
	assert.ErrorContains(t, err, "clock gate locked")

	fail = false
	c, err := reg.Get(controller.Controller0)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
