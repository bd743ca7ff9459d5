package controller_test

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2cctl/controller"
	"github.com/mklimuk/i2cctl/sim"
)

type countingLocker struct {
	mx      sync.Mutex
	locks   atomic.Int32
	unlocks atomic.Int32
}

func (l *countingLocker) Lock() {
	l.mx.Lock()
	l.locks.Add(1)
}

func (l *countingLocker) Unlock() {
	l.unlocks.Add(1)
	l.mx.Unlock()
}

func (l *countingLocker) reset() {
	l.locks.Store(0)
	l.unlocks.Store(0)
}

// setup returns a configured controller 0 with an empty trace.
func setup(t *testing.T, opts ...controller.Option) (*controller.Controller, *sim.Peripheral) {
	t.Helper()
	board := sim.NewBoard()
	reg := controller.NewRegistry(board, opts...)
	c, err := reg.Get(controller.Controller0)
	require.NoError(t, err)
	require.NoError(t, c.Setup(sim.NewPin("PB3"), sim.NewPin("PB2"), controller.SpeedStandard))
	p := board.Sim(controller.Controller0)
	p.ClearTrace()
	return c, p
}

func commands(trace []sim.Phase) []controller.Command {
	out := make([]controller.Command, len(trace))
	for i, ph := range trace {
		out[i] = ph.Cmd
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	orders := map[string]binary.ByteOrder{
		"big":    binary.BigEndian,
		"little": binary.LittleEndian,
		"nil":    nil,
	}
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			c, p := setup(t)
			p.Attach(0x30, sim.NewEcho())

			require.NoError(t, c.Write8(0x30, 0xA5, true, true))
			v8, err := c.Read8(0x30, true, true)
			require.NoError(t, err)
			assert.Equal(t, uint8(0xA5), v8)

			require.NoError(t, c.Write16(0x30, 0xBEEF, order, true, true))
			v16, err := c.Read16(0x30, order, true, true)
			require.NoError(t, err)
			assert.Equal(t, uint16(0xBEEF), v16)

			require.NoError(t, c.Write32(0x30, 0xDEADBEEF, order, true, true))
			v32, err := c.Read32(0x30, order, true, true)
			require.NoError(t, err)
			assert.Equal(t, uint32(0xDEADBEEF), v32)

			buf := []byte{1, 2, 3, 4, 5}
			require.NoError(t, c.Write(0x30, buf, true, true))
			got := make([]byte, len(buf))
			require.NoError(t, c.Read(0x30, got, true, true))
			assert.Equal(t, buf, got)
		})
	}
}

func TestWrite16_ByteOrderOnWire(t *testing.T) {
	c, p := setup(t)
	echo := sim.NewEcho()
	p.Attach(0x30, echo)

	require.NoError(t, c.Write16(0x30, 0x1234, binary.BigEndian, true, true))
	require.NoError(t, c.Write16(0x30, 0x1234, binary.LittleEndian, true, true))
	require.NoError(t, c.Write32(0x30, 0x01020304, nil, true, true))
	assert.Equal(t, []byte{0x12, 0x34, 0x34, 0x12, 0x01, 0x02, 0x03, 0x04}, echo.Pending())
}

func TestFraming(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		start, stop bool
		expected    []controller.Command
	}{
		{"single", 1, true, true, []controller.Command{controller.CmdSingle}},
		{"single no stop", 1, true, false, []controller.Command{controller.CmdBurstStart}},
		{"single no start", 1, false, true, []controller.Command{controller.CmdBurstFinish}},
		{"single bare", 1, false, false, []controller.Command{controller.CmdBurstContinue}},
		{"pair", 2, true, true, []controller.Command{controller.CmdBurstStart, controller.CmdBurstFinish}},
		{"burst", 4, true, true, []controller.Command{
			controller.CmdBurstStart, controller.CmdBurstContinue, controller.CmdBurstContinue, controller.CmdBurstFinish,
		}},
		{"burst open", 3, true, false, []controller.Command{
			controller.CmdBurstStart, controller.CmdBurstContinue, controller.CmdBurstContinue,
		}},
		{"burst continued", 3, false, true, []controller.Command{
			controller.CmdBurstContinue, controller.CmdBurstContinue, controller.CmdBurstFinish,
		}},
		{"burst middle", 2, false, false, []controller.Command{
			controller.CmdBurstContinue, controller.CmdBurstContinue,
		}},
	}
	for _, test := range tests {
		t.Run("write "+test.name, func(t *testing.T) {
			c, p := setup(t)
			p.Attach(0x30, sim.NewEcho())
			if !test.start {
				require.NoError(t, c.Write8(0x30, 0, true, false))
				p.ClearTrace()
			}
			require.NoError(t, c.Write(0x30, make([]byte, test.count), test.start, test.stop))
			if diff := cmp.Diff(test.expected, commands(p.Trace())); diff != "" {
				t.Errorf("unexpected commands (-want +got):\n%s", diff)
			}
		})
		t.Run("read "+test.name, func(t *testing.T) {
			c, p := setup(t)
			p.Attach(0x30, sim.NewEcho())
			if !test.start {
				_, err := c.Read8(0x30, true, false)
				require.NoError(t, err)
				p.ClearTrace()
			}
			require.NoError(t, c.Read(0x30, make([]byte, test.count), test.start, test.stop))
			trace := p.Trace()
			if diff := cmp.Diff(test.expected, commands(trace)); diff != "" {
				t.Errorf("unexpected commands (-want +got):\n%s", diff)
			}
			for _, ph := range trace {
				assert.True(t, ph.Read)
			}
		})
	}
}

func TestChainedTransfers(t *testing.T) {
	c, p := setup(t)
	echo := sim.NewEcho()
	p.Attach(0x30, echo)

	require.NoError(t, c.Write(0x30, []byte{1, 2}, true, false))
	require.NoError(t, c.Write(0x30, []byte{3, 4}, false, true))
	expected := []controller.Command{
		controller.CmdBurstStart, controller.CmdBurstContinue, controller.CmdBurstContinue, controller.CmdBurstFinish,
	}
	assert.Empty(t, cmp.Diff(expected, commands(p.Trace())))
	assert.Equal(t, []byte{1, 2, 3, 4}, echo.Pending())
}

func TestZeroLength(t *testing.T) {
	c, p := setup(t)
	p.Attach(0x30, sim.NewEcho())

	assert.NoError(t, c.Read(0x30, nil, true, true))
	assert.NoError(t, c.Write(0x30, []byte{}, true, true))
	assert.NoError(t, c.WriteRead(0x30, nil, nil, true, true))
	assert.Empty(t, p.Trace())
}

func TestWrite8Read_EmptyRead(t *testing.T) {
	c, p := setup(t)
	p.Attach(0x30, sim.NewEcho())

	require.NoError(t, c.Write8Read(0x30, 0x10, nil, true, true))
	trace := p.Trace()
	require.Len(t, trace, 1)
	assert.Equal(t, controller.CmdBurstStart, trace[0].Cmd)
}

type compound struct {
	name          string
	writes, reads int
	call          func(c *controller.Controller, start, stop bool) error
}

var compounds = []compound{
	{"WriteRead", 3, 2, func(c *controller.Controller, start, stop bool) error {
		return c.WriteRead(0x30, []byte{1, 2, 3}, make([]byte, 2), start, stop)
	}},
	{"Write8Read", 1, 3, func(c *controller.Controller, start, stop bool) error {
		return c.Write8Read(0x30, 0x10, make([]byte, 3), start, stop)
	}},
	{"Write8Read8", 1, 1, func(c *controller.Controller, start, stop bool) error {
		_, err := c.Write8Read8(0x30, 0x10, start, stop)
		return err
	}},
	{"Write8Read16", 1, 2, func(c *controller.Controller, start, stop bool) error {
		_, err := c.Write8Read16(0x30, 0x10, binary.LittleEndian, start, stop)
		return err
	}},
	{"Write8Read32", 1, 4, func(c *controller.Controller, start, stop bool) error {
		_, err := c.Write8Read32(0x30, 0x10, nil, start, stop)
		return err
	}},
	{"Write16Read", 2, 3, func(c *controller.Controller, start, stop bool) error {
		return c.Write16Read(0x30, 0x1020, make([]byte, 3), nil, start, stop)
	}},
	{"Write16Read8", 2, 1, func(c *controller.Controller, start, stop bool) error {
		_, err := c.Write16Read8(0x30, 0x1020, binary.BigEndian, start, stop)
		return err
	}},
	{"Write16Read16", 2, 2, func(c *controller.Controller, start, stop bool) error {
		_, err := c.Write16Read16(0x30, 0x1020, binary.LittleEndian, start, stop)
		return err
	}},
	{"Write16Read32", 2, 4, func(c *controller.Controller, start, stop bool) error {
		_, err := c.Write16Read32(0x30, 0x1020, nil, start, stop)
		return err
	}},
}

func TestCompound_RepeatedStart(t *testing.T) {
	flags := []struct {
		name        string
		start, stop bool
	}{
		{"framed", true, true},
		{"open", true, false},
		{"continued", false, true},
		{"bare", false, false},
	}
	for _, op := range compounds {
		for _, f := range flags {
			t.Run(op.name+" "+f.name, func(t *testing.T) {
				c, p := setup(t)
				p.Attach(0x30, sim.NewEcho())
				if !f.start {
					require.NoError(t, c.Write8(0x30, 0, true, false))
					p.ClearTrace()
				}
				require.NoError(t, op.call(c, f.start, f.stop))

				trace := p.Trace()
				require.Len(t, trace, op.writes+op.reads)
				writes, reads := trace[:op.writes], trace[op.writes:]
				for _, ph := range writes {
					assert.False(t, ph.Read)
				}
				for _, ph := range reads {
					assert.True(t, ph.Read)
				}
				assert.Equal(t, f.start, writes[0].Start(), "first write start")
				assert.False(t, writes[len(writes)-1].Stop(), "no stop before the read part")
				assert.True(t, reads[0].Start(), "repeated start")
				assert.Equal(t, f.stop, reads[len(reads)-1].Stop(), "last read stop")
			})
		}
	}
}

func TestWrite8Read16_Register(t *testing.T) {
	tests := []struct {
		name     string
		order    binary.ByteOrder
		expected uint16
	}{
		{"big endian", binary.BigEndian, 0x1234},
		{"little endian", binary.LittleEndian, 0x3412},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, p := setup(t)
			mem := sim.NewMemory(256, 1)
			mem.Load(0x0A, []byte{0x12, 0x34})
			p.Attach(0x50, mem)

			v, err := c.Write8Read16(0x50, 0x0A, test.order, true, true)
			require.NoError(t, err)
			assert.Equal(t, test.expected, v)

			expected := []sim.Phase{
				{Addr: 0x50, Cmd: controller.CmdBurstStart, Data: 0x0A},
				{Addr: 0x50, Read: true, Cmd: controller.CmdBurstStart, Data: 0x12},
				{Addr: 0x50, Read: true, Cmd: controller.CmdBurstFinish, Data: 0x34},
			}
			if diff := cmp.Diff(expected, p.Trace()); diff != "" {
				t.Errorf("unexpected phases (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWrite16Read_Memory(t *testing.T) {
	c, p := setup(t)
	mem := sim.NewMemory(1024, 2)
	mem.Load(0x0123, []byte("hello"))
	p.Attach(0x51, mem)

	buf := make([]byte, 5)
	require.NoError(t, c.Write16Read(0x51, 0x0123, buf, nil, true, true))
	assert.Equal(t, "hello", string(buf))
	assert.Equal(t, 0x0128, mem.Pointer())
}

func TestWrite_DataNack(t *testing.T) {
	c, p := setup(t)
	p.Attach(0x20, sim.NewEcho())
	p.InjectFault(1, controller.ErrDataNack)

	err := c.Write(0x20, []byte{1, 2, 3, 4}, true, true)
	assert.ErrorIs(t, err, controller.ErrDataNack)
	assert.Len(t, p.Trace(), 2)
}

func TestAddrNack(t *testing.T) {
	c, p := setup(t)

	_, err := c.Write8Read8(0x42, 0x00, true, true)
	assert.ErrorIs(t, err, controller.ErrAddrNack)
	assert.Len(t, p.Trace(), 1)
}

func TestFaultStopsTransfer(t *testing.T) {
	ops := []struct {
		name   string
		phases int
		call   func(c *controller.Controller) error
	}{
		{"Write32", 4, func(c *controller.Controller) error {
			return c.Write32(0x30, 0x01020304, nil, true, true)
		}},
		{"Read", 3, func(c *controller.Controller) error {
			return c.Read(0x30, make([]byte, 3), true, true)
		}},
		{"Write8Read32", 5, func(c *controller.Controller) error {
			_, err := c.Write8Read32(0x30, 0x10, nil, true, true)
			return err
		}},
		{"Write16Read", 5, func(c *controller.Controller) error {
			return c.Write16Read(0x30, 0x1020, make([]byte, 3), nil, true, true)
		}},
		{"Write8", 1, func(c *controller.Controller) error {
			return c.Write8(0x30, 0x10, true, true)
		}},
	}
	faults := []controller.Fault{
		controller.ErrAddrNack, controller.ErrDataNack, controller.ErrArbLost,
		controller.ErrBusFault, controller.ErrClockTimeout,
	}
	for _, op := range ops {
		for pos := 0; pos < op.phases; pos++ {
			for _, late := range []bool{false, true} {
				fault := faults[pos%len(faults)]
				name := op.name + " " + fault.Error()
				if late {
					name += " late"
				}
				t.Run(name, func(t *testing.T) {
					locker := &countingLocker{}
					c, p := setup(t, controller.WithLocker(locker))
					p.Attach(0x30, sim.NewEcho())
					p.BusyPolls(2)
					if late {
						p.InjectLateFault(pos, fault)
					} else {
						p.InjectFault(pos, fault)
					}
					locker.reset()

					err := op.call(c)
					assert.ErrorIs(t, err, fault)
					assert.Len(t, p.Trace(), pos+1)
					assert.Equal(t, int32(1), locker.locks.Load())
					assert.Equal(t, int32(1), locker.unlocks.Load())
				})
			}
		}
	}
}

func TestReadResultOnFault(t *testing.T) {
	c, p := setup(t)
	mem := sim.NewMemory(16, 1)
	mem.Load(0, []byte{0x11, 0x22, 0x33, 0x44})
	p.Attach(0x50, mem)
	p.InjectFault(2, controller.ErrArbLost)

	buf := []byte{0xEE, 0xEE, 0xEE, 0xEE}
	err := c.Read(0x50, buf, true, true)
	assert.ErrorIs(t, err, controller.ErrArbLost)
	assert.Equal(t, []byte{0x11, 0x22, 0xEE, 0xEE}, buf)

	p.ClearTrace()
	p.InjectFault(1, controller.ErrDataNack)
	v, err := c.Write8Read16(0x50, 0x00, nil, true, true)
	assert.ErrorIs(t, err, controller.ErrDataNack)
	assert.Zero(t, v)
}

func TestLateFaultAfterBusy(t *testing.T) {
	c, p := setup(t)
	p.Attach(0x30, sim.NewEcho())
	p.InjectLateFault(0, controller.ErrClockTimeout)

	err := c.Write8(0x30, 0x01, true, true)
	assert.ErrorIs(t, err, controller.ErrClockTimeout)
}

func TestUnresponsive(t *testing.T) {
	locker := &countingLocker{}
	c, p := setup(t, controller.WithPollLimit(10), controller.WithLocker(locker))
	p.Attach(0x30, sim.NewEcho())
	p.Stick(true)
	locker.reset()

	err := c.Write16(0x30, 0x0102, nil, true, true)
	assert.ErrorIs(t, err, controller.ErrUnresponsive)
	assert.Len(t, p.Trace(), 1)
	assert.Equal(t, locker.locks.Load(), locker.unlocks.Load())

	p.Stick(false)
	assert.NoError(t, c.Write8(0x30, 0x01, true, true))
}

func TestLocking_EveryOperation(t *testing.T) {
	locker := &countingLocker{}
	c, p := setup(t, controller.WithLocker(locker))
	p.Attach(0x30, sim.NewEcho())

	calls := map[string]func() error{
		"Write8": func() error { return c.Write8(0x30, 1, true, true) },
		"Read8": func() error {
			_, err := c.Read8(0x30, true, true)
			return err
		},
		"Write": func() error { return c.Write(0x30, []byte{1, 2}, true, true) },
		"Read":  func() error { return c.Read(0x30, make([]byte, 2), true, true) },
		"Read16": func() error {
			_, err := c.Read16(0x30, nil, true, true)
			return err
		},
		"Read32": func() error {
			_, err := c.Read32(0x30, nil, true, true)
			return err
		},
		"Write16": func() error { return c.Write16(0x30, 1, nil, true, true) },
		"Write32": func() error { return c.Write32(0x30, 1, nil, true, true) },
	}
	for _, op := range compounds {
		calls[op.name] = func() error { return op.call(c, true, true) }
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			locker.reset()
			require.NoError(t, call())
			assert.Equal(t, int32(1), locker.locks.Load())
			assert.Equal(t, int32(1), locker.unlocks.Load())
		})
	}
}

func TestConcurrentTransfers_SameController(t *testing.T) {
	c, p := setup(t)
	p.Attach(0x30, sim.NewEcho())
	p.BusyPolls(3)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := uint32(i) * 0x01010101
			assert.NoError(t, c.Write32(0x30, v, nil, true, true))
		}(i)
	}
	wg.Wait()

	trace := p.Trace()
	require.Len(t, trace, workers*4)
	seen := make(map[byte]bool)
	for i := 0; i < len(trace); i += 4 {
		group := trace[i : i+4]
		assert.True(t, group[0].Start())
		assert.True(t, group[3].Stop())
		for _, ph := range group[1:] {
			assert.Equal(t, group[0].Data, ph.Data, "transfers interleaved")
		}
		seen[group[0].Data] = true
	}
	assert.Len(t, seen, workers)
}

func TestConcurrentTransfers_DifferentControllers(t *testing.T) {
	board := sim.NewBoard()
	reg := controller.NewRegistry(board, controller.WithPollLimit(0))
	c0, err := reg.Get(controller.Controller0)
	require.NoError(t, err)
	c1, err := reg.Get(controller.Controller1)
	require.NoError(t, err)
	require.NoError(t, c0.Setup(sim.NewPin("PB3"), sim.NewPin("PB2"), controller.SpeedStandard))
	require.NoError(t, c1.Setup(sim.NewPin("PA7"), sim.NewPin("PA6"), controller.SpeedFast))
	p0, p1 := board.Sim(controller.Controller0), board.Sim(controller.Controller1)
	p0.ClearTrace()
	p1.ClearTrace()
	p0.Attach(0x30, sim.NewEcho())
	p1.Attach(0x30, sim.NewEcho())

	p0.Stick(true)
	done := make(chan error, 1)
	go func() {
		done <- c0.Write8(0x30, 0x01, true, true)
	}()
	require.Eventually(t, func() bool { return len(p0.Trace()) == 1 }, time.Second, time.Millisecond)

	// controller 0 is still holding its lock
	assert.NoError(t, c1.Write32(0x30, 0x01020304, nil, true, true))
	assert.Len(t, p1.Trace(), 4)

	p0.Stick(false)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("controller 0 never finished")
	}
}

func TestOnComplete(t *testing.T) {
	c, p := setup(t)
	p.Attach(0x30, sim.NewEcho())
	var calls atomic.Int32
	c.OnComplete(func() { calls.Add(1) })

	require.NoError(t, c.Write(0x30, []byte{1, 2, 3}, true, true))
	assert.Equal(t, int32(3), calls.Load())

	p.BusyPolls(2)
	_, err := c.Read8(0x30, true, true)
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())

	c.OnComplete(nil)
	require.NoError(t, c.Write8(0x30, 1, true, true))
	assert.Equal(t, int32(4), calls.Load())
}
