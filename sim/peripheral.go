// Package sim provides a simulated I2C master peripheral and bus targets.
// It implements the register-level collaborator expected by package
// controller, records every phase it is asked to run and can inject faults
// at chosen phases.
package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/i2cctl/controller"
)

var ErrNotEnabled = errors.New("peripheral clock not enabled")

// Device is a target attached to the simulated bus.
type Device interface {
	// Start is called on every start or repeated start addressed to the device.
	Start(read bool)
	// Write delivers one byte; returning false NACKs it.
	Write(b byte) bool
	Read() byte
	Stop()
}

// Phase is one command executed by the peripheral.
type Phase struct {
	Addr  uint8
	Read  bool
	Cmd   controller.Command
	Data  byte
	Fault controller.Fault
}

// Start reports whether the phase emitted a start condition.
func (p Phase) Start() bool {
	return p.Cmd == controller.CmdSingle || p.Cmd == controller.CmdBurstStart
}

// Stop reports whether the phase emitted a stop condition.
func (p Phase) Stop() bool {
	return p.Cmd == controller.CmdSingle || p.Cmd == controller.CmdBurstFinish
}

func (p Phase) String() string {
	dir := "W"
	if p.Read {
		dir = "R"
	}
	s := fmt.Sprintf("%s %#02x %s %#02x", dir, p.Addr, p.Cmd, p.Data)
	if p.Fault != controller.FaultNone {
		s += " (" + p.Fault.Error() + ")"
	}
	return s
}

type injection struct {
	fault controller.Fault
	late  bool
}

// Peripheral simulates the register block of one master controller. Commands
// complete synchronously; the busy flag then stays up for a configurable
// number of polls.
type Peripheral struct {
	mx sync.Mutex
	id controller.ID

	devices map[uint8]Device
	active  Device

	enabled     bool
	initialized bool
	speed       controller.Speed

	addr    uint8
	receive bool
	data    byte
	fault   controller.Fault
	late    controller.Fault

	busy      int
	busyPolls int
	stuck     bool
	settled   bool

	inject  map[int]injection
	trace   []Phase
	handler func()
}

var _ controller.Peripheral = &Peripheral{}

func NewPeripheral(id controller.ID) *Peripheral {
	return &Peripheral{
		id:      id,
		devices: make(map[uint8]Device),
		inject:  make(map[int]injection),
	}
}

// Attach connects dev at the 7-bit address addr.
func (p *Peripheral) Attach(addr uint8, dev Device) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.devices[addr&0x7F] = dev
}

func (p *Peripheral) Detach(addr uint8) {
	p.mx.Lock()
	defer p.mx.Unlock()
	delete(p.devices, addr&0x7F)
}

// BusyPolls sets how many Busy calls report true after each command.
func (p *Peripheral) BusyPolls(n int) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.busyPolls = n
}

// Stick keeps the busy flag raised forever when stuck is true.
func (p *Peripheral) Stick(stuck bool) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.stuck = stuck
}

// InjectFault makes the phase with the given trace index fail with f as
// soon as the command is issued.
func (p *Peripheral) InjectFault(phase int, f controller.Fault) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.inject[phase] = injection{fault: f}
}

// InjectLateFault makes the phase fail with f, visible only after Busy has
// reported the peripheral idle.
func (p *Peripheral) InjectLateFault(phase int, f controller.Fault) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.inject[phase] = injection{fault: f, late: true}
}

// Trace returns a copy of the phases executed since the last ClearTrace.
func (p *Peripheral) Trace() []Phase {
	p.mx.Lock()
	defer p.mx.Unlock()
	out := make([]Phase, len(p.trace))
	copy(out, p.trace)
	return out
}

// ClearTrace drops the recorded phases and pending injections.
func (p *Peripheral) ClearTrace() {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.trace = nil
	p.inject = make(map[int]injection)
}

func (p *Peripheral) Speed() controller.Speed {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.speed
}

func (p *Peripheral) Initialized() bool {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.initialized
}

func (p *Peripheral) Enable() error {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.enabled = true
	p.initialized = false
	p.release()
	p.fault, p.late, p.busy = controller.FaultNone, controller.FaultNone, 0
	return nil
}

func (p *Peripheral) Init(speed controller.Speed) error {
	p.mx.Lock()
	defer p.mx.Unlock()
	if !p.enabled {
		return fmt.Errorf("%s: %w", p.id, ErrNotEnabled)
	}
	p.speed = speed
	p.initialized = true
	return nil
}

func (p *Peripheral) SetAddress(addr uint8, receive bool) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.addr = addr & 0x7F
	p.receive = receive
}

func (p *Peripheral) Put(data byte) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.data = data
}

func (p *Peripheral) Get() byte {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.data
}

func (p *Peripheral) BindInterrupt(handler func()) {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.handler = handler
}

func (p *Peripheral) Control(cmd controller.Command) {
	p.mx.Lock()
	p.execute(cmd)
	var fire func()
	if p.busy == 0 && !p.stuck {
		fire = p.handler
	}
	p.mx.Unlock()
	if fire != nil {
		fire()
	}
}

// execute runs one command on the bus; p.mx is held.
func (p *Peripheral) execute(cmd controller.Command) {
	ph := Phase{Addr: p.addr, Read: p.receive, Cmd: cmd}
	p.fault, p.late = controller.FaultNone, controller.FaultNone
	p.busy = p.busyPolls
	p.settled = false
	defer func() {
		p.trace = append(p.trace, ph)
	}()

	if inj, ok := p.inject[len(p.trace)]; ok {
		delete(p.inject, len(p.trace))
		if inj.late {
			p.late = inj.fault
		} else {
			p.fault = inj.fault
		}
		ph.Fault = inj.fault
		p.release()
		return
	}
	if ph.Start() {
		dev, ok := p.devices[p.addr]
		if !ok {
			p.abort(&ph, controller.ErrAddrNack)
			return
		}
		if p.active != nil && p.active != dev {
			p.active.Stop()
		}
		p.active = dev
		dev.Start(p.receive)
	} else if p.active == nil {
		// continuing a burst that was never started
		p.abort(&ph, controller.ErrBusFault)
		return
	}
	if p.receive {
		p.data = p.active.Read()
	} else if !p.active.Write(p.data) {
		ph.Data = p.data
		p.abort(&ph, controller.ErrDataNack)
		return
	}
	ph.Data = p.data
	if ph.Stop() {
		p.release()
	}
}

func (p *Peripheral) abort(ph *Phase, f controller.Fault) {
	p.fault = f
	ph.Fault = f
	p.release()
}

func (p *Peripheral) release() {
	if p.active != nil {
		p.active.Stop()
		p.active = nil
	}
}

func (p *Peripheral) Busy() bool {
	p.mx.Lock()
	if p.stuck {
		p.mx.Unlock()
		return true
	}
	if p.busy == 0 {
		p.settled = true
		p.mx.Unlock()
		return false
	}
	p.busy--
	var fire func()
	if p.busy == 0 {
		fire = p.handler
	}
	p.mx.Unlock()
	if fire != nil {
		fire()
	}
	return true
}

func (p *Peripheral) Fault() controller.Fault {
	p.mx.Lock()
	defer p.mx.Unlock()
	if p.fault != controller.FaultNone {
		return p.fault
	}
	if p.settled {
		return p.late
	}
	return controller.FaultNone
}
