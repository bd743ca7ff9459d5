package sim

import "sync"

// Echo returns the bytes written to it in the same order. Reading an empty
// echo yields 0xFF, the idle level of the data line.
type Echo struct {
	mx   sync.Mutex
	fifo []byte
}

var _ Device = &Echo{}

func NewEcho() *Echo {
	return &Echo{}
}

func (e *Echo) Start(read bool) {}

func (e *Echo) Write(b byte) bool {
	e.mx.Lock()
	defer e.mx.Unlock()
	e.fifo = append(e.fifo, b)
	return true
}

func (e *Echo) Read() byte {
	e.mx.Lock()
	defer e.mx.Unlock()
	if len(e.fifo) == 0 {
		return 0xFF
	}
	b := e.fifo[0]
	e.fifo = e.fifo[1:]
	return b
}

func (e *Echo) Stop() {}

// Pending returns the bytes written and not yet read back.
func (e *Echo) Pending() []byte {
	e.mx.Lock()
	defer e.mx.Unlock()
	return append([]byte(nil), e.fifo...)
}

// Memory is a register-addressed target. The first PointerWidth bytes of
// every write transaction set the register pointer (most significant byte
// first); the following bytes are stored from there. Reads return bytes
// from the pointer on. The pointer increments after every access and wraps
// at the end of the memory.
type Memory struct {
	mx       sync.Mutex
	mem      []byte
	ptrWidth int
	ptr      int
	ptrBytes int
	ptrLatch int
}

var _ Device = &Memory{}

// NewMemory returns a memory of size bytes addressed by ptrWidth pointer bytes.
func NewMemory(size, ptrWidth int) *Memory {
	if size <= 0 {
		size = 256
	}
	return &Memory{mem: make([]byte, size), ptrWidth: ptrWidth}
}

func (m *Memory) Start(read bool) {
	m.mx.Lock()
	defer m.mx.Unlock()
	if !read {
		m.ptrBytes = 0
		m.ptrLatch = 0
	}
}

func (m *Memory) Write(b byte) bool {
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.ptrBytes < m.ptrWidth {
		m.ptrLatch = m.ptrLatch<<8 | int(b)
		m.ptrBytes++
		if m.ptrBytes == m.ptrWidth {
			m.ptr = m.ptrLatch % len(m.mem)
		}
		return true
	}
	m.mem[m.ptr] = b
	m.ptr = (m.ptr + 1) % len(m.mem)
	return true
}

func (m *Memory) Read() byte {
	m.mx.Lock()
	defer m.mx.Unlock()
	b := m.mem[m.ptr]
	m.ptr = (m.ptr + 1) % len(m.mem)
	return b
}

func (m *Memory) Stop() {}

// Load copies data into the memory at off.
func (m *Memory) Load(off int, data []byte) {
	m.mx.Lock()
	defer m.mx.Unlock()
	for i, b := range data {
		m.mem[(off+i)%len(m.mem)] = b
	}
}

// Bytes returns n bytes starting at off.
func (m *Memory) Bytes(off, n int) []byte {
	m.mx.Lock()
	defer m.mx.Unlock()
	out := make([]byte, n)
	for i := range out {
		out[i] = m.mem[(off+i)%len(m.mem)]
	}
	return out
}

// Pointer returns the current register pointer.
func (m *Memory) Pointer() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.ptr
}
