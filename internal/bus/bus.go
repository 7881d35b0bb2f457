// Package bus defines the register-access boundary between the host
// model and the instrument. The physical transport (memory-mapped
// window, network monitor, ...) lives behind the [Bus] interface;
// everything in this repository talks to registers through it.
package bus

import "sync"

// Bus is the minimal register transport: one read or one write per
// call, no caching. Implementations own whatever serialization
// protects concurrent register access as well as retry policy;
// transport failures propagate unchanged to callers.
type Bus interface {
	Read(addr uint32) (int64, error)
	Write(addr uint32, word int64) error
}

// BatchReader is implemented by transports that can read several
// registers as one atomic transaction. Callers that need a coherent
// snapshot of related registers (e.g. the gain set feeding the
// transfer-function model) should prefer it over back-to-back reads.
type BatchReader interface {
	ReadBatch(addrs []uint32) ([]int64, error)
}

// MemBus is an in-memory register file used by tests and by the CLI
// when no hardware is attached. Reads of unwritten addresses return
// zero, matching a freshly reset register file.
type MemBus struct {
	mu   sync.Mutex
	regs map[uint32]int64
}

// NewMemBus returns an empty simulated register file.
func NewMemBus() *MemBus {
	return &MemBus{regs: make(map[uint32]int64)}
}

func (m *MemBus) Read(addr uint32) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[addr], nil
}

func (m *MemBus) Write(addr uint32, word int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[addr] = word
	return nil
}

// ReadBatch reads all addresses under one lock acquisition, so no
// concurrent Write or Apply can interleave between them.
func (m *MemBus) ReadBatch(addrs []uint32) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	words := make([]int64, len(addrs))
	for i, a := range addrs {
		words[i] = m.regs[a]
	}
	return words, nil
}

// Apply runs fn against the register file as one atomic update. Tests
// use it to emulate the hardware changing several registers at the
// same discrete instant (e.g. a gain-scheduling writer, or the
// integrator accumulator ticking).
func (m *MemBus) Apply(fn func(regs map[uint32]int64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.regs)
}
