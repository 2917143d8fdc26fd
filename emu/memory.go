package emu

import "encoding/binary"

// Memory models the byte-addressable data memory. Words are stored
// little-endian; every byte is initialized to 0xFF. Addresses are assumed
// in range by the pipeline core (out-of-bounds access is the caller's
// responsibility per the simulator contract); the accessors themselves
// bounds-check silently so observability calls cannot panic: out-of-range
// reads return 0xFF bytes or the undefined word, out-of-range writes are
// dropped.
type Memory struct {
	data []byte
}

// NewMemory allocates a data memory of the given size in bytes, filled
// with 0xFF.
func NewMemory(size uint32) *Memory {
	m := &Memory{data: make([]byte, size)}
	m.Reset()
	return m
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.data))
}

// Reset refills the whole memory with 0xFF.
func (m *Memory) Reset() {
	for i := range m.data {
		m.data[i] = 0xFF
	}
}

// Read8 reads one byte. Out-of-range addresses read as 0xFF.
func (m *Memory) Read8(addr uint32) uint8 {
	if int(addr) >= len(m.data) {
		return 0xFF
	}
	return m.data[addr]
}

// Read32 reads a 32-bit little-endian word at addr.
func (m *Memory) Read32(addr uint32) uint32 {
	if int(addr)+4 > len(m.data) {
		return Undefined
	}
	return binary.LittleEndian.Uint32(m.data[addr:])
}

// Write32 writes a 32-bit little-endian word at addr.
func (m *Memory) Write32(addr uint32, value uint32) {
	if int(addr)+4 > len(m.data) {
		return
	}
	binary.LittleEndian.PutUint32(m.data[addr:], value)
}
