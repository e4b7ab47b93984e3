package vm

import "encoding/binary"

// Memory is the VM's contiguous byte-addressed address space: ROM in
// [0, ramstart), RAM in [ramstart, len(bytes)). All multi-byte access is
// big-endian, regardless of host byte order.
type Memory struct {
	bytes    []byte
	ramstart uint32
}

func newMemory(size, ramstart uint32) *Memory {
	return &Memory{bytes: make([]byte, size), ramstart: ramstart}
}

// Size returns the current size of the memory map (endmem).
func (m *Memory) Size() uint32 { return uint32(len(m.bytes)) }

// RAMStart returns the boundary between ROM and RAM.
func (m *Memory) RAMStart() uint32 { return m.ramstart }

func (m *Memory) checkRead(addr, width uint32, pc uint32) {
	if uint64(addr)+uint64(width) > uint64(len(m.bytes)) {
		panic(fatalf(pc, "memory access out of range at %06x", addr))
	}
}

func (m *Memory) checkWrite(addr, width uint32, pc uint32) {
	m.checkRead(addr, width, pc)
	if addr < m.ramstart {
		panic(fatalf(pc, "write to read-only memory at %06x", addr))
	}
}

// Byte/Word/Long read main memory at addr without any write-protection check.

func (m *Memory) Byte(pc, addr uint32) uint32 {
	m.checkRead(addr, 1, pc)
	return uint32(m.bytes[addr])
}

func (m *Memory) Word(pc, addr uint32) uint32 {
	m.checkRead(addr, 2, pc)
	return uint32(binary.BigEndian.Uint16(m.bytes[addr:]))
}

func (m *Memory) Long(pc, addr uint32) uint32 {
	m.checkRead(addr, 4, pc)
	return binary.BigEndian.Uint32(m.bytes[addr:])
}

func (m *Memory) SetByte(pc, addr, val uint32) {
	m.checkWrite(addr, 1, pc)
	m.bytes[addr] = byte(val)
}

func (m *Memory) SetWord(pc, addr, val uint32) {
	m.checkWrite(addr, 2, pc)
	binary.BigEndian.PutUint16(m.bytes[addr:], uint16(val))
}

func (m *Memory) SetLong(pc, addr, val uint32) {
	m.checkWrite(addr, 4, pc)
	binary.BigEndian.PutUint32(m.bytes[addr:], val)
}

// rawByte/rawSetByte bypass range and protection checks entirely. Nothing
// in the package calls them: the loader and restart copy into the backing
// slice directly.
func (m *Memory) rawSetByte(addr uint32, val byte) { m.bytes[addr] = val }
func (m *Memory) rawByte(addr uint32) byte         { return m.bytes[addr] }

// Slice exposes the raw backing bytes in [start, end) for bulk copy
// (save/restore, undo, restart). Callers must bounds-check with checkRead
// or checkWrite themselves; this is an internal escape hatch.
func (m *Memory) Slice(start, end uint32) []byte {
	return m.bytes[start:end]
}

// Resize grows or shrinks the memory map to newSize, zero-filling any new
// bytes. It does not enforce the origendmem floor; callers do. It never
// reports failure: Go's allocator either succeeds or panics, and nothing
// here recovers such a panic.
func (m *Memory) Resize(newSize uint32) {
	old := uint32(len(m.bytes))
	if newSize == old {
		return
	}
	grown := make([]byte, newSize)
	copy(grown, m.bytes)
	m.bytes = grown
	if newSize > old {
		for i := old; i < newSize; i++ {
			m.bytes[i] = 0
		}
	}
}
