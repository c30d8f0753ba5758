package machine

import (
	"encoding/binary"
	"fmt"
)

const (
	DefaultMemorySize = 4096
	DefaultStackSize  = 2048
)

// FaultError reports an access outside mapped memory.
type FaultError struct {
	Addr int64
	Size int
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("memory fault: %d byte(s) at %#x", e.Size, e.Addr)
}

// Memory is split in two segments: the heap, [0, Break()), grown with SetBreak, and the stack,
// the top StackSize() bytes of the virtual address space. The data segment of a program lives at
// the top of the stack segment.
type Memory struct {
	heap  []byte
	stack []byte
	size  int64
}

// NewMemory creates memory with the given virtual size and stack segment size.
func NewMemory(size, stackSize int) (*Memory, error) {
	if size <= 0 || stackSize <= 0 || stackSize > size {
		return nil, fmt.Errorf("invalid memory layout: size %d, stack size %d", size, stackSize)
	}
	return &Memory{
		stack: make([]byte, stackSize),
		size:  int64(size),
	}, nil
}

// Size is the size of the virtual address space.
func (m *Memory) Size() int64 {
	return m.size
}

func (m *Memory) StackSize() int {
	return len(m.stack)
}

// StackBase is the lowest stack segment address.
func (m *Memory) StackBase() int64 {
	return m.size - int64(len(m.stack))
}

// Break is the current program break.
func (m *Memory) Break() int64 {
	return int64(len(m.heap))
}

// SetBreak moves the program break, zeroing newly mapped bytes. The heap may not grow into the
// stack segment.
func (m *Memory) SetBreak(addr int64) error {
	if addr < 0 || addr > m.StackBase() {
		return &FaultError{Addr: addr}
	}
	n := int(addr)
	if n <= cap(m.heap) {
		old := len(m.heap)
		m.heap = m.heap[:n]
		if n > old {
			clear(m.heap[old:n])
		}
		return nil
	}
	heap := make([]byte, n)
	copy(heap, m.heap)
	m.heap = heap
	return nil
}

// Slice returns the memory backing [addr, addr+size). The range must be mapped and lie within a
// single segment. Writes to the returned slice are writes to memory.
func (m *Memory) Slice(addr int64, size int) ([]byte, error) {
	// Compared as addr > limit-size so that guest supplied values cannot overflow addr+size.
	if addr < 0 || size < 0 || int64(size) > m.size || addr > m.size-int64(size) {
		return nil, &FaultError{Addr: addr, Size: size}
	}
	end := addr + int64(size)
	if base := m.StackBase(); addr >= base {
		return m.stack[addr-base : end-base : end-base], nil
	}
	if end > int64(len(m.heap)) {
		return nil, &FaultError{Addr: addr, Size: size}
	}
	return m.heap[addr:end:end], nil
}

// Load reads a little-endian value of size 1, 2, 4 or 8 bytes, zero extended.
func (m *Memory) Load(addr int64, size int) (uint64, error) {
	b, err := m.Slice(addr, size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case 8:
		return binary.LittleEndian.Uint64(b), nil
	default:
		return 0, fmt.Errorf("invalid load size %d", size)
	}
}

// Store writes the low size bytes of value, little-endian.
func (m *Memory) Store(addr int64, value uint64, size int) error {
	b, err := m.Slice(addr, size)
	if err != nil {
		return err
	}
	switch size {
	case 1:
		b[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(b, value)
	default:
		return fmt.Errorf("invalid store size %d", size)
	}
	return nil
}
