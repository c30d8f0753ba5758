package machine

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Machine is one hart and its memory.
type Machine struct {
	Registers Registers
	Memory    *Memory
}

// New creates a machine with the given memory layout and all registers zeroed.
func New(memorySize, stackSize int) (*Machine, error) {
	memory, err := NewMemory(memorySize, stackSize)
	if err != nil {
		return nil, err
	}
	return &Machine{Memory: memory}, nil
}

// WriteStack dumps the stack segment from sp up to the top of memory, one 8 byte word per line:
// address, signed value, bytes and characters.
func (m *Machine) WriteStack(w io.Writer) error {
	base := m.Memory.StackBase()
	start := base
	if sp := m.Registers.Get(SP); sp > base {
		start = base + (sp-base)/8*8
	}
	for addr := start; addr <= m.Memory.Size()-8; addr += 8 {
		word, err := m.Memory.Slice(addr, 8)
		if err != nil {
			return err
		}
		value := int64(binary.LittleEndian.Uint64(word))
		if _, err := fmt.Fprintf(w, "%#04x %020d % x  %s\n", addr, value, word, printable(word)); err != nil {
			return err
		}
	}
	return nil
}

func printable(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch {
		case c == '\n':
			sb.WriteString(`\n`)
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
