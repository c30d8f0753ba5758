package cpu

import (
	"fmt"
	"strings"

	"github.com/MaartenS11/iasm/pkg/asm"
	"github.com/MaartenS11/iasm/pkg/machine"
)

func want(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: want %d, got %d", ErrOperands, n, len(args))
	}
	return nil
}

func (c *CPU) read(arg string) (int64, error) {
	r, err := machine.LookupRegister(arg)
	if err != nil {
		return 0, err
	}
	return c.machine.Registers.Get(r), nil
}

func (c *CPU) write(arg string, value int64) error {
	r, err := machine.LookupRegister(arg)
	if err != nil {
		return err
	}
	c.machine.Registers.Set(r, value)
	return nil
}

// address evaluates an offset(register) memory operand.
func (c *CPU) address(arg string) (int64, error) {
	offset, rest, ok := strings.Cut(arg, "(")
	if !ok || !strings.HasSuffix(rest, ")") {
		return 0, fmt.Errorf("%w: invalid address %q", ErrOperands, arg)
	}
	base, err := c.read(strings.TrimSuffix(rest, ")"))
	if err != nil {
		return 0, err
	}
	if offset == "" {
		return base, nil
	}
	imm, err := asm.ParseImmediate(offset)
	if err != nil {
		return 0, err
	}
	return base + imm, nil
}

// target evaluates a jump target: an instruction index, or a register holding one.
func (c *CPU) target(arg string) (int64, error) {
	if machine.IsRegister(arg) {
		return c.read(arg)
	}
	return asm.ParseImmediate(arg)
}

func sext32(v int64) int64 {
	return int64(int32(v))
}
