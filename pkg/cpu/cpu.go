// Package cpu interprets assembled programs on a simulated RISC-V machine.
package cpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fornellas/resonance/log"

	"github.com/MaartenS11/iasm/pkg/asm"
	"github.com/MaartenS11/iasm/pkg/machine"
)

var (
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrOperands           = errors.New("invalid operands")
	ErrInstructionLimit   = errors.New("instruction limit reached")
)

// ExecError reports the instruction that failed.
type ExecError struct {
	PC          int64
	Instruction asm.Instruction
	Err         error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s:%d: pc %d: %s: %s", e.Instruction.File, e.Instruction.Line, e.PC, e.Instruction, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Ecaller services the ecall instruction.
type Ecaller interface {
	Ecall(m *machine.Machine)
}

// Stats summarizes a run.
type Stats struct {
	Instructions uint64
	Duration     time.Duration
}

// CPU executes a Program on a Machine.
type CPU struct {
	machine *machine.Machine
	kernel  Ecaller
	program *asm.Program
	logger  *slog.Logger
	// next is the pc after the current instruction; jumps overwrite it.
	next int64
}

// New loads program into m and points the CPU at its entry point. The stack pointer starts below
// the data segment, and ra points past the last instruction so returning from the entry point
// halts.
func New(ctx context.Context, m *machine.Machine, kernel Ecaller, program *asm.Program) (*CPU, error) {
	if err := program.Load(m); err != nil {
		return nil, err
	}
	regs := &m.Registers
	regs.PC = int64(program.Entry)
	regs.Set(machine.SP, program.DataBase())
	regs.Set(machine.RA, int64(len(program.Instructions)))
	return &CPU{
		machine: m,
		kernel:  kernel,
		program: program,
		logger:  log.MustLogger(ctx),
	}, nil
}

// Halted reports whether pc left the program.
func (c *CPU) Halted() bool {
	pc := c.machine.Registers.PC
	return pc < 0 || pc >= int64(len(c.program.Instructions))
}

// Step executes the instruction at pc.
func (c *CPU) Step() error {
	pc := c.machine.Registers.PC
	if c.Halted() {
		return fmt.Errorf("pc %d outside program", pc)
	}
	return c.Exec(c.program.Instructions[pc])
}

// Exec executes ins as if it were at pc, so the program counter advances past it unless ins
// jumps. It also runs instructions that are not part of the program.
func (c *CPU) Exec(ins asm.Instruction) error {
	regs := &c.machine.Registers
	pc := regs.PC
	c.next = pc + 1

	c.logger.Debug("exec", "pc", pc, "ins", ins.String())

	op, ok := ops[ins.Op]
	if !ok {
		return &ExecError{PC: pc, Instruction: ins, Err: ErrUnknownInstruction}
	}
	if err := op(c, ins.Args); err != nil {
		return &ExecError{PC: pc, Instruction: ins, Err: err}
	}
	regs.PC = c.next
	return nil
}

// StepFunc is called after every executed instruction. Returning false stops the run.
type StepFunc func() (bool, error)

// Run executes until the program halts, ctx is done, an instruction fails or maxInstructions
// (when non zero) have executed.
func (c *CPU) Run(ctx context.Context, maxInstructions uint64) (Stats, error) {
	return c.RunStepping(ctx, maxInstructions, nil)
}

// RunStepping is Run with afterStep, when not nil, called after each instruction. A run stopped
// by afterStep is not an error.
func (c *CPU) RunStepping(ctx context.Context, maxInstructions uint64, afterStep StepFunc) (stats Stats, err error) {
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	for !c.Halted() {
		if stats.Instructions%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		if maxInstructions > 0 && stats.Instructions >= maxInstructions {
			return stats, ErrInstructionLimit
		}
		if err := c.Step(); err != nil {
			return stats, err
		}
		stats.Instructions++
		if afterStep != nil {
			ok, err := afterStep()
			if err != nil {
				return stats, err
			}
			if !ok {
				return stats, nil
			}
		}
	}
	return stats, nil
}
