// Package debugger drives a CPU from line based input: stepping through a program while showing
// where it is, and evaluating single instructions against the machine once the program stopped.
//
// Both modes understand register names (print the register), "stack" (dump the stack from sp).
// Stepping also takes "continue" or an empty line to execute the next instruction and "stop" to
// end the run. After the run, any other line is assembled and executed, until "exit".
package debugger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MaartenS11/iasm/pkg/asm"
	"github.com/MaartenS11/iasm/pkg/cpu"
	"github.com/MaartenS11/iasm/pkg/machine"
)

type Debugger struct {
	cpu     *cpu.CPU
	machine *machine.Machine
	program *asm.Program
	in      *bufio.Reader
	out     io.Writer
	prompt  string
	eof     bool
}

// New creates a debugger for a CPU running program on m. Commands are read from in, which the
// program's kernel may share so neither loses buffered input. prompt is written before every
// command and may be empty.
func New(c *cpu.CPU, m *machine.Machine, program *asm.Program, in *bufio.Reader, out io.Writer, prompt string) *Debugger {
	return &Debugger{
		cpu:     c,
		machine: m,
		program: program,
		in:      in,
		out:     out,
		prompt:  prompt,
	}
}

// readLine reads one command, without surrounding space.
func (d *Debugger) readLine() (string, error) {
	if d.eof {
		return "", io.EOF
	}
	if d.prompt != "" {
		if _, err := io.WriteString(d.out, d.prompt); err != nil {
			return "", err
		}
	}
	line, err := d.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		d.eof = true
		if d.prompt != "" {
			fmt.Fprintln(d.out)
		}
		if line == "" {
			return "", io.EOF
		}
	}
	return strings.TrimSpace(line), nil
}

// query answers register and stack commands, reporting whether line was one.
func (d *Debugger) query(line string) (bool, error) {
	if line == "stack" {
		return true, d.machine.WriteStack(d.out)
	}
	if value, ok := d.machine.Registers.Lookup(line); ok {
		_, err := fmt.Fprintln(d.out, value)
		return true, err
	}
	return false, nil
}

// WriteListing writes the program with the next instruction marked.
func (d *Debugger) WriteListing() error {
	pc := d.machine.Registers.PC
	width := len(strconv.Itoa(len(d.program.Instructions)))
	for i, ins := range d.program.Instructions {
		marker := "   "
		if int64(i) == pc {
			marker = "-> "
		}
		if _, err := fmt.Fprintf(d.out, "%s%*d│%s\n", marker, width, i, ins); err != nil {
			return err
		}
	}
	return nil
}

// Step runs the program one instruction at a time, showing the listing and reading commands
// after each instruction. Once input is exhausted the program runs on without stopping.
func (d *Debugger) Step(ctx context.Context, maxInstructions uint64) (cpu.Stats, error) {
	return d.cpu.RunStepping(ctx, maxInstructions, func() (bool, error) {
		if d.eof {
			return true, nil
		}
		if err := d.WriteListing(); err != nil {
			return false, err
		}
		for {
			line, err := d.readLine()
			if errors.Is(err, io.EOF) {
				return true, nil
			}
			if err != nil {
				return false, err
			}
			switch line {
			case "", "continue":
				return true, nil
			case "stop":
				return false, nil
			}
			ok, err := d.query(line)
			if err != nil {
				return false, err
			}
			if !ok {
				fmt.Fprintln(d.out, "Invalid command")
			}
		}
	})
}

// Interact evaluates commands against the machine until "exit" or the end of input. Lines that
// are not commands are assembled and executed; their failures are reported and do not end the
// session.
func (d *Debugger) Interact() error {
	for {
		line, err := d.readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch line {
		case "":
			continue
		case "exit":
			return nil
		}

		ok, err := d.query(line)
		if err != nil {
			return err
		}
		if ok {
			continue
		}

		ins, err := d.program.AssembleLine(line)
		if err == nil {
			err = d.cpu.Exec(ins)
		}
		if err != nil {
			fmt.Fprintln(d.out, err)
		}
	}
}
