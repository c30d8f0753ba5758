// Package asm assembles GNU style RISC-V assembly text into a Program the interpreter can run.
//
// Instructions are kept symbolic: the assembler strips comments, records labels, lays out the
// data segment and resolves label operands of jumps, branches and address loads to numbers.
// Code labels resolve to instruction indexes, data labels to memory addresses.
package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MaartenS11/iasm/pkg/machine"
)

// EntryLabel marks the first instruction to execute.
const EntryLabel = "main"

// SyntaxError reports a line the assembler could not make sense of.
type SyntaxError struct {
	File string
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Source is one assembly file.
type Source struct {
	Name string
	Text string
}

// Instruction is a single assembled instruction.
type Instruction struct {
	Op   string
	Args []string
	File string
	Line int
}

func (i Instruction) String() string {
	if len(i.Args) == 0 {
		return i.Op
	}
	return i.Op + " " + strings.Join(i.Args, ", ")
}

// Program is the output of the assembler.
type Program struct {
	Instructions []Instruction
	// Entry is the index of the first instruction to execute.
	Entry int
	// Data is the data segment, which ends at MemorySize.
	Data []byte
	// MemorySize is the size of the address space the data segment was laid out for.
	MemorySize int64
	Labels     map[string]int64
}

// DataBase is the address of the first data segment byte.
func (p *Program) DataBase() int64 {
	return p.MemorySize - int64(len(p.Data))
}

// Load copies the data segment into the top of m's memory.
func (p *Program) Load(m *machine.Machine) error {
	if m.Memory.Size() != p.MemorySize {
		return fmt.Errorf("program assembled for %d bytes of memory, machine has %d", p.MemorySize, m.Memory.Size())
	}
	if len(p.Data) > m.Memory.StackSize() {
		return fmt.Errorf("data segment of %d bytes does not fit the %d byte stack segment", len(p.Data), m.Memory.StackSize())
	}
	dst, err := m.Memory.Slice(p.DataBase(), len(p.Data))
	if err != nil {
		return err
	}
	copy(dst, p.Data)
	return nil
}

type assembler struct {
	program   *Program
	lastLabel string
}

// Assemble assembles sources, in order, into one program laid out for memorySize bytes of
// memory. All sources share one label namespace.
func Assemble(memorySize int64, sources ...Source) (*Program, error) {
	a := &assembler{
		program: &Program{
			MemorySize: memorySize,
			Labels:     map[string]int64{},
		},
	}
	for _, source := range sources {
		if err := a.parse(source); err != nil {
			return nil, err
		}
	}
	if err := a.resolve(); err != nil {
		return nil, err
	}
	if entry, ok := a.program.Labels[EntryLabel]; ok {
		a.program.Entry = int(entry)
	}
	return a.program, nil
}

func (a *assembler) parse(source Source) error {
	for i, line := range strings.Split(source.Text, "\n") {
		lineNo := i + 1
		line = strings.ReplaceAll(line, "\t", " ")
		line = stripComment(line)

		for {
			label, rest, ok := cutLabel(line)
			if !ok {
				break
			}
			a.lastLabel = label
			a.program.Labels[label] = int64(len(a.program.Instructions))
			line = rest
		}

		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if err := a.directive(line); err != nil {
				return &SyntaxError{File: source.Name, Line: lineNo, Err: err}
			}
			continue
		}

		a.program.Instructions = append(a.program.Instructions, parseInstruction(line, source.Name, lineNo))
	}
	return nil
}

// parseInstruction splits a comment and label free line into its op and operands.
func parseInstruction(line, file string, lineNo int) Instruction {
	op, operands, _ := strings.Cut(line, " ")
	instruction := Instruction{
		Op:   op,
		File: file,
		Line: lineNo,
	}
	if operands = strings.TrimSpace(operands); operands != "" {
		for _, arg := range strings.Split(operands, ",") {
			instruction.Args = append(instruction.Args, strings.TrimSpace(arg))
		}
	}
	return instruction
}

// AssembleLine assembles a single instruction typed outside of any source file, resolving label
// operands against the program's labels. Labels and directives are not accepted.
func (p *Program) AssembleLine(line string) (Instruction, error) {
	line = stripComment(strings.ReplaceAll(line, "\t", " "))
	if line == "" {
		return Instruction{}, &SyntaxError{File: "<line>", Line: 1, Err: errors.New("empty instruction")}
	}
	if _, _, ok := cutLabel(line); ok || strings.HasPrefix(line, ".") {
		return Instruction{}, &SyntaxError{File: "<line>", Line: 1, Err: fmt.Errorf("not an instruction: %q", line)}
	}
	instruction := parseInstruction(line, "<line>", 1)
	if err := resolveInstruction(&instruction, p.Labels); err != nil {
		return Instruction{}, err
	}
	return instruction, nil
}

// stripComment removes a # comment, ignoring # inside string literals.
func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case '#':
			if !inString {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return strings.TrimSpace(line)
}

// cutLabel splits a leading "label:" from line.
func cutLabel(line string) (string, string, bool) {
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return "", "", false
	}
	label := line[:i]
	if strings.ContainsAny(label, " \"(,") {
		return "", "", false
	}
	return label, strings.TrimSpace(line[i+1:]), true
}

func (a *assembler) directive(line string) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case ".string", ".asciz":
		s, err := strconv.Unquote(arg)
		if err != nil {
			return fmt.Errorf("%s: invalid string literal %s: %w", name, arg, err)
		}
		a.allocate(append([]byte(s), 0))
	case ".zero":
		size, err := strconv.Atoi(arg)
		if err != nil || size < 0 {
			return fmt.Errorf(".zero: invalid size %q", arg)
		}
		a.allocate(make([]byte, size))
	}
	return nil
}

// allocate grows the data segment down from the top of memory and binds the last label to the
// new block.
func (a *assembler) allocate(b []byte) {
	p := a.program
	p.Data = append(b, p.Data...)
	if a.lastLabel != "" {
		p.Labels[a.lastLabel] = p.DataBase()
	}
}

// resolvesLabel reports whether the last operand of op may name a label.
func resolvesLabel(op string) bool {
	switch op {
	case "call", "tail", "la", "lla":
		return true
	}
	return strings.HasPrefix(op, "j") || strings.HasPrefix(op, "b")
}

func (a *assembler) resolve() error {
	p := a.program
	for i := range p.Instructions {
		if err := resolveInstruction(&p.Instructions[i], p.Labels); err != nil {
			return err
		}
	}
	return nil
}

func resolveInstruction(ins *Instruction, labels map[string]int64) error {
	if !resolvesLabel(ins.Op) || len(ins.Args) == 0 {
		return nil
	}
	switch ins.Op {
	case "call":
		ins.Op = "jal"
		ins.Args = append([]string{"ra"}, ins.Args...)
	case "tail":
		ins.Op = "j"
	}
	last := len(ins.Args) - 1
	operand := strings.TrimSuffix(ins.Args[last], "@plt")
	if machine.IsRegister(operand) || isNumber(operand) || strings.Contains(operand, "(") {
		return nil
	}
	value, ok := labels[operand]
	if !ok {
		return &SyntaxError{File: ins.File, Line: ins.Line, Err: fmt.Errorf("undefined label %q", operand)}
	}
	ins.Args[last] = strconv.FormatInt(value, 10)
	return nil
}

func isNumber(s string) bool {
	_, err := ParseImmediate(s)
	return err == nil
}

// ParseImmediate parses a decimal, hexadecimal (0x), octal (0o) or binary (0b) immediate.
func ParseImmediate(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v, nil
	}
	// Allow full-width hex constants such as 0xffffffffffffffff.
	u, uerr := strconv.ParseUint(s, 0, 64)
	if uerr == nil {
		return int64(u), nil
	}
	return 0, fmt.Errorf("invalid immediate %q", s)
}
