// Package machine holds the architectural state of a simulated RISC-V hart: its register file
// and a segmented, little-endian memory.
package machine

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownRegister = errors.New("unknown register")

// Register indexes the integer register file. Zero is hardwired to 0.
type Register int

const (
	Zero Register = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
	NumRegisters
)

var registerNames = [NumRegisters]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var registerByName = func() map[string]Register {
	m := map[string]Register{"fp": S0}
	for i, name := range registerNames {
		m[name] = Register(i)
		m[fmt.Sprintf("x%d", i)] = Register(i)
	}
	return m
}()

func (r Register) String() string {
	if r >= 0 && r < NumRegisters {
		return registerNames[r]
	}
	return fmt.Sprintf("x?%d", int(r))
}

// LookupRegister resolves an ABI name (a0, sp, fp, ...) or a numeric name (x10).
func LookupRegister(name string) (Register, error) {
	r, ok := registerByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
	}
	return r, nil
}

// IsRegister reports whether name is a register name.
func IsRegister(name string) bool {
	_, ok := registerByName[name]
	return ok
}

// Registers is the register file plus the program counter, which counts instructions rather
// than bytes.
type Registers struct {
	x  [NumRegisters]int64
	PC int64
}

func (r *Registers) Get(reg Register) int64 {
	return r.x[reg]
}

// Set writes reg. Writes to zero are discarded.
func (r *Registers) Set(reg Register, value int64) {
	if reg == Zero {
		return
	}
	r.x[reg] = value
}

// Lookup returns the value of the register called name, which may also be "pc".
func (r *Registers) Lookup(name string) (int64, bool) {
	if name == "pc" {
		return r.PC, true
	}
	reg, ok := registerByName[name]
	if !ok {
		return 0, false
	}
	return r.Get(reg), true
}

// Snapshot returns all named registers, sorted by name, including "pc".
func (r *Registers) Snapshot() []NamedValue {
	values := make([]NamedValue, 0, NumRegisters+1)
	for i, name := range registerNames {
		values = append(values, NamedValue{Name: name, Value: r.x[i]})
	}
	values = append(values, NamedValue{Name: "pc", Value: r.PC})
	sort.Slice(values, func(i, j int) bool { return values[i].Name < values[j].Name })
	return values
}

type NamedValue struct {
	Name  string
	Value int64
}
