package cpu

import (
	"math"

	"github.com/MaartenS11/iasm/pkg/asm"
	"github.com/MaartenS11/iasm/pkg/machine"
)

type opFn func(c *CPU, args []string) error

var ops = map[string]opFn{
	"nop": func(c *CPU, args []string) error { return nil },

	"mv":     unary(func(a int64) int64 { return a }),
	"neg":    unary(func(a int64) int64 { return -a }),
	"negw":   unary(func(a int64) int64 { return sext32(-a) }),
	"not":    unary(func(a int64) int64 { return ^a }),
	"sext.w": unary(sext32),
	"seqz":   unary(func(a int64) int64 { return boolean(a == 0) }),
	"snez":   unary(func(a int64) int64 { return boolean(a != 0) }),
	"inc":    increment(1),
	"dec":    increment(-1),

	"li":  loadImmediate,
	"la":  loadImmediate,
	"lla": loadImmediate,

	"ld":  load(8, false),
	"lw":  load(4, true),
	"lwu": load(4, false),
	"lh":  load(2, true),
	"lhu": load(2, false),
	"lb":  load(1, true),
	"lbu": load(1, false),
	"sd":  store(8),
	"sw":  store(4),
	"sh":  store(2),
	"sb":  store(1),

	"add":  binary(func(a, b int64) int64 { return a + b }),
	"addw": binary(func(a, b int64) int64 { return sext32(a + b) }),
	"sub":  binary(func(a, b int64) int64 { return a - b }),
	"subw": binary(func(a, b int64) int64 { return sext32(a - b) }),
	"mul":  binary(func(a, b int64) int64 { return a * b }),
	"mulw": binary(func(a, b int64) int64 { return sext32(a * b) }),
	"div":  binary(div),
	"divu": binary(divu),
	"divw": binary(func(a, b int64) int64 { return sext32(div(sext32(a), sext32(b))) }),
	"rem":  binary(rem),
	"remu": binary(remu),
	"remw": binary(func(a, b int64) int64 { return sext32(rem(sext32(a), sext32(b))) }),
	"and":  binary(func(a, b int64) int64 { return a & b }),
	"or":   binary(func(a, b int64) int64 { return a | b }),
	"xor":  binary(func(a, b int64) int64 { return a ^ b }),
	"sll":  binary(func(a, b int64) int64 { return a << (b & 63) }),
	"srl":  binary(func(a, b int64) int64 { return int64(uint64(a) >> (b & 63)) }),
	"sra":  binary(func(a, b int64) int64 { return a >> (b & 63) }),
	"sllw": binary(func(a, b int64) int64 { return sext32(a << (b & 31)) }),
	"srlw": binary(func(a, b int64) int64 { return sext32(int64(uint32(a) >> (b & 31))) }),
	"sraw": binary(func(a, b int64) int64 { return int64(int32(a) >> (b & 31)) }),
	"slt":  binary(func(a, b int64) int64 { return boolean(a < b) }),
	"sltu": binary(func(a, b int64) int64 { return boolean(uint64(a) < uint64(b)) }),

	"addi":  immediate(func(a, b int64) int64 { return a + b }),
	"addiw": immediate(func(a, b int64) int64 { return sext32(a + b) }),
	"andi":  immediate(func(a, b int64) int64 { return a & b }),
	"ori":   immediate(func(a, b int64) int64 { return a | b }),
	"xori":  immediate(func(a, b int64) int64 { return a ^ b }),
	"slli":  immediate(func(a, b int64) int64 { return a << (b & 63) }),
	"srli":  immediate(func(a, b int64) int64 { return int64(uint64(a) >> (b & 63)) }),
	"srai":  immediate(func(a, b int64) int64 { return a >> (b & 63) }),
	"slliw": immediate(func(a, b int64) int64 { return sext32(a << (b & 31)) }),
	"srliw": immediate(func(a, b int64) int64 { return sext32(int64(uint32(a) >> (b & 31))) }),
	"sraiw": immediate(func(a, b int64) int64 { return int64(int32(a) >> (b & 31)) }),
	"slti":  immediate(func(a, b int64) int64 { return boolean(a < b) }),
	"sltiu": immediate(func(a, b int64) int64 { return boolean(uint64(a) < uint64(b)) }),

	"beq":  branch(func(a, b int64) bool { return a == b }),
	"bne":  branch(func(a, b int64) bool { return a != b }),
	"blt":  branch(func(a, b int64) bool { return a < b }),
	"bge":  branch(func(a, b int64) bool { return a >= b }),
	"ble":  branch(func(a, b int64) bool { return a <= b }),
	"bgt":  branch(func(a, b int64) bool { return a > b }),
	"bltu": branch(func(a, b int64) bool { return uint64(a) < uint64(b) }),
	"bgeu": branch(func(a, b int64) bool { return uint64(a) >= uint64(b) }),
	"bleu": branch(func(a, b int64) bool { return uint64(a) <= uint64(b) }),
	"bgtu": branch(func(a, b int64) bool { return uint64(a) > uint64(b) }),
	"beqz": branchZero(func(a int64) bool { return a == 0 }),
	"bnez": branchZero(func(a int64) bool { return a != 0 }),
	"bltz": branchZero(func(a int64) bool { return a < 0 }),
	"bgez": branchZero(func(a int64) bool { return a >= 0 }),
	"blez": branchZero(func(a int64) bool { return a <= 0 }),
	"bgtz": branchZero(func(a int64) bool { return a > 0 }),

	"j":     jump,
	"jr":    jump,
	"jal":   jumpAndLink,
	"jalr":  jumpAndLinkRegister,
	"ret":   ret,
	"ecall": ecall,
}

func boolean(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Division follows RISC-V: no traps, x/0 = -1 and x%0 = x, overflow yields the dividend.

func div(a, b int64) int64 {
	switch {
	case b == 0:
		return -1
	case a == math.MinInt64 && b == -1:
		return a
	}
	return a / b
}

func divu(a, b int64) int64 {
	if b == 0 {
		return -1
	}
	return int64(uint64(a) / uint64(b))
}

func rem(a, b int64) int64 {
	switch {
	case b == 0:
		return a
	case a == math.MinInt64 && b == -1:
		return 0
	}
	return a % b
}

func remu(a, b int64) int64 {
	if b == 0 {
		return a
	}
	return int64(uint64(a) % uint64(b))
}

func unary(fn func(a int64) int64) opFn {
	return func(c *CPU, args []string) error {
		if err := want(args, 2); err != nil {
			return err
		}
		a, err := c.read(args[1])
		if err != nil {
			return err
		}
		return c.write(args[0], fn(a))
	}
}

func increment(delta int64) opFn {
	return func(c *CPU, args []string) error {
		if err := want(args, 1); err != nil {
			return err
		}
		a, err := c.read(args[0])
		if err != nil {
			return err
		}
		return c.write(args[0], a+delta)
	}
}

func binary(fn func(a, b int64) int64) opFn {
	return func(c *CPU, args []string) error {
		if err := want(args, 3); err != nil {
			return err
		}
		a, err := c.read(args[1])
		if err != nil {
			return err
		}
		b, err := c.read(args[2])
		if err != nil {
			return err
		}
		return c.write(args[0], fn(a, b))
	}
}

func immediate(fn func(a, imm int64) int64) opFn {
	return func(c *CPU, args []string) error {
		if err := want(args, 3); err != nil {
			return err
		}
		a, err := c.read(args[1])
		if err != nil {
			return err
		}
		imm, err := asm.ParseImmediate(args[2])
		if err != nil {
			return err
		}
		return c.write(args[0], fn(a, imm))
	}
}

func loadImmediate(c *CPU, args []string) error {
	if err := want(args, 2); err != nil {
		return err
	}
	imm, err := asm.ParseImmediate(args[1])
	if err != nil {
		return err
	}
	return c.write(args[0], imm)
}

func load(size int, signed bool) opFn {
	return func(c *CPU, args []string) error {
		if err := want(args, 2); err != nil {
			return err
		}
		addr, err := c.address(args[1])
		if err != nil {
			return err
		}
		v, err := c.machine.Memory.Load(addr, size)
		if err != nil {
			return err
		}
		value := int64(v)
		if signed {
			shift := 64 - 8*size
			value = value << shift >> shift
		}
		return c.write(args[0], value)
	}
}

func store(size int) opFn {
	return func(c *CPU, args []string) error {
		if err := want(args, 2); err != nil {
			return err
		}
		value, err := c.read(args[0])
		if err != nil {
			return err
		}
		addr, err := c.address(args[1])
		if err != nil {
			return err
		}
		if err := c.machine.Memory.Store(addr, uint64(value), size); err != nil {
			return err
		}
		c.logger.Debug("store", "addr", addr, "value", value, "size", size)
		return nil
	}
}

func branch(cond func(a, b int64) bool) opFn {
	return func(c *CPU, args []string) error {
		if err := want(args, 3); err != nil {
			return err
		}
		a, err := c.read(args[0])
		if err != nil {
			return err
		}
		b, err := c.read(args[1])
		if err != nil {
			return err
		}
		if !cond(a, b) {
			return nil
		}
		return c.jumpTo(args[2])
	}
}

func branchZero(cond func(a int64) bool) opFn {
	return func(c *CPU, args []string) error {
		if err := want(args, 2); err != nil {
			return err
		}
		a, err := c.read(args[0])
		if err != nil {
			return err
		}
		if !cond(a) {
			return nil
		}
		return c.jumpTo(args[1])
	}
}

func (c *CPU) jumpTo(arg string) error {
	t, err := c.target(arg)
	if err != nil {
		return err
	}
	c.next = t
	return nil
}

func jump(c *CPU, args []string) error {
	if err := want(args, 1); err != nil {
		return err
	}
	return c.jumpTo(args[0])
}

// jumpAndLink accepts "jal target" (linking ra) and "jal rd, target".
func jumpAndLink(c *CPU, args []string) error {
	rd := "ra"
	switch len(args) {
	case 1:
	case 2:
		rd = args[0]
	default:
		return want(args, 2)
	}
	link := c.next
	if err := c.jumpTo(args[len(args)-1]); err != nil {
		return err
	}
	return c.write(rd, link)
}

// jumpAndLinkRegister accepts "jalr rs", "jalr rd, rs" and "jalr rd, offset(rs)".
func jumpAndLinkRegister(c *CPU, args []string) error {
	rd, src := "ra", ""
	switch len(args) {
	case 1:
		src = args[0]
	case 2:
		rd, src = args[0], args[1]
	default:
		return want(args, 2)
	}
	var t int64
	var err error
	if machine.IsRegister(src) {
		t, err = c.read(src)
	} else {
		t, err = c.address(src)
	}
	if err != nil {
		return err
	}
	link := c.next
	c.next = t
	return c.write(rd, link)
}

func ret(c *CPU, args []string) error {
	if err := want(args, 0); err != nil {
		return err
	}
	return c.jumpTo("ra")
}

func ecall(c *CPU, args []string) error {
	if err := want(args, 0); err != nil {
		return err
	}
	c.kernel.Ecall(c.machine)
	return nil
}
