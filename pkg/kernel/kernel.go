// Package kernel is an emulated kernel servicing the ecall trap of a simulated RISC-V machine.
package kernel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"

	"github.com/fornellas/resonance/log"
	"golang.org/x/sys/unix"

	"github.com/MaartenS11/iasm/pkg/machine"
	"github.com/MaartenS11/iasm/pkg/trampoline"
)

// Kernel services syscalls against a machine's memory. fd 0 reads from Stdin, fd 1 and 2 write
// to Stdout and Stderr.
type Kernel struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

// NewKernel creates a kernel logging to the logger in ctx.
func NewKernel(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) *Kernel {
	return &Kernel{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		logger: log.MustLogger(ctx),
	}
}

// syscallParms names the registers of the RISC-V syscall ABI (see syscall(2)).
type syscallParms struct {
	syscall uintptr
	arg1    int64
	arg2    int64
	arg3    int64
}

func newSyscallParms(regs *machine.Registers) *syscallParms {
	return &syscallParms{
		syscall: uintptr(regs.Get(machine.A7)),
		arg1:    regs.Get(machine.A0),
		arg2:    regs.Get(machine.A1),
		arg3:    regs.Get(machine.A2),
	}
}

// Ecall services the syscall described by the machine's registers and leaves the result in a0.
func (k *Kernel) Ecall(m *machine.Machine) {
	scParms := newSyscallParms(&m.Registers)

	var ret int64
	switch scParms.syscall {
	case trampoline.SysRead:
		ret = k.read(m.Memory, scParms.arg1, scParms.arg2, scParms.arg3)
		k.logger.Debug("syscall", "name", "read", "fd", scParms.arg1, "buf", hex(scParms.arg2), "count", scParms.arg3, "ret", ret)
	case trampoline.SysWrite:
		ret = k.write(m.Memory, scParms.arg1, scParms.arg2, scParms.arg3)
		k.logger.Debug("syscall", "name", "write", "fd", scParms.arg1, "buf", hex(scParms.arg2), "count", scParms.arg3, "ret", ret)
	case trampoline.SysBrk:
		ret = k.brk(m.Memory, scParms.arg1)
		k.logger.Debug("syscall", "name", "brk", "addr", hex(scParms.arg1), "ret", hex(ret))
	default:
		ret = errnoResult(unix.ENOSYS)
		k.logger.Warn("unsupported syscall", "syscall", trampoline.Name(scParms.syscall))
	}
	m.Registers.Set(machine.A0, ret)
}

func (k *Kernel) read(memory *machine.Memory, fd, buf, count int64) int64 {
	if fd != 0 || k.stdin == nil {
		return errnoResult(unix.EBADF)
	}
	if count < 0 {
		return errnoResult(unix.EINVAL)
	}
	if count == 0 {
		return 0
	}
	dst, err := memory.Slice(buf, int(count))
	if err != nil {
		return errnoResult(unix.EFAULT)
	}
	// A single Read, so a short read reports what was available without waiting for count bytes.
	n, err := k.stdin.Read(dst)
	if n > 0 {
		return int64(n)
	}
	if err == nil || errors.Is(err, io.EOF) {
		return 0
	}
	k.logger.Error("read failed", "err", err)
	return errnoResult(unix.EIO)
}

func (k *Kernel) write(memory *machine.Memory, fd, buf, count int64) int64 {
	var w io.Writer
	switch fd {
	case 1:
		w = k.stdout
	case 2:
		w = k.stderr
	}
	if w == nil {
		return errnoResult(unix.EBADF)
	}
	if count < 0 {
		return errnoResult(unix.EINVAL)
	}
	src, err := memory.Slice(buf, int(count))
	if err != nil {
		return errnoResult(unix.EFAULT)
	}
	n, err := w.Write(src)
	if err != nil {
		k.logger.Error("write failed", "err", err)
		if n == 0 {
			return errnoResult(unix.EIO)
		}
	}
	return int64(n)
}

// brk follows Linux: a refused request leaves the break where it was, and the caller finds out by
// comparing the returned break with the one it asked for.
func (k *Kernel) brk(memory *machine.Memory, addr int64) int64 {
	if addr == 0 {
		return memory.Break()
	}
	if err := memory.SetBreak(addr); err != nil {
		k.logger.Debug("brk refused", "addr", hex(addr), "err", err)
	}
	return memory.Break()
}

func errnoResult(errno unix.Errno) int64 {
	return -int64(errno)
}

// hex renders addresses in logs.
type hex int64

func (h hex) LogValue() slog.Value {
	return slog.StringValue("0x" + strconv.FormatUint(uint64(h), 16))
}
