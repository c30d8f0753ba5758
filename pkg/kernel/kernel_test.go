package kernel

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/fornellas/resonance/log"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/MaartenS11/iasm/pkg/machine"
	"github.com/MaartenS11/iasm/pkg/trampoline"
)

type fixture struct {
	tr      *trampoline.Trampoline
	machine *machine.Machine
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
}

func newFixture(t *testing.T, stdin io.Reader) *fixture {
	ctx := log.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	m, err := machine.New(machine.DefaultMemorySize, machine.DefaultStackSize)
	require.NoError(t, err)
	f := &fixture{
		machine: m,
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
	}
	f.tr = New(NewKernel(ctx, stdin, f.stdout, f.stderr), m)
	return f
}

func (f *fixture) store(t *testing.T, addr int64, s string) {
	b, err := f.machine.Memory.Slice(addr, len(s))
	require.NoError(t, err)
	copy(b, s)
}

func (f *fixture) load(t *testing.T, addr int64, n int) string {
	b, err := f.machine.Memory.Slice(addr, n)
	require.NoError(t, err)
	return string(b)
}

func TestWrite(t *testing.T) {
	f := newFixture(t, nil)
	buf := f.machine.Memory.StackBase()
	f.store(t, buf, "hi\n")

	require.Equal(t, trampoline.Result(3), f.tr.Write(1, uintptr(buf), 3))
	require.Equal(t, "hi\n", f.stdout.String())

	require.Equal(t, trampoline.Result(2), f.tr.Write(2, uintptr(buf), 2))
	require.Equal(t, "hi", f.stderr.String())

	require.Equal(t, unix.EBADF, f.tr.Write(7, uintptr(buf), 3).Errno())
	require.Equal(t, unix.EFAULT, f.tr.Write(1, 0, 3).Errno())
	require.Equal(t, unix.EINVAL, f.tr.Write(1, uintptr(buf), -1).Errno())
	require.Equal(t, unix.EFAULT, f.tr.Write(1, math.MaxInt, 8).Errno())
	require.Equal(t, unix.EFAULT, f.tr.Write(1, uintptr(buf), math.MaxInt).Errno())
	require.Equal(t, "hi\n", f.stdout.String())
}

func TestRead(t *testing.T) {
	f := newFixture(t, strings.NewReader("hello"))
	buf := f.machine.Memory.StackBase()
	f.store(t, buf, "..........")

	require.Equal(t, trampoline.Result(5), f.tr.Read(0, uintptr(buf), 10))
	require.Equal(t, "hello.....", f.load(t, buf, 10))

	require.Equal(t, trampoline.Result(0), f.tr.Read(0, uintptr(buf), 10))
	require.Equal(t, "hello.....", f.load(t, buf, 10))
}

func TestReadConsumes(t *testing.T) {
	f := newFixture(t, strings.NewReader("abcdef"))
	buf := f.machine.Memory.StackBase()

	require.Equal(t, trampoline.Result(4), f.tr.Read(0, uintptr(buf), 4))
	require.Equal(t, "abcd", f.load(t, buf, 4))
	require.Equal(t, trampoline.Result(2), f.tr.Read(0, uintptr(buf), 4))
	require.Equal(t, "efcd", f.load(t, buf, 4))
}

func TestReadFailures(t *testing.T) {
	f := newFixture(t, strings.NewReader("hello"))
	buf := f.machine.Memory.StackBase()
	f.store(t, buf, "....")

	require.Equal(t, unix.EBADF, f.tr.Read(3, uintptr(buf), 4).Errno())
	require.Equal(t, unix.EFAULT, f.tr.Read(0, 16, 4).Errno())
	require.Equal(t, unix.EINVAL, f.tr.Read(0, uintptr(buf), -4).Errno())
	require.Equal(t, "....", f.load(t, buf, 4))

	// Failed reads did not consume input.
	require.Equal(t, trampoline.Result(4), f.tr.Read(0, uintptr(buf), 4))
	require.Equal(t, "hell", f.load(t, buf, 4))

	// Lengths that would wrap the address space.
	require.Equal(t, unix.EFAULT, f.tr.Read(0, uintptr(buf), math.MaxInt).Errno())
	require.Equal(t, unix.EFAULT, f.tr.Read(0, 1, math.MaxInt).Errno())
	require.Equal(t, "hell", f.load(t, buf, 4))

	noStdin := newFixture(t, nil)
	require.Equal(t, unix.EBADF, noStdin.tr.Read(0, uintptr(buf), 4).Errno())
}

func TestBrk(t *testing.T) {
	f := newFixture(t, nil)
	memory := f.machine.Memory

	require.Equal(t, trampoline.Result(0), f.tr.Brk(0))
	require.Equal(t, trampoline.Result(256), f.tr.Brk(256))
	require.Equal(t, trampoline.Result(256), f.tr.Brk(0))

	require.NoError(t, memory.Store(255, 0xff, 1))
	var fault *machine.FaultError
	require.ErrorAs(t, memory.Store(256, 0xff, 1), &fault)

	// Growing into the stack segment is refused and the break stays put.
	require.Equal(t, trampoline.Result(256), f.tr.Brk(uintptr(memory.StackBase()+8)))

	require.Equal(t, trampoline.Result(128), f.tr.Brk(128))
	require.ErrorAs(t, memory.Store(200, 0xff, 1), &fault)
}

func TestUnsupportedSyscall(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.tr.Invoke(trampoline.Request{Number: 93})
	require.NoError(t, err)
	require.Equal(t, unix.ENOSYS, res.Errno())
}

func TestEcallRegisters(t *testing.T) {
	f := newFixture(t, nil)
	m := f.machine
	buf := m.Memory.StackBase()
	f.store(t, buf, "ok")

	m.Registers.Set(machine.A0, 1)
	m.Registers.Set(machine.A1, buf)
	m.Registers.Set(machine.A2, 2)
	m.Registers.Set(machine.A7, int64(trampoline.SysWrite))
	NewKernel(log.WithLogger(context.Background(), slog.Default()), nil, f.stdout, nil).Ecall(m)

	require.Equal(t, int64(2), m.Registers.Get(machine.A0))
	require.Equal(t, buf, m.Registers.Get(machine.A1))
	require.Equal(t, "ok", f.stdout.String())
}
