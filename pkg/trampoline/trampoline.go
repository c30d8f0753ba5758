// Package trampoline marshals system-call requests into the RISC-V syscall ABI: arguments go
// into a0..a2, the syscall number into a7, and the result comes back in a0.
//
// The trap itself is provided by a Trapper, so callers never touch registers directly.
package trampoline

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Syscall numbers placed in a7. They are dictated by the kernel servicing the trap.
const (
	SysRead  uintptr = 3
	SysWrite uintptr = 4
	SysBrk   uintptr = 45
)

// MaxArgs is the number of argument registers (a0..a2) a request may use.
const MaxArgs = 3

var (
	ErrTooManyArgs  = errors.New("too many syscall arguments")
	ErrNoNativeTrap = errors.New("no native trap on this architecture")
)

// Names maps the supported syscall numbers to their names.
var Names = map[uintptr]string{
	SysRead:  "read",
	SysWrite: "write",
	SysBrk:   "brk",
}

// Name returns the syscall name for nr, or its number in parentheses.
func Name(nr uintptr) string {
	if name, ok := Names[nr]; ok {
		return name
	}
	return fmt.Sprintf("(%d)", nr)
}

// Trapper executes a single trap with nr in a7 and a0..a2 loaded, returning the value left in a0.
type Trapper interface {
	Trap(nr, a0, a1, a2 uintptr) uintptr
}

// TrapperFunc adapts a function to Trapper.
type TrapperFunc func(nr, a0, a1, a2 uintptr) uintptr

func (f TrapperFunc) Trap(nr, a0, a1, a2 uintptr) uintptr {
	return f(nr, a0, a1, a2)
}

// Request is one syscall invocation.
type Request struct {
	Number uintptr
	Args   []uintptr
}

func (r Request) String() string {
	return fmt.Sprintf("%s%#x", Name(r.Number), r.Args)
}

// Result is the raw signed word the kernel left in a0.
type Result int64

// Failed reports whether the kernel signalled a failure.
func (r Result) Failed() bool {
	return r < 0
}

// Errno decodes a failed Result. It returns 0 for successful results.
func (r Result) Errno() unix.Errno {
	if !r.Failed() {
		return 0
	}
	return unix.Errno(-r)
}

// toResult reinterprets a0 as a signed machine word.
func toResult(a0 uintptr) Result {
	return Result(int(a0))
}

// Trampoline issues syscalls through a Trapper.
type Trampoline struct {
	trapper Trapper
}

func New(trapper Trapper) *Trampoline {
	return &Trampoline{trapper: trapper}
}

// Invoke places req into the argument registers and traps. Unused argument registers are zero.
func (t *Trampoline) Invoke(req Request) (Result, error) {
	if len(req.Args) > MaxArgs {
		return 0, fmt.Errorf("%s: %w: %d > %d", Name(req.Number), ErrTooManyArgs, len(req.Args), MaxArgs)
	}
	var args [MaxArgs]uintptr
	copy(args[:], req.Args)
	return toResult(t.trapper.Trap(req.Number, args[0], args[1], args[2])), nil
}

// Read reads up to count bytes from fd into buf. It returns the number of bytes read, 0 at end of
// stream or a negative kernel error.
func (t *Trampoline) Read(fd int, buf uintptr, count int) Result {
	return toResult(t.trapper.Trap(SysRead, uintptr(fd), buf, uintptr(count)))
}

// Write writes count bytes at buf to fd and returns what the kernel reported.
func (t *Trampoline) Write(fd int, buf uintptr, count int) Result {
	return toResult(t.trapper.Trap(SysWrite, uintptr(fd), buf, uintptr(count)))
}

// Brk asks the kernel to move the program break to addr. The kernel returns the resulting break;
// addr 0 leaves it unchanged.
func (t *Trampoline) Brk(addr uintptr) Result {
	return toResult(t.trapper.Trap(SysBrk, addr, 0, 0))
}

// ReadSlice reads into p using its address and length. Only meaningful for kernels sharing the
// caller's address space.
func (t *Trampoline) ReadSlice(fd int, p []byte) Result {
	if len(p) == 0 {
		return t.Read(fd, 0, 0)
	}
	r := t.Read(fd, uintptr(unsafe.Pointer(&p[0])), len(p))
	runtime.KeepAlive(p)
	return r
}

// WriteSlice writes p using its address and length. Only meaningful for kernels sharing the
// caller's address space.
func (t *Trampoline) WriteSlice(fd int, p []byte) Result {
	if len(p) == 0 {
		return t.Write(fd, 0, 0)
	}
	r := t.Write(fd, uintptr(unsafe.Pointer(&p[0])), len(p))
	runtime.KeepAlive(p)
	return r
}
