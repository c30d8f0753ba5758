// Package host services trampoline requests with the kernel the process is running on.
package host

import (
	"golang.org/x/sys/unix"

	"github.com/MaartenS11/iasm/pkg/trampoline"
)

// hostSyscallMap maps trampoline syscall numbers to the host's numbering.
var hostSyscallMap = map[uintptr]uintptr{
	trampoline.SysRead:  unix.SYS_READ,
	trampoline.SysWrite: unix.SYS_WRITE,
	trampoline.SysBrk:   unix.SYS_BRK,
}

// Trapper forwards trampoline requests to the host kernel.
type Trapper struct{}

func NewTrapper() *Trapper {
	return &Trapper{}
}

// Trap issues the host syscall matching nr. Failures are returned as a negated errno, the way the
// kernel reports them in a0. Numbers with no host counterpart return -ENOSYS.
func (*Trapper) Trap(nr, a0, a1, a2 uintptr) uintptr {
	hostNr, ok := hostSyscallMap[nr]
	if !ok {
		return negErrno(unix.ENOSYS)
	}
	r1, _, errno := unix.Syscall(hostNr, a0, a1, a2)
	if errno != 0 {
		return negErrno(errno)
	}
	return r1
}

func negErrno(errno unix.Errno) uintptr {
	return uintptr(-int(errno))
}

// New returns a trampoline bound to the host kernel.
func New() *trampoline.Trampoline {
	return trampoline.New(NewTrapper())
}
