package trampoline

// rawTrap is implemented in native_riscv64.s.
//
//go:noescape
func rawTrap(nr, a0, a1, a2 uintptr) (r uintptr)

// Native traps into the running kernel with ECALL. It does not tell the Go scheduler the thread
// may block, the same as unix.RawSyscall.
type Native struct{}

func NewNative() (*Native, error) {
	return &Native{}, nil
}

func (*Native) Trap(nr, a0, a1, a2 uintptr) uintptr {
	return rawTrap(nr, a0, a1, a2)
}
