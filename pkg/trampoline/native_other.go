//go:build !riscv64

package trampoline

// Native is only available on riscv64.
type Native struct{}

func NewNative() (*Native, error) {
	return nil, ErrNoNativeTrap
}

func (*Native) Trap(nr, a0, a1, a2 uintptr) uintptr {
	panic(ErrNoNativeTrap)
}
