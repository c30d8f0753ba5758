package trampoline

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// These use the Linux riscv64 numbering, which differs from the table this package targets, to
// check the register plumbing of the ECALL stub against a real kernel.

func TestNativeGetpid(t *testing.T) {
	n, err := NewNative()
	require.NoError(t, err)
	require.Equal(t, uintptr(os.Getpid()), n.Trap(unix.SYS_GETPID, 0, 0, 0))
}

func TestNativeWrite(t *testing.T) {
	n, err := NewNative()
	require.NoError(t, err)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	tr := New(TrapperFunc(func(nr, a0, a1, a2 uintptr) uintptr {
		return n.Trap(unix.SYS_WRITE, a0, a1, a2)
	}))
	require.Equal(t, Result(3), tr.WriteSlice(int(w.Fd()), []byte("hi\n")))

	buf := make([]byte, 8)
	c, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hi\n", string(buf[:c]))
}
