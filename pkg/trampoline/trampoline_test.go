package trampoline

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type trap struct {
	nr, a0, a1, a2 uintptr
}

type recordingTrapper struct {
	traps []trap
	ret   uintptr
}

func (r *recordingTrapper) Trap(nr, a0, a1, a2 uintptr) uintptr {
	r.traps = append(r.traps, trap{nr, a0, a1, a2})
	return r.ret
}

func TestRegisterAssignment(t *testing.T) {
	buf := make([]byte, 16)
	addr := uintptr(unsafe.Pointer(&buf[0]))

	for _, tc := range []struct {
		name string
		call func(*Trampoline) Result
		want trap
	}{
		{
			name: "read",
			call: func(tr *Trampoline) Result { return tr.Read(0, addr, 10) },
			want: trap{nr: 3, a0: 0, a1: addr, a2: 10},
		},
		{
			name: "write",
			call: func(tr *Trampoline) Result { return tr.Write(1, addr, 3) },
			want: trap{nr: 4, a0: 1, a1: addr, a2: 3},
		},
		{
			name: "brk",
			call: func(tr *Trampoline) Result { return tr.Brk(0x1000) },
			want: trap{nr: 45, a0: 0x1000},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recordingTrapper{ret: 7}
			r := tc.call(New(rec))
			require.Equal(t, Result(7), r)
			require.Equal(t, []trap{tc.want}, rec.traps)
		})
	}
}

func TestInvoke(t *testing.T) {
	rec := &recordingTrapper{}
	tr := New(rec)

	_, err := tr.Invoke(Request{Number: SysBrk, Args: []uintptr{0x2000}})
	require.NoError(t, err)
	require.Equal(t, trap{nr: SysBrk, a0: 0x2000}, rec.traps[0])

	_, err = tr.Invoke(Request{Number: SysWrite, Args: []uintptr{1, 2, 3, 4}})
	require.ErrorIs(t, err, ErrTooManyArgs)
	require.Len(t, rec.traps, 1)
}

func TestNegativeResult(t *testing.T) {
	ebadf := unix.EBADF
	rec := &recordingTrapper{ret: uintptr(-int(ebadf))}
	r := New(rec).Read(99, 0, 10)
	require.True(t, r.Failed())
	require.Equal(t, Result(-int(ebadf)), r)
	require.Equal(t, unix.EBADF, r.Errno())

	require.Equal(t, unix.Errno(0), Result(5).Errno())
	require.False(t, Result(0).Failed())
}

func TestSlices(t *testing.T) {
	var got []byte
	tr := New(TrapperFunc(func(nr, a0, a1, a2 uintptr) uintptr {
		require.Equal(t, SysWrite, nr)
		got = append(got, unsafe.Slice((*byte)(unsafe.Pointer(a1)), a2)...)
		return a2
	}))
	msg := []byte("hi\n")
	require.Equal(t, Result(3), tr.WriteSlice(1, msg))
	require.Equal(t, "hi\n", string(got))

	require.Equal(t, Result(0), tr.WriteSlice(1, nil))
}

func TestName(t *testing.T) {
	require.Equal(t, "read", Name(SysRead))
	require.Equal(t, "(99)", Name(99))
	require.Equal(t, "brk[0x10]", Request{Number: SysBrk, Args: []uintptr{0x10}}.String())
}
