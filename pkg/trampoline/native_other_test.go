//go:build !riscv64

package trampoline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoNative(t *testing.T) {
	n, err := NewNative()
	require.ErrorIs(t, err, ErrNoNativeTrap)
	require.Nil(t, n)
}
