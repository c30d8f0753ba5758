package proc

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleMaps = `00400000-00401000 r-xp 00000000 08:01 1234                               /usr/bin/iasm
01a2b000-01a4c000 rw-p 00000000 00:00 0                                  [heap]
7ffd1c8e0000-7ffd1c901000 rw-p 00000000 00:00 0                          [stack]
7f0000000000-7f0000001000 r--p 00001000 08:01 99                         /tmp/a file
`

func TestParseMaps(t *testing.T) {
	mappings, err := ParseMaps([]byte(sampleMaps))
	require.NoError(t, err)
	require.Len(t, mappings, 4)

	require.Equal(t, Mapping{
		Start:    0x400000,
		End:      0x401000,
		Perms:    "r-xp",
		Device:   "08:01",
		Inode:    1234,
		Pathname: "/usr/bin/iasm",
	}, mappings[0])
	require.Equal(t, "/tmp/a file", mappings[3].Pathname)
	require.Equal(t, uint64(0x1000), mappings[3].Offset)

	heap, ok := Heap(mappings)
	require.True(t, ok)
	require.Equal(t, uintptr(0x1a4c000), heap.End)
	require.True(t, heap.Contains(0x1a2b000))
	require.False(t, heap.Contains(0x1a4c000))
}

func TestParseMapsInvalid(t *testing.T) {
	_, err := ParseMaps([]byte("00400000 r-xp 0 08:01 1\n"))
	require.Error(t, err)

	_, err = ParseMaps([]byte("zz-00401000 r-xp 0 08:01 1\n"))
	require.Error(t, err)
}

func TestLoadMapsSelf(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("requires /proc")
	}
	mappings, err := LoadMaps("self")
	require.NoError(t, err)
	require.NotEmpty(t, mappings)
}
