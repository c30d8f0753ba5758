package proc

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Mapping is one line of /proc/<pid>/maps.
type Mapping struct {
	Start    uintptr
	End      uintptr
	Perms    string
	Offset   uint64
	Device   string
	Inode    uint64
	Pathname string
}

// Contains reports whether addr falls in [Start, End).
func (m Mapping) Contains(addr uintptr) bool {
	return addr >= m.Start && addr < m.End
}

// LoadMaps parses /proc/<pid>/maps. Use "self" for the calling process.
func LoadMaps(pid string) ([]Mapping, error) {
	path := fmt.Sprintf("/proc/%s/maps", pid)
	mapsBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMaps(mapsBytes)
}

// ParseMaps parses the contents of a maps file.
func ParseMaps(mapsBytes []byte) ([]Mapping, error) {
	var mappings []Mapping
	scanner := bufio.NewScanner(bytes.NewReader(mapsBytes))

	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)

		if len(fields) < 5 {
			return nil, fmt.Errorf("maps: invalid line: %s", line)
		}

		start, end, ok := strings.Cut(fields[0], "-")
		if !ok {
			return nil, fmt.Errorf("maps: invalid address range: %s", line)
		}
		startAddr, err := strconv.ParseUint(start, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("maps: invalid start address: %s: %w", line, err)
		}
		endAddr, err := strconv.ParseUint(end, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("maps: invalid end address: %s: %w", line, err)
		}
		offset, err := strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("maps: invalid offset: %s: %w", line, err)
		}
		inode, err := strconv.ParseUint(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("maps: invalid inode: %s: %w", line, err)
		}

		mapping := Mapping{
			Start:  uintptr(startAddr),
			End:    uintptr(endAddr),
			Perms:  fields[1],
			Offset: offset,
			Device: fields[3],
			Inode:  inode,
		}
		if len(fields) > 5 {
			mapping.Pathname = strings.Join(fields[5:], " ")
		}

		mappings = append(mappings, mapping)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return mappings, nil
}

// Heap returns the [heap] mapping, which ends at the program break.
func Heap(mappings []Mapping) (Mapping, bool) {
	for _, m := range mappings {
		if m.Pathname == "[heap]" {
			return m, true
		}
	}
	return Mapping{}, false
}
