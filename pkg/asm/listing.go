package asm

import (
	"bufio"
	"fmt"
	"io"
)

// WriteListing writes the assembled program: a header with the entry point and data segment
// size, the resolved code, one instruction per line, and the data segment bytes.
func (p *Program) WriteListing(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "header:")
	fmt.Fprintf(bw, "entry_point = %d\n", p.Entry)
	fmt.Fprintf(bw, "data_segment_size = %d\n", len(p.Data))
	fmt.Fprintln(bw, "code:")
	for _, ins := range p.Instructions {
		fmt.Fprintln(bw, ins.String())
	}
	fmt.Fprintln(bw, "stack:")
	for i, b := range p.Data {
		if i > 0 {
			bw.WriteByte(' ')
		}
		fmt.Fprintf(bw, "%#04x", b)
	}
	if len(p.Data) > 0 {
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
