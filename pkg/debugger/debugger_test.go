package debugger

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/fornellas/resonance/log"
	"github.com/stretchr/testify/require"

	"github.com/MaartenS11/iasm/pkg/asm"
	"github.com/MaartenS11/iasm/pkg/cpu"
	"github.com/MaartenS11/iasm/pkg/kernel"
	"github.com/MaartenS11/iasm/pkg/machine"
)

const hello = `
msg:
	.string "hi\n"
main:
	li a0, 1
	lla a1, msg
	li a2, 3
	li a7, 4
	ecall
	ret
`

type session struct {
	debugger *Debugger
	cpu      *cpu.CPU
	machine  *machine.Machine
	out      *bytes.Buffer
	stdout   *bytes.Buffer
}

func newSession(t *testing.T, input, prompt string) *session {
	t.Helper()
	ctx := log.WithLogger(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	program, err := asm.Assemble(machine.DefaultMemorySize, asm.Source{Name: "hello.s", Text: hello})
	require.NoError(t, err)
	m, err := machine.New(machine.DefaultMemorySize, machine.DefaultStackSize)
	require.NoError(t, err)

	s := &session{
		machine: m,
		out:     &bytes.Buffer{},
		stdout:  &bytes.Buffer{},
	}
	in := bufio.NewReader(strings.NewReader(input))
	s.cpu, err = cpu.New(ctx, m, kernel.NewKernel(ctx, in, s.stdout, io.Discard), program)
	require.NoError(t, err)
	s.debugger = New(s.cpu, m, program, in, s.out, prompt)
	return s
}

func listing(pc int) string {
	var sb strings.Builder
	for i, ins := range []string{"li a0, 1", "lla a1, 4092", "li a2, 3", "li a7, 4", "ecall", "ret"} {
		marker := "   "
		if i == pc {
			marker = "-> "
		}
		fmt.Fprintf(&sb, "%s%d│%s\n", marker, i, ins)
	}
	return sb.String()
}

func TestStep(t *testing.T) {
	s := newSession(t, "a0\nstack\nbogus\n\nstop\na0\n", "")

	stats, err := s.debugger.Step(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(2), stats.Instructions)
	require.Equal(t, int64(2), s.machine.Registers.PC)
	require.Empty(t, s.stdout.String())

	require.Equal(t, listing(1)+
		"1\n"+
		"0xff8 00002930645164621824 00 00 00 00 68 69 0a 00  ....hi\\n.\n"+
		"Invalid command\n"+
		listing(2),
		s.out.String())
}

func TestStepEndOfInput(t *testing.T) {
	s := newSession(t, "", "")

	stats, err := s.debugger.Step(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(6), stats.Instructions)
	require.Equal(t, "hi\n", s.stdout.String())
	require.Equal(t, listing(1), s.out.String())
}

func TestInteract(t *testing.T) {
	s := newSession(t, strings.Join([]string{
		"a0",
		"addi a0, a0, 39",
		"a0",
		"pc",
		"frobnicate",
		"j nowhere",
		"",
		"li a0, 1",
		"ecall",
		"exit",
		"a0",
	}, "\n"), "")

	_, err := s.cpu.Run(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, s.debugger.Interact())

	lines := strings.Split(strings.TrimSuffix(s.out.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	require.Equal(t, []string{"3", "42", "7"}, lines[:3])
	require.Contains(t, lines[3], cpu.ErrUnknownInstruction.Error())
	require.Contains(t, lines[4], `undefined label "nowhere"`)

	// ecall typed at the prompt goes to the kernel like any other.
	require.Equal(t, "hi\nhi\n", s.stdout.String())
	require.Equal(t, int64(3), s.machine.Registers.Get(machine.A0))
}

func TestPrompt(t *testing.T) {
	s := newSession(t, "a0", "$ ")

	_, err := s.cpu.Run(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, s.debugger.Interact())
	require.Equal(t, "$ \n3\n", s.out.String())
}
