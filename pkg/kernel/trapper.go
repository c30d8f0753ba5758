package kernel

import (
	"github.com/MaartenS11/iasm/pkg/machine"
	"github.com/MaartenS11/iasm/pkg/trampoline"
)

// Trapper drives a Kernel through the trampoline: each trap loads a0..a2 and a7 into the
// machine's registers, services the ecall and hands back a0. Buffer addresses are machine
// addresses.
type Trapper struct {
	kernel  *Kernel
	machine *machine.Machine
}

func NewTrapper(kernel *Kernel, m *machine.Machine) *Trapper {
	return &Trapper{kernel: kernel, machine: m}
}

func (t *Trapper) Trap(nr, a0, a1, a2 uintptr) uintptr {
	regs := &t.machine.Registers
	regs.Set(machine.A0, int64(a0))
	regs.Set(machine.A1, int64(a1))
	regs.Set(machine.A2, int64(a2))
	regs.Set(machine.A7, int64(nr))
	t.kernel.Ecall(t.machine)
	return uintptr(regs.Get(machine.A0))
}

// New returns a trampoline serviced by kernel on m.
func New(kernel *Kernel, m *machine.Machine) *trampoline.Trampoline {
	return trampoline.New(NewTrapper(kernel, m))
}
