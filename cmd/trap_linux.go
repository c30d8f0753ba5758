package cmd

import (
	"fmt"
	"strconv"

	"github.com/fornellas/resonance/log"
	"github.com/spf13/cobra"

	"github.com/MaartenS11/iasm/pkg/host"
	"github.com/MaartenS11/iasm/pkg/trampoline"
)

var TrapCmd = &cobra.Command{
	Use:   "trap",
	Short: "Issue a single trampoline syscall against the host kernel.",
}

func parseWord(s string) (uintptr, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, err
	}
	return uintptr(v), nil
}

func reportResult(cobraCmd *cobra.Command, name string, res trampoline.Result) {
	logger := log.MustLogger(cobraCmd.Context())
	if res.Failed() {
		logger.Warn("kernel reported failure", "syscall", name, "ret", int64(res), "errno", res.Errno().Error())
	}
	fmt.Fprintln(cobraCmd.OutOrStdout(), int64(res))
}

var trapReadCmd = &cobra.Command{
	Use:   "read FD COUNT",
	Short: "read(2) up to COUNT bytes from FD; the data goes to stderr, the result to stdout.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		fd, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid fd: %w", err)
		}
		count, err := strconv.Atoi(args[1])
		if err != nil || count < 0 {
			return fmt.Errorf("invalid count: %#v", args[1])
		}
		buf := make([]byte, count)
		res := host.New().ReadSlice(fd, buf)
		if !res.Failed() {
			if _, err := cobraCmd.ErrOrStderr().Write(buf[:res]); err != nil {
				return err
			}
		}
		reportResult(cobraCmd, "read", res)
		return nil
	},
}

var trapWriteCmd = &cobra.Command{
	Use:   "write FD TEXT",
	Short: "write(2) TEXT to FD and print the result.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		fd, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid fd: %w", err)
		}
		res := host.New().WriteSlice(fd, []byte(args[1]))
		reportResult(cobraCmd, "write", res)
		return nil
	},
}

var trapBrkCmd = &cobra.Command{
	Use:   "brk [ADDR]",
	Short: "brk(2) to ADDR (0 or omitted queries) and print the resulting break.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		var addr uintptr
		if len(args) == 1 {
			var err error
			addr, err = parseWord(args[0])
			if err != nil {
				return fmt.Errorf("invalid address: %w", err)
			}
		}
		res := host.New().Brk(addr)
		reportResult(cobraCmd, "brk", res)
		return nil
	},
}

func init() {
	TrapCmd.AddCommand(trapReadCmd, trapWriteCmd, trapBrkCmd)
	RootCmd.AddCommand(TrapCmd)
}
