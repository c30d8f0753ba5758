package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/fornellas/resonance/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/MaartenS11/iasm/pkg/cpu"
	"github.com/MaartenS11/iasm/pkg/debugger"
	"github.com/MaartenS11/iasm/pkg/kernel"
	"github.com/MaartenS11/iasm/pkg/machine"
)

var (
	dumpRegisters bool
	step          bool
	interactive   bool
)

// prompt is only shown to people.
func prompt(r io.Reader) string {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "$ "
	}
	return ""
}

var RunCmd = &cobra.Command{
	Use:   "run [FLAGS] PATTERN...",
	Short: "Assemble and run programs.",
	Long: "Assemble the files matching PATTERN (doublestar syntax, e.g. 'src/**/*.s') into one " +
		"program and run it from its main label. Program stdin/stdout/stderr are the process'.\n\n" +
		"With --step, the listing is shown after every instruction and commands are read from " +
		"stdin: a register name prints it, 'stack' dumps the stack, 'continue' or an empty line " +
		"executes the next instruction and 'stop' ends the run.\n\n" +
		"With --interactive, once the program stops instructions read from stdin are executed " +
		"against the machine until 'exit'; register names and 'stack' work as when stepping.",
	Args: cobra.MinimumNArgs(1),
	Run: func(cobraCmd *cobra.Command, args []string) {
		ctx := cobraCmd.Context()
		logger := log.MustLogger(ctx)

		sources, err := loadSources(ctx, args)
		if err != nil {
			logger.Error("failed to load sources", "err", err)
			os.Exit(1)
		}

		program, err := assemble(ctx, sources)
		if err != nil {
			logger.Error("failed to assemble", "err", err)
			os.Exit(1)
		}
		logger.Debug("Assembled", "instructions", len(program.Instructions), "entry_point", program.Entry, "data_segment_size", len(program.Data))

		m, err := machine.New(viper.GetInt("memory-size"), viper.GetInt("stack-size"))
		if err != nil {
			logger.Error("failed to create machine", "err", err)
			os.Exit(1)
		}

		// Program and debugger share stdin so neither steals what the other buffered.
		stdin := bufio.NewReader(cobraCmd.InOrStdin())
		k := kernel.NewKernel(ctx, stdin, cobraCmd.OutOrStdout(), cobraCmd.ErrOrStderr())
		c, err := cpu.New(ctx, m, k, program)
		if err != nil {
			logger.Error("failed to load program", "err", err)
			os.Exit(1)
		}
		d := debugger.New(c, m, program, stdin, cobraCmd.OutOrStdout(), prompt(cobraCmd.InOrStdin()))

		maxInstructions := viper.GetUint64("max-instructions")
		var stats cpu.Stats
		if step {
			stats, err = d.Step(ctx, maxInstructions)
		} else {
			stats, err = c.Run(ctx, maxInstructions)
		}
		if dumpRegisters {
			for _, reg := range m.Registers.Snapshot() {
				fmt.Fprintf(cobraCmd.ErrOrStderr(), "%-4s %d\n", reg.Name, reg.Value)
			}
		}
		if err != nil {
			logger.Error("program failed", "err", err, "instructions", stats.Instructions)
			if !interactive {
				os.Exit(1)
			}
		} else {
			logger.Info("Success", "instructions", stats.Instructions, "duration", stats.Duration)
		}

		if interactive {
			if ierr := d.Interact(); ierr != nil {
				logger.Error("interactive session failed", "err", ierr)
				os.Exit(1)
			}
			if err != nil {
				os.Exit(1)
			}
		}
	},
}

func init() {
	RunCmd.Flags().BoolVar(&dumpRegisters, "registers", false, "print registers to stderr when the program stops")
	RunCmd.Flags().BoolVar(&step, "step", false, "stop after every instruction and read debugger commands from stdin")
	RunCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "execute instructions read from stdin once the program stops")

	RootCmd.AddCommand(RunCmd)
}
