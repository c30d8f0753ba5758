package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/fornellas/resonance/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MaartenS11/iasm/pkg/machine"
)

var configFile string

var RootCmd = &cobra.Command{
	Use:   "iasm",
	Short: "Run RISC-V assembly against an emulated kernel.",
	Long: "iasm assembles GNU style RISC-V assembly and interprets it on a simulated machine. " +
		"ecall is serviced by an emulated kernel implementing read (3), write (4) and brk (45).",
	SilenceUsage: true,
	PersistentPreRunE: func(cobraCmd *cobra.Command, args []string) error {
		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}

		var level slog.Level
		if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		logger := slog.New(slog.NewTextHandler(cobraCmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		cobraCmd.SetContext(log.WithLogger(cobraCmd.Context(), logger))

		logger.Debug("Starting", "cmd", shellescape.QuoteCommand(os.Args))
		return nil
	},
}

func addPersistentFlags(flags *pflag.FlagSet) {
	flags.StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Int("memory-size", machine.DefaultMemorySize, "size of the simulated address space in bytes")
	flags.Int("stack-size", machine.DefaultStackSize, "size of the stack segment at the top of memory in bytes")
	flags.Bool("cache", true, "cache assembled programs")
	flags.String("cache-dir", "", "cache directory (defaults to the user cache directory)")
	flags.Uint64("max-instructions", 0, "stop after this many instructions (0 means no limit)")
}

func init() {
	addPersistentFlags(RootCmd.PersistentFlags())
	if err := viper.BindPFlags(RootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("IASM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
