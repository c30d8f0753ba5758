package cmd

import (
	"errors"
	"os"

	"github.com/fornellas/resonance/log"
	"github.com/spf13/cobra"
)

var listingOutput string

var ListingCmd = &cobra.Command{
	Use:   "listing [FLAGS] PATTERN...",
	Short: "Write the assembled listing of programs.",
	Args:  cobra.MinimumNArgs(1),
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

		if listingOutput == "" {
			if err := program.WriteListing(cobraCmd.OutOrStdout()); err != nil {
				logger.Error("failed to write listing", "err", err)
				os.Exit(1)
			}
			return
		}

		file, err := os.Create(listingOutput)
		if err != nil {
			logger.Error("failed to create listing", "err", err)
			os.Exit(1)
		}
		if err := errors.Join(program.WriteListing(file), file.Close()); err != nil {
			logger.Error("failed to write listing", "err", err, "path", listingOutput)
			os.Exit(1)
		}
		logger.Info("Write finished", "path", listingOutput)
	},
}

func init() {
	ListingCmd.Flags().StringVarP(&listingOutput, "output", "o", "", "write the listing to this file")
	if err := ListingCmd.MarkFlagFilename("output"); err != nil {
		panic(err)
	}

	RootCmd.AddCommand(ListingCmd)
}
