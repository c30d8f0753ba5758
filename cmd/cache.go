package cmd

import (
	"fmt"

	"github.com/fornellas/resonance/log"
	"github.com/spf13/cobra"

	"github.com/MaartenS11/iasm/pkg/cache"
)

var CacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the assembled program cache.",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached program.",
	Args:  cobra.NoArgs,
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		logger := log.MustLogger(cobraCmd.Context())

		dir, err := cacheDir()
		if err != nil {
			return err
		}
		programCache, err := cache.NewProgramCache(dir)
		if err != nil {
			return err
		}
		removed, err := programCache.Clear()
		if err != nil {
			return err
		}
		logger.Info("Cache cleared", "dir", dir, "removed", removed)
		fmt.Fprintln(cobraCmd.OutOrStdout(), removed)
		return nil
	},
}

func init() {
	CacheCmd.AddCommand(cacheClearCmd)
	RootCmd.AddCommand(CacheCmd)
}
