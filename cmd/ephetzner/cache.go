package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/ephetzner/internal/i18n"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local catalog cache",
	Long: `Manage the cache of server types and images.

The cache lives in ~/.cache/hetzner-ephemeral unless EPHETZNER_CACHE_DIR
is set. Entries expire after one hour.`,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := catalogStore()

		n, err := store.Clear()
		if err != nil {
			return fmt.Errorf("failed to clear cache in %s: %w", store.Dir(), err)
		}

		fmt.Println(i18n.T("Removed %d cache files", n))
		return nil
	},
}
