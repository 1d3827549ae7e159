package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phillarmonic/dotpipe/internal/cache"
)

// Domain: Cache Maintenance
// This file contains the cache subcommands

func (a *App) createCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the response and state cache",
	}

	open := func() (*cache.Manager, error) {
		return cache.NewManager(cache.Options{Path: a.config.Cache.Path, Expiration: a.config.Cache.TTL})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			st := m.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "keys:    %d\n", st.Keys)
			fmt.Fprintf(out, "live:    %d\n", st.LiveRecords)
			fmt.Fprintf(out, "size:    %d bytes\n", st.FileBytes)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "compact",
		Short: "Reclaim space held by expired and deleted records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			if err := m.Compact(); err != nil {
				return fmt.Errorf("compaction failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache compacted")
			return nil
		},
	})

	return cmd
}
