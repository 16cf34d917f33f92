package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the album metadata cache",
	}
	cmd.AddCommand(newCacheStatsCommand(ctx))
	cmd.AddCommand(newCachePurgeCommand(ctx))
	return cmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show album cache size and age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(true)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.AlbumCacheStats(cmd.Context())
			if err != nil {
				return err
			}

			oldest, newest := "-", "-"
			if !stats.Oldest.IsZero() {
				oldest = stats.Oldest.Local().Format(time.DateTime)
			}
			if !stats.Newest.IsZero() {
				newest = stats.Newest.Local().Format(time.DateTime)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{
					{name: "Entries", numeric: true},
					{name: "Expired", numeric: true},
					{name: "Oldest"},
					{name: "Newest"},
				},
				[][]string{{strconv.Itoa(stats.Entries), strconv.Itoa(stats.Expired), oldest, newest}},
			))
			return nil
		},
	}
}

func newCachePurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired album cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(true)
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.PurgeExpiredAlbums(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", removed)
			return nil
		},
	}
}
