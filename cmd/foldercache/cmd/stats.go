package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wesm/foldercache/internal/config"
	"github.com/wesm/foldercache/internal/store"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long: `Show statistics about the folder cache.

Uses remote server if [remote].url is configured, otherwise uses the local cache.
Use --local to force the local cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openReader()
		if err != nil {
			return err
		}
		defer r.Close()

		stats, err := r.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}

		out := cmd.OutOrStdout()
		if statsJSON {
			return writeJSON(out, stats)
		}
		switch {
		case IsRemoteMode():
			fmt.Fprintf(out, "Remote: %s\n", cfg.Remote.URL)
		case cfg.Data.Backend == config.BackendMemory:
			fmt.Fprintln(out, "Backend: memory")
		default:
			fmt.Fprintf(out, "Database: %s\n", cfg.DatabasePath())
		}
		printStats(out, stats)
		return nil
	},
}

func printStats(w io.Writer, stats *store.Stats) {
	fmt.Fprintf(w, "  Folders:         %d\n", stats.FolderCount)
	fmt.Fprintf(w, "  Cached folders:  %d\n", stats.CachedFolderCount)
	fmt.Fprintf(w, "  Messages:        %d\n", stats.MessageCount)
	fmt.Fprintf(w, "  Search index:    %d\n", stats.SearchMessageCount)
	fmt.Fprintf(w, "  Size:            %s\n", formatSize(stats.DatabaseSize))
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}
