package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesm/foldercache/internal/config"
	"github.com/wesm/foldercache/internal/store"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Initialize the cache database schema",
	Long: `Initialize the foldercache database with the required schema.

This command creates the tables holding folders, folder messages, the search
index and the current user. It is safe to run multiple times - tables are
only created if they don't already exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := MustBeLocal("init-db"); err != nil {
			return err
		}
		if cfg.Data.Backend == config.BackendMemory {
			return fmt.Errorf("init-db needs the sqlite backend; [data] backend is %q", cfg.Data.Backend)
		}

		dbPath := cfg.DatabasePath()
		logger.Info("initializing database", "path", dbPath)

		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		if err := s.InitSchema(); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}

		logger.Info("database initialized successfully")

		stats, err := s.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Database: %s\n", dbPath)
		printStats(out, stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
