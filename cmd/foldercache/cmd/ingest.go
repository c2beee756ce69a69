package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesm/foldercache/internal/ingest"
	"github.com/wesm/foldercache/internal/scheduler"
)

var ingestInbox string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Apply every envelope waiting in the inbox",
	Long: `Apply every *.json update envelope in the inbox directory, in file-name
order. Applied files move to processed/; files that fail move to failed/
next to a .error file holding the reason.

The inbox defaults to [ingest] inbox_dir, or <data_dir>/inbox.

Examples:
  foldercache ingest
  foldercache ingest --inbox /var/spool/foldercache`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := MustBeLocal("ingest"); err != nil {
			return err
		}
		rt, err := newRuntime(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		inbox := ingestInbox
		if inbox == "" {
			inbox = cfg.InboxDir()
		}
		summary, err := ingest.ProcessSpool(cmd.Context(), rt.engine, ingest.SpoolOptions{
			InboxDir: inbox,
			Logger:   logger,
		})
		if summary != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Inbox: %s\n  Files:   %d\n  Applied: %d\n  Failed:  %d\n",
				inbox, summary.FilesSeen, summary.FilesApplied, summary.FilesFailed)
		}
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		return nil
	},
}

// newJobFunc returns the scheduler callback for the runtime's jobs.
func newJobFunc(rt *runtime, inbox string) scheduler.JobFunc {
	return func(ctx context.Context, name string) error {
		switch name {
		case scheduler.JobIngest:
			_, err := ingest.ProcessSpool(ctx, rt.engine, ingest.SpoolOptions{
				InboxDir: inbox,
				Logger:   logger,
			})
			return err
		default:
			return fmt.Errorf("unknown job %q", name)
		}
	}
}

func init() {
	ingestCmd.Flags().StringVar(&ingestInbox, "inbox", "", "inbox directory (overrides config)")
	rootCmd.AddCommand(ingestCmd)
}
