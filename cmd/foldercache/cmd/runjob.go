package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesm/foldercache/internal/scheduler"
)

var runJobCmd = &cobra.Command{
	Use:   "run-job [name]",
	Short: "Run a scheduled job on the remote server now",
	Long: `Ask the server configured in [remote] to run a scheduled job immediately
instead of waiting for its next cron tick. The job defaults to "ingest".

Examples:
  foldercache run-job
  foldercache run-job ingest`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !IsRemoteMode() {
			return fmt.Errorf("run-job needs a remote server\n\n" +
				"Configure in ~/.foldercache/config.toml:\n" +
				"  [remote]\n" +
				"  url = \"http://nas:8080\"\n" +
				"  api_key = \"your-api-key\"\n" +
				"  allow_insecure = true  # for trusted networks\n\n" +
				"To apply the local inbox directly, use 'foldercache ingest'.")
		}

		name := scheduler.JobIngest
		if len(args) == 1 {
			name = args[0]
		}

		client, err := openRemote()
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.TriggerJob(cmd.Context(), name); err != nil {
			return fmt.Errorf("trigger %s: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Job %s started on %s.\n", name, cfg.Remote.URL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runJobCmd)
}
