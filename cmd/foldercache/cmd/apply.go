package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wesm/foldercache/internal/ingest"
	"github.com/wesm/foldercache/internal/reconcile"
)

var applyJSON bool

var applyCmd = &cobra.Command{
	Use:   "apply [file]",
	Short: "Apply one update envelope to the cache",
	Long: `Apply one JSON update envelope to the cache and report what changed.

The envelope is read from the named file, or from stdin when the file is
omitted or "-". It may carry any combination of chats, messages, a single
update and an update batch, plus the options describing the messages:

  {
    "chats": [{"_": "channel", "id": 7, "title": "Work 📁"}],
    "messages": [{"_": "message", "id": 1, "peer_id": {"channel_id": 7}}],
    "options": {"offset_id": 0}
  }

Examples:
  foldercache apply updates.json
  cat updates.json | foldercache apply --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "stdin"
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 0 || args[0] == "-" {
			if f, ok := r.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
				return fmt.Errorf("no envelope given: pass a file or pipe JSON on stdin")
			}
		}
		if len(args) == 1 && args[0] != "-" {
			name = args[0]
			f, err := os.Open(name)
			if err != nil {
				return fmt.Errorf("open envelope: %w", err)
			}
			defer f.Close()
			r = f
		}

		env, err := ingest.Decode(r, ingest.DefaultMaxEnvelopeBytes)
		if err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}

		w, err := openWriter()
		if err != nil {
			return err
		}
		defer w.Close()

		res, err := w.HandleUpdates(cmd.Context(), env.Request, env.Options)
		if err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}

		if applyJSON {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		printResult(cmd.OutOrStdout(), res)
		return nil
	},
}

// printResult summarizes which cache slices a reconciliation changed.
func printResult(w io.Writer, res *reconcile.Result) {
	if res.Empty() {
		fmt.Fprintln(w, "No changes.")
		return
	}
	if res.Folders != nil {
		fmt.Fprintf(w, "Folders: %d\n", res.Folders.Len())
	}
	if res.FoldersMessages != nil {
		ids := make([]int64, 0, len(res.FoldersMessages))
		for id := range res.FoldersMessages {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			fmt.Fprintf(w, "Folder %d: %d message(s)\n", id, res.FoldersMessages[id].Len())
		}
	}
	if res.SearchMessages != nil {
		fmt.Fprintf(w, "Search index: %d message(s)\n", res.SearchMessages.Len())
	}
}

func init() {
	applyCmd.Flags().BoolVar(&applyJSON, "json", false, "print the changed slices as JSON")
	rootCmd.AddCommand(applyCmd)
}
