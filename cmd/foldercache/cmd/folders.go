package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wesm/foldercache/internal/entity"
)

var (
	listJSON  bool
	listLimit int
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List tracked folders in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openReader()
		if err != nil {
			return err
		}
		defer r.Close()

		folders, err := r.GetFolders(cmd.Context())
		if err != nil {
			return fmt.Errorf("get folders: %w", err)
		}

		out := cmd.OutOrStdout()
		if listJSON {
			return writeJSON(out, folders)
		}
		if folders.Len() == 0 {
			fmt.Fprintln(out, "No folders found. Folders are chats whose title ends with the folder marker.")
			return nil
		}

		counts := make(map[int64]int, folders.Len())
		for _, id := range folders.Keys() {
			msgs, err := r.GetFolderMessages(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get messages for folder %d: %w", id, err)
			}
			counts[id] = msgs.Len()
		}
		outputFoldersTable(out, folders, counts)
		return nil
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages <folder-id>",
	Short: "List the cached messages of one folder",
	Long: `List the cached messages of one folder in chronological order.

Examples:
  foldercache messages 7
  foldercache messages 7 --limit 200 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folderID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid folder id %q: %w", args[0], err)
		}

		r, err := openReader()
		if err != nil {
			return err
		}
		defer r.Close()

		folders, err := r.GetFolders(cmd.Context())
		if err != nil {
			return fmt.Errorf("get folders: %w", err)
		}
		if !folders.Has(folderID) {
			return fmt.Errorf("folder %d is not tracked", folderID)
		}

		msgs, err := r.GetFolderMessages(cmd.Context(), folderID)
		if err != nil {
			return fmt.Errorf("get folder messages: %w", err)
		}
		return outputMessages(cmd.OutOrStdout(), limitMessages(msgs.Values(), listLimit))
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the cached message index",
	Long: `Search the global message index by a case-insensitive substring of the
message text. Without a query every indexed message is listed.

Examples:
  foldercache search invoice
  foldercache search "release notes" --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openReader()
		if err != nil {
			return err
		}
		defer r.Close()

		index, err := r.GetSearchMessages(cmd.Context())
		if err != nil {
			return fmt.Errorf("get search index: %w", err)
		}

		var query string
		if len(args) == 1 {
			query = args[0]
		}
		return outputMessages(cmd.OutOrStdout(), limitMessages(matchText(index.Values(), query), listLimit))
	},
}

// matchText returns the messages whose text contains query, ignoring case.
func matchText(msgs []entity.Message, query string) []entity.Message {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return msgs
	}
	var out []entity.Message
	for _, m := range msgs {
		if strings.Contains(strings.ToLower(m.Text), query) {
			out = append(out, m)
		}
	}
	return out
}

func limitMessages(msgs []entity.Message, limit int) []entity.Message {
	if limit > 0 && len(msgs) > limit {
		return msgs[:limit]
	}
	return msgs
}

func outputFoldersTable(out io.Writer, folders *entity.Folders, counts map[int64]int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTYPE\tCACHED")
	fmt.Fprintln(w, "──\t─────\t────\t──────")

	for _, f := range folders.Values() {
		kind := "chat"
		if f.Channel {
			kind = "channel"
		}
		if f.General {
			kind += " (general)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", f.ID, truncate(f.Title, 40), kind, counts[f.ID])
	}

	w.Flush()
	fmt.Fprintf(out, "\n%d folder(s)\n", folders.Len())
}

func outputMessages(out io.Writer, msgs []entity.Message) error {
	if listJSON {
		if msgs == nil {
			msgs = []entity.Message{}
		}
		return writeJSON(out, msgs)
	}
	if len(msgs) == 0 {
		fmt.Fprintln(out, "No messages found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFOLDER\tDATE\tTEXT")
	fmt.Fprintln(w, "──\t──────\t────\t────")
	for _, m := range msgs {
		text := truncate(m.Text, 60)
		if m.Edited {
			text += " (edited)"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", m.ID, m.FolderID, formatDate(m.Date), text)
	}
	w.Flush()
	fmt.Fprintf(out, "\nShowing %d message(s)\n", len(msgs))
	return nil
}

func init() {
	for _, c := range []*cobra.Command{foldersCmd, messagesCmd, searchCmd} {
		c.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{messagesCmd, searchCmd} {
		c.Flags().IntVarP(&listLimit, "limit", "n", 50, "maximum number of messages to show (0 for all)")
	}
}
