package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wesm/foldercache/internal/entity"
)

var (
	setUserName      string
	setUserFirstName string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Show the current account",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openReader()
		if err != nil {
			return err
		}
		defer r.Close()

		user, err := r.GetUser(cmd.Context())
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		out := cmd.OutOrStdout()
		if user.ID == 0 {
			fmt.Fprintln(out, "No current user. Use 'foldercache set-user <id>' to set one.")
			return nil
		}
		fmt.Fprintf(out, "ID:         %d\n", user.ID)
		if user.Username != "" {
			fmt.Fprintf(out, "Username:   %s\n", user.Username)
		}
		if user.FirstName != "" {
			fmt.Fprintf(out, "First name: %s\n", user.FirstName)
		}
		return nil
	},
}

var setUserCmd = &cobra.Command{
	Use:   "set-user <id>",
	Short: "Set the current account",
	Long: `Set the account whose point of view is used when messages are
transformed. Messages sent by this account are marked as own.

Examples:
  foldercache set-user 42 --username alice --first-name Alice`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		w, err := openWriter()
		if err != nil {
			return err
		}
		defer w.Close()

		user := entity.User{ID: id, Username: setUserName, FirstName: setUserFirstName}
		if err := w.SetUser(cmd.Context(), user); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Current user set to %d.\n", id)
		return nil
	},
}

func init() {
	setUserCmd.Flags().StringVar(&setUserName, "username", "", "account username")
	setUserCmd.Flags().StringVar(&setUserFirstName, "first-name", "", "account first name")
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(setUserCmd)
}
