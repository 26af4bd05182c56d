package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var followCmd = &cobra.Command{
	Use:   "follow <username> <target>",
	Short: "Follow a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runFollow,
}

var unfollowCmd = &cobra.Command{
	Use:   "unfollow <username> <target>",
	Short: "Stop following a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runUnfollow,
}

func init() {
	rootCmd.AddCommand(followCmd, unfollowCmd)
}

func runFollow(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	if err := durable(cmd, app.Follows.Follow(args[0], args[1])); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s now follows %s\n", args[0], args[1])
	return nil
}

func runUnfollow(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	if err := durable(cmd, app.Follows.Unfollow(args[0], args[1])); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s no longer follows %s\n", args[0], args[1])
	return nil
}
