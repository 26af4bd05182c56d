package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List registered users",
	Args:  cobra.NoArgs,
	RunE:  runUsers,
}

var registerCmd = &cobra.Command{
	Use:   "register <username> <password>",
	Short: "Register a new user",
	Args:  cobra.ExactArgs(2),
	RunE:  runRegister,
}

func init() {
	rootCmd.AddCommand(usersCmd, registerCmd)
}

func runUsers(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	out := cmd.OutOrStdout()
	users := app.Users.List()
	for _, u := range users {
		fmt.Fprintln(out, u.Username)
	}
	if len(users) == 0 {
		fmt.Fprintln(out, "(no users)")
	}
	return nil
}

func runRegister(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	if err := durable(cmd, app.Users.Register(args[0], args[1])); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", args[0])
	return nil
}
