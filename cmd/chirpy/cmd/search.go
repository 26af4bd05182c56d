package cmd

import (
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <@user|#tag>",
	Short: "Search posts by author or tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	posts, err := app.Search.Query(args[0])
	if err != nil {
		return err
	}
	return printPosts(cmd.OutOrStdout(), posts)
}
