package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aweris/chirpy/internal/model"
)

var postCmd = &cobra.Command{
	Use:   "post <username> <content...>",
	Short: "Publish a post",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runPost,
}

var timelineCmd = &cobra.Command{
	Use:   "timeline [username]",
	Short: "Show posts, newest first",
	Long:  "Show every post, or only posts by the users the given user follows.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTimeline,
}

func init() {
	rootCmd.AddCommand(postCmd, timelineCmd)
}

func runPost(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	post, err := app.Posts.Post(args[0], strings.Join(args[1:], " "))
	if err := durable(cmd, err); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "posted %s\n", post.ID)
	return nil
}

func runTimeline(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	var posts []model.Post
	if len(args) == 1 {
		posts = app.Posts.Timeline(args[0])
	} else {
		posts = app.Posts.All()
	}
	return printPosts(cmd.OutOrStdout(), posts)
}

func printPosts(w io.Writer, posts []model.Post) error {
	if len(posts) == 0 {
		_, err := fmt.Fprintln(w, "(no posts)")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t@%s\t%s\n", p.CreatedAt.Format(time.DateTime), p.Owner, p.Content)
	}
	return tw.Flush()
}
