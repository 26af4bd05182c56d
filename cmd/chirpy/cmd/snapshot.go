package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/chirpy"
	"github.com/aweris/chirpy/internal/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Sync the data directory with an OCI registry",
}

var snapshotPushCmd = &cobra.Command{
	Use:   "push [tags...]",
	Short: "Push the data directory to the registry",
	Long:  "Push record files to snapshot.ref. Optionally push to additional tags.",
	RunE:  runSnapshotPush,
}

var snapshotPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the data directory with the registry snapshot",
	Long:  "Pull snapshot.ref and restore it into the data directory. The server must be stopped.",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotPull,
}

func init() {
	snapshotCmd.PersistentFlags().String("ref", "", "image ref (e.g. ghcr.io/me/chirpy-data:main)")
	viper.BindPFlag("snapshot.ref", snapshotCmd.PersistentFlags().Lookup("ref"))

	snapshotCmd.AddCommand(snapshotPushCmd, snapshotPullCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func newRemote(cmd *cobra.Command) (*snapshot.Remote, error) {
	ref := viper.GetString("snapshot.ref")
	if ref == "" {
		return nil, errors.New("snapshot.ref is not set (use --ref or CHIRPY_SNAPSHOT_REF)")
	}

	opts := []snapshot.Option{
		snapshot.WithLogger(loggerFrom(cmd)),
		snapshot.WithInsecure(viper.GetBool("snapshot.insecure")),
		snapshot.WithConcurrency(viper.GetInt("load_concurrency")),
	}
	if user := viper.GetString("snapshot.username"); user != "" {
		opts = append(opts, snapshot.WithAuth(snapshot.Credentials{
			Username: user,
			Password: viper.GetString("snapshot.password"),
		}))
	}
	return snapshot.NewRemote(ref, opts...)
}

func runSnapshotPush(cmd *cobra.Command, args []string) error {
	remote, err := newRemote(cmd)
	if err != nil {
		return err
	}
	defer remote.Close()

	files, err := chirpy.Collect(getDataDir())
	if err != nil {
		return err
	}

	targets := []*snapshot.Remote{remote}
	for _, tag := range args {
		r, err := remote.WithTag(tag)
		if err != nil {
			return err
		}
		targets = append(targets, r)
	}

	for _, r := range targets {
		fmt.Fprintf(os.Stderr, "Pushing %s...\n", r)
		digest, err := r.Push(cmd.Context(), files)
		if err != nil {
			return fmt.Errorf("push failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d files\n", r, digest, len(files))
	}
	return nil
}

func runSnapshotPull(cmd *cobra.Command, args []string) error {
	remote, err := newRemote(cmd)
	if err != nil {
		return err
	}
	defer remote.Close()

	fmt.Fprintf(os.Stderr, "Pulling %s...\n", remote)

	files, err := remote.Pull(cmd.Context())
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}

	if err := chirpy.Restore(getDataDir(), files); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %d files into %s\n", len(files), getDataDir())
	return nil
}
