package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/chirpy/internal/logging"
	"github.com/aweris/chirpy/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "Open the data directory and serve the JSON API until interrupted.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (default: localhost:8080)")
	viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("listen"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(app, &err)

	log := loggerFrom(cmd)
	router := server.NewRouter(server.Services{
		Users:   app.Users,
		Posts:   app.Posts,
		Follows: app.Follows,
		Search:  app.Search,
	}, log, viper.GetString("env") == logging.EnvProduction)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, viper.GetString("listen_addr"), router, log)
}
