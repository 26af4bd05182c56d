package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aweris/chirpy"
	"github.com/aweris/chirpy/internal/compression"
	"github.com/aweris/chirpy/internal/logging"
	"github.com/aweris/chirpy/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "chirpy",
	Short: "Chirpy social network",
	Long:  "Run the chirpy API server and manage its data directory from the command line.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(viper.GetString("env"))
		if err != nil {
			return err
		}
		setLogger(cmd, l)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync(loggerFrom(cmd))
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/chirpy/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "data directory (default: ~/.local/share/chirpy)")
	rootCmd.PersistentFlags().String("env", "", "environment: development or production")

	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("env", rootCmd.PersistentFlags().Lookup("env"))
}

func initConfig() {
	// .env is optional
	_ = godotenv.Load()

	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CHIRPY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("data_dir", chirpy.DefaultDataDir())
	viper.SetDefault("env", "development")
	viper.SetDefault("listen_addr", "localhost:8080")
	viper.SetDefault("compression_level", compression.LevelOff)
	viper.SetDefault("load_concurrency", store.DefaultConcurrency)
	viper.SetDefault("snapshot.ref", "")
	viper.SetDefault("snapshot.username", "")
	viper.SetDefault("snapshot.password", "")
	viper.SetDefault("snapshot.insecure", false)

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "chirpy")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "chirpy")
	}
	return ".chirpy"
}

func getDataDir() string {
	return viper.GetString("data_dir")
}

type loggerKey struct{}

func setLogger(cmd *cobra.Command, l *zap.Logger) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, loggerKey{}, l))
}

// loggerFrom returns the logger set up for cmd, or a no-op logger.
func loggerFrom(cmd *cobra.Command) *zap.Logger {
	if ctx := cmd.Context(); ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}

// openApp opens the configured data directory.
func openApp(cmd *cobra.Command) (*chirpy.Chirpy, error) {
	app, err := chirpy.Open(getDataDir(),
		chirpy.WithLogger(loggerFrom(cmd)),
		chirpy.WithCompression(viper.GetInt("compression_level")),
		chirpy.WithLoadConcurrency(viper.GetInt("load_concurrency")),
	)
	if errors.Is(err, chirpy.ErrLocked) {
		return nil, errors.New("data directory is in use; stop the server or use the HTTP API")
	}
	return app, err
}

// closeApp closes app, keeping the first error.
func closeApp(app *chirpy.Chirpy, err *error) {
	if cerr := app.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

// durable downgrades write-through failures to a warning; the change was
// applied but may not survive a restart.
func durable(cmd *cobra.Command, err error) error {
	if errors.Is(err, chirpy.ErrPersistence) {
		loggerFrom(cmd).Warn("change was not written to disk", zap.Error(err))
		return nil
	}
	return err
}
