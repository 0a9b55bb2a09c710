// Package main implements connecthub-ingest, a CLI that pushes git history
// and seed records to a running ConnectHub server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/okian/connecthub/internal/ingestclient"
	"github.com/okian/connecthub/pkg/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "connecthub-ingest",
	Short:         "Push git history and seed data to a ConnectHub server",
	Long:          "connecthub-ingest reads commits from a local repository or employees and projects from a seed file and uploads them to a running ConnectHub server.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Init(logger.WithFormat(rootLogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return logger.SetLevelString(rootLogLevel)
	},
}

var (
	rootURL       string
	rootToken     string
	rootEmail     string
	rootPassword  string
	rootTimeout   time.Duration
	rootLogLevel  string
	rootLogFormat string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rootURL, "url", "u", "", "Base URL of the server (env CONNECTHUB_URL, default "+ingestclient.DefaultBaseURL+")")
	flags.StringVar(&rootToken, "token", "", "Bearer token for mutating requests (env CONNECTHUB_TOKEN)")
	flags.StringVar(&rootEmail, "email", "", "Log in with this email when no token is given (env CONNECTHUB_EMAIL)")
	flags.StringVar(&rootPassword, "password", "", "Password for --email (env CONNECTHUB_PASSWORD)")
	flags.DurationVar(&rootTimeout, "timeout", ingestclient.DefaultTimeout, "HTTP request timeout")
	flags.StringVar(&rootLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&rootLogFormat, "log-format", "text", "Log format (text, json)")
}

// clientConfig collects the persistent flags. Unset flags fall back to the
// environment, which may come from a .env file.
func clientConfig() ingestclient.Config {
	return ingestclient.Config{
		BaseURL:  flagOrEnv(rootURL, "CONNECTHUB_URL"),
		Token:    flagOrEnv(rootToken, "CONNECTHUB_TOKEN"),
		Email:    flagOrEnv(rootEmail, "CONNECTHUB_EMAIL"),
		Password: flagOrEnv(rootPassword, "CONNECTHUB_PASSWORD"),
		Timeout:  rootTimeout,
	}
}

func flagOrEnv(flag, key string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(key)
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
