package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/connecthub/internal/gitlog"
	"github.com/okian/connecthub/internal/ingestclient"
	"github.com/okian/connecthub/pkg/logger"
	"github.com/spf13/cobra"
)

var gitCmd = &cobra.Command{
	Use:   "git",
	Short: "Push commits of a local repository",
	Long:  "Reads the repository history newest first with git log --numstat, keeps commits whose message starts with --prefix and uploads them in batches to POST /ingest.",
	Args:  cobra.NoArgs,
	RunE:  runGit,
}

var (
	gitRepo      string
	gitPrefix    string
	gitLimit     int
	gitBatchSize int
	gitWorkers   int
	gitRetries   int
	gitDryRun    bool
)

func init() {
	gitCmd.Flags().StringVarP(&gitRepo, "repo", "r", ".", "Path to the git repository")
	gitCmd.Flags().StringVar(&gitPrefix, "prefix", "feat", "Keep commits whose message starts with this prefix (empty keeps all)")
	gitCmd.Flags().IntVarP(&gitLimit, "limit", "n", 200, "Maximum number of commits to push (0 for no limit)")
	gitCmd.Flags().IntVarP(&gitBatchSize, "batch-size", "b", ingestclient.DefaultBatchSize, "Commits per request")
	gitCmd.Flags().IntVarP(&gitWorkers, "workers", "w", ingestclient.DefaultWorkers, "Concurrent uploads")
	gitCmd.Flags().IntVar(&gitRetries, "retries", ingestclient.DefaultMaxRetries, "Retries per batch when the server pushes back")
	gitCmd.Flags().BoolVar(&gitDryRun, "dry-run", false, "Print the commits as JSON instead of uploading them")

	rootCmd.AddCommand(gitCmd)
}

func runGit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logger.Named("ingest")

	commits, err := gitlog.Read(ctx, gitRepo, gitlog.Filter{Prefix: gitPrefix, Limit: gitLimit})
	if err != nil {
		return fmt.Errorf("failed to read history of %s: %w", gitRepo, err)
	}
	log.Info(ctx, "read commits", logger.String("repo", gitRepo), logger.Int("commits", len(commits)))

	if gitDryRun {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(commits)
	}

	cfg := clientConfig()
	cfg.BatchSize = gitBatchSize
	cfg.Workers = gitWorkers
	cfg.MaxRetries = gitRetries

	runner := ingestclient.NewRunner(cfg)
	if err := runner.Prepare(ctx); err != nil {
		return err
	}
	stats, err := runner.Push(ctx, commits)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pushed %d commits in %d batches: %d accepted, %d duplicates (%s)\n",
		stats.Commits, stats.Batches, stats.Accepted, stats.Duplicates, stats.Duration.Round(time.Millisecond))
	return nil
}
