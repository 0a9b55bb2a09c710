package main

import (
	"fmt"

	service "github.com/okian/connecthub/internal/app"
	"github.com/okian/connecthub/internal/ingestclient"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upload employees and projects from a YAML seed file",
	Long:  "Reads a seed file in the same layout the server accepts for seed_file and posts every employee and project. Employees whose email already exists are skipped.",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

var seedFile string

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Path to the YAML seed file (required)")
	if err := seedCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	seed, err := service.ReadSeedFile(seedFile)
	if err != nil {
		return err
	}

	runner := ingestclient.NewRunner(clientConfig())
	if err := runner.Prepare(ctx); err != nil {
		return err
	}
	stats, err := runner.Seed(ctx, seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d employees and %d projects, skipped %d\n",
		stats.Employees, stats.Projects, stats.Skipped)
	return nil
}
