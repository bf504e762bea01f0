package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sitedex/sitedex/internal/app"
	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/internal/ingest"
	"github.com/sitedex/sitedex/internal/log"
	"github.com/sitedex/sitedex/internal/store"
)

var (
	processContentType  string
	processForceRefresh bool
)

var processCmd = &cobra.Command{
	Use:   "process <url>",
	Short: "Fetch and index one website",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(args[0])
	},
}

func init() {
	processCmd.Flags().StringVar(&processContentType, "type", "",
		"content type: job_posting, blog_article, company_page")
	_ = processCmd.MarkFlagRequired("type")
	processCmd.Flags().BoolVar(&processForceRefresh, "force", false,
		"reprocess even when the URL is already indexed")
	rootCmd.AddCommand(processCmd)
}

func runProcess(url string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, log.New(log.Config{}))
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	result, err := a.Pipeline.Process(ctx, ingest.ProcessRequest{
		URL:          url,
		ContentType:  processContentType,
		ForceRefresh: processForceRefresh,
	})
	if err != nil {
		return err
	}

	printProcessResult(result)
	if result.Status == store.StatusFailed {
		return fmt.Errorf("processing failed: %s", result.FailureReason)
	}
	return nil
}

func printProcessResult(r *ingest.Result) {
	fmt.Printf("Source:   %s\n", r.SourceID)
	fmt.Printf("URL:      %s\n", r.URL)
	fmt.Printf("Status:   %s\n", r.Status)
	if r.Cached {
		fmt.Println("Result:   already indexed (use --force to reprocess)")
		return
	}
	if r.Status == store.StatusFailed {
		fmt.Printf("Error:    %s\n", r.FailureReason)
		if r.Transient {
			fmt.Println("Hint:     the failure looks transient, retrying may succeed")
		}
		return
	}
	fmt.Printf("Language: %s\n", r.Language)
	fmt.Printf("Chunks:   %d created", r.ChunksCreated)
	if r.ChunksDeleted > 0 {
		fmt.Printf(", %d replaced", r.ChunksDeleted)
	}
	fmt.Println()
}
