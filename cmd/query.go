package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sitedex/sitedex/internal/app"
	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/internal/log"
	"github.com/sitedex/sitedex/internal/query"
)

var (
	queryLimit       int
	queryContentType string
	querySynthesize  bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Search the indexed websites",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(strings.Join(args, " "))
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "maximum matches to return")
	queryCmd.Flags().StringVar(&queryContentType, "type", "", "restrict to one content type")
	queryCmd.Flags().BoolVar(&querySynthesize, "answer", false, "synthesize a cited answer from the matches")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(question string) error {
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

	resp, err := a.Engine.Query(ctx, query.Request{
		Query:       question,
		MaxResults:  queryLimit,
		ContentType: queryContentType,
		Synthesize:  querySynthesize,
	})
	if err != nil {
		return err
	}

	printQueryResponse(resp)
	return nil
}

func printQueryResponse(resp *query.Response) {
	if len(resp.Matches) == 0 {
		fmt.Println("No matches.")
		return
	}

	if resp.Answer != "" {
		fmt.Println(resp.Answer)
		fmt.Println()
		fmt.Println("Sources:")
	}

	for i, m := range resp.Matches {
		fmt.Printf("%d. %s (%s)\n", i+1, m.SourceTitle, m.SourceURL)
		if m.HeadingPath != "" {
			fmt.Printf("   %s\n", m.HeadingPath)
		}
		if resp.Answer == "" {
			fmt.Printf("   %s\n", excerpt(m.Text, 200))
		}
	}
	fmt.Printf("\nConfidence: %s\n", resp.Confidence)
}

// excerpt truncates on a rune boundary so multi-byte text stays valid.
func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
