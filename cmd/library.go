package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sitedex/sitedex/internal/app"
	"github.com/sitedex/sitedex/internal/config"
	"github.com/sitedex/sitedex/internal/library"
	"github.com/sitedex/sitedex/internal/log"
	"github.com/sitedex/sitedex/internal/store"
)

var (
	libraryListType   string
	libraryListStatus string
	libraryListLimit  int
	libraryListOffset int
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the indexed website collection",
}

func init() {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed websites",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return runLibraryList(ctx, a)
			})
		},
	}
	listCmd.Flags().StringVar(&libraryListType, "type", "", "filter by content type")
	listCmd.Flags().StringVar(&libraryListStatus, "status", "", "filter by status")
	listCmd.Flags().IntVar(&libraryListLimit, "limit", 20, "page size")
	listCmd.Flags().IntVar(&libraryListOffset, "offset", 0, "page offset")

	showCmd := &cobra.Command{
		Use:   "show <source-id>",
		Short: "Show one website's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return runLibraryShow(ctx, a, args[0])
			})
		},
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh <source-id>",
		Short: "Re-fetch and re-index one website",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return runLibraryRefresh(ctx, a, args[0])
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <source-id>",
		Short: "Remove a website and all its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return runLibraryDelete(ctx, a, args[0])
			})
		},
	}

	libraryCmd.AddCommand(listCmd, showCmd, refreshCmd, deleteCmd)
	rootCmd.AddCommand(libraryCmd)
}

// withApp runs fn against a fully initialized application and tears it down
// afterwards.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
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

	return fn(ctx, a)
}

func runLibraryList(ctx context.Context, a *app.App) error {
	result, err := a.Library.List(ctx, library.ListRequest{
		ContentType: libraryListType,
		Status:      store.Status(libraryListStatus),
		Limit:       libraryListLimit,
		Offset:      libraryListOffset,
	})
	if err != nil {
		return err
	}

	if len(result.Websites) == 0 {
		fmt.Println("No websites indexed.")
		return nil
	}

	for _, w := range result.Websites {
		marker := " "
		if w.Stale {
			marker = "*"
		}
		fmt.Printf("%s %-12s %4d chunks  %s  %s\n", marker, w.Status, w.ChunkCount, w.ID, w.URL)
	}
	fmt.Printf("\n%d of %d total", len(result.Websites), result.Total)
	if result.HasMore {
		fmt.Printf(" (more available, use --offset %d)", libraryListOffset+libraryListLimit)
	}
	fmt.Println("\n* fetched more than 30 days ago")
	return nil
}

func runLibraryShow(ctx context.Context, a *app.App, sourceID string) error {
	w, err := a.Library.Get(ctx, sourceID)
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %s\n", w.ID)
	fmt.Printf("URL:      %s\n", w.URL)
	fmt.Printf("Title:    %s\n", w.Title)
	fmt.Printf("Type:     %s\n", w.ContentType)
	fmt.Printf("Language: %s\n", w.Language)
	fmt.Printf("Status:   %s\n", w.Status)
	if w.LastError != "" {
		fmt.Printf("Error:    %s\n", w.LastError)
	}
	fmt.Printf("Chunks:   %d\n", w.ChunkCount)
	fmt.Printf("Model:    %s\n", w.EmbeddingModel)
	if !w.FetchedAt.IsZero() {
		fmt.Printf("Fetched:  %s", w.FetchedAt.Format("2006-01-02 15:04:05 MST"))
		if w.Stale {
			fmt.Print("  (stale)")
		}
		fmt.Println()
	}
	return nil
}

func runLibraryRefresh(ctx context.Context, a *app.App, sourceID string) error {
	result, err := a.Library.Refresh(ctx, sourceID)
	if err != nil {
		return err
	}

	fmt.Printf("URL:    %s\n", result.URL)
	fmt.Printf("Status: %s\n", result.Status)
	if result.Status == store.StatusFailed {
		return fmt.Errorf("refresh failed: %s", result.FailureReason)
	}
	fmt.Printf("Chunks: %d created, %d replaced\n", result.NewChunksCreated, result.OldChunksDeleted)
	return nil
}

func runLibraryDelete(ctx context.Context, a *app.App, sourceID string) error {
	result, err := a.Library.Delete(ctx, sourceID)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %s (%d chunks removed)\n", result.URL, result.ChunksDeleted)
	return nil
}
