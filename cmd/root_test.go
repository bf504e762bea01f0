package cmd

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/sitedex/sitedex/internal/ingest"
)

func TestRootCommandWiring(t *testing.T) {
	if rootCmd.Use != "sitedex" {
		t.Errorf("expected Use=%q, got %q", "sitedex", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("expected non-empty Short description")
	}

	// Every top-level command must be registered on the root.
	want := []string{"serve", "process", "query", "library", "version"}
	for _, name := range want {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}
}

func TestProcessTypeFlagMatchesAcceptedValues(t *testing.T) {
	f := processCmd.Flags().Lookup("type")
	if f == nil {
		t.Fatal("process command has no --type flag")
	}
	if f.DefValue != "" {
		t.Errorf("--type defaults to %q; it must be explicit", f.DefValue)
	}
	if req, ok := f.Annotations[cobra.BashCompOneRequiredFlag]; !ok || len(req) == 0 || req[0] != "true" {
		t.Error("--type is not marked required")
	}

	// Every value the help text advertises must pass request validation.
	for _, ct := range []string{"job_posting", "blog_article", "company_page"} {
		if !strings.Contains(f.Usage, ct) {
			t.Errorf("--type help does not mention %q", ct)
		}
		req := ingest.ProcessRequest{URL: "https://example.com", ContentType: ct}
		if err := req.Validate(); err != nil {
			t.Errorf("advertised content type %q rejected: %v", ct, err)
		}
	}
}

func TestLibrarySubcommands(t *testing.T) {
	want := []string{"list", "show", "refresh", "delete"}
	for _, name := range want {
		found := false
		for _, sub := range libraryCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected library subcommand %q to be registered", name)
		}
	}
}

func TestExcerptTruncatesOnRuneBoundary(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"short text unchanged", "hello world", 20, "hello world"},
		{"whitespace collapsed", "hello\n\n  world", 20, "hello world"},
		{"ascii truncated", "hello world", 5, "hello..."},
		{"han truncated whole runes", "資深軟體工程師", 3, "資深軟..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := excerpt(tt.text, tt.limit)
			if got != tt.want {
				t.Errorf("excerpt(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}
