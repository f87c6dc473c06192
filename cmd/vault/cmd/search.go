package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mfenderov/vault/internal/elasticsearch"
	"github.com/spf13/cobra"
)

var (
	searchPage     int
	searchPageSize int
	searchFormat   string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested documents",
	Long: `Search the full-text index of ingested documents.

Examples:
  # Basic search
  vault search "lease agreement"

  # Page through results
  vault search "invoice" --page 2 --page-size 5

  # JSON output for scripting
  vault search "tax" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchPage, "page", 1, "Result page, starting at 1")
	searchCmd.Flags().IntVar(&searchPageSize, "page-size", 10, "Results per page")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := args[0]
	cfg := GetConfig()

	esClient, err := elasticsearch.New(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	result, err := esClient.Search(ctx, query, searchPage, searchPageSize)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(result.Items) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d results (page %d):\n\n", result.TotalCount, result.Page)
	for i, hit := range result.Items {
		fmt.Printf("─── Result %d ───\n", (result.Page-1)*result.PageSize+i+1)
		fmt.Printf("Path:    %s\n", hit.Path)
		fmt.Printf("Page:    %d\n", hit.PageNumber)
		fmt.Printf("ID:      %s\n", hit.ID)
		fmt.Printf("Snippet:\n%s\n\n", hit.Snippet)
	}

	return nil
}
