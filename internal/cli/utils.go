// Package cli provides CLI utilities for Shiori.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tomeworks/shiori/internal/models"
	"github.com/tomeworks/shiori/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.EnhancedSearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.EnhancedSearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms (%s mode)\n", response.Total, response.QueryTime, response.SearchMode)
	lastSourceID := ""
	rank := 0
	for _, result := range response.Results {
		rank++
		if result.Source != nil && result.Source.ID != lastSourceID {
			lastSourceID = result.Source.ID
			fmt.Fprintf(w, "\n─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "%s", result.Source.Title)
			if result.Source.Summary != "" {
				fmt.Fprintf(w, " — %s", utils.Truncate(result.Source.Summary, 120))
			}
			fmt.Fprintf(w, "\nID: %s\n", result.Source.ID)
		}
		fmt.Fprintf(w, "\n  %d. [%.4f] %s\n", rank, result.RelevanceScore, utils.Truncate(result.HighlightedContent, 400))
	}
	fmt.Fprintln(w)
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.EnhancedSearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}
