package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/notaclin/internal/extraction"
)

var (
	analyzeJSON   bool
	analyzeNoteID string
)

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the raw JSON response")
	analyzeCmd.Flags().StringVar(&analyzeNoteID, "note-id", "", "identifier attached to server logs for this note")
}

// analyzeCmd sends a note to the server
var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Extract observations from a note file or stdin",
	Long: `Extract vital signs, demographics, muscle grades and neurological
findings from a Spanish clinical note.

Examples:
  # Analyze a file
  ncl analyze nota.txt

  # Analyze from stdin
  echo "Paciente de 45 años, TA 120/80" | ncl analyze -

  # Raw JSON output
  ncl analyze --json nota.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

// AnalyzeRequest matches internal/http AnalyzeRequest
type AnalyzeRequest struct {
	Text   string `json:"text"`
	NoteID string `json:"note_id,omitempty"`
}

// runAnalyze handles the analyze command
func runAnalyze(cmd *cobra.Command, args []string) error {
	var content []byte
	var err error

	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}

	if strings.TrimSpace(string(content)) == "" {
		return fmt.Errorf("no note text to analyze")
	}

	var analysis extraction.Analysis
	req := AnalyzeRequest{Text: string(content), NoteID: analyzeNoteID}
	if err := postJSON("/api/v1/analyze", req, &analysis); err != nil {
		return err
	}

	if analyzeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}
	return printResults(cmd.OutOrStdout(), analysis.Results)
}

// printResults renders results as an aligned table.
func printResults(w io.Writer, results []extraction.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No observations found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE\tSCORE")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\n", r.Field, r.Value, r.Score)
	}
	return tw.Flush()
}
