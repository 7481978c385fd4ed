package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/notaclin/internal/extraction"
)

var fieldsFamily string

func init() {
	fieldsCmd.Flags().StringVar(&fieldsFamily, "family", "", "only list one family (vital, muscle or neuro)")
}

// fieldsCmd lists the field catalog
var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the fields the server can report",
	Args:  cobra.NoArgs,
	RunE:  runFields,
}

// statusCmd shows server status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server version, services and anchor counts",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

// FieldsResponse matches internal/http FieldsResponse
type FieldsResponse struct {
	Fields []extraction.FieldSpec `json:"fields"`
}

// StatusResponse matches internal/http StatusResponse
type StatusResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Services map[string]string `json:"services"`
	Counts   struct {
		Fields  map[string]int `json:"fields"`
		Anchors map[string]int `json:"anchors,omitempty"`
	} `json:"counts"`
}

func runFields(cmd *cobra.Command, args []string) error {
	switch extraction.Family(fieldsFamily) {
	case "", extraction.FamilyVital, extraction.FamilyMuscle, extraction.FamilyNeuro:
	default:
		return fmt.Errorf("unknown family %q", fieldsFamily)
	}

	var resp FieldsResponse
	if err := getJSON("/api/v1/fields", &resp); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tFAMILY\tCANONICAL")
	for _, f := range resp.Fields {
		if fieldsFamily != "" && string(f.Family) != fieldsFamily {
			continue
		}
		canonical := f.Canonical
		if canonical == "" {
			canonical = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Key, f.Family, canonical)
	}
	return tw.Flush()
}

func runStatus(cmd *cobra.Command, args []string) error {
	var resp StatusResponse
	if err := getJSON("/api/v1/status", &resp); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Status:  %s\n", resp.Status)
	fmt.Fprintf(out, "Version: %s\n", resp.Version)
	for _, name := range sortedKeys(resp.Services) {
		fmt.Fprintf(out, "Service %s: %s\n", name, resp.Services[name])
	}
	for _, family := range sortedKeys(resp.Counts.Fields) {
		line := fmt.Sprintf("Family %s: %d fields", family, resp.Counts.Fields[family])
		if n, ok := resp.Counts.Anchors[family]; ok {
			line += fmt.Sprintf(", %d anchors", n)
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
