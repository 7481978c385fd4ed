// Package main implements the ncl CLI for analyzing notes against a running
// notaclind server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the notaclind HTTP server
	serverURL string
	// timeout bounds each request to the server
	timeout time.Duration
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ncl",
	Short: "CLI for the notaclin clinical note analyzer",
	Long: `ncl is a command-line interface for the notaclind HTTP server.
It sends clinical notes for analysis and inspects the field catalog and
server status.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:5000", "notaclind server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthCmd)
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check notaclind server health",
	Long: `Check the health status of the notaclind HTTP server.

Examples:
  # Check health
  ncl health

  # Check health on a different server
  ncl health --server http://localhost:8080`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

// HealthResponse matches internal/http HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	var health HealthResponse
	if err := getJSON("/health", &health); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Server Status: %s\n", health.Status)
	fmt.Fprintf(out, "Server URL: %s\n", serverURL)
	return nil
}

func newClient() *http.Client {
	return &http.Client{Timeout: timeout}
}

func endpoint(path string) string {
	return strings.TrimRight(serverURL, "/") + path
}

// getJSON fetches path from the server and decodes the JSON body into out.
func getJSON(path string, out any) error {
	url := endpoint(path)
	resp, err := newClient().Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

// postJSON sends body as JSON to path and decodes the response into out.
func postJSON(path string, body, out any) error {
	reqJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := endpoint(path)
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := newClient().Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
