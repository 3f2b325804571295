package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check governd server health",
	Long: `Check the health status of a running governd server.

Examples:
  # Check health
  governd health

  # Check health on a different server
  governd health --server http://localhost:8080`,
	RunE: runHealth,
}

// HealthResponse matches internal/server HealthResponse.
type HealthResponse struct {
	Status string `json:"status"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	start := time.Now()
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "governd at %s: unreachable (%v)\n", serverURL, err)
		return err
	}
	defer resp.Body.Close()
	elapsed := time.Since(start).Round(time.Millisecond)

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("health check: %s after %s (unreadable body: %w)", resp.Status, elapsed, readErr)
		}
		return fmt.Errorf("health check: %s after %s: %s", resp.Status, elapsed, string(body))
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}

	fmt.Printf("governd at %s: %s (%s, %s)\n", serverURL, healthResp.Status, resp.Status, elapsed)

	return nil
}
