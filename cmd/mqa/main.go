// Package main implements the mqa CLI for asking questions and operating a
// running memberqa server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	api "github.com/ManiKran/Aurora-Q-A-Assessment/internal/http"
)

var (
	// serverURL is the base URL for the memberqa HTTP server
	serverURL string
	// timeout bounds every request; answers can take a while
	timeout time.Duration
	// version information
	version = "dev"

	showContext  bool
	forceReindex bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mqa",
	Short: "CLI for memberqa server operations",
	Long: `mqa is a command-line interface for the memberqa HTTP server.
It asks questions, checks server health and triggers reindexing.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "memberqa server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 90*time.Second, "request timeout")

	askCmd.Flags().BoolVarP(&showContext, "context", "c", false, "print the supporting messages")
	reindexCmd.Flags().BoolVarP(&forceReindex, "force", "f", false, "refetch messages even when the cache is fresh")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(reindexCmd)
}

// askCmd asks a question
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about a member",
	Long: `Ask a question about a member. All arguments are joined into one question.

Examples:
  # Ask a question
  mqa ask "When is Layla planning her trip to London?"

  # Show the messages the answer is based on
  mqa ask --context How many cars does Vikram Desai have?`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check memberqa server health",
	Long: `Check the health status of the memberqa HTTP server.

Examples:
  # Check health
  mqa health

  # Check health on a different server
  mqa health --server http://localhost:9000`,
	RunE: runHealth,
}

// reindexCmd reloads messages and rebuilds the index when they changed
var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Reload messages and sync the index",
	Long: `Reload messages from the member API (or the local cache when it is
fresh) and rebuild the index if the messages changed.

Examples:
  # Sync with cached messages
  mqa reindex

  # Refetch messages from the API
  mqa reindex --force`,
	RunE: runReindex,
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question cannot be empty")
	}

	out := cmd.OutOrStdout()
	if !showContext {
		var resp api.AskResponse
		if err := doJSON(cmd.Context(), http.MethodGet, "/ask?question="+url.QueryEscape(question), nil, &resp); err != nil {
			return err
		}
		fmt.Fprintln(out, resp.Answer)
		if resp.DetectedUser != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "[mqa] member: %s, confidence: %s\n", *resp.DetectedUser, resp.Confidence)
		}
		return nil
	}

	var resp api.AskDetailResponse
	if err := doJSON(cmd.Context(), http.MethodPost, "/api/v1/ask", api.AskRequest{Question: question}, &resp); err != nil {
		return err
	}
	fmt.Fprintln(out, resp.Answer)
	fmt.Fprintln(out)
	member := "none"
	if resp.DetectedUser != nil {
		member = fmt.Sprintf("%s (%s)", *resp.DetectedUser, resp.DetectTier)
	}
	fmt.Fprintf(out, "Member:     %s\n", member)
	fmt.Fprintf(out, "Confidence: %s\n", resp.Confidence)
	fmt.Fprintf(out, "Context:    %d message(s)\n", len(resp.Context))
	for _, m := range resp.Context {
		ts := "unknown time"
		if m.Timestamp != nil {
			ts = m.Timestamp.Format(time.RFC3339)
		}
		fmt.Fprintf(out, "  [%s] %s: %s (distance %.3f)\n", ts, m.UserName, m.Text, m.Distance)
	}
	return nil
}

func runHealth(cmd *cobra.Command, _ []string) error {
	var resp api.HealthResponse
	if err := doJSON(cmd.Context(), http.MethodGet, "/health", nil, &resp); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Server Status: %s\n", resp.Status)
	fmt.Fprintf(out, "Server URL: %s\n", serverURL)
	if resp.Version != "" {
		fmt.Fprintf(out, "Version: %s\n", resp.Version)
	}
	fmt.Fprintf(out, "Members: %d\n", resp.Members)
	fmt.Fprintf(out, "Messages: %d\n", resp.Messages)
	if resp.LastRefresh != nil {
		fmt.Fprintf(out, "Last Refresh: %s\n", resp.LastRefresh.Format(time.RFC3339))
	}
	return nil
}

func runReindex(cmd *cobra.Command, _ []string) error {
	var resp api.ReindexResponse
	if err := doJSON(cmd.Context(), http.MethodPost, "/api/v1/reindex", api.ReindexRequest{Force: forceReindex}, &resp); err != nil {
		return err
	}

	state := "unchanged, index kept"
	if resp.Rebuilt {
		state = "index rebuilt"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d messages from %d members (%s) in %.0fms\n",
		resp.Messages, resp.Members, state, resp.DurationMs)
	return nil
}

// doJSON sends body as JSON and decodes a 200 response into out. Any other
// status is returned as an error carrying the server's error message.
func doJSON(ctx context.Context, method, path string, body, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reqJSON, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(reqJSON)
	}

	target := strings.TrimRight(serverURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		var apiErr api.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned status %d: %s: %s", resp.StatusCode, apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
