// ABOUTME: HTTP connection validation for the fitfeed API.
// ABOUTME: Tests credentials by fetching a single feed post from the remote API.
package tui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ValidateConnection tests the API connection by fetching the feed with the given token.
// The context allows cancellation when the user quits during validation.
func ValidateConnection(ctx context.Context, apiURL, token string) error {
	client := &http.Client{Timeout: 10 * time.Second}

	apiURL = strings.TrimRight(apiURL, "/")

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL+"/feed", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	q := req.URL.Query()
	q.Set("limit", "1")
	req.URL.RawQuery = q.Encode()

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
