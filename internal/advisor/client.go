// Package advisor implements HTTP clients for the engine's external
// collaborators: the weather/shelf-life service and the storage-advisory
// classifier. The clients issue single attempts with no retry or backoff;
// failure handling is the calling sweep's responsibility.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// maxResponseBytes caps collaborator response bodies. The largest legitimate
// payload (a weather snapshot with forecast) is a few KiB.
const maxResponseBytes = 1 << 20

// client is the shared request core for the collaborator clients.
type client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func newClient(baseURL string, httpClient *http.Client, logger *slog.Logger) client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if logger == nil {
		logger = slog.Default()
	}

	return client{baseURL: baseURL, httpClient: httpClient, logger: logger}
}

// getJSON issues one GET to path with the given query and decodes the JSON
// response into v. Callers that accept a JSON null response pass a pointer
// to a pointer so the null decodes to nil.
func (c client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("advisor: building request %s: %w", path, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", ErrUnavailable, path, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("collaborator returned error status",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return fmt.Errorf("%w: GET %s: status %d", ErrUnavailable, path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrMalformedResponse, path, err)
	}

	return nil
}
