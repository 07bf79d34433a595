package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jgivc/emojifetch/internal/common"
)

type HTTPClient struct {
	client *http.Client
	log    *slog.Logger
}

func NewHTTPClient(timeout time.Duration, log *slog.Logger) *HTTPClient {
	return NewHTTPClientWithClient(&http.Client{Timeout: timeout}, log)
}

func NewHTTPClientWithClient(client *http.Client, log *slog.Logger) *HTTPClient {
	return &HTTPClient{
		client: client,
		log:    log.With(slog.String("item", "HTTPClient")),
	}
}

// Open issues a single GET. The caller must close the returned body.
// Any status outside 2xx is an error.
func (c *HTTPClient) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot get %s: %w", url, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()

		return nil, fmt.Errorf("%w: %s for url: %s", common.ErrUnexpectedStatus, resp.Status, url)
	}

	c.log.Debug("Response", slog.String("url", url), slog.Int("status", resp.StatusCode), slog.Int64("content_length", resp.ContentLength))

	return resp.Body, nil
}
