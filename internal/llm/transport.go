package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/tabclaim/internal/util"
)

// maxResponseBytes bounds provider responses; naming answers are a few tokens
const maxResponseBytes = 1 << 20

// APIError is a non-2xx provider response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// jsonClient posts JSON to one provider endpoint family
type jsonClient struct {
	baseURL string
	headers http.Header
	http    *http.Client

	// describe extracts a readable message from an error body, "" if unknown
	describe func(body []byte) string
}

func newJSONClient(config Config, defaultBaseURL string, fallbackTimeout time.Duration) *jsonClient {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &jsonClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		headers: http.Header{"Content-Type": {"application/json"}},
		http: &http.Client{
			Timeout:   config.timeout(fallbackTimeout),
			Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}
}

// do sends in (when non-nil) to path and decodes the response into out
func (c *jsonClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if c.describe != nil {
			msg = c.describe(data)
		}
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
