package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/ppiankov/tabclaim/internal/logging"
	"github.com/ppiankov/tabclaim/internal/model"
	"github.com/ppiankov/tabclaim/internal/util"
	"github.com/ppiankov/tabclaim/internal/worker"
)

// HTTPSource fetches one document per URL
type HTTPSource struct {
	URLs    []string
	fetcher *Fetcher
	robots  *util.RobotsChecker
	limiter *worker.Limiter
	delayed map[string]bool // hosts whose crawl delay is applied
}

// HTTPOption configures an HTTPSource
type HTTPOption func(*HTTPSource)

// WithRobots refuses URLs disallowed by robots.txt and honors crawl delays
func WithRobots(r *util.RobotsChecker) HTTPOption {
	return func(s *HTTPSource) { s.robots = r }
}

// WithRateLimit throttles requests per host
func WithRateLimit(l *worker.Limiter) HTTPOption {
	return func(s *HTTPSource) { s.limiter = l }
}

// NewHTTPSource creates a URL source
func NewHTTPSource(urls []string, fetcher *Fetcher, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{URLs: urls, fetcher: fetcher, delayed: make(map[string]bool)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches and decodes the documents in URL order
func (s *HTTPSource) Load(ctx context.Context) (*Batch, error) {
	batch := &Batch{}

	for _, rawURL := range s.URLs {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		id := DocumentID(urlPath(rawURL))
		doc, err := s.load(ctx, id, rawURL)
		if err != nil {
			logging.Warn("document not loaded", "document", id, "url", rawURL, "error", err)
			batch.Failures = append(batch.Failures, Failure{DocumentID: id, Origin: rawURL, Err: err})
			continue
		}
		batch.Documents = append(batch.Documents, doc)
	}

	return batch, nil
}

func (s *HTTPSource) load(ctx context.Context, id, rawURL string) (model.Document, error) {
	if s.robots != nil {
		allowed, delay, err := s.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return model.Document{}, err
		}
		if !allowed {
			return model.Document{}, fmt.Errorf("disallowed by robots.txt")
		}
		if s.limiter != nil && delay > 0 {
			if host, err := hostOf(rawURL); err == nil && !s.delayed[host] {
				s.limiter.SetRate(host, 1/delay.Seconds(), 1)
				s.delayed[host] = true
			}
		}
	}

	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, rawURL); err != nil {
			return model.Document{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	result, err := s.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return model.Document{}, err
	}

	return DecodeDocument(id, rawURL, bytes.NewReader(result.Body))
}

// ReadURLsFromFile reads URLs from a file (one per line)
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}

func urlPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		return rawURL
	}
	return parsed.Path
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return parsed.Host, nil
}
