package kb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inbucket/html2text"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/retry"
)

const (
	maxDocumentSize     = 1 << 20 // 1MB limit
	defaultFetchTimeout = 10 * time.Second
)

// Fetcher downloads remote documents referenced from the knowledge file.
type Fetcher struct {
	client  *http.Client
	retrier *retry.Retrier
}

func NewFetcher(timeout time.Duration, retryCfg *retry.Config) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if retryCfg == nil {
		retryCfg = retry.NewQuickConfig()
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		retrier: retry.NewRetrier(retryCfg),
	}
}

// Fetch returns the document body as text. HTML pages are flattened.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var body string
	err := f.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", core.AppUserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch url: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			if resp.StatusCode < 500 {
				return retry.Permanent(err)
			}
			return err
		}

		limited := io.LimitReader(resp.Body, maxDocumentSize)
		if strings.Contains(resp.Header.Get("Content-Type"), "html") {
			body, err = html2text.FromReader(limited, html2text.Options{
				OmitLinks: true,
				TextOnly:  true,
			})
		} else {
			var raw []byte
			raw, err = io.ReadAll(limited)
			body = string(raw)
		}
		if err != nil {
			return fmt.Errorf("failed to read body: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}
