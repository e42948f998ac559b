package source

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryDelay = time.Second
)

func fetch(ctx context.Context, url string, opts Options) ([]byte, error) {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	logger := opts.logger()
	onRetry := func(attempt int, wait time.Duration, err error) {
		logger.Warn("fetch failed, retrying", "url", url, "attempt", attempt, "wait", wait, "err", err)
	}

	var body []byte
	err := retry(ctx, opts.Retries+1, delay, onRetry, func() error {
		logger.Debug("fetching document", "url", url)
		b, err := get(ctx, client, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("%w: %v", ErrFetch, err)}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	b, err := readLimited(resp.Body, url)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 500:
		return &RetryableError{Err: fmt.Errorf("%w: status %d", ErrFetch, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrFetch, code)
	}
}
