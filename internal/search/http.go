package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ppiankov/factrank/internal/worker"
)

const defaultMaxBody = 2 << 20

// requester performs rate-limited requests with a bounded body read
type requester struct {
	client    *http.Client
	limiter   *worker.Limiter
	userAgent string
	maxBytes  int64
}

func (r *requester) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, req.URL.String()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	if req.Header.Get("User-Agent") == "" && r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("request %s: %w", redact(req.URL), err)
	}
	defer resp.Body.Close()

	limit := r.maxBytes
	if limit <= 0 {
		limit = defaultMaxBody
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, fmt.Errorf("%s returned status %d: %s", redact(req.URL), resp.StatusCode, msg)
	}
	return body, nil
}

// redact strips the query string so API keys never reach logs or errors
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
