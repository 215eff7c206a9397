package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"sweepstat/internal/ratelimit"
)

const maxAttempts = 3

// restClient issues paced GET requests and retries retryable failures.
type restClient struct {
	exchange string
	baseURL  string
	client   *http.Client
	limiter  *ratelimit.Limiter
}

func (c *restClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		err := c.get(ctx, path, q, out)
		if err == nil {
			c.limiter.ResetBackoff()
			return nil
		}
		var pe *Error
		if !errors.As(err, &pe) || !pe.Retryable {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (c *restClient) get(ctx context.Context, path string, q url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "sweepstat")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &Error{Exchange: c.exchange, Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Exchange: c.exchange, Err: fmt.Errorf("reading response: %w", err), Retryable: true}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 418:
		c.limiter.SignalRateLimited()
		return &Error{Exchange: c.exchange, Err: errors.New("rate limited"), Retryable: true}
	case resp.StatusCode >= 500:
		return &Error{Exchange: c.exchange, Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: true}
	case resp.StatusCode != http.StatusOK:
		return &Error{Exchange: c.exchange, Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Exchange: c.exchange, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// number accepts JSON numbers and numeric strings.
func number(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("unexpected %T in kline", v)
	}
}
