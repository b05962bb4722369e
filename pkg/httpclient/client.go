// Package httpclient is the JSON-over-HTTP client shared by the price and swap upstreams.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"custody/pkg/log"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

type Config struct {
	Name    string
	BaseURL string
	Headers map[string]string
	Timeout time.Duration
	RPS     float64 // zero disables rate limiting
	Burst   int
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("response has status code with error: %d: %s", e.Code, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

type Client struct {
	config     Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
}

func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	logger := log.Named("httpclient")

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 5,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			// 4xx means we sent something wrong, not that the upstream is down
			IsSuccessful: func(err error) bool {
				var se *StatusError
				if errors.As(err, &se) {
					return se.Code < http.StatusInternalServerError && se.Code != http.StatusTooManyRequests
				}
				return err == nil
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Infow("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return c
}

// Get performs GET base+path?query and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post performs POST base+path with a JSON body and decodes the JSON response into out.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, method, path, query, body, out)
	})
	return errors.Wrapf(err, "%s %s", c.config.Name, path)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter")
		}
	}

	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal a request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.Wrap(err, "failed to create a request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to perform a request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read a response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "failed to unmarshal a response")
	}
	return nil
}
