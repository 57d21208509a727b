// Package ensembl fetches transcript metadata and protein sequences from the
// Ensembl REST API, one base URL per reference genome.
package ensembl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/inodb/oncokb-transcript/internal/datasource"
	"github.com/inodb/oncokb-transcript/internal/genome"
)

// Default endpoints. GRCh37 is served from a separate archive host.
const (
	DefaultGRCh37URL = "https://grch37.rest.ensembl.org"
	DefaultGRCh38URL = "https://rest.ensembl.org"

	// maxBatchSize is the POST /sequence/id limit.
	maxBatchSize = 50
)

// Client talks to Ensembl REST.
type Client struct {
	baseURLs      map[genome.Assembly]string
	httpClient    *http.Client
	maxRetries    uint64
	retryInterval time.Duration
	logger        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the endpoint for an assembly.
func WithBaseURL(a genome.Assembly, baseURL string) Option {
	return func(c *Client) { c.baseURLs[a] = baseURL }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRetryInterval sets the initial backoff interval.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) { c.retryInterval = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a REST client with GRCh37 and GRCh38 endpoints.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURLs: map[genome.Assembly]string{
			genome.GRCh37: DefaultGRCh37URL,
			genome.GRCh38: DefaultGRCh38URL,
		},
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		maxRetries:    2,
		retryInterval: 500 * time.Millisecond,
		logger:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) endpoint(a genome.Assembly, path string, query url.Values) (string, error) {
	base, ok := c.baseURLs[a]
	if !ok {
		return "", fmt.Errorf("no Ensembl endpoint for reference genome %q", a)
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("content-type", "application/json")
	return base + path + "?" + query.Encode(), nil
}

// do performs a request, decoding a 200 response into out.
// 400 and 404 map to ErrTranscriptNotFound (Ensembl answers 400 for unknown
// IDs). 429, 5xx and transport failures map to ErrSourceUnavailable and are
// retried with exponential backoff.
func (c *Client) do(ctx context.Context, method, u string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("%w: %w", datasource.ErrSourceUnavailable, ctx.Err()))
			}
			return fmt.Errorf("%w: Ensembl REST request failed: %v", datasource.ErrSourceUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode Ensembl response: %w", err))
			}
			return nil
		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("%w: %s", datasource.ErrTranscriptNotFound, bytes.TrimSpace(msg)))
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("%w: Ensembl REST error %d", datasource.ErrSourceUnavailable, resp.StatusCode)
		default:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("Ensembl REST error %d: %s", resp.StatusCode, bytes.TrimSpace(msg)))
		}
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	eb.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, next time.Duration) {
		c.logger.Warn("retrying Ensembl request",
			zap.String("url", u),
			zap.Duration("backoff", next),
			zap.Error(err))
	})
	if err != nil && !errors.Is(err, datasource.ErrSourceUnavailable) &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		err = fmt.Errorf("%w: %w", datasource.ErrSourceUnavailable, err)
	}
	return err
}
