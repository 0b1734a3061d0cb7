// Package api talks to the authority's REST endpoints: one retrying HTTP
// helper shared by all services, with explicit retryable/terminal
// classification.
package api

import (
	"context"
	"net"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/fatoora-dev/go-zatca-client/zatca"
	"github.com/fatoora-dev/go-zatca-client/zatca/auth"
	"github.com/fatoora-dev/go-zatca-client/zatca/util"
)

var logger = logrus.WithField("component", "zatca.api")

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
)

// validatable lets responses reject missing required fields at the
// boundary instead of defaulting silently.
type validatable interface {
	Validate() error
}

type Client struct {
	rest       *resty.Client
	tokens     auth.TokenSource
	maxRetries uint64
	baseDelay  time.Duration
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.rest.SetBaseURL(u) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.rest.SetTimeout(d) }
}

func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

func NewClient(env zatca.Environment, tokens auth.TokenSource, opts ...Option) *Client {
	c := &Client{
		rest:       resty.New().SetBaseURL(env.BaseURL()).SetTimeout(defaultTimeout),
		tokens:     tokens,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}
	if util.HttpTraceEnabled() {
		c.rest.SetDebug(true)
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// PostJSON sends an authenticated JSON request with exponential backoff.
// 5xx and network failures are retried up to maxRetries; any other 4xx is
// terminal. A 401 triggers exactly one forced token refresh and one
// immediate replay, outside the backoff budget.
func (c *Client) PostJSON(ctx context.Context, endpoint string, body any, result validatable, headers map[string]string) error {
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.baseDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.attempt(ctx, endpoint, body, result, headers, true)
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			logger.Debugf("retryable failure on %s: %v", endpoint, err)
			return retry.RetryableError(err)
		}
		return err
	})
}

// PostJSONNoAuth is for endpoints before a bearer token exists (CSID
// issuance and onboarding). Same retry classification.
func (c *Client) PostJSONNoAuth(ctx context.Context, endpoint string, body any, result validatable, headers map[string]string) error {
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.baseDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.attempt(ctx, endpoint, body, result, headers, false)
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) attempt(ctx context.Context, endpoint string, body any, result validatable, headers map[string]string, authenticated bool) error {
	resp, err := c.send(ctx, endpoint, body, result, headers, authenticated)
	if err != nil {
		return err
	}

	if resp.StatusCode() == 401 && authenticated {
		// one refresh, one replay; a second 401 is terminal
		logger.Debug("401 from authority, forcing token refresh")
		if _, err := c.tokens.ForceRefresh(ctx); err != nil {
			return err
		}
		resp, err = c.send(ctx, endpoint, body, result, headers, authenticated)
		if err != nil {
			return err
		}
		if resp.StatusCode() == 401 {
			return zatca.ErrUnauthorized
		}
	}

	if resp.IsError() {
		return &zatca.ApiError{
			Status:  resp.StatusCode(),
			Message: resp.Status(),
			Body:    resp.Body(),
		}
	}

	if result != nil {
		return result.Validate()
	}
	return nil
}

func (c *Client) send(ctx context.Context, endpoint string, body any, result any, headers map[string]string, authenticated bool) (*resty.Response, error) {
	r := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if result != nil {
		r.SetResult(result)
	}
	for k, v := range headers {
		r.SetHeader(k, v)
	}

	if authenticated {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		r.SetHeader("Authorization", token.TokenType+" "+token.AccessToken)
	}

	resp, err := r.Post(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "post "+endpoint)
	}
	return resp, nil
}

// isRetryable classifies transport failures and 5xx as retryable. Auth
// failures and 4xx never recover by retrying.
func isRetryable(err error) bool {
	if errors.Is(err, zatca.ErrUnauthorized) ||
		errors.Is(err, zatca.ErrInvalidCredentials) {
		return false
	}

	var apiErr *zatca.ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// resty wraps transport failures in *url.Error, a net.Error
	var ne net.Error
	return errors.As(err, &ne)
}
