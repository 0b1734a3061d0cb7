// Package auth manages bearer tokens for the authority's client-credentials
// grant. One SessionManager per environment; token state is never shared
// across environments.
package auth

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/fatoora-dev/go-zatca-client/zatca"
	"github.com/fatoora-dev/go-zatca-client/zatca/model"
)

var logger = logrus.WithField("component", "zatca.auth")

// expirySkew shaves the authority's stated expiry so a token is never used
// at the very edge of its lifetime.
const expirySkew = 60 * time.Second

const defaultTimeout = 5 * time.Second

// TokenSource is what the API client consumes. Implemented by
// SessionManager; tests substitute fakes.
type TokenSource interface {
	Token(ctx context.Context) (model.OAuthToken, error)
	ForceRefresh(ctx context.Context) (model.OAuthToken, error)
}

type SessionManager struct {
	env          zatca.Environment
	clientID     string
	clientSecret string
	rest         *resty.Client
	clock        clockwork.Clock

	mu    sync.RWMutex
	token model.OAuthToken

	group singleflight.Group
}

type Option func(*SessionManager)

func WithClock(c clockwork.Clock) Option {
	return func(m *SessionManager) { m.clock = c }
}

func WithBaseURL(u string) Option {
	return func(m *SessionManager) { m.rest.SetBaseURL(u) }
}

func WithTimeout(d time.Duration) Option {
	return func(m *SessionManager) { m.rest.SetTimeout(d) }
}

func NewSessionManager(env zatca.Environment, clientID, clientSecret string, opts ...Option) *SessionManager {
	m := &SessionManager{
		env:          env,
		clientID:     clientID,
		clientSecret: clientSecret,
		rest:         resty.New().SetBaseURL(env.BaseURL()).SetTimeout(defaultTimeout),
		clock:        clockwork.NewRealClock(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Token returns the cached token while it is valid, otherwise refreshes.
// Readers never block each other; only concurrent refreshers serialize, and
// they share a single in-flight token request.
func (m *SessionManager) Token(ctx context.Context) (model.OAuthToken, error) {
	m.mu.RLock()
	t := m.token
	m.mu.RUnlock()

	if t.Valid(m.clock.Now()) {
		return t, nil
	}
	return m.refresh(ctx)
}

// ForceRefresh discards the cache and fetches a new token. Used after the
// authority answers 401 to a bearer-authenticated call.
func (m *SessionManager) ForceRefresh(ctx context.Context) (model.OAuthToken, error) {
	m.mu.Lock()
	m.token = model.OAuthToken{}
	m.mu.Unlock()
	return m.refresh(ctx)
}

func (m *SessionManager) refresh(ctx context.Context) (model.OAuthToken, error) {
	v, err, shared := m.group.Do("token", func() (any, error) {
		// double-check: an earlier flight may have refreshed already
		m.mu.RLock()
		t := m.token
		m.mu.RUnlock()
		if t.Valid(m.clock.Now()) {
			return t, nil
		}

		fresh, err := m.fetchToken(ctx)
		if err != nil {
			return model.OAuthToken{}, err
		}

		m.mu.Lock()
		m.token = fresh
		m.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return model.OAuthToken{}, err
	}
	if shared {
		logger.Debug("token refresh joined an in-flight request")
	}
	return v.(model.OAuthToken), nil
}

func (m *SessionManager) fetchToken(ctx context.Context) (model.OAuthToken, error) {
	logger.Debugf("requesting token from %s", m.env)

	var body model.TokenResponse
	resp, err := m.rest.R().
		SetContext(ctx).
		SetBasicAuth(m.clientID, m.clientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&body).
		Post(zatca.EndpointToken)
	if err != nil {
		if isTimeout(err) {
			return model.OAuthToken{}, fmt.Errorf("%w: %v", zatca.ErrAuthTimeout, err)
		}
		return model.OAuthToken{}, errors.Wrap(err, "token request")
	}

	switch {
	case resp.StatusCode() == 401:
		return model.OAuthToken{}, zatca.ErrInvalidCredentials
	case resp.IsError():
		return model.OAuthToken{}, &zatca.ApiError{
			Status:  resp.StatusCode(),
			Message: "token endpoint error",
			Body:    resp.Body(),
		}
	}

	if err := body.Validate(); err != nil {
		return model.OAuthToken{}, err
	}

	return model.OAuthToken{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
		ExpiresAt:   m.clock.Now().Add(time.Duration(body.ExpiresIn)*time.Second - expirySkew),
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
