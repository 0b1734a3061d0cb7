package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatoora-dev/go-zatca-client/zatca"
	"github.com/fatoora-dev/go-zatca-client/zatca/model"
)

// fakeTokens satisfies auth.TokenSource without any HTTP.
type fakeTokens struct {
	token     string
	refreshes int32
}

func (f *fakeTokens) Token(context.Context) (model.OAuthToken, error) {
	return model.OAuthToken{
		AccessToken: f.token,
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeTokens) ForceRefresh(ctx context.Context) (model.OAuthToken, error) {
	atomic.AddInt32(&f.refreshes, 1)
	f.token = "fresh"
	return f.Token(ctx)
}

func newTestClient(url string, opts ...Option) *Client {
	tokens := &fakeTokens{token: "stale"}
	all := append([]Option{
		WithBaseURL(url),
		WithBaseDelay(time.Millisecond),
	}, opts...)
	return NewClient(zatca.Sandbox, tokens, all...)
}

func TestRetryBudgetOn500(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.PostJSON(context.Background(), "/x", map[string]string{}, &model.ReportingResponse{}, nil)

	require.Error(t, err)
	var apiErr *zatca.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.Status)
	// maxRetries retries on top of the initial attempt
	assert.Equal(t, int32(defaultMaxRetries+1), atomic.LoadInt32(&calls))
}

func TestNoRetryOn404(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.PostJSON(context.Background(), "/x", map[string]string{}, &model.ReportingResponse{}, nil)

	var apiErr *zatca.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUnauthorizedTriggersOneRefreshAndReplay(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale"}
	c := NewClient(zatca.Sandbox, tokens, WithBaseURL(srv.URL), WithBaseDelay(time.Millisecond))

	res := &model.ReportingResponse{}
	err := c.PostJSON(context.Background(), "/x", map[string]string{}, res, nil)

	require.NoError(t, err)
	assert.Equal(t, "OK", res.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens.refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPersistentUnauthorizedIsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.PostJSON(context.Background(), "/x", map[string]string{}, &model.ReportingResponse{}, nil)

	assert.ErrorIs(t, err, zatca.ErrUnauthorized)
	// initial + one replay after refresh, no backoff retries
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResponseValidationAtBoundary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"missing status field"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.PostJSON(context.Background(), "/x", map[string]string{}, &model.ReportingResponse{}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing status")
}

func TestClearanceServiceEncodesBase64(t *testing.T) {
	var got model.ClearanceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, AcceptVersion, r.Header.Get("Accept-Version"))
		require.NoError(t, decodeJSON(r, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"clearanceStatus":"CLEARED","clearanceUUID":"u-1","qrCode":"qr"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	svc := NewClearanceService(c)

	res, err := svc.Clear(context.Background(), "inv-uuid", []byte("<Invoice/>"))
	require.NoError(t, err)

	assert.Equal(t, "CLEARED", res.ClearanceStatus)
	assert.Equal(t, "inv-uuid", got.UUID)
	assert.Equal(t, "PEludm9pY2UvPg==", got.Invoice) // base64("<Invoice/>")
}

func TestReportingServiceHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CLEARED", r.Header.Get("Clearance-Status"))
		assert.Equal(t, AcceptVersion, r.Header.Get("Accept-Version"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"REPORTED"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	svc := NewReportingService(c)

	res, err := svc.Report(context.Background(), "inv-uuid", "CLEARED")
	require.NoError(t, err)
	assert.Equal(t, "REPORTED", res.Status)
}

func TestComplianceCSIDIsSandboxOnly(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0")
	svc := NewCSIDService(c, zatca.Production)

	_, err := svc.IssueCompliance(context.Background(), "csr")
	var apiErr *zatca.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Status)
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
