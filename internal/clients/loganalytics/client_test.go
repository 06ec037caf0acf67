package loganalytics

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forwarder/internal/errors"
	"forwarder/internal/logging"
)

// MockCredential hands out a numbered token per call
type MockCredential struct {
	calls  int
	scopes [][]string
	err    error
}

func (m *MockCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	m.calls++
	m.scopes = append(m.scopes, opts.Scopes)
	if m.err != nil {
		return azcore.AccessToken{}, m.err
	}
	return azcore.AccessToken{
		Token:     "token-" + string(rune('0'+m.calls)),
		ExpiresOn: time.Now().Add(time.Hour),
	}, nil
}

type failingDoer struct {
	calls int
	err   error
}

func (f *failingDoer) Do(*http.Request) (*http.Response, error) {
	f.calls++
	return nil, f.err
}

func newTestClient(t *testing.T, endpoint string, cred azcore.TokenCredential, doer HTTPDoer) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		Endpoint:    endpoint,
		WorkspaceID: "ws-42",
	}, cred, doer, logging.NewLogger(logging.LevelError, io.Discard, "test"))
	require.NoError(t, err)
	return client
}

func TestQuerySendsExpectedRequest(t *testing.T) {
	var captured struct {
		method, path, auth, contentType string
		body                            map[string]string
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		captured.contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&captured.body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tables":[{"name":"PrimaryResult","columns":[{"name":"TenantId","type":"string"}],"rows":[["t-1"],["t-2"]]}]}`))
	}))
	defer server.Close()

	cred := &MockCredential{}
	client := newTestClient(t, server.URL, cred, server.Client())

	result, err := client.Query(context.Background(), "SigninLogs | project TenantId")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "/v1/workspaces/ws-42/query", captured.path)
	assert.Equal(t, "Bearer token-1", captured.auth)
	assert.Equal(t, "application/json", captured.contentType)
	assert.Equal(t, map[string]string{"query": "SigninLogs | project TenantId"}, captured.body)

	require.Len(t, cred.scopes, 1)
	assert.Equal(t, []string{server.URL + "/.default"}, cred.scopes[0])

	assert.Equal(t, [][]any{{"t-1"}, {"t-2"}}, result.Rows())
	assert.Equal(t, []string{"TenantId"}, result.Columns())
}

func TestQueryAcquiresFreshTokenPerCall(t *testing.T) {
	var auths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"tables":[]}`))
	}))
	defer server.Close()

	cred := &MockCredential{}
	client := newTestClient(t, server.URL, cred, server.Client())

	for i := 0; i < 2; i++ {
		_, err := client.Query(context.Background(), "Heartbeat")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, cred.calls)
	assert.Equal(t, []string{"Bearer token-1", "Bearer token-2"}, auths)
}

func TestQueryNonSuccessStatusIsTransient(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"code":"Busy"}}`))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, &MockCredential{}, server.Client())
			_, err := client.Query(context.Background(), "Heartbeat")

			require.Error(t, err)
			assert.True(t, errors.IsTransient(err))

			var fe *errors.ForwarderError
			require.True(t, stderrors.As(err, &fe))
			assert.Equal(t, status, fe.Context["status_code"])
			assert.Contains(t, fe.Context["body"], "Busy")
		})
	}
}

func TestQueryTransportFailureIsTransient(t *testing.T) {
	doer := &failingDoer{err: stderrors.New("dial tcp: connection refused")}
	client := newTestClient(t, "https://api.loganalytics.io", &MockCredential{}, doer)

	_, err := client.Query(context.Background(), "Heartbeat")

	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, doer.calls)
}

func TestQueryMalformedBodyIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tables": [`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, &MockCredential{}, server.Client())
	_, err := client.Query(context.Background(), "Heartbeat")

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
	assert.False(t, errors.IsTransient(err))
}

func TestQueryCredentialFailureSkipsRequest(t *testing.T) {
	doer := &failingDoer{}
	cred := &MockCredential{err: stderrors.New("DefaultAzureCredential: no credential in chain")}
	client := newTestClient(t, "https://api.loganalytics.io", cred, doer)

	_, err := client.Query(context.Background(), "Heartbeat")

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCredential))
	assert.Equal(t, 0, doer.calls)
}

func TestQueryRejectsEmptyQuery(t *testing.T) {
	cred := &MockCredential{}
	client := newTestClient(t, "https://api.loganalytics.io", cred, &failingDoer{})

	_, err := client.Query(context.Background(), "  ")

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Equal(t, 0, cred.calls)
}

func TestNewClientRequiresWorkspace(t *testing.T) {
	_, err := NewClient(ClientConfig{Endpoint: "https://api.loganalytics.io"}, &MockCredential{}, http.DefaultClient, nil)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestQueryURLEscapesWorkspace(t *testing.T) {
	client := newTestClient(t, "https://api.loganalytics.io/", &MockCredential{}, &failingDoer{})

	assert.Equal(t, "https://api.loganalytics.io/v1/workspaces/ws-42/query", client.QueryURL())
}

func TestExcerptTruncatesLongBodies(t *testing.T) {
	long := bytes.Repeat([]byte("x"), maxErrorBodyBytes+10)

	out := excerpt(long)

	assert.Len(t, out, maxErrorBodyBytes+3)
}

func TestExcerptKeepsRunesWhole(t *testing.T) {
	// a three-byte rune straddles the cut
	body := append(bytes.Repeat([]byte("x"), maxErrorBodyBytes-1), []byte("€€")...)

	out := excerpt(body)

	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("x", maxErrorBodyBytes-1)+"...", out)
}
