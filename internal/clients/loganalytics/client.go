package loganalytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"forwarder/internal/buildinfo"
	"forwarder/internal/errors"
	"forwarder/internal/logging"
)

const maxErrorBodyBytes = 512

// ClientConfig holds the values fixed at construction time
type ClientConfig struct {
	Endpoint    string
	WorkspaceID string
	Scope       string
}

// Client runs queries against the Log Analytics query API
type Client struct {
	config     ClientConfig
	queryURL   string
	credential azcore.TokenCredential
	httpClient HTTPDoer
	logger     *logging.Logger
}

type queryRequest struct {
	Query string `json:"query"`
}

// NewClient creates a query client for one workspace. The credential is
// asked for a fresh token on every query.
func NewClient(cfg ClientConfig, credential azcore.TokenCredential, httpClient HTTPDoer, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.WorkspaceID) == "" {
		return nil, errors.Configuration("log analytics workspace id is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.Configuration("log analytics endpoint is required")
	}
	if credential == nil || httpClient == nil {
		return nil, errors.Configuration("log analytics client needs a credential and an http client")
	}
	if cfg.Scope == "" {
		cfg.Scope = strings.TrimRight(cfg.Endpoint, "/") + "/.default"
	}
	if logger == nil {
		logger = logging.NewDefaultLogger("loganalytics")
	}

	return &Client{
		config: cfg,
		queryURL: fmt.Sprintf("%s/v1/workspaces/%s/query",
			strings.TrimRight(cfg.Endpoint, "/"), url.PathEscape(cfg.WorkspaceID)),
		credential: credential,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// QueryURL returns the endpoint queries are posted to
func (c *Client) QueryURL() string {
	return c.queryURL
}

// Query posts query to the workspace and decodes the JSON response.
//
// Transport failures and non-2xx statuses return a transient query error.
// A 2xx body that is not valid JSON returns a parse error.
func (c *Client) Query(ctx context.Context, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.Validation("query must not be empty")
	}

	body, err := json.Marshal(queryRequest{Query: query})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode query request")
	}

	token, err := c.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{c.config.Scope}})
	if err != nil {
		return nil, errors.Credential(err).WithContext("scope", c.config.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create query request")
	}
	c.setHeaders(req, token.Token)

	c.logger.Debug("POST %s", c.queryURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.TransientQuery("query request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.TransientQuery("failed to read query response", err).
			WithContext("status_code", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.TransientQuery(
			fmt.Sprintf("query returned status %s", resp.Status), nil).
			WithContext("status_code", resp.StatusCode).
			WithContext("body", excerpt(payload))
	}

	result, err := ParseResult(payload)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
}

// excerpt shortens body for error context without splitting a UTF-8 rune
func excerpt(body []byte) string {
	if len(body) <= maxErrorBodyBytes {
		return string(body)
	}
	cut := maxErrorBodyBytes
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
