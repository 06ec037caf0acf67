package loganalytics

import (
	"context"
	"net/http"
)

// HTTPDoer issues a single HTTP request. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// QueryInterface executes one analytics query against a workspace
type QueryInterface interface {
	Query(ctx context.Context, query string) (*Result, error)
}
