package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for the endpoint rooted at baseURL,
// e.g. "http://127.0.0.1:8080/api/say-what/v1". A zero timeout means none.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) settingsURL(id string) string {
	return c.baseURL + "/settings/" + url.PathEscape(id)
}

func (c *HTTPClient) GetSettings(ctx context.Context, id, bearer, eTag string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.settingsURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if eTag != "" {
		req.Header.Set("If-None-Match", quote(eTag))
	}
	return c.do(req)
}

func (c *HTTPClient) PutSettings(ctx context.Context, id, bearer, eTag string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.settingsURL(id), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("If-None-Match", quote(eTag))
	return c.do(req)
}

func (c *HTTPClient) PostSettings(ctx context.Context, id string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settingsURL(id), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) (*Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}

	return &Response{Status: resp.StatusCode, ETag: resp.Header.Get("ETag"), Body: body}, nil
}

func quote(eTag string) string {
	return `"` + eTag + `"`
}
