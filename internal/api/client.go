// Package api talks to the court booking service over HTTP. Client is the
// remote booking.Backend; Server exposes any booking.Backend under the same
// routes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/javiermolinar/courtdesk/internal/booking"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "courtdesk"

	// RequestIDHeader carries a per-request id so command retries can be
	// traced on the server.
	RequestIDHeader = "X-Request-ID"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: %s: %s", e.Status, e.Body)
}

// Is maps well-known status codes onto the booking sentinel errors.
func (e *StatusError) Is(target error) bool {
	switch e.Code {
	case http.StatusNotFound:
		return target == booking.ErrNotFound
	case http.StatusConflict:
		return target == booking.ErrConflict
	case http.StatusForbidden:
		return target == booking.ErrCategoryDenied
	}
	return false
}

// Client is a booking.Backend backed by the REST API.
type Client struct {
	HTTP        *http.Client
	BaseURL     string
	UserAgent   string
	AccessToken string
}

var _ booking.Backend = (*Client)(nil)

// NewClient creates a client for baseURL. A zero timeout uses the default.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		HTTP:        &http.Client{Timeout: timeout},
		BaseURL:     baseURL,
		UserAgent:   defaultUserAgent,
		AccessToken: token,
	}
}

// Close drops idle keep-alive connections.
func (c *Client) Close() error {
	c.HTTP.CloseIdleConnections()
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload any) (*http.Request, error) {
	// path segments arrive escaped, so parse the joined string rather than
	// assigning URL.Path.
	base, err := url.Parse(strings.TrimSuffix(c.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	if query != nil {
		base.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, base.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if c.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	}
	return req, nil
}

func (c *Client) doJSON(req *http.Request, dest any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) doStatus(req *http.Request) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkResponse(resp)
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	msg := strings.TrimSpace(string(body))
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		msg = er.Error
	}
	return &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: msg}
}
