// Package client calls the offer-codes HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Chia-Network/offer-codes/offer"
)

const maxResponseBytes = 32 << 20

type Client struct {
	baseURL   string
	http      *http.Client
	requestID func() string
}

type Option func(*Client)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRequestID sets a generator for the X-Request-ID header of each call.
func WithRequestID(fn func() string) Option {
	return func(c *Client) { c.requestID = fn }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("offer-codes: HTTP %d", e.Status)
	}
	return fmt.Sprintf("offer-codes: HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

// Upload submits an offer with a signature over its content hash and returns
// the short code.
func (c *Client) Upload(ctx context.Context, offerText string, signature []byte) (offer.Code, error) {
	req := map[string]string{"offer": offerText, "signature": hex.EncodeToString(signature)}
	var resp struct {
		Code string `json:"code"`
	}
	if err := c.call(ctx, "/upload_offer", req, &resp); err != nil {
		return nil, err
	}
	var code offer.Code
	if err := code.UnmarshalText([]byte(resp.Code)); err != nil {
		return nil, fmt.Errorf("offer-codes: server returned bad code: %w", err)
	}
	return code, nil
}

// Download returns the offer stored under code; found is false for an unknown
// code.
func (c *Client) Download(ctx context.Context, code offer.Code) (string, bool, error) {
	var resp struct {
		Offer *string `json:"offer"`
	}
	if err := c.call(ctx, "/download_offer", map[string]string{"code": code.String()}, &resp); err != nil {
		return "", false, err
	}
	if resp.Offer == nil {
		return "", false, nil
	}
	return *resp.Offer, true, nil
}

func (c *Client) call(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.requestID != nil {
		req.Header.Set("X-Request-ID", c.requestID())
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("offer-codes: %s: %w", path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("offer-codes: read %s response: %w", path, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Status: res.StatusCode, RequestID: res.Header.Get("X-Request-ID")}
		var eb struct {
			RequestID string `json:"request_id"`
			Error     struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Code, apiErr.Message = eb.Error.Code, eb.Error.Message
			if eb.RequestID != "" {
				apiErr.RequestID = eb.RequestID
			}
		}
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("offer-codes: decode %s response: %w", path, err)
	}
	return nil
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.Status == http.StatusUnauthorized
}
