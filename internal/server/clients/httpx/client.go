// Package httpx is the plumbing shared by the downstream service clients:
// base URL handling, request ids, timeouts, error decoding and the
// compensation runner the sagas are built on.
package httpx

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

	"github.com/dmitrijs2005/drivegate/internal/common"
)

// maxErrorBody bounds how much of a failed response is read for decoding.
const maxErrorBody = 64 << 10

// NewTransport returns a pooled transport shared by all downstream clients.
func NewTransport(responseHeaderTimeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ResponseHeaderTimeout = responseHeaderTimeout
	t.MaxIdleConnsPerHost = 32
	return t
}

// Client issues requests against one downstream service.
type Client struct {
	baseURL *url.URL
	hc      *http.Client
	timeout time.Duration
}

// NewClient builds a Client for baseURL. timeout bounds every DoJSON call;
// streaming callers set their own deadline on the context.
func NewClient(baseURL string, hc *http.Client, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: u, hc: hc, timeout: timeout}, nil
}

// Timeout is the per-call timeout of non-streaming calls.
func (c *Client) Timeout() time.Duration { return c.timeout }

// URL joins escaped path segments onto the base URL.
func (c *Client) URL(query url.Values, segments ...string) string {
	u := *c.baseURL
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.RawPath = c.baseURL.EscapedPath() + "/" + strings.Join(escaped, "/")
	u.Path = c.baseURL.Path + "/" + strings.Join(segments, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// NewRequest builds a request carrying the request id found in ctx.
func (c *Client) NewRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if id := common.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(common.RequestIDHeaderName, id)
	}
	return req, nil
}

// Do sends req. Any non-2xx answer is decoded into an error and the body is
// closed; on success the caller owns resp.Body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", req.Method, req.URL.Path, common.ErrInternal, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, DecodeError(req, resp)
	}
	return resp, nil
}

// DoJSON sends in as a JSON body (when non-nil) and decodes the answer into
// out (when non-nil). The call is bounded by the client timeout.
func (c *Client) DoJSON(ctx context.Context, method string, query url.Values, in, out any, segments ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.NewRequest(ctx, method, c.URL(query, segments...), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w: %w", method, req.URL.Path, common.ErrInternal, err)
	}
	return nil
}

// DecodeError turns a failed response into *common.ServiceError when the body
// has the {code, message} shape, and into an ErrInternal wrap otherwise.
func DecodeError(req *http.Request, resp *http.Response) error {
	status := fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Code != nil && body.Message != "" {
		return &common.ServiceError{
			Code:    fmt.Sprint(body.Code),
			Message: body.Message,
			Status:  resp.StatusCode,
			Cause:   status,
		}
	}

	return fmt.Errorf("%w: %w", status, common.ErrInternal)
}

// IsNotFound reports whether err is a downstream NOT_FOUND / 404.
func IsNotFound(err error) bool {
	if se, ok := common.AsServiceError(err); ok {
		return se.Code == "NOT_FOUND" || se.Status == http.StatusNotFound
	}
	return errors.Is(err, common.ErrorNotFound)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// BodyWithCancel ties cancel to the body so a streaming deadline lives
// exactly as long as the caller reads.
func BodyWithCancel(body io.ReadCloser, cancel context.CancelFunc) io.ReadCloser {
	return &cancelOnClose{ReadCloser: body, cancel: cancel}
}
