package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nodemedic/nodemedic/pkg/buildinfo"
	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/httputil"
	"github.com/nodemedic/nodemedic/pkg/typosquat"
)

const (
	// DefaultBaseURL is where `nodemedic serve` listens by default.
	DefaultBaseURL = "http://localhost:8000"
	// PasteFilename is the upload name used for pasted text.
	PasteFilename = "paste.json"

	defaultTimeout  = 60 * time.Second
	defaultAttempts = 3
	maxErrorBody    = 4 << 10
)

// Client talks to a nodemedic backend. Graph methods return the raw payload
// bytes; callers normalize them so any conforming backend works.
type Client struct {
	baseURL  string
	http     *http.Client
	attempts int
	delay    time.Duration
	logger   *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithRetry sets how often transient failures are attempted and the initial
// backoff delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) { c.attempts, c.delay = attempts, delay }
}

// WithLogger sets the logger for retry diagnostics.
func WithLogger(l *log.Logger) Option { return func(c *Client) { c.logger = l } }

// New returns a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if err := errs.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httputil.NewClient(defaultTimeout),
		attempts: defaultAttempts,
		delay:    time.Second,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchDependencies returns the graph payload for name resolved to depth
// levels below the root.
func (c *Client) FetchDependencies(ctx context.Context, name string, depth int) ([]byte, error) {
	if err := errs.ValidateNpmPackageName(name); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/api/dependencies/%s?depth=%s",
		c.baseURL, url.PathEscape(name), strconv.Itoa(depth))
	return c.send(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
}

// Upload posts a graph file as multipart field "file" and returns the
// payload the backend answers with.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "create upload form")
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "read %s", filename)
	}
	if err := mw.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "close upload form")
	}
	body := buf.Bytes()

	return c.send(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	})
}

// Paste uploads pasted text under [PasteFilename].
func (c *Client) Paste(ctx context.Context, text string) ([]byte, error) {
	return c.Upload(ctx, PasteFilename, strings.NewReader(text))
}

// Find implements [typosquat.Finder] against the typosquat endpoint. Every
// failure, including a body that is not a suggestion list, is reported
// with errors.ErrCodeLookupFailed.
func (c *Client) Find(ctx context.Context, name string) ([]typosquat.Suggestion, error) {
	u := c.baseURL + "/api/typosquats/" + url.PathEscape(name)
	data, err := c.send(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		if errs.Is(err, errs.ErrCodeLookupFailed) {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrCodeLookupFailed, err, "typosquats for %s", name)
	}
	return typosquat.DecodeSuggestions(data)
}

// Ping checks that the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.send(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/ping", nil)
	})
	return err
}

func (c *Client) send(ctx context.Context, newReq func() (*http.Request, error)) ([]byte, error) {
	var out []byte
	attempt := 0
	err := httputil.Retry(ctx, c.attempts, c.delay, func() error {
		attempt++
		req, err := newReq()
		if err != nil {
			return errs.Wrap(errs.ErrCodeInternal, err, "build request")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", buildinfo.UserAgent())

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Debug("request failed", "url", req.URL.String(), "attempt", attempt, "err", err)
			return &httputil.RetryableError{Err: errs.Wrap(errs.ErrCodeNetwork, err, "%s %s", req.Method, req.URL.Path)}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			apiErr := decodeError(resp)
			c.logger.Debug("request rejected", "url", req.URL.String(), "status", resp.StatusCode, "attempt", attempt)
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return &httputil.RetryableError{Err: apiErr, After: httputil.RetryAfter(resp)}
			}
			return apiErr
		}

		out, err = io.ReadAll(resp.Body)
		if err != nil {
			return &httputil.RetryableError{Err: errs.Wrap(errs.ErrCodeNetwork, err, "read response")}
		}
		return nil
	})
	if err != nil {
		return nil, unwrapRetryable(err)
	}
	return out, nil
}

// apiError is the backend's error body.
type apiError struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// decodeError turns a non-200 response into a coded error. The backend's
// own code wins; otherwise the status decides.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body apiError
	_ = json.Unmarshal(data, &body)
	msg := body.Error
	if msg == "" {
		msg = body.Detail
	}
	if msg == "" {
		msg = strings.TrimSpace(string(data))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	code := errs.Code(body.Code)
	if code == "" {
		code = statusCode(resp.StatusCode)
	}
	return errs.New(code, "backend returned %d: %s", resp.StatusCode, msg)
}

func statusCode(status int) errs.Code {
	switch {
	case status == http.StatusNotFound:
		return errs.ErrCodeNotFound
	case status == http.StatusTooManyRequests:
		return errs.ErrCodeRateLimited
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return errs.ErrCodeInvalidInput
	default:
		return errs.ErrCodeNetwork
	}
}

func unwrapRetryable(err error) error {
	if r, ok := err.(*httputil.RetryableError); ok {
		return r.Err
	}
	return err
}
