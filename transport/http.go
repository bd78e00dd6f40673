package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds connect, read and write of every request.
const DefaultTimeout = 30 * time.Second

const maxResponseBody = 1 << 20

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	// BaseURL is the API root, e.g. "https://api.example.com/". Endpoint
	// paths are resolved relative to it.
	BaseURL string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	// LogBodies logs redacted request and response bodies at debug level.
	LogBodies bool

	Logger *slog.Logger

	// Client overrides the underlying HTTP client. Timeout is ignored
	// when it is set.
	Client *http.Client
}

// HTTPClient is a Transport backed by a JSON HTTP API.
type HTTPClient struct {
	base      *url.URL
	client    *http.Client
	logger    *slog.Logger
	logBodies bool
}

// NewHTTPClient validates opts and returns a client.
func NewHTTPClient(opts HTTPOptions) (*HTTPClient, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidBaseURL)
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidBaseURL, base.Scheme)
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.DialContext = (&net.Dialer{Timeout: timeout}).DialContext
		tr.ResponseHeaderTimeout = timeout
		client = &http.Client{Timeout: timeout, Transport: tr}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPClient{
		base:      base,
		client:    client,
		logger:    logger,
		logBodies: opts.LogBodies,
	}, nil
}

func (c *HTTPClient) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "auth/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Validate(ctx context.Context, token string) (*ValidateResponse, error) {
	var out ValidateResponse
	if err := c.do(ctx, http.MethodGet, "auth/validate", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "auth/logout", token, nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, body []byte, out any) error {
	endpoint := c.base.ResolveReference(&url.URL{Path: path})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if c.logBodies {
		attrs := []any{slog.String("method", method), slog.String("url", endpoint.String())}
		if token != "" {
			attrs = append(attrs, RedactedAttr("authorization", req.Header.Get("Authorization")))
		}
		if body != nil {
			attrs = append(attrs, RedactedAttr("body", string(body)))
		}
		c.logger.DebugContext(ctx, "transport request", attrs...)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.Join(ErrCanceled, ctx.Err())
		}
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}
	if c.logBodies {
		c.logger.DebugContext(ctx, "transport response",
			slog.String("url", endpoint.String()),
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)),
			RedactedAttr("body", string(data)),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: serverMessage(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// serverMessage extracts the "message" field of an error body, if any.
func serverMessage(data []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &envelope) != nil {
		return ""
	}
	return envelope.Message
}
