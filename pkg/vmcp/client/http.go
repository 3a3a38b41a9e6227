// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package client

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

	"dario.cat/mergo"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/vmcp-labs/vmcp-console/pkg/logger"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp"
	"github.com/vmcp-labs/vmcp-console/pkg/vmcp/config"
)

// vmcpsPath is the configuration collection endpoint on the console backend.
const vmcpsPath = "/api/v1/vmcps"

// HTTPOptions configures the HTTP backend client.
type HTTPOptions struct {
	// BaseURL is the console backend base URL, e.g. "http://localhost:8000".
	BaseURL string

	// AuthToken is sent as a bearer token when set.
	AuthToken string

	// Timeout bounds a single request attempt.
	Timeout time.Duration

	// MaxTries is the total number of attempts for transient failures,
	// including the initial one. Validation failures are never retried.
	MaxTries uint

	// HTTPClient overrides the underlying client; mainly for tests.
	HTTPClient *http.Client
}

// defaultHTTPOptions returns the default client settings.
func defaultHTTPOptions() HTTPOptions {
	return HTTPOptions{
		Timeout:  30 * time.Second,
		MaxTries: 3,
	}
}

// HTTPBackend implements Backend over the console's REST API.
type HTTPBackend struct {
	baseURL  *url.URL
	token    string
	maxTries uint
	client   *http.Client
}

// envelope is the backend's response wrapper. Anything that does not decode
// into this shape is an error: there is no defensive shape guessing here,
// the normalization boundary fails loudly instead.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewHTTPBackend creates an HTTP backend client. Zero-valued options are
// filled with defaults; BaseURL is required.
func NewHTTPBackend(opts HTTPOptions) (*HTTPBackend, error) {
	// Merge defaults into the options, only filling zero values.
	if err := mergo.Merge(&opts, defaultHTTPOptions()); err != nil {
		return nil, fmt.Errorf("applying client defaults: %w", err)
	}

	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", vmcp.ErrFetchFailed)
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL %q: %w", vmcp.ErrFetchFailed, opts.BaseURL, err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPBackend{
		baseURL:  base,
		token:    opts.AuthToken,
		maxTries: opts.MaxTries,
		client:   httpClient,
	}, nil
}

// FetchConfiguration retrieves the canonical snapshot for a vMCP.
func (b *HTTPBackend) FetchConfiguration(ctx context.Context, identity string) (*config.Snapshot, error) {
	if identity == "" || config.IsNew(identity) {
		return nil, fmt.Errorf("%w: cannot fetch unsaved identity %q", vmcp.ErrFetchFailed, identity)
	}

	snapshot, err := b.do(ctx, http.MethodGet, vmcpsPath+"/"+url.PathEscape(identity), nil)
	if err != nil {
		return nil, wrapOp(vmcp.ErrFetchFailed, "fetch", identity, err)
	}
	return snapshot, nil
}

// CreateConfiguration publishes a new vMCP composition.
func (b *HTTPBackend) CreateConfiguration(ctx context.Context, snapshot *config.Snapshot) (*config.Snapshot, error) {
	created, err := b.do(ctx, http.MethodPost, vmcpsPath, snapshot)
	if err != nil {
		return nil, wrapOp(vmcp.ErrPersistFailed, "create", snapshot.Identity, err)
	}
	return created, nil
}

// UpdateConfiguration replaces an existing vMCP's configuration.
func (b *HTTPBackend) UpdateConfiguration(ctx context.Context, identity string, snapshot *config.Snapshot) (*config.Snapshot, error) {
	if identity == "" || config.IsNew(identity) {
		return nil, fmt.Errorf("%w: cannot update unsaved identity %q", vmcp.ErrPersistFailed, identity)
	}

	updated, err := b.do(ctx, http.MethodPut, vmcpsPath+"/"+url.PathEscape(identity), snapshot)
	if err != nil {
		return nil, wrapOp(vmcp.ErrPersistFailed, "update", identity, err)
	}
	return updated, nil
}

// do performs one API call with retry on transient failures and decodes the
// response through the normalization boundary.
func (b *HTTPBackend) do(ctx context.Context, method, path string, body *config.Snapshot) (*config.Snapshot, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("encoding snapshot: %w", err))
		}
	}

	operation := func() (*config.Snapshot, error) {
		return b.attempt(ctx, method, path, payload)
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 200 * time.Millisecond

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(b.maxTries),
		backoff.WithNotify(func(err error, duration time.Duration) {
			logger.Debugf("retrying %s %s after %v: %v", method, path, duration, err)
		}),
	)
}

// attempt performs a single request. Permanent errors (validation, not
// found, malformed responses) are wrapped so the retry loop stops.
func (b *HTTPBackend) attempt(ctx context.Context, method, path string, payload []byte) (*config.Snapshot, error) {
	u := *b.baseURL
	u.Path = path

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		// Transport errors are transient and retried.
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", vmcp.ErrNotFound, bodyMessage(data)))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", vmcp.ErrValidationFailed, bodyMessage(data)))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, bodyMessage(data))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("unexpected response shape: %w", err))
	}
	if !env.Success {
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", vmcp.ErrValidationFailed, env.Message))
	}

	var raw config.Snapshot
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("unexpected snapshot shape: %w", err))
	}

	normalized, err := config.Normalize(&raw)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return normalized, nil
}

// wrapOp wraps an operation failure with its sentinel unless the error is
// already a more specific domain error.
func wrapOp(sentinel error, op, identity string, err error) error {
	if isDomainError(err) {
		return fmt.Errorf("%s %s: %w", op, identity, err)
	}
	return fmt.Errorf("%w: %s %s: %w", sentinel, op, identity, err)
}

func isDomainError(err error) bool {
	for _, sentinel := range []error{
		vmcp.ErrNotFound, vmcp.ErrValidationFailed, vmcp.ErrMalformedConfig,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// bodyMessage extracts the backend's message from an error body, falling
// back to the truncated raw body for non-envelope responses.
func bodyMessage(data []byte) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Message != "" {
		return env.Message
	}
	text := strings.TrimSpace(string(data))
	if len(text) > 256 {
		text = text[:256]
	}
	return text
}
