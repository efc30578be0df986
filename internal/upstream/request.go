package upstream

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

	"github.com/merchkit/storefront/pkg/config"
	pkgerrors "github.com/merchkit/storefront/pkg/errors"
	"github.com/merchkit/storefront/pkg/logger"
	"github.com/merchkit/storefront/pkg/metrics"
)

const defaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an upstream error payload is read for a message.
const maxErrorBody = 64 << 10

var (
	errBaseURLRequired = errors.New("upstream base url is required")
	errSlugRequired    = errors.New("store slug is required")
)

// Client holds shared transport state for the store API. It is safe for
// concurrent use; per-store views are created with ForStore.
type Client struct {
	baseURL *url.URL
	apiKey  string
	timeout time.Duration
	httpc   *http.Client
	logger  *logger.Logger
	metrics *metrics.UpstreamMetrics
}

// NewClient validates the upstream configuration and builds the shared client.
func NewClient(cfg config.UpstreamConfig, logg *logger.Logger, m *metrics.UpstreamMetrics) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errBaseURLRequired
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: parsed,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		timeout: timeout,
		httpc:   &http.Client{},
		logger:  logg,
		metrics: m,
	}, nil
}

// Ping checks that the store API host answers at all, for readiness checks.
// Any HTTP response counts; only transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store api unreachable")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// ForStore binds the client to a single store slug.
func (c *Client) ForStore(slug string) (*StoreClient, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, errSlugRequired
	}
	return &StoreClient{client: c, slug: slug}, nil
}

// StoreClient exposes the store API operations for one store.
type StoreClient struct {
	client *Client
	slug   string
}

// Slug returns the bound store identifier.
func (s *StoreClient) Slug() string {
	if s == nil {
		return ""
	}
	return s.slug
}

// do issues one request and records metrics and logs for the operation.
func (s *StoreClient) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	err := s.roundTrip(ctx, method, path, query, body, out)
	s.client.metrics.ObserveDuration(op, time.Since(start))
	if err != nil {
		s.client.metrics.IncFailure(op, string(pkgerrors.As(err).Code()))
		s.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return err
	}
	s.client.metrics.IncSuccess(op)
	return nil
}

func (s *StoreClient) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.client.timeout)
	defer cancel()

	target := s.client.baseURL.JoinPath("api", "store", s.slug)
	target = target.JoinPath(strings.Split(strings.Trim(path, "/"), "/")...)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.client.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.client.apiKey)
	}

	resp, err := s.client.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, fmt.Sprintf("%s %s exceeded %s", method, path, s.client.timeout))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store api unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := errorMessage(raw, resp.Status)
		return pkgerrors.New(codeForStatus(resp.StatusCode), message).WithUpstreamStatus(resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// The deadline can fire while the body is still streaming in.
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, fmt.Sprintf("%s %s exceeded %s", method, path, s.client.timeout))
		}
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode response body").WithUpstreamStatus(resp.StatusCode)
	}
	return nil
}

// errorMessage extracts a human-readable message from an upstream error body,
// falling back to the HTTP status line when the body cannot be parsed.
func errorMessage(raw []byte, statusText string) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return statusText
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &nested); err == nil {
		if msg := strings.TrimSpace(nested.Error.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(nested.Message); msg != "" {
			return msg
		}
	}

	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &flat); err == nil {
		if msg := strings.TrimSpace(flat.Error); msg != "" {
			return msg
		}
	}

	return statusText
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	default:
		return pkgerrors.CodeUpstream
	}
}

func (s *StoreClient) log(ctx context.Context, phase, op string, fields map[string]any) {
	if s == nil || s.client.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation":  op,
		"phase":      phase,
		"store_slug": s.slug,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = s.client.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		s.client.logger.Error(ctx, fmt.Sprintf("store api %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		s.client.logger.Info(ctx, fmt.Sprintf("store api %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"email", "phone", "address", "customer", "instructions"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
