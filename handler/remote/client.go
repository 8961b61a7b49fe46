// Package remote implements the HTTP registry client. The wire contract is
// deliberately plain: three idempotent GET endpoints answering with a small
// closed set of sentinel body strings or a handler definition blob.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inlay-dev/inlay-core/handler/entities"
	"github.com/inlay-dev/inlay-core/handler/manifest"
	"github.com/inlay-dev/inlay-core/handler/ports"
	"github.com/inlay-dev/inlay-core/handler/values"
	"github.com/inlay-dev/inlay-core/netutil"
)

const (
	// Sentinel bodies of the registry wire contract.
	sentinelNotFound = "not found"
	sentinelNoUpdate = "no update"

	pathType    = "/handler/type"
	pathVersion = "/handler/version"
	pathCode    = "/handler/code"

	// DefaultMaxCodeBytes bounds a single definition download.
	DefaultMaxCodeBytes = 1 << 20

	defaultAttempts       = 3
	defaultAttemptTimeout = 10 * time.Second
)

// ErrRegistryUnavailable anchors transport-level registry failures.
var ErrRegistryUnavailable = errors.New("registry unavailable")

// UnavailableError reports that a registry endpoint could not be reached or
// answered with a server failure after all retry attempts.
type UnavailableError struct {
	Endpoint string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("registry unavailable at %s: %v", e.Endpoint, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrRegistryUnavailable }

// ContentError reports that the registry answered, but with a body this
// client does not recognize. It is distinct from not-found on purpose: a
// misbehaving server must not look like a missing handler.
type ContentError struct {
	Endpoint string
	Detail   string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("registry returned unusable content from %s: %s", e.Endpoint, e.Detail)
}

// Client talks to one registry base URL. It implements ports.Registry.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	maxCodeBytes int64
	logger       *slog.Logger
}

var _ ports.Registry = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client, dropping the
// default retrying transport. Intended for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxCodeBytes overrides the definition download size bound.
func WithMaxCodeBytes(n int64) Option {
	return func(c *Client) { c.maxCodeBytes = n }
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetryPolicy configures the bounded retry loop of the default
// transport: attempts per call and the per-attempt timeout.
func WithRetryPolicy(attempts int, attemptTimeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = newHTTPClient(attempts, attemptTimeout)
	}
}

// NewClient creates a registry client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   newHTTPClient(defaultAttempts, defaultAttemptTimeout),
		maxCodeBytes: DefaultMaxCodeBytes,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient(attempts int, attemptTimeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &netutil.RetryTransport{
			Base:     http.DefaultTransport,
			Attempts: attempts,
		},
		Timeout: attemptTimeout,
	}
}

// QueryType asks the registry which kind the named handler has.
func (c *Client) QueryType(ctx context.Context, name values.Name) (entities.Kind, error) {
	body, err := c.get(ctx, pathType, url.Values{"name": {name.Key()}})
	if err != nil {
		return 0, err
	}

	if body == sentinelNotFound {
		return 0, &entities.NotFoundError{Name: name}
	}
	kind, err := entities.ParseKind(body)
	if err != nil {
		return 0, &ContentError{Endpoint: pathType, Detail: fmt.Sprintf("unrecognized kind %q", body)}
	}
	return kind, nil
}

// QueryLatestVersion asks for the newest version compatible with the given
// protocol. With bugfixOnly set, the registry restricts candidates to the
// local version's functional line.
func (c *Client) QueryLatestVersion(
	ctx context.Context,
	name values.Name,
	protocol values.Version,
	bugfixOnly bool,
	local values.Version,
) (ports.RemoteVersionInfo, error) {
	query := url.Values{
		"name":     {name.Key()},
		"protocol": {protocol.String()},
	}
	if !local.IsZero() {
		query.Set("local", local.String())
	}
	if bugfixOnly {
		query.Set("bugfix_only", "1")
	}

	body, err := c.get(ctx, pathVersion, query)
	if err != nil {
		return ports.RemoteVersionInfo{}, err
	}

	switch body {
	case sentinelNotFound:
		return ports.RemoteVersionInfo{}, nil
	case sentinelNoUpdate:
		return ports.RemoteVersionInfo{Found: true}, nil
	}

	fields := strings.Fields(body)
	if len(fields) != 2 {
		return ports.RemoteVersionInfo{}, &ContentError{
			Endpoint: pathVersion,
			Detail:   fmt.Sprintf("unrecognized answer %q", body),
		}
	}
	version, err := values.ParseVersion(fields[0])
	if err != nil {
		return ports.RemoteVersionInfo{}, &ContentError{
			Endpoint: pathVersion,
			Detail:   fmt.Sprintf("bad version %q", fields[0]),
		}
	}
	kind, err := values.ParseUpdateKind(fields[1])
	if err != nil {
		return ports.RemoteVersionInfo{}, &ContentError{
			Endpoint: pathVersion,
			Detail:   fmt.Sprintf("bad update kind %q", fields[1]),
		}
	}
	return ports.RemoteVersionInfo{Version: version, Kind: kind, Found: true, Update: true}, nil
}

// FetchCode downloads a handler definition. The bytes must carry the
// definition magic marker; anything else is a content failure.
func (c *Client) FetchCode(ctx context.Context, name values.Name, version values.Version) ([]byte, error) {
	query := url.Values{
		"name":    {name.Key()},
		"version": {version.String()},
	}
	data, err := c.getRaw(ctx, pathCode, query, c.maxCodeBytes)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(string(data)) == sentinelNotFound {
		return nil, &entities.NotFoundError{Name: name}
	}
	if !manifest.Sniff(data) {
		return nil, &ContentError{
			Endpoint: pathCode,
			Detail:   fmt.Sprintf("response for %s@%s is not a handler definition", name, version),
		}
	}
	return data, nil
}

// get performs one sentinel-answer request. Sentinel bodies are short.
func (c *Client) get(ctx context.Context, path string, query url.Values) (string, error) {
	data, err := c.getRaw(ctx, path, query, 4096)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (c *Client) getRaw(ctx context.Context, path string, query url.Values, limit int64) ([]byte, error) {
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building registry request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("registry request failed", "path", path, "error", err)
		return nil, &UnavailableError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UnavailableError{
			Endpoint: path,
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(netutil.NewLimitedReader(resp.Body, limit))
	if err != nil {
		if netutil.IsSizeLimitExceededError(err) {
			return nil, &ContentError{
				Endpoint: path,
				Detail:   fmt.Sprintf("response exceeds %s", netutil.FormatSize(limit)),
			}
		}
		return nil, &UnavailableError{Endpoint: path, Err: err}
	}
	return data, nil
}
