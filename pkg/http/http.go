package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/glorpus-work/gogenome/internal/logger"
	"github.com/glorpus-work/gogenome/pkg/errors"
)

// Client handles HTTP operations against provider sites.
type Client struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewClient creates a client whose connect, TLS handshake and response header
// waits are each bounded by timeout. A response body that delivers no data
// for timeout fails with ErrTransportTimeout. The total transfer time is not
// limited, so multi-gigabyte transfers are not cut off.
func NewClient(timeout time.Duration, userAgent string) *Client {
	if userAgent == "" {
		userAgent = "gogenome/0.1"
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	return &Client{
		client:    &http.Client{Transport: transport},
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Open issues a GET request and returns the body of a 200 response.
// The body is guarded by the client's idle timeout.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	resp, err := c.do(reqCtx, http.MethodGet, rawURL)
	if err != nil {
		cancel()
		return nil, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		cancel()
		return nil, 0, fmt.Errorf("GET %s: unexpected status code: %d: %w", rawURL, resp.StatusCode, errors.ErrDownloadFailed)
	}
	return newIdleBody(resp.Body, c.timeout, cancel, rawURL), resp.ContentLength, nil
}

// GetText returns the body of rawURL as a string.
func (c *Client) GetText(ctx context.Context, rawURL string) (string, error) {
	body, _, err := c.Open(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", classify(ctx, err, rawURL)
	}
	return string(data), nil
}

// GetJSON decodes the JSON body of rawURL into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, _, err := c.Open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		if ctx.Err() != nil || stderrors.Is(err, errors.ErrTransportTimeout) {
			return classify(ctx, err, rawURL)
		}
		return fmt.Errorf("decode %s: %v: %w", rawURL, err, errors.ErrDownloadFailed)
	}
	return nil
}

// Exists reports whether rawURL answers HEAD with 200. Any other status, or a
// connection failure, is a plain "no". Timeouts and cancellation are returned
// so that callers do not mistake a slow mirror for a missing file.
func (c *Client) Exists(ctx context.Context, rawURL string) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		if errors.IsRetryable(err) || ctx.Err() != nil {
			return false, err
		}
		logger.Debug("existence check failed", logger.Fields{"url": rawURL, "error": err})
		return false, nil
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

var hrefPattern = regexp.MustCompile(`(?i)href\s*=\s*"([^"?#]+)"`)

// ListLinks returns the href targets of an HTML directory listing in page order.
func (c *Client) ListLinks(ctx context.Context, rawURL string) ([]string, error) {
	page, err := c.GetText(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	var links []string
	for _, m := range hrefPattern.FindAllStringSubmatch(page, -1) {
		if strings.HasPrefix(m[1], "/") || strings.HasPrefix(m[1], "..") {
			continue
		}
		links = append(links, m[1])
	}
	return links, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	logger.Debug("http request", logger.Fields{"method": method, "url": rawURL})
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classify(ctx, err, rawURL)
	}
	return resp, nil
}

// classify maps transport failures onto ErrTransportTimeout or ErrDownloadFailed.
func classify(ctx context.Context, err error, rawURL string) error {
	if stderrors.Is(err, errors.ErrTransportTimeout) {
		return err
	}
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %v: %w", rawURL, err, errors.ErrTransportTimeout)
	}
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), rawURL)
	}
	return fmt.Errorf("%s: %v: %w", rawURL, err, errors.ErrDownloadFailed)
}
