package companion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"git.home.luguber.info/inful/bridgewatch/internal/config"
	bwerrors "git.home.luguber.info/inful/bridgewatch/internal/errors"
	"git.home.luguber.info/inful/bridgewatch/internal/logfields"
)

const maxReplyBytes = 64 << 10

// Client probes companion servers. It holds no connection state; every call
// is independent and safe for concurrent use.
type Client struct {
	http         *http.Client
	identityPath string
	wipePath     string
	signature    string
	logger       *slog.Logger
}

// NewClient builds a client for the discovery section. A nil httpClient
// selects a non-pooled cleanhttp client.
func NewClient(cfg config.DiscoveryConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = cleanhttp.DefaultClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		http:         httpClient,
		identityPath: cfg.IdentityPath,
		wipePath:     cfg.WipePath,
		signature:    cfg.Signature,
		logger:       logger,
	}
	if c.identityPath == "" {
		c.identityPath = config.DefaultIdentityPath
	}
	if c.wipePath == "" {
		c.wipePath = config.DefaultWipePath
	}
	if c.signature == "" {
		c.signature = config.DefaultSignature
	}
	return c
}

// mergeDeadline derives a context that ends when parent ends or timeout
// elapses, whichever comes first. context.Cause on the result tells the two
// apart.
func mergeDeadline(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeoutCause(parent, timeout, errProbeTimeout)
}

// Check performs one identity probe against host:port.
func (c *Client) Check(ctx context.Context, host string, port int, timeout time.Duration) ProbeResult {
	res := ProbeResult{Host: host, Port: port}
	if ctx.Err() != nil {
		res.Outcome = Cancelled
		res.Err = context.Cause(ctx)
		return res
	}

	probeCtx, cancel := mergeDeadline(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, baseURL(host, port)+c.identityPath, nil)
	if err != nil {
		res.Err = err
		return res
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.failed(ctx, probeCtx, res, err)
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res.Err = fmt.Errorf("server returned %d", resp.StatusCode)
		return res
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return c.failed(ctx, probeCtx, res, err)
	}

	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		res.Outcome = WrongService
		res.Err = fmt.Errorf("malformed identity reply: %w", err)
		return res
	}
	if id.Signature != c.signature {
		res.Outcome = WrongService
		res.Err = errSignatureMismatch
		return res
	}

	// A result that lands after the session was cancelled must be discarded.
	if ctx.Err() != nil {
		res.Outcome = Cancelled
		res.Err = context.Cause(ctx)
		return res
	}

	id.Host = host
	if config.ValidatePort(id.Port) != nil {
		id.Port = port
	}
	res.Outcome = Matched
	res.Identity = &id
	return res
}

func (c *Client) failed(parent, probeCtx context.Context, res ProbeResult, err error) ProbeResult {
	switch {
	case parent.Err() != nil:
		res.Outcome = Cancelled
		res.Err = context.Cause(parent)
	case errors.Is(context.Cause(probeCtx), errProbeTimeout):
		res.Outcome = Unreachable
		res.Err = errProbeTimeout
	default:
		res.Outcome = Unreachable
		res.Err = err
	}
	return res
}

// Test is the explicit user-initiated connection test. Unlike Check it
// returns a classified error describing what went wrong.
func (c *Client) Test(ctx context.Context, host string, port int, timeout time.Duration) (*Identity, error) {
	res := c.Check(ctx, host, port, timeout)
	c.logger.Debug("Connection test finished",
		logfields.Host(host), logfields.Port(port), logfields.ProbeResult(res.Outcome.String()))

	switch res.Outcome {
	case Matched:
		return res.Identity, nil
	case WrongService:
		return nil, bwerrors.WrongService(host, port)
	case Cancelled:
		return nil, fmt.Errorf("connection test cancelled: %w", res.Err)
	default:
		if res.StatusCode != 0 {
			return nil, bwerrors.ServerUnreachable(host, port, res.Err).WithContext("status", res.StatusCode)
		}
		return nil, bwerrors.ServerUnreachable(host, port, res.Err)
	}
}

// WipeLogs asks the server to drop its collected logs and returns the
// server's message.
func (c *Client) WipeLogs(ctx context.Context, host string, port int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL(host, port)+c.wipePath, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", bwerrors.ServerUnreachable(host, port, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", bwerrors.ServerUnreachable(host, port, fmt.Errorf("server returned %d", resp.StatusCode))
	}

	var reply struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBytes)).Decode(&reply); err != nil {
		return "", fmt.Errorf("decode wipe reply: %w", err)
	}
	c.logger.Info("Server logs wiped", logfields.Host(host), logfields.Port(port))
	return reply.Message, nil
}

func baseURL(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}
