// Package crawler implements the throttled HTTP scraping layer for the
// auction API: a retrying base client, typed endpoint wrappers, and a
// pool of thread-affine scraper slots.
package crawler

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/pareedo/pigeonwatch/internal/observability"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	maxBodyBytes      = 8 << 20
)

// retryableStatuses mirrors the auction API's transient failure modes.
var retryableStatuses = map[int]bool{
	http.StatusRequestTimeout:      true, // 408
	http.StatusMisdirectedRequest:  true, // 421
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// blockStatuses trigger session recreation before the next request.
var blockStatuses = map[int]bool{
	http.StatusForbidden:          true,
	http.StatusTooManyRequests:    true,
	http.StatusServiceUnavailable: true,
}

// ClientConfig tunes a base crawler client.
type ClientConfig struct {
	BaseHeaders     map[string]string
	UserAgents      []string
	Proxies         []string
	MinDelay        time.Duration
	MaxDelay        time.Duration
	Timeout         time.Duration
	MaxRetries      int
	RecreateOnBlock bool

	// OnResponse and OnError are subclass-style extension hooks.
	OnResponse func(resp *http.Response)
	OnError    func(err error, rawURL, method string)
}

// Client is the base HTTP crawler: one session with throttling, retry,
// and per-request UA/proxy rotation. It is not safe for concurrent use;
// the pool gives every instance a dedicated slot.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	rng     *rand.Rand
	mu      sync.Mutex
	lastReq time.Time
}

// NewClient constructs a crawler client from the provided config.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	client := new(Client)
	client.cfg = cfg
	client.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	client.http = client.newSession()
	if cfg.MinDelay > 0 {
		client.limiter = rate.NewLimiter(rate.Every(cfg.MinDelay), 1)
	}
	return client
}

func (c *Client) newSession() *http.Client {
	transport := &http.Transport{
		Proxy:               c.proxyFunc(),
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   c.cfg.Timeout,
	}
}

// proxyFunc rotates a random proxy per request; nil pool disables it.
func (c *Client) proxyFunc() func(*http.Request) (*url.URL, error) {
	if len(c.cfg.Proxies) == 0 {
		return nil
	}
	return func(*http.Request) (*url.URL, error) {
		c.mu.Lock()
		raw := c.cfg.Proxies[c.rng.Intn(len(c.cfg.Proxies))]
		c.mu.Unlock()
		return url.Parse(raw)
	}
}

// throttle enforces the min-delay lower bound plus uniform jitter. The
// last-request timestamp advances on success and failure alike.
func (c *Client) throttle(ctx context.Context) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if spread := c.cfg.MaxDelay - c.cfg.MinDelay; spread > 0 {
		c.mu.Lock()
		jitter := time.Duration(c.rng.Int63n(int64(spread)))
		c.mu.Unlock()
		timer := time.NewTimer(jitter)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Get issues a throttled, retrying GET. The second return is false when
// the retry policy is exhausted; no error crosses this boundary.
func (c *Client) Get(ctx context.Context, rawURL string, params map[string]string, headers map[string]string, allowStatus ...int) ([]byte, bool) {
	return c.do(ctx, http.MethodGet, rawURL, params, headers, allowStatus)
}

func (c *Client) do(ctx context.Context, method, rawURL string, params, headers map[string]string, allowStatus []int) ([]byte, bool) {
	target, err := composeURL(rawURL, params)
	if err != nil {
		observability.Log().Warn("crawler url compose failed",
			observability.F("url", rawURL),
			observability.F("error", err.Error()))
		return nil, false
	}

	allowed := make(map[int]bool, len(allowStatus))
	for _, s := range allowStatus {
		allowed[s] = true
	}

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = 500 * time.Millisecond
	backoffCfg.MaxInterval = 30 * time.Second

	attempts := c.cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.throttle(ctx); err != nil {
			return nil, false
		}

		body, status, retryAfter, reqErr := c.once(ctx, method, target, headers)

		func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.lastReq = time.Now()
		}()

		if reqErr != nil {
			c.hookError(reqErr, target, method)
			observability.Telemetry().IncCounter("crawler_requests_total", 1,
				map[string]string{"outcome": "transport_error"})
			if c.cfg.RecreateOnBlock {
				c.http = c.newSession()
			}
			if !c.sleepBackoff(ctx, backoffCfg.NextBackOff(), 0) {
				return nil, false
			}
			continue
		}

		if status >= 200 && status < 300 || allowed[status] {
			observability.Telemetry().IncCounter("crawler_requests_total", 1,
				map[string]string{"outcome": "ok"})
			return body, true
		}

		observability.Telemetry().IncCounter("crawler_requests_total", 1,
			map[string]string{"outcome": "http_" + strconv.Itoa(status)})

		if c.cfg.RecreateOnBlock && blockStatuses[status] {
			c.http = c.newSession()
		}
		if !retryableStatuses[status] {
			observability.Log().Warn("crawler non-retryable status",
				observability.F("url", target),
				observability.F("status", status))
			return nil, false
		}
		if !c.sleepBackoff(ctx, backoffCfg.NextBackOff(), retryAfter) {
			return nil, false
		}
	}

	observability.Log().Warn("crawler retries exhausted",
		observability.F("url", target),
		observability.F("attempts", attempts))
	return nil, false
}

// once performs a single request and fully reads the body. retryAfter
// carries the server's Retry-After hint when present.
func (c *Client) once(ctx context.Context, method, target string, headers map[string]string) ([]byte, int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	for k, v := range c.cfg.BaseHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if len(c.cfg.UserAgents) > 0 {
		c.mu.Lock()
		ua := c.cfg.UserAgents[c.rng.Intn(len(c.cfg.UserAgents))]
		c.mu.Unlock()
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if c.cfg.OnResponse != nil {
		c.cfg.OnResponse(resp)
	}

	var retryAfter time.Duration
	if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs > 0 {
		retryAfter = time.Duration(secs) * time.Second
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, retryAfter, err
	}
	return body, resp.StatusCode, retryAfter, nil
}

func (c *Client) sleepBackoff(ctx context.Context, next time.Duration, retryAfter time.Duration) bool {
	if next == backoff.Stop {
		return false
	}
	if retryAfter > next {
		next = retryAfter
	}
	timer := time.NewTimer(next)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Client) hookError(err error, rawURL, method string) {
	if c.cfg.OnError != nil {
		c.cfg.OnError(err, rawURL, method)
	}
	observability.Log().Warn("crawler transport error",
		observability.F("url", rawURL),
		observability.F("method", method),
		observability.F("error", err.Error()))
}

// LastRequestAt reports the monotonic timestamp of the latest attempt.
func (c *Client) LastRequestAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReq
}

// Close releases idle transport connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func composeURL(rawURL string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	for k, v := range params {
		query.Set(k, v)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
