package autotask

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/totalcareit/partner-metrics/internal/cache"
	"github.com/totalcareit/partner-metrics/internal/metrics"
	"github.com/totalcareit/partner-metrics/internal/utils"
)

// APIVersion is the REST version segment used for every entity endpoint.
const APIVersion = "V1.0"

// DefaultCacheTTL matches the freshness window of the dashboard refresh cycle.
const DefaultCacheTTL = 5 * time.Minute

const maxErrorBody = 8192

// Options configures a Client.
type Options struct {
	Credentials Credentials
	// ZoneInfoURL overrides the discovery endpoint (tests, sandboxes).
	ZoneInfoURL string
	Timeout     time.Duration
	Cache       cache.Provider
	CacheTTL    time.Duration
	// Dedupe collapses concurrent identical cache misses into one upstream call.
	Dedupe bool
	// RateLimit caps upstream requests per second; zero disables limiting.
	RateLimit float64
	RateBurst int
	Logger    *slog.Logger
	// HTTPClient replaces the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	// Clock anchors the upcoming-appointments window; defaults to the wall clock.
	Clock clockwork.Clock
	// TicketQueueID restricts ticket reports to one queue; zero means every queue.
	TicketQueueID int64
}

// Client issues read-only queries against a tenant's Autotask zone. It is safe for
// concurrent use.
type Client struct {
	creds      Credentials
	httpClient *http.Client
	zones      *ZoneResolver
	cache      cache.Provider
	ttl        time.Duration
	logger     *slog.Logger
	group      *singleflight.Group
	limiter    *rate.Limiter
	clock      clockwork.Clock
	queueID    int64

	// sharedTimeout bounds a de-duplicated call, which no caller can cancel.
	sharedTimeout time.Duration

	mu   sync.Mutex
	zone *ZoneInfo
}

// NewClient constructs a client. The zone is resolved lazily on the first request.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	provider := opts.Cache
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		creds:      opts.Credentials,
		httpClient: httpClient,
		zones:      NewZoneResolver(opts.ZoneInfoURL, httpClient),
		cache:      provider,
		ttl:        ttl,
		logger:     logger,
		clock:      opts.Clock,
		queueID:    opts.TicketQueueID,
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if opts.Dedupe {
		c.group = &singleflight.Group{}
		c.sharedTimeout = httpClient.Timeout
		if c.sharedTimeout <= 0 {
			c.sharedTimeout = 30 * time.Second
		}
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// Configured reports whether credentials are present. Callers use it to decide whether
// to fall back to sample data before issuing any request.
func (c *Client) Configured() bool {
	return c != nil && c.creds.Configured()
}

// Zone returns the memoized zone, resolving it on first use. Failures are not memoized.
func (c *Client) Zone(ctx context.Context) (ZoneInfo, error) {
	if c == nil {
		return ZoneInfo{}, utils.ConfigurationError("autotask.client", "client not initialised")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.zone != nil {
		return *c.zone, nil
	}
	info, err := c.zones.Resolve(ctx, c.creds)
	if err != nil {
		return ZoneInfo{}, err
	}
	c.zone = &info
	c.logger.Info("autotask zone resolved", slog.String("base_url", info.BaseURL), slog.String("zone", info.ZoneName))
	return info, nil
}

// Query posts filter to the entity's query endpoint. A nil filter sends an empty object.
func (c *Client) Query(ctx context.Context, entity string, filter *Filter) (json.RawMessage, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	endpoint := entity + "/query"

	var body any = struct{}{}
	if filter != nil {
		body = filter
	}
	signature, err := Signature(endpoint, body)
	if err != nil {
		return nil, utils.InvalidArgument("autotask.query", err.Error())
	}
	return c.cached(ctx, entity, signature, func(ctx context.Context, base string) (*http.Request, error) {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		return http.NewRequestWithContext(ctx, http.MethodPost, entityURL(base, endpoint), bytes.NewReader(payload))
	})
}

// GetByID fetches one entity record.
func (c *Client) GetByID(ctx context.Context, entity string, id int64) (json.RawMessage, error) {
	if err := checkEntity(entity); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, utils.InvalidArgument("autotask.get", "id must be positive")
	}
	endpoint := entity + "/" + strconv.FormatInt(id, 10)
	signature, err := Signature(endpoint, nil)
	if err != nil {
		return nil, utils.InvalidArgument("autotask.get", err.Error())
	}
	return c.cached(ctx, entity, signature, func(ctx context.Context, base string) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, entityURL(base, endpoint), nil)
	})
}

// ClearCache drops every cached response.
func (c *Client) ClearCache(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear autotask cache: %w", err)
	}
	c.logger.Info("autotask cache cleared")
	return nil
}

func (c *Client) cached(ctx context.Context, entity, signature string, build func(ctx context.Context, base string) (*http.Request, error)) (json.RawMessage, error) {
	if c == nil {
		return nil, utils.ConfigurationError("autotask.client", "client not initialised")
	}
	zone, err := c.Zone(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := c.cache.Get(ctx, signature); err == nil {
		metrics.ObserveCacheLookup(true)
		return json.RawMessage(data), nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("autotask cache read failed", slog.String("key", signature), slog.Any("error", err))
	}
	metrics.ObserveCacheLookup(false)

	fetch := func(ctx context.Context) (json.RawMessage, error) {
		req, err := build(ctx, zone.BaseURL)
		if err != nil {
			return nil, utils.NetworkError("autotask."+entity, "build request", err)
		}
		data, err := c.do(req, entity)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, signature, data, c.ttl); err != nil {
			c.logger.Warn("autotask cache write failed", slog.String("key", signature), slog.Any("error", err))
		}
		return data, nil
	}

	if c.group == nil {
		return fetch(ctx)
	}
	// The shared call outlives any single waiter; each waiter gives up on its own ctx.
	ch := c.group.DoChan(signature, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.sharedTimeout)
		defer cancel()
		return fetch(shared)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("autotask request shared", slog.String("key", signature))
		}
		return res.Val.(json.RawMessage), nil
	}
}

func (c *Client) do(req *http.Request, entity string) (data json.RawMessage, err error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, utils.NetworkError("autotask."+entity, "rate limit wait", err)
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("UserName", c.creds.Username)
	req.Header.Set("Secret", c.creds.Secret)
	req.Header.Set("ApiIntegrationcode", c.creds.IntegrationCode)

	start := time.Now()
	defer func() { metrics.ObserveUpstream(entity, time.Since(start), err) }()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.NetworkError("autotask."+entity, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &utils.ProviderError{
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(fmt.Sprintf("%s %s", http.StatusText(resp.StatusCode), body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.NetworkError("autotask."+entity, "read response", err)
	}
	if !json.Valid(body) {
		return nil, utils.NewAppError(utils.KindMalformed, "autotask."+entity, "response is not valid JSON", nil)
	}
	c.logger.Debug("autotask request completed",
		slog.String("entity", entity),
		slog.String("method", req.Method),
		slog.Duration("elapsed", time.Since(start)))
	return json.RawMessage(body), nil
}

func checkEntity(entity string) error {
	if !KnownEntity(entity) {
		return utils.InvalidArgument("autotask.entity", fmt.Sprintf("unsupported entity %q", entity))
	}
	return nil
}

func entityURL(base, endpoint string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "/" + apiRoot + "/" + APIVersion + "/" + endpoint
	}
	u.Path = path.Join("/", u.Path, apiRoot, APIVersion, endpoint)
	return u.String()
}
