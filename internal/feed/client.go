// Package feed is a small client for the api-football v3 fixtures endpoint,
// the external source the sync engine reconciles matches against.
//
// Only GET /fixtures?id=N is used. Authentication follows api-sports
// conventions: a direct key is sent as x-apisports-key, while a RapidAPI
// subscription sends X-RapidAPI-Key together with X-RapidAPI-Host.
// Outbound calls share a token bucket so a large batch never bursts the
// provider's rate limit.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tbourn/matchday-live/internal/config"
)

// ErrFixtureNotFound is returned when the feed answers with an empty response
// list for the requested fixture id.
var ErrFixtureNotFound = errors.New("fixture not found")

// maxErrorBody bounds how much of a failed response body is quoted in errors.
const maxErrorBody = 256

var feedLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "feed_request_duration_seconds",
		Help:    "Duration of outbound fixture feed requests in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"code", "method"},
)

func init() {
	prometheus.MustRegister(feedLatency)
}

// Client fetches fixture snapshots. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	host    string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a Client from cfg. An unparsable proxy URL is logged and
// ignored. A zero RPS disables outbound rate limiting.
func NewClient(cfg config.FeedConfig) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err != nil || u.Host == "" {
			log.Warn().Err(err).Str("proxy", cfg.Proxy).Msg("feed proxy ignored: invalid URL")
		} else {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		host:    cfg.Host,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: promhttp.InstrumentRoundTripperDuration(feedLatency, transport),
		},
		limiter: limiter,
	}
}

// FetchFixture returns the current snapshot of fixture id.
func (c *Client) FetchFixture(ctx context.Context, id int64) (*Fixture, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("feed rate limit: %w", err)
	}

	endpoint := c.baseURL + "/fixtures?id=" + strconv.FormatInt(id, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.host != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
		req.Header.Set("X-RapidAPI-Host", c.host)
	} else {
		req.Header.Set("x-apisports-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, excerpt(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}
	if msg := apiErrors(env.Errors); msg != "" {
		return nil, fmt.Errorf("feed error: %s", msg)
	}
	if len(env.Response) == 0 {
		return nil, fmt.Errorf("fixture %d: %w", id, ErrFixtureNotFound)
	}
	return &env.Response[0], nil
}

// apiErrors flattens the feed's errors field. Both [] and {} mean no error.
func apiErrors(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return ""
		}
		return list[0]
	}

	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err == nil {
		for k, v := range fields {
			return k + ": " + v
		}
		return ""
	}
	return excerpt(raw)
}

func excerpt(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
