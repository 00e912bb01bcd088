// Package upstream is the HTTP gateway to the external leaderboard service.
// Read calls degrade to empty responses when the service misbehaves; submit
// calls surface an error only when the caller marked them as required.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/padstats/scores-api/internal/models"
)

// ErrUnavailable wraps any transport or decode failure talking upstream.
var ErrUnavailable = errors.New("upstream unavailable")

const (
	playerScoresPath       = "/player-scores.php"
	playerLeaderboardsPath = "/player-leaderboards.php"
	scoreSubmitPath        = "/score-submit.php"

	userAgent = "padstats/1.0"

	maxResponseBytes = 1 << 20
)

// Prometheus metrics
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "padstats_upstream_requests_total",
		Help: "Total number of upstream requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "padstats_upstream_request_duration_seconds",
		Help:    "Duration of upstream requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	anomaliesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padstats_upstream_anomalies_total",
		Help: "Total number of malformed or unexpected upstream responses",
	})
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.SugaredLogger
}

// NewClient builds a gateway with split timeouts: a short dial timeout so a
// dead upstream fails fast, and a longer header timeout for slow responses.
func NewClient(baseURL string, connectTimeout, readTimeout time.Duration, logger *zap.Logger) *Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: connectTimeout + readTimeout,
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				ResponseHeaderTimeout: readTimeout,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		logger: logger.Sugar(),
	}
}

func (c *Client) PlayerScores(ctx context.Context, queries []models.PlayerQuery) *models.UpstreamResponse {
	resp, err := c.do(ctx, http.MethodGet, playerScoresPath, queries, 0, nil)
	if err != nil {
		c.logger.Warnw("Upstream player-scores failed", "error", err)
		return nil
	}
	return resp
}

func (c *Client) PlayerLeaderboards(ctx context.Context, queries []models.PlayerQuery, maxResults int) *models.UpstreamResponse {
	resp, err := c.do(ctx, http.MethodGet, playerLeaderboardsPath, queries, maxResults, nil)
	if err != nil {
		c.logger.Warnw("Upstream player-leaderboards failed", "error", err)
		return nil
	}
	return resp
}

// SubmitScores forwards the client's original submission body untouched.
// When required is false a failure degrades to a nil response.
func (c *Client) SubmitScores(ctx context.Context, queries []models.PlayerQuery, maxResults int, body []byte, required bool) (*models.UpstreamResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, scoreSubmitPath, queries, maxResults, body)
	if err != nil {
		if required {
			return nil, err
		}
		c.logger.Warnw("Upstream score-submit failed", "error", err)
		return nil, nil
	}
	return resp, nil
}

// do issues one upstream request. Credentials travel as per-side headers and
// chart hashes as per-side query parameters; no other client headers are
// forwarded.
func (c *Client) do(ctx context.Context, method, path string, queries []models.PlayerQuery, maxResults int, body []byte) (*models.UpstreamResponse, error) {
	endpoint := c.baseURL + path
	params := url.Values{}
	for _, q := range queries {
		params.Set(fmt.Sprintf("chartHashP%d", q.Index), q.ChartHash)
	}
	if maxResults > 0 {
		params.Set("maxLeaderboardResults", strconv.Itoa(maxResults))
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, q := range queries {
		req.Header.Set(fmt.Sprintf("x-api-key-player-%d", q.Index), q.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(path, "transport_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		requestsTotal.WithLabelValues(path, fmt.Sprintf("http_%d", resp.StatusCode)).Inc()
		anomaliesTotal.Inc()
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		requestsTotal.WithLabelValues(path, "read_error").Inc()
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	decoded := &models.UpstreamResponse{}
	if err := json.Unmarshal(data, decoded); err != nil {
		requestsTotal.WithLabelValues(path, "decode_error").Inc()
		anomaliesTotal.Inc()
		return nil, fmt.Errorf("%w: decode body: %v", ErrUnavailable, err)
	}

	requestsTotal.WithLabelValues(path, "ok").Inc()
	return decoded, nil
}
