package meteomatics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/florascope-service/internal/domain"
	"github.com/couchcryptid/florascope-service/internal/observability"
)

// DefaultBaseURL is the public Meteomatics API endpoint.
const DefaultBaseURL = "https://api.meteomatics.com"

// missingValue is the provider's sentinel for an unavailable sample.
const missingValue = -999

const timeLayout = "2006-01-02T15:04:05Z"

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	User       string
	Password   string
	Timeout    time.Duration
	MaxRetries int
}

// PayloadArchiver stores raw provider responses.
type PayloadArchiver interface {
	ArchivePayload(ctx context.Context, source string, payload []byte) error
}

// Client implements domain.ClimateSource using the Meteomatics time series API.
type Client struct {
	baseURL        string
	user           string
	password       string
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	archive        PayloadArchiver
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// NewClient creates a Meteomatics client.
func NewClient(cfg ClientConfig, logger *slog.Logger, metrics *observability.Metrics) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		user:     cfg.User,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: 500 * time.Millisecond,
		metrics:        metrics,
		logger:         logger,
	}
}

// SetArchive makes the client store every successful raw response.
func (c *Client) SetArchive(a PayloadArchiver) {
	c.archive = a
}

// FetchClimatology downloads the series for q and reduces it to monthly means.
func (c *Client) FetchClimatology(ctx context.Context, q domain.ClimateQuery) ([]domain.ClimateSample, error) {
	records, err := c.FetchRecords(ctx, q)
	if err != nil {
		return nil, err
	}
	samples := domain.Climatology(records)
	c.logger.Info("climatology fetched", "records", len(records), "months", len(samples))
	return samples, nil
}

// FetchRecords downloads the raw samples for q.
func (c *Client) FetchRecords(ctx context.Context, q domain.ClimateQuery) ([]domain.ClimateRecord, error) {
	u := BuildURL(c.baseURL, q)

	body, err := c.getWithRetry(ctx, u)
	if err != nil {
		return nil, err
	}

	if c.archive != nil {
		if err := c.archive.ArchivePayload(ctx, u, body); err != nil {
			c.logger.Warn("archive climate payload failed", "error", err)
		}
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, &domain.NetworkError{Op: "decode climate response", Err: err}
	}
	return records, nil
}

// BuildURL renders the time series request path:
// {base}/{start}--{end}:{interval}/{parameters}/{lat},{lon}/json
func BuildURL(baseURL string, q domain.ClimateQuery) string {
	vars := q.Variables
	if len(vars) == 0 {
		vars = domain.ClimateVariables
	}
	params := make([]string, len(vars))
	for i, v := range vars {
		params[i] = string(v)
	}
	interval := q.Interval
	if interval == "" {
		interval = "P1M"
	}
	return fmt.Sprintf("%s/%s--%s:%s/%s/%s,%s/json",
		strings.TrimRight(baseURL, "/"),
		q.Start.UTC().Format(timeLayout),
		q.End.UTC().Format(timeLayout),
		interval,
		strings.Join(params, ","),
		strconv.FormatFloat(q.Lat, 'f', -1, 64),
		strconv.FormatFloat(q.Lon, 'f', -1, 64),
	)
}

// getWithRetry retries rate limiting, server errors and transport failures
// with exponential backoff. Other client errors fail immediately.
func (c *Client) getWithRetry(ctx context.Context, u string) ([]byte, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(c.initialBackoff),
				backoff.WithMaxElapsedTime(0),
			),
			uint64(max(c.maxRetries, 0)),
		),
		ctx,
	)

	var body []byte
	op := func() error {
		b, err := c.get(ctx, u)
		if err != nil {
			var netErr *domain.NetworkError
			if errors.As(err, &netErr) && !retryable(netErr.StatusCode) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.metrics.ClimateRequests.WithLabelValues("retry").Inc()
		c.logger.Warn("climate request failed, retrying", "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		c.metrics.ClimateRequests.WithLabelValues("error").Inc()
		var netErr *domain.NetworkError
		if errors.As(err, &netErr) {
			return nil, err
		}
		return nil, &domain.NetworkError{Op: "climate request", Err: err}
	}
	c.metrics.ClimateRequests.WithLabelValues("success").Inc()
	return body, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.user, c.password)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ClimateAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &domain.NetworkError{Op: "climate request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Op: "read climate response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.NetworkError{
			Op:         "meteomatics API error",
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(truncate(string(body), 200))),
		}
	}
	return body, nil
}

// retryable reports whether a failed request may succeed on a later attempt.
// Status 0 is a transport failure.
func retryable(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

func decodeRecords(body []byte) ([]domain.ClimateRecord, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var records []domain.ClimateRecord
	for _, series := range resp.Data {
		if len(series.Coordinates) == 0 {
			continue
		}
		for _, dv := range series.Coordinates[0].Dates {
			if len(dv.Date) < 10 {
				return nil, fmt.Errorf("decode response: bad date %q", dv.Date)
			}
			date, err := time.Parse("2006-01-02", dv.Date[:10])
			if err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			value := math.NaN()
			if dv.Value != nil && *dv.Value != missingValue {
				value = *dv.Value
			}
			records = append(records, domain.ClimateRecord{
				Date:      date,
				Parameter: domain.ClimateVariable(series.Parameter),
				Value:     value,
			})
		}
	}
	return records, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Meteomatics API response types.

type response struct {
	Version string            `json:"version"`
	Status  string            `json:"status"`
	Data    []parameterSeries `json:"data"`
}

type parameterSeries struct {
	Parameter   string       `json:"parameter"`
	Coordinates []coordinate `json:"coordinates"`
}

type coordinate struct {
	Lat   float64      `json:"lat"`
	Lon   float64      `json:"lon"`
	Dates []datedValue `json:"dates"`
}

type datedValue struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}
