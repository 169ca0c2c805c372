// Package reader fetches quotes from the financialmodelingprep REST API.
package reader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/dayche/internal/domain/entity"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	"github.com/tigerroll/dayche/pkg/batch/core/metrics"
	"github.com/tigerroll/dayche/pkg/batch/engine/step/retry"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
	"github.com/tigerroll/dayche/pkg/batch/support/util/serialization"
)

const (
	ModuleQuoteReader = "QuoteAPIReader"

	eodTail       = "historical-price-eod/full"
	intradayTail  = "historical-chart/"
	apiDateLayout = "2006-01-02"
)

// intervalNames maps supported bar sizes in seconds to the API's path segment.
var intervalNames = map[int]string{
	60:    "1min",
	300:   "5min",
	900:   "15min",
	1800:  "30min",
	3600:  "1hour",
	14400: "4hour",
}

// IntervalName returns the API name of an intraday interval given in seconds.
func IntervalName(seconds int) (string, error) {
	name, ok := intervalNames[seconds]
	if !ok {
		return "", exception.NewBatchErrorf(ModuleQuoteReader, "unsupported intraday interval: %d seconds", seconds)
	}
	return name, nil
}

// EndpointURL returns the full URL of an endpoint below base.
// "/stable" is inserted unless the base path already ends with it; query and fragment are kept.
func EndpointURL(base, tail string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "", exception.NewAPIURLNotFound("API base URL not found | not configured in configuration file")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", exception.NewBatchErrorf(ModuleQuoteReader, "invalid API base URL", err)
	}

	p := strings.TrimRight(u.Path, "/")
	tail = strings.TrimLeft(tail, "/")
	if strings.HasSuffix(p, "stable") {
		u.Path = p + "/" + tail
	} else {
		u.Path = p + "/stable/" + tail
	}
	return u.String(), nil
}

// QuoteAPIReader fetches end-of-day and intraday bars.
type QuoteAPIReader struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	policy   retry.RetryPolicy
	recorder metrics.MetricRecorder
	log      *logger.Logger
}

// NewQuoteAPIReader creates a QuoteAPIReader. client may be nil, in which case one with the
// configured timeout is used. An empty API URL fails with exception.APIURLNotFound.
func NewQuoteAPIReader(cfg config.APIConfig, client *http.Client, recorder metrics.MetricRecorder, log *logger.Logger) (*QuoteAPIReader, error) {
	if _, err := EndpointURL(cfg.URL, ""); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	return &QuoteAPIReader{
		baseURL:  cfg.URL,
		apiKey:   cfg.Key,
		client:   client,
		policy:   retry.NewDefaultRetryPolicyFactory().Create(cfg.Retry, []string{"connection reset", "i/o timeout"}),
		recorder: recorder,
		log:      log,
	}, nil
}

// FetchEOD returns the daily bars of symbol between from and to (inclusive dates).
func (r *QuoteAPIReader) FetchEOD(ctx context.Context, symbol string, from, to time.Time) ([]entity.EODRecord, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", from.Format(apiDateLayout))
	params.Set("to", to.Format(apiDateLayout))

	var records []entity.EODRecord
	if err := r.getJSON(ctx, eodTail, params, &records); err != nil {
		return nil, err
	}
	r.log.Infof("Fetched %d EOD rows for %s.", len(records), symbol)
	return records, nil
}

// FetchIntraday returns the intraday bars of symbol with the given bar size.
func (r *QuoteAPIReader) FetchIntraday(ctx context.Context, symbol string, intervalSeconds int, from, to time.Time) ([]entity.IntradayRecord, error) {
	name, err := IntervalName(intervalSeconds)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", from.Format(apiDateLayout))
	params.Set("to", to.Format(apiDateLayout))

	var records []entity.IntradayRecord
	if err := r.getJSON(ctx, intradayTail+name, params, &records); err != nil {
		return nil, err
	}
	r.log.Infof("Fetched %d %s rows for %s.", len(records), name, symbol)
	return records, nil
}

func (r *QuoteAPIReader) getJSON(ctx context.Context, tail string, params url.Values, out interface{}) error {
	endpoint, err := EndpointURL(r.baseURL, tail)
	if err != nil {
		return err
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return exception.NewBatchErrorf(ModuleQuoteReader, "invalid endpoint URL", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if r.apiKey != "" {
		q.Set("apikey", r.apiKey)
	}
	u.RawQuery = q.Encode()

	return retry.Do(ctx, r.policy, func(attempt int) error {
		if attempt > 1 {
			r.log.Warnf("Retrying %s (attempt %d/%d).", tail, attempt, r.policy.GetMaxAttempts())
		}
		return r.doGet(ctx, tail, u, out)
	})
}

func (r *QuoteAPIReader) doGet(ctx context.Context, tail string, u *url.URL, out interface{}) error {
	r.log.Debugf("GET %s", maskedURL(u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return exception.NewBatchError(ModuleQuoteReader, "Failed to create API request", err, false, false)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.recorder.RecordAPIRequest(ctx, tail, "error", time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return exception.NewBatchError(ModuleQuoteReader, "API call failed", err, false, true)
	}
	defer resp.Body.Close()
	r.recorder.RecordAPIRequest(ctx, tail, strconv.Itoa(resp.StatusCode), time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return exception.NewBatchError(ModuleQuoteReader, "Failed to read API response", err, false, true)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("API returned status %d for %s: %s", resp.StatusCode, tail, truncate(body, 200))
		retryable := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return exception.NewBatchError(ModuleQuoteReader, msg, nil, false, retryable)
	}

	// Errors come back as a JSON object with status 200.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var apiErr map[string]interface{}
		if err := json.Unmarshal(trimmed, &apiErr); err == nil {
			for _, key := range []string{"Error Message", "error", "message"} {
				if msg, ok := apiErr[key].(string); ok {
					return exception.NewBatchErrorf(ModuleQuoteReader, "API error for %s: %s", tail, msg)
				}
			}
		}
		return exception.NewBatchErrorf(ModuleQuoteReader, "unexpected API response for %s: %s", tail, truncate(trimmed, 200))
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		return exception.NewBatchError(ModuleQuoteReader, "Failed to decode API response", err, false, false)
	}
	return nil
}

// maskedURL hides credentials from logs.
func maskedURL(u *url.URL) string {
	q := u.Query()
	params := make(map[string]string, len(q))
	for k := range q {
		params[k] = q.Get(k)
	}
	masked := serialization.MaskParameters(params)
	mq := url.Values{}
	for k, v := range masked {
		mq.Set(k, v)
	}
	c := *u
	c.RawQuery = mq.Encode()
	return c.String()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
