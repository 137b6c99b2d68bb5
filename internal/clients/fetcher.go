// Package clients implements the HTTP clients for the upstream results and
// telemetry feeds. The aggregation pipeline never talks to the network;
// these clients deliver complete row sets to the ingestion services, and
// any retry policy lives here, not in the pipeline.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"f1-platform/pkg/logging"
	"f1-platform/pkg/metrics"
)

const retryBackoffBase = 100 * time.Millisecond

// fetcher issues GET requests with bounded retry and JSON decoding, shared
// by both feed clients.
type fetcher struct {
	hc       *http.Client
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
	source   string
	retryMax int
}

func newFetcher(source string, timeout time.Duration, retryMax int, logger *logging.StructuredLogger, collector *metrics.Collector) *fetcher {
	if retryMax < 1 {
		retryMax = 1
	}
	return &fetcher{
		hc:       &http.Client{Timeout: timeout},
		logger:   logger,
		metrics:  collector,
		source:   source,
		retryMax: retryMax,
	}
}

// getJSON fetches url and decodes the body into dest. Responses with
// status 500, 502, 503 or 504 and transport errors are retried with
// exponential backoff; other non-2xx responses fail immediately.
func (f *fetcher) getJSON(ctx context.Context, url string, dest interface{}) error {
	timer := time.Now()
	defer func() {
		f.metrics.UpstreamFetchDuration.WithLabelValues(f.source).Observe(time.Since(timer).Seconds())
	}()

	var lastErr error

	for attempt := 0; attempt < f.retryMax; attempt++ {
		if attempt > 0 {
			f.metrics.RecordUpstreamRetry(f.source)
			select {
			case <-time.After(retryBackoffBase << (attempt - 1)):
			case <-ctx.Done():
				return &FetchError{Source: f.source, URL: url, Err: ctx.Err()}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &FetchError{Source: f.source, URL: url, Err: err}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.hc.Do(req)
		if err != nil {
			lastErr = &FetchError{Source: f.source, URL: url, Err: err}
			continue
		}

		if retryableStatus(resp.StatusCode) {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = &FetchError{Source: f.source, URL: url, StatusCode: resp.StatusCode}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return &FetchError{Source: f.source, URL: url, StatusCode: resp.StatusCode}
		}

		err = json.NewDecoder(resp.Body).Decode(dest)
		resp.Body.Close()
		if err != nil {
			return &FetchError{Source: f.source, URL: url, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	f.logger.Warn(ctx, "[FETCH_RETRIES_EXHAUSTED] Upstream request gave up", logging.Fields{
		"source": f.source,
		"url":    url,
	})
	return lastErr
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
