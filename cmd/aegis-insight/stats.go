package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ghalamif/AegisInsight/internal/ports"
)

var statsTargets = []string{
	ports.MetricQueriesFast,
	ports.MetricQueriesAgent,
	ports.MetricFetchFailures,
	ports.MetricCacheHits,
	ports.MetricInflightQueries,
}

func metricsSnapshot(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := scrapeValues(resp.Body, statsTargets)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s] fast=%.0f agent=%.0f fetch_failures=%.0f cache_hits=%.0f inflight=%.0f",
		time.Now().Format(time.RFC3339),
		values[ports.MetricQueriesFast],
		values[ports.MetricQueriesAgent],
		values[ports.MetricFetchFailures],
		values[ports.MetricCacheHits],
		values[ports.MetricInflightQueries],
	), nil
}

// scrapeValues reads unlabelled samples for names out of the text exposition format.
func scrapeValues(r io.Reader, names []string) (map[string]float64, error) {
	out := make(map[string]float64, len(names))
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range names {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					out[key] = value
				}
			}
		}
	}
	return out, scanner.Err()
}
