package testevents

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
)

// Metric names scraped from the collector's exposition endpoint.
const (
	ingestedMetric = "beacon_collector_events_ingested_total"
	exportedMetric = "beacon_collector_events_exported_total"
	rejectedMetric = "beacon_collector_events_rejected_total"
)

// verifyResults scrapes the metrics listener and checks that the
// collector's counters account for every event this run submitted.
func verifyResults(ctx context.Context, config *Config, stats *Stats) error {
	log.Println("verifying results against collector metrics...")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.MetricsURL+"/metrics")
	if err != nil {
		return fmt.Errorf("failed to scrape metrics: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read metrics body: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("metrics scrape failed with status: %d", resp.StatusCode)
	}

	ingested := sumMetric(string(body), ingestedMetric)
	exported := sumMetric(string(body), exportedMetric)
	rejected := sumMetric(string(body), rejectedMetric)

	log.Printf(`collector counters:
   Ingested: %.0f
   Exported: %.0f
   Rejected: %.0f
`, ingested, exported, rejected)

	// Counters are cumulative across the process lifetime, so earlier
	// traffic legitimately pushes them above this run's totals.
	if int(ingested) < stats.EventsAccepted {
		return fmt.Errorf("ingested counter (%.0f) below accepted submissions (%d)",
			ingested, stats.EventsAccepted)
	}
	if exported < ingested {
		log.Printf("warning: %.0f ingested events not yet exported; flush may still be pending", ingested-exported)
	} else {
		log.Println("every ingested event accounted for by the sinks")
	}

	log.Println("result verification completed")
	return nil
}

// sumMetric adds up every sample of one counter family in exposition text,
// collapsing its label permutations into a single total.
func sumMetric(exposition, name string) float64 {
	var total float64

	scanner := bufio.NewScanner(strings.NewReader(exposition))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, name) {
			continue
		}
		rest := line[len(name):]
		if rest != "" && rest[0] != '{' && rest[0] != ' ' {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			continue
		}
		total += v
	}

	return total
}
