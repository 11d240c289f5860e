package testevents

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/okian/beacon/pkg/logger"
)

// Constants for random selection.
const (
	entityDivisor  = 10
	pageViewWeight = 7 // out of entityDivisor, rest are anchor clicks
	pathOmitOdds   = 5 // one in pathOmitOdds events carries no path
	tsOmitOdds     = 3 // one in tsOmitOdds events carries no timestamp
)

// Sample dimensions for generated traffic.
var (
	samplePaths = []string{
		"/",
		"/pricing",
		"/docs",
		"/docs/quickstart",
		"/blog/launch",
		"/signup",
		"/account/settings",
	}
	sampleApps = []string{
		"storefront",
		"docs-site",
		"marketing",
	}
)

// randomInt returns a uniform random int in [0, n) using crypto/rand.
func randomInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// generateEvents creates the specified number of telemetry events with a
// realistic mix of page views and anchor clicks.
func generateEvents(ctx context.Context, config *Config, stats *Stats) ([]Event, error) {
	logger.Get().Info(ctx, "generating events", logger.Int("numEvents", config.NumEvents))

	events := make([]Event, config.NumEvents)
	for i := range events {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		events[i] = generateSingleEvent()
	}

	stats.EventsGenerated = len(events)
	logger.Get().Info(ctx, "generated events successfully", logger.Int("count", len(events)))

	return events, nil
}

// generateSingleEvent creates one event respecting the entity/action pairing.
func generateSingleEvent() Event {
	e := Event{
		Entity: "page",
		Action: "view",
		AppID:  sampleApps[randomInt(int64(len(sampleApps)))],
	}
	if randomInt(entityDivisor) >= pageViewWeight {
		e.Entity = "anchor"
		e.Action = "click"
	}

	if randomInt(pathOmitOdds) != 0 {
		e.Path = samplePaths[randomInt(int64(len(samplePaths)))]
	}
	if randomInt(tsOmitOdds) != 0 {
		e.TS = time.Now().UTC().Format(time.RFC3339)
	}

	return e
}
