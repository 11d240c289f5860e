package testevents

import "time"

// Config holds configuration for the traffic test
type Config struct {
	BaseURL    string        // Base URL of the ingestion service
	MetricsURL string        // Base URL of the metrics listener
	NumEvents  int           // Number of events to generate
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	FlushWait  time.Duration // How long to wait for the service to flush
	OutputFile string        // Output file for events
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Event represents one telemetry payload to be submitted
type Event struct {
	Entity string `json:"entity"`
	Action string `json:"action"`
	AppID  string `json:"appId"`
	Path   string `json:"path,omitempty"`
	TS     string `json:"ts,omitempty"`
}

// Stats holds test statistics
type Stats struct {
	EventsGenerated int
	EventsSubmitted int
	EventsAccepted  int
	EventsRejected  int
	EventsFailed    int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
