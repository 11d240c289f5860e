package testevents

import "time"

// HTTP status code constants.
const (
	StatusOK         = 200
	StatusAccepted   = 202
	StatusBadRequest = 400
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultFlushWait     = 15 * time.Second
	PercentageMultiplier = 100
)
