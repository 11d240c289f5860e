// Package event contains the telemetry event model and its schema validator.
package event

import "time"

// Entity identifies the page element an event was recorded against.
type Entity string

// Action identifies what the client did to the entity.
type Action string

// Recognized enum values. The pairing rule is enforced by Validate:
// a page can only be viewed, an anchor can only be clicked.
const (
	EntityPage   Entity = "page"
	EntityAnchor Entity = "anchor"

	ActionView  Action = "view"
	ActionClick Action = "click"
)

// Event is one validated telemetry event. ID and RecordedAt are assigned
// server-side at validation time; client clocks are not trusted.
type Event struct {
	ID         string
	RecordedAt time.Time
	Entity     Entity
	Action     Action
	Path       string    // optional URL path
	AppID      string    // originating application/tenant, written as recorded_by
	TS         time.Time // client-supplied timestamp, zero when absent
}

// Batch is an ordered, immutable snapshot of events taken at a drain point.
// Once returned by the buffer it is owned by the flush cycle and never
// mutated.
type Batch []Event
