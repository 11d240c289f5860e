package event

import (
	"time"

	"github.com/google/uuid"
)

// Wire-level keys accepted on the ingestion payload. Anything else is a
// validation failure, not silently dropped.
const (
	keyEntity = "entity"
	keyAction = "action"
	keyAppID  = "appId"
	keyPath   = "path"
	keyTS     = "ts"
)

var recognizedKeys = map[string]struct{}{
	keyEntity: {},
	keyAction: {},
	keyAppID:  {},
	keyPath:   {},
	keyTS:     {},
}

// Validate checks a JSON-decoded payload against the event schema and, on
// success, returns a fully populated Event with a server-assigned id and
// recorded-at timestamp. It never blocks and has no side effects.
//
// Checks run in order: recognized keys only, required string fields present,
// enum membership, entity/action pairing, optional ts parses as RFC3339.
func Validate(raw map[string]any) (Event, error) {
	for key := range raw {
		if _, ok := recognizedKeys[key]; !ok {
			return Event{}, wrapField(ErrUnknownField, key)
		}
	}

	entity, err := requireString(raw, keyEntity)
	if err != nil {
		return Event{}, err
	}
	action, err := requireString(raw, keyAction)
	if err != nil {
		return Event{}, err
	}
	appID, err := requireString(raw, keyAppID)
	if err != nil {
		return Event{}, err
	}

	switch Entity(entity) {
	case EntityPage, EntityAnchor:
	default:
		return Event{}, wrapField(ErrInvalidEnum, keyEntity)
	}
	switch Action(action) {
	case ActionView, ActionClick:
	default:
		return Event{}, wrapField(ErrInvalidEnum, keyAction)
	}

	// Pages are viewed, anchors are clicked. Any other pairing is a
	// client bug we refuse to record.
	if Entity(entity) == EntityPage && Action(action) != ActionView {
		return Event{}, wrapField(ErrInvariantViolation, keyAction)
	}
	if Entity(entity) == EntityAnchor && Action(action) != ActionClick {
		return Event{}, wrapField(ErrInvariantViolation, keyAction)
	}

	// Optional fields may be absent, but a present non-string value is a
	// malformed payload, not a missing field.
	var path string
	if v, ok := raw[keyPath]; ok {
		path, ok = v.(string)
		if !ok {
			return Event{}, wrapField(ErrMalformedPayload, keyPath)
		}
	}

	var ts time.Time
	if v, ok := raw[keyTS]; ok {
		s, ok := v.(string)
		if !ok {
			return Event{}, wrapField(ErrMalformedPayload, keyTS)
		}
		ts, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return Event{}, wrapField(ErrMalformedPayload, keyTS)
		}
	}

	return Event{
		ID:         uuid.NewString(),
		RecordedAt: time.Now().UTC(),
		Entity:     Entity(entity),
		Action:     Action(action),
		Path:       path,
		AppID:      appID,
		TS:         ts,
	}, nil
}

// requireString enforces presence and type of a mandatory string field.
// An empty string counts as missing.
func requireString(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok {
		return "", wrapField(ErrMissingField, key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", wrapField(ErrMissingField, key)
	}
	return s, nil
}
