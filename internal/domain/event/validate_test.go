package event_test

import (
	"testing"
	"time"

	event "github.com/okian/beacon/internal/domain/event"
	"github.com/smartystreets/goconvey/convey"
)

func TestValidate(t *testing.T) {
	convey.Convey("Given the event schema validator", t, func() {
		convey.Convey("When the payload is well formed", func() {
			e, err := event.Validate(map[string]any{
				"entity": "page",
				"action": "view",
				"appId":  "x",
				"path":   "/home",
			})

			convey.Convey("Then it is accepted with server-assigned fields", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(e.Entity, convey.ShouldEqual, event.EntityPage)
				convey.So(e.Action, convey.ShouldEqual, event.ActionView)
				convey.So(e.AppID, convey.ShouldEqual, "x")
				convey.So(e.Path, convey.ShouldEqual, "/home")
				convey.So(e.ID, convey.ShouldNotBeEmpty)
				convey.So(e.RecordedAt.IsZero(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When only required fields are present", func() {
			_, err := event.Validate(map[string]any{
				"entity": "anchor",
				"action": "click",
				"appId":  "my-app-id",
			})
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("When a client supplies a valid ts", func() {
			e, err := event.Validate(map[string]any{
				"entity": "page",
				"action": "view",
				"appId":  "x",
				"ts":     "2024-05-06T12:00:00Z",
			})
			convey.So(err, convey.ShouldBeNil)
			convey.So(e.TS.Equal(time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)
		})

		convey.Convey("When the entity/action pairing is violated", func() {
			_, err := event.Validate(map[string]any{
				"entity": "page", "action": "click", "appId": "x",
			})
			convey.So(err, convey.ShouldWrap, event.ErrInvariantViolation)

			_, err = event.Validate(map[string]any{
				"entity": "anchor", "action": "view", "appId": "x",
			})
			convey.So(err, convey.ShouldWrap, event.ErrInvariantViolation)
		})

		convey.Convey("When required fields are missing", func() {
			_, err := event.Validate(map[string]any{
				"action": "view", "appId": "x",
			})
			convey.So(err, convey.ShouldWrap, event.ErrMissingField)

			_, err = event.Validate(map[string]any{
				"entity": "page", "appId": "x",
			})
			convey.So(err, convey.ShouldWrap, event.ErrMissingField)

			_, err = event.Validate(map[string]any{
				"entity": "page", "action": "view",
			})
			convey.So(err, convey.ShouldWrap, event.ErrMissingField)

			_, err = event.Validate(map[string]any{})
			convey.So(err, convey.ShouldWrap, event.ErrMissingField)
		})

		convey.Convey("When an enum value is unrecognized", func() {
			_, err := event.Validate(map[string]any{
				"entity": "invalid_entity", "action": "view", "appId": "x",
			})
			convey.So(err, convey.ShouldWrap, event.ErrInvalidEnum)

			_, err = event.Validate(map[string]any{
				"entity": "page", "action": "invalid_action", "appId": "x",
			})
			convey.So(err, convey.ShouldWrap, event.ErrInvalidEnum)
		})

		convey.Convey("When an unrecognized field is present", func() {
			_, err := event.Validate(map[string]any{
				"entity": "anchor", "action": "click", "appId": "x", "extra": "not allowed",
			})
			convey.So(err, convey.ShouldWrap, event.ErrUnknownField)
		})

		convey.Convey("When fields have the wrong primitive type", func() {
			_, err := event.Validate(map[string]any{
				"entity": "anchor", "action": "click", "appId": 12345,
			})
			convey.So(err, convey.ShouldWrap, event.ErrMissingField)

			// A present optional field with the wrong type is malformed,
			// not missing.
			_, err = event.Validate(map[string]any{
				"entity": "anchor", "action": "click", "appId": "x", "path": 123,
			})
			convey.So(err, convey.ShouldWrap, event.ErrMalformedPayload)

			_, err = event.Validate(map[string]any{
				"entity": "page", "action": "view", "appId": "x", "ts": 12345,
			})
			convey.So(err, convey.ShouldWrap, event.ErrMalformedPayload)
		})

		convey.Convey("When ts does not parse as RFC3339", func() {
			_, err := event.Validate(map[string]any{
				"entity": "page", "action": "view", "appId": "x", "ts": "not-a-date",
			})
			convey.So(err, convey.ShouldWrap, event.ErrMalformedPayload)
		})

		convey.Convey("When generating ids for successive events", func() {
			a, err := event.Validate(map[string]any{"entity": "page", "action": "view", "appId": "x"})
			convey.So(err, convey.ShouldBeNil)
			b, err := event.Validate(map[string]any{"entity": "page", "action": "view", "appId": "x"})
			convey.So(err, convey.ShouldBeNil)
			convey.So(a.ID, convey.ShouldNotEqual, b.ID)
		})
	})
}

func TestReason(t *testing.T) {
	convey.Convey("Given validation failures", t, func() {
		cases := map[string]map[string]any{
			"unknown_field":       {"entity": "page", "action": "view", "appId": "x", "nope": 1},
			"missing_field":       {"entity": "page", "action": "view"},
			"invalid_enum":        {"entity": "frame", "action": "view", "appId": "x"},
			"invariant_violation": {"entity": "page", "action": "click", "appId": "x"},
			"malformed_payload":   {"entity": "page", "action": "view", "appId": "x", "ts": "nope"},
		}

		convey.Convey("Then each maps to its metric reason label", func() {
			for want, raw := range cases {
				_, err := event.Validate(raw)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(event.Reason(err), convey.ShouldEqual, want)
			}
		})
	})
}
