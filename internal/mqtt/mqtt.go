// Package mqtt publishes wheel-remote telemetry with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/wheel-remote/internal/logic"
)

// Topic is the MQTT topic for button events.
const Topic = "car/wheel-remote/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "car/wheel-remote/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a button event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Wheel WheelPayload `json:"wheel"`
}

// WheelPayload contains the button event details.
type WheelPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"` // "LATCH" or "RELEASE"
	Band      string `json:"band"`
	Output    string `json:"output"`
	State     string `json:"state"` // "ACTIVE" or "INACTIVE"
}

// FormatPayload creates the JSON payload for a button event.
func FormatPayload(event logic.Event) ([]byte, error) {
	kind := "RELEASE"
	state := "INACTIVE"
	if event.Active {
		kind = "LATCH"
		state = "ACTIVE"
	}

	payload := Payload{
		Wheel: WheelPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     kind,
			Band:      event.Band,
			Output:    string(event.Output),
			State:     state,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
