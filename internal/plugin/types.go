// Package plugin discovers and runs external alert plugins that react to safety events.
package plugin

import (
	"encoding/json"
	"slices"
	"time"
)

// AllEvents subscribes a plugin to every event kind.
const AllEvents = "*"

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Subscribes reports whether the manifest lists kind or AllEvents.
func (m Manifest) Subscribes(kind string) bool {
	return slices.Contains(m.Events, kind) || slices.Contains(m.Events, AllEvents)
}

// Request is the JSON document a plugin receives on stdin.
type Request struct {
	Event     string          `json:"event"`
	SessionID string          `json:"session_id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Episode   int             `json:"episode,omitempty"`
	Message   string          `json:"message"`
	Score     float64         `json:"score"`
	ClosedMs  int64           `json:"closed_ms"`
	At        time.Time       `json:"at"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
