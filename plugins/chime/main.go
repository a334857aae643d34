// Package main provides an audible alarm plugin.
// It plays platform sounds chosen by event severity via afplay (macOS) or paplay (Linux).
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event   string          `json:"event"`
	Message string          `json:"message"`
	Config  json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the plugin configuration from the manifest.
type Config struct {
	Volume              int  `json:"volume"`
	MaxVolumeOnCritical bool `json:"max_volume_on_critical"`
}

// alarm describes how one event sounds.
type alarm struct {
	sound   string
	repeats int
	urgent  bool
}

// alarms maps event kinds to alarms.
var alarms = map[string]alarm{
	"warning":   {sound: "warning", repeats: 1},
	"critical":  {sound: "critical", repeats: 3, urgent: true},
	"relapse":   {sound: "critical", repeats: 3, urgent: true},
	"recovered": {sound: "recovered", repeats: 1},
}

// darwinSounds and linuxSounds map alarm sounds to system sound files.
var darwinSounds = map[string]string{
	"warning":   "/System/Library/Sounds/Ping.aiff",
	"critical":  "/System/Library/Sounds/Sosumi.aiff",
	"recovered": "/System/Library/Sounds/Glass.aiff",
}

var linuxSounds = map[string]string{
	"warning":   "/usr/share/sounds/freedesktop/stereo/dialog-warning.oga",
	"critical":  "/usr/share/sounds/freedesktop/stereo/alarm-clock-elapsed.oga",
	"recovered": "/usr/share/sounds/freedesktop/stereo/complete.oga",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	a, ok := alarms[req.Event]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown event: %s", req.Event))
		return
	}

	cfg := Config{Volume: 80}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	if err := play(a, cfg); err != nil {
		writeErrorResponse(fmt.Sprintf("event %s failed: %v", req.Event, err))
		return
	}

	writeSuccessResponse()
}

// play sets the output volume when supported and plays the alarm sound.
func play(a alarm, cfg Config) error {
	volume := cfg.Volume
	if a.urgent && cfg.MaxVolumeOnCritical {
		volume = 100
	}

	var file string
	var player []string
	switch runtime.GOOS {
	case "darwin":
		if err := runAppleScript(fmt.Sprintf("set volume output volume %d", clampVolume(volume))); err != nil {
			return err
		}
		file = darwinSounds[a.sound]
		player = []string{"afplay"}
	case "linux":
		file = linuxSounds[a.sound]
		// paplay volume is linear 0..65536.
		player = []string{"paplay", fmt.Sprintf("--volume=%d", clampVolume(volume)*65536/100)}
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	for i := 0; i < a.repeats; i++ {
		args := append(append([]string{}, player[1:]...), file)
		if output, err := exec.Command(player[0], args...).CombinedOutput(); err != nil {
			return fmt.Errorf("%w: %s", err, string(output))
		}
	}
	return nil
}

func clampVolume(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	resp := Response{
		Success: true,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
