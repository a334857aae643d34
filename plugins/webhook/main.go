// Package main provides a webhook plugin.
// It forwards the safety event it receives to an HTTP endpoint as JSON.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the plugin configuration from the manifest.
type Config struct {
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	TimeoutMs int               `json:"timeout_ms"`
}

func main() {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("failed to read request: %v", err))
		return
	}

	var req struct {
		Event  string          `json:"event"`
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}
	if cfg.URL == "" {
		writeErrorResponse("url is required")
		return
	}

	body, err := eventBody(raw)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("failed to encode event: %v", err))
		return
	}

	status, err := post(cfg, body)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("event %s failed: %v", req.Event, err))
		return
	}

	data, _ := json.Marshal(map[string]int{"status": status})
	writeSuccessResponse(data)
}

// eventBody returns the request without its manifest config, so headers
// meant for the endpoint never end up in the payload.
func eventBody(raw []byte) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "config")
	return json.Marshal(doc)
}

// post sends the event document and returns the response status.
func post(cfg Config, body []byte) (int, error) {
	timeout := 3 * time.Second
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}

	req, err := http.NewRequest(http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("endpoint returned %s", resp.Status)
	}
	return resp.StatusCode, nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response with optional data to stdout.
func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}
