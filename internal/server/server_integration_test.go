package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/vigil/internal/app"
	"github.com/ayusman/vigil/internal/face"
	"github.com/ayusman/vigil/internal/report"
	"github.com/ayusman/vigil/internal/safety"
	"github.com/ayusman/vigil/internal/store"
)

func TestAPI_IncidentWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	// Setup
	s, err := store.New(store.MemoryPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	a, err := app.New(app.Config{
		Store:     s,
		Report:    report.Config{GenerateTimeout: time.Second},
		Generator: report.NewMock(),
		PluginDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	srv := New(Config{Store: s, Monitor: a})
	a.AddSink(srv.Live())

	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Subscribe to live updates
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap app.Update
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if snap.State != safety.Normal {
		t.Errorf("initial state = %s, want NORMAL", snap.State)
	}

	deadline := time.Now().Add(time.Second)
	for srv.Live().Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	// 2. Drive a 3s eye closure through the app
	closed := face.ClosedEyesLandmarks()
	t0 := time.Now()
	for i := 0; i < 30; i++ {
		a.ProcessFrame(&closed, t0.Add(time.Duration(i)*100*time.Millisecond))
	}

	var last app.Update
	for i := 0; i < 30; i++ {
		if err := conn.ReadJSON(&last); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
	}
	if last.State != safety.Warning {
		t.Errorf("live state = %s, want WARNING", last.State)
	}

	// 3. Session endpoint reflects the state
	resp, err := client.Get(ts.URL + "/api/session")
	if err != nil {
		t.Fatalf("GET /api/session error = %v", err)
	}
	var session struct {
		SessionID string `json:"session_id"`
		State     string `json:"state"`
	}
	json.NewDecoder(resp.Body).Decode(&session)
	resp.Body.Close()

	if session.State != "WARNING" || session.SessionID != a.Session().ID() {
		t.Errorf("unexpected session response: %+v", session)
	}

	// 4. The warning is in the event log
	resp, _ = client.Get(ts.URL + "/api/events?kind=warning")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/events status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var events struct {
		Events []store.Event `json:"events"`
	}
	json.NewDecoder(resp.Body).Decode(&events)
	resp.Body.Close()

	if len(events.Events) != 1 || events.Events[0].ToState != "WARNING" {
		t.Errorf("unexpected events: %+v", events.Events)
	}

	// 5. Reset starts a clean session
	resp, _ = client.Post(ts.URL+"/api/session/reset", "application/json", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/session/reset status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	resp, _ = client.Get(ts.URL + "/api/events")
	json.NewDecoder(resp.Body).Decode(&events)
	resp.Body.Close()
	if len(events.Events) != 0 {
		t.Errorf("new session should have no events, got %d", len(events.Events))
	}

	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
