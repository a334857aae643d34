package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ayusman/vigil/internal/app"
	"github.com/ayusman/vigil/internal/plugin"
	"github.com/ayusman/vigil/internal/report"
	"github.com/ayusman/vigil/internal/server"
	"github.com/ayusman/vigil/internal/store"
	"github.com/ayusman/vigil/testdata"
)

type harness struct {
	store  *store.Store
	app    *app.App
	server *httptest.Server
	gen    *report.Mock
}

func newHarness(t *testing.T, pluginDir string) *harness {
	t.Helper()

	s, err := store.New(store.MemoryPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	gen := report.NewMock()
	a, err := app.New(app.Config{
		Store:     s,
		Report:    report.Config{GenerateTimeout: time.Second},
		Generator: gen,
		Location:  "Lat: 34.0522, Long: -118.2437",
		PluginDir: pluginDir,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	if err := a.DiscoverPlugins(); err != nil {
		t.Fatalf("DiscoverPlugins() error = %v", err)
	}

	srv := server.New(server.Config{Store: s, Monitor: a})
	a.AddSink(srv.Live())

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &harness{store: s, app: a, server: ts, gen: gen}
}

// play feeds every scenario frame to the app on a simulated clock and
// returns the time of the first frame.
func (h *harness) play(t *testing.T, sc *testdata.Scenario) time.Time {
	t.Helper()

	frames, err := sc.Frames()
	if err != nil {
		t.Fatalf("Frames() error = %v", err)
	}

	t0 := time.Now()
	for _, f := range frames {
		h.app.ProcessFrame(f.Face, t0.Add(f.Offset))
	}
	return t0
}

func (h *harness) getJSON(t *testing.T, path string, v any) {
	t.Helper()

	resp, err := h.server.Client().Get(h.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s error = %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want %d", path, resp.StatusCode, http.StatusOK)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s decode error = %v", path, err)
	}
}

func TestE2E_Scenarios(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	names, err := testdata.Scenarios()
	if err != nil {
		t.Fatalf("Scenarios() error = %v", err)
	}
	if len(names) == 0 {
		t.Fatal("no scenarios embedded")
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			sc, err := testdata.LoadScenario(name)
			if err != nil {
				t.Fatalf("LoadScenario() error = %v", err)
			}

			h := newHarness(t, t.TempDir())
			sessionID := h.app.Session().ID()

			t0 := h.play(t, sc)

			// Close drains pending reports before they are checked.
			if err := h.app.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			var events struct {
				Events []store.Event `json:"events"`
			}
			h.getJSON(t, "/api/events?session="+sessionID, &events)

			if len(events.Events) != len(sc.Expect) {
				t.Fatalf("got %d events, want %d: %+v", len(events.Events), len(sc.Expect), events.Events)
			}

			for i, want := range sc.Expect {
				got := events.Events[i]
				if got.Kind != want.Event || got.ToState != want.To {
					t.Errorf("event %d = %s/%s, want %s/%s", i, got.Kind, got.ToState, want.Event, want.To)
				}
				if want.Episode != 0 && got.Episode != want.Episode {
					t.Errorf("event %d episode = %d, want %d", i, got.Episode, want.Episode)
				}

				at := got.CreatedAt.Sub(t0).Milliseconds()
				if d := at - want.AtMs; d < -want.ToleranceMs || d > want.ToleranceMs {
					t.Errorf("event %d (%s) at %dms, want %dms ±%d", i, got.Kind, at, want.AtMs, want.ToleranceMs)
				}
			}

			var reports struct {
				Reports []store.Report `json:"reports"`
			}
			h.getJSON(t, "/api/reports?session="+sessionID, &reports)

			if len(reports.Reports) != sc.Reports {
				t.Fatalf("got %d reports, want %d", len(reports.Reports), sc.Reports)
			}
			for i, rep := range reports.Reports {
				if rep.Episode != i+1 {
					t.Errorf("report %d episode = %d, want %d", i, rep.Episode, i+1)
				}
				if rep.Text != "Mock incident report" {
					t.Errorf("report %d text = %q", i, rep.Text)
				}
			}
			if len(h.gen.Calls()) != sc.Reports {
				t.Errorf("generator called %d times, want %d", len(h.gen.Calls()), sc.Reports)
			}
		})
	}
}

func TestE2E_PluginReceivesCriticalAlert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	pluginDir := t.TempDir()
	marker := filepath.Join(t.TempDir(), "alerts.jsonl")

	dir := filepath.Join(pluginDir, "recorder")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	manifest, _ := json.Marshal(plugin.Manifest{
		Name:       "recorder",
		Version:    "1.0.0",
		Executable: "recorder.sh",
		Events:     []string{"critical", "relapse"},
	})
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), manifest, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	script := "#!/bin/sh\ncat >> " + marker + "\necho >> " + marker + "\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(dir, "recorder.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	h := newHarness(t, pluginDir)
	if n := len(h.app.PluginManager().List()); n != 1 {
		t.Fatalf("expected 1 plugin, got %d", n)
	}

	sc, err := testdata.LoadScenario("eyes_closed_recovery")
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}
	h.play(t, sc)

	// Close waits for running plugins.
	if err := h.app.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("plugin did not run: %v", err)
	}

	var req plugin.Request
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("plugin received invalid JSON: %v (%s)", err, data)
	}
	if req.Event != "critical" || req.To != "CRITICAL" || req.Episode != 1 {
		t.Errorf("unexpected alert: %+v", req)
	}
	if req.ClosedMs != 10100 {
		t.Errorf("alert closed_ms = %d, want 10100", req.ClosedMs)
	}
}

func TestE2E_HealthAfterSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	h := newHarness(t, t.TempDir())

	sc, err := testdata.LoadScenario("short_closure")
	if err != nil {
		t.Fatalf("LoadScenario() error = %v", err)
	}
	h.play(t, sc)

	var health map[string]any
	h.getJSON(t, "/api/health", &health)

	if health["status"] != "ok" || health["state"] != "NORMAL" {
		t.Errorf("unexpected health: %v", health)
	}
	if health["session_id"] != h.app.Session().ID() {
		t.Errorf("health session = %v, want %s", health["session_id"], h.app.Session().ID())
	}

	h.app.Close()
}
