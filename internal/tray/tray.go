// Package tray provides the menu bar indicator for the driver safety state.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/vigil/internal/app"
	"github.com/ayusman/vigil/internal/safety"
)

// statusInterval limits how often the metrics line is redrawn.
const statusInterval = 500 * time.Millisecond

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onDashboard func()
	onReset     func()
	onQuit      func()
	enabled     bool
	mu          sync.RWMutex

	state      safety.State
	probation  bool
	lastStatus time.Time

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray instance with monitoring enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
		state:   safety.Normal,
	}
}

// OnToggle sets the callback called when monitoring is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDashboard sets the callback for the dashboard menu item.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnReset sets the callback for the reset session menu item.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	t.mu.Lock()
	systray.SetTitle(Title(t.state, t.probation))
	systray.SetTooltip("Vigil driver drowsiness monitor")

	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle monitoring")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem("No face yet", "Latest metrics")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	menuReset := systray.AddMenuItem("Reset Session", "Start a new monitoring session")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Vigil")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuDashboard.ClickedCh:
				t.call(func() func() { return t.onDashboard })
			case <-menuReset.ClickedCh:
				t.call(func() func() { return t.onReset })
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// call runs the callback returned by get outside the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.call(func() func() { return t.onQuit })
	systray.Quit()
}

// Publish implements app.Sink. The title changes with the safety state;
// the metrics line is redrawn at most every statusInterval.
func (t *Tray) Publish(u app.Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ready := t.menuStatus != nil

	if u.State != t.state || u.ProbationActive != t.probation {
		t.state = u.State
		t.probation = u.ProbationActive
		if ready {
			systray.SetTitle(Title(t.state, t.probation))
		}
	}

	if ready && u.At.Sub(t.lastStatus) >= statusInterval {
		t.lastStatus = u.At
		t.menuStatus.SetTitle(StatusLine(u))
	}
}

// State returns the last published safety state.
func (t *Tray) State() safety.State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Title renders the menu bar title for a state.
func Title(state safety.State, probation bool) string {
	var title string
	switch state {
	case safety.Critical:
		title = "⛔ CRITICAL"
	case safety.Warning:
		title = "⚠ WARNING"
	default:
		title = "● NORMAL"
	}
	if probation {
		title += " (probation)"
	}
	return title
}

// StatusLine renders the metrics summary shown in the menu.
func StatusLine(u app.Update) string {
	m := u.Metrics
	return fmt.Sprintf("Score %.0f | EAR %.2f | closed %.1fs | %d blinks/min",
		m.DrowsinessScore, m.EAR, m.EyesClosedDuration, m.BlinksPerMinute)
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Monitoring"
	}
	return "○ Paused"
}
