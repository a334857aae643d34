package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/vigil/internal/drowsiness"
	"github.com/ayusman/vigil/internal/safety"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vigil.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault_MatchesEngineDefaults(t *testing.T) {
	cfg := Default()

	if got, want := cfg.DrowsinessConfig(), drowsiness.DefaultConfig(); got != want {
		t.Errorf("drowsiness config = %+v, want %+v", got, want)
	}
	if got, want := cfg.SafetyMachineConfig(), safety.DefaultConfig(); got != want {
		t.Errorf("safety config = %+v, want %+v", got, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
camera:
  fps: 30
safety:
  time_to_critical: 12s
  probation_time: 10m
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Camera.FPS != 30 {
		t.Errorf("camera.fps = %d", cfg.Camera.FPS)
	}
	if cfg.Safety.TimeToCritical != 12*time.Second {
		t.Errorf("safety.time_to_critical = %v", cfg.Safety.TimeToCritical)
	}
	if cfg.Safety.ProbationTime != 10*time.Minute {
		t.Errorf("safety.probation_time = %v", cfg.Safety.ProbationTime)
	}
	if cfg.Safety.TimeToWarning != 2*time.Second {
		t.Errorf("unset keys should keep defaults, time_to_warning = %v", cfg.Safety.TimeToWarning)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VIGIL_SERVER_ADDR", ":7070")
	t.Setenv("VIGIL_SAFETY_TIME_TO_WARNING", "3s")
	t.Setenv("VIGIL_DETECTION_WINDOW_SIZE", "5")

	cfg, err := Load(writeConfig(t, "server:\n  addr: \":9090\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":7070" {
		t.Errorf("env should win over file, got %q", cfg.Server.Addr)
	}
	if cfg.Safety.TimeToWarning != 3*time.Second {
		t.Errorf("time_to_warning = %v", cfg.Safety.TimeToWarning)
	}
	if cfg.Detection.WindowSize != 5 {
		t.Errorf("window_size = %d", cfg.Detection.WindowSize)
	}
}

func TestLoad_GeminiKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Load(writeConfig(t, "tray:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Report.APIKey != "from-env" {
		t.Errorf("api key = %q", cfg.Report.APIKey)
	}
	if cfg.Tray.Enabled {
		t.Error("tray.enabled should be false")
	}

	t.Setenv("VIGIL_REPORT_API_KEY", "explicit")
	cfg, err = Load(writeConfig(t, "tray:\n  enabled: true\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Report.APIKey != "explicit" {
		t.Errorf("VIGIL_REPORT_API_KEY should take precedence, got %q", cfg.Report.APIKey)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_InvalidRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "detection:\n  window_size: 0\n"))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero fps", func(c *Config) { c.Camera.FPS = 0 }},
		{"negative window", func(c *Config) { c.Detection.WindowSize = -1 }},
		{"zero blink window", func(c *Config) { c.Detection.BlinkWindow = 0 }},
		{"critical before warning", func(c *Config) { c.Safety.TimeToCritical = time.Second }},
		{"recovery above warning", func(c *Config) { c.Safety.RecoveryThreshold = 3 * time.Second }},
		{"relapse past critical", func(c *Config) { c.Safety.RelapseThreshold = time.Minute }},
		{"negative probation", func(c *Config) { c.Safety.ProbationTime = -time.Second }},
		{"zero report timeout", func(c *Config) { c.Report.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}
