// Package config loads vigil settings from defaults, an optional YAML file,
// a .env file and VIGIL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ayusman/vigil/internal/drowsiness"
	"github.com/ayusman/vigil/internal/logging"
	"github.com/ayusman/vigil/internal/safety"
)

// EnvPrefix prefixes every environment override, e.g. VIGIL_SERVER_ADDR.
const EnvPrefix = "VIGIL"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Camera    CameraConfig    `mapstructure:"camera"`
	Detection DetectionConfig `mapstructure:"detection"`
	Safety    SafetyConfig    `mapstructure:"safety"`
	Report    ReportConfig    `mapstructure:"report"`
	Plugins   PluginsConfig   `mapstructure:"plugins"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tray      TrayConfig      `mapstructure:"tray"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

// CameraConfig holds capture device settings.
type CameraConfig struct {
	Device int `mapstructure:"device"`
	FPS    int `mapstructure:"fps"`
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// DetectionConfig holds signal pipeline thresholds.
type DetectionConfig struct {
	EARThreshold       float64       `mapstructure:"ear_threshold"`
	LowEARThreshold    float64       `mapstructure:"low_ear_threshold"`
	HeadPitchThreshold float64       `mapstructure:"head_pitch_threshold"`
	PitchCalibration   float64       `mapstructure:"pitch_calibration"`
	WindowSize         int           `mapstructure:"window_size"`
	BlinkWindow        time.Duration `mapstructure:"blink_window"`
	LowBlinkRate       int           `mapstructure:"low_blink_rate"`
}

// SafetyConfig holds state machine thresholds.
type SafetyConfig struct {
	TimeToWarning     time.Duration `mapstructure:"time_to_warning"`
	TimeToCritical    time.Duration `mapstructure:"time_to_critical"`
	ProbationTime     time.Duration `mapstructure:"probation_time"`
	RelapseThreshold  time.Duration `mapstructure:"relapse_threshold"`
	RecoveryThreshold time.Duration `mapstructure:"recovery_threshold"`
	RecoveryScore     float64       `mapstructure:"recovery_score"`
}

// ReportConfig holds incident report settings.
type ReportConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	Location      string        `mapstructure:"location"`
	DispatchDelay time.Duration `mapstructure:"dispatch_delay"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// PluginsConfig holds alert plugin settings.
type PluginsConfig struct {
	Dir     string        `mapstructure:"dir"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// TrayConfig holds menu bar settings.
type TrayConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.static_dir", "")

	v.SetDefault("camera.device", 0)
	v.SetDefault("camera.fps", 15)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)

	d := drowsiness.DefaultConfig()
	v.SetDefault("detection.ear_threshold", d.EARThreshold)
	v.SetDefault("detection.low_ear_threshold", d.LowEARThreshold)
	v.SetDefault("detection.head_pitch_threshold", d.HeadPitchThreshold)
	v.SetDefault("detection.pitch_calibration", d.PitchCalibration)
	v.SetDefault("detection.window_size", d.WindowSize)
	v.SetDefault("detection.blink_window", d.BlinkWindow)
	v.SetDefault("detection.low_blink_rate", d.LowBlinkRate)

	s := safety.DefaultConfig()
	v.SetDefault("safety.time_to_warning", s.TimeToWarning)
	v.SetDefault("safety.time_to_critical", s.TimeToCritical)
	v.SetDefault("safety.probation_time", s.ProbationTime)
	v.SetDefault("safety.relapse_threshold", s.RelapseThreshold)
	v.SetDefault("safety.recovery_threshold", s.RecoveryThreshold)
	v.SetDefault("safety.recovery_score", s.RecoveryScore)

	v.SetDefault("report.api_key", "")
	v.SetDefault("report.model", "gemini-2.0-flash")
	v.SetDefault("report.location", "Lat: 34.0522, Long: -118.2437")
	v.SetDefault("report.dispatch_delay", 2*time.Second)
	v.SetDefault("report.timeout", 30*time.Second)

	v.SetDefault("plugins.dir", "plugins")
	v.SetDefault("plugins.timeout", 5*time.Second)

	l := logging.DefaultConfig()
	v.SetDefault("logging.level", l.Level)
	v.SetDefault("logging.file", l.File)
	v.SetDefault("logging.max_size", l.MaxSize)
	v.SetDefault("logging.max_backups", l.MaxBackups)
	v.SetDefault("logging.max_age", l.MaxAge)
	v.SetDefault("logging.compress", l.Compress)

	v.SetDefault("tray.enabled", true)
}

// Default returns the built-in configuration without reading files or the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration. An empty path searches ./vigil.yaml and
// ./config/vigil.yaml; a missing file is not an error unless path was given.
func Load(path string) (*Config, error) {
	// A missing .env is fine; the process environment is used as is.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vigil")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if cfg.Report.APIKey == "" {
		cfg.Report.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	d, s := c.Detection, c.Safety

	switch {
	case c.Camera.FPS <= 0:
		return fmt.Errorf("%w: camera.fps must be positive", ErrInvalid)
	case d.WindowSize <= 0:
		return fmt.Errorf("%w: detection.window_size must be positive", ErrInvalid)
	case d.BlinkWindow <= 0:
		return fmt.Errorf("%w: detection.blink_window must be positive", ErrInvalid)
	case d.EARThreshold <= 0:
		return fmt.Errorf("%w: detection.ear_threshold must be positive", ErrInvalid)
	case s.TimeToWarning <= 0:
		return fmt.Errorf("%w: safety.time_to_warning must be positive", ErrInvalid)
	case s.TimeToCritical <= s.TimeToWarning:
		return fmt.Errorf("%w: safety.time_to_critical must exceed time_to_warning", ErrInvalid)
	case s.RecoveryThreshold >= s.TimeToWarning:
		return fmt.Errorf("%w: safety.recovery_threshold must be below time_to_warning", ErrInvalid)
	case s.RelapseThreshold <= 0 || s.RelapseThreshold > s.TimeToCritical:
		return fmt.Errorf("%w: safety.relapse_threshold must be within (0, time_to_critical]", ErrInvalid)
	case s.ProbationTime < 0:
		return fmt.Errorf("%w: safety.probation_time must not be negative", ErrInvalid)
	case c.Report.Timeout <= 0:
		return fmt.Errorf("%w: report.timeout must be positive", ErrInvalid)
	}
	return nil
}

// DrowsinessConfig converts the detection section for the signal pipeline.
func (c *Config) DrowsinessConfig() drowsiness.Config {
	d := c.Detection
	return drowsiness.Config{
		EARThreshold:       d.EARThreshold,
		LowEARThreshold:    d.LowEARThreshold,
		HeadPitchThreshold: d.HeadPitchThreshold,
		PitchCalibration:   d.PitchCalibration,
		WindowSize:         d.WindowSize,
		BlinkWindow:        d.BlinkWindow,
		LowBlinkRate:       d.LowBlinkRate,
	}
}

// SafetyMachineConfig converts the safety section for the state machine.
func (c *Config) SafetyMachineConfig() safety.Config {
	s := c.Safety
	return safety.Config{
		TimeToWarning:     s.TimeToWarning,
		TimeToCritical:    s.TimeToCritical,
		ProbationTime:     s.ProbationTime,
		RelapseThreshold:  s.RelapseThreshold,
		RecoveryThreshold: s.RecoveryThreshold,
		RecoveryScore:     s.RecoveryScore,
	}
}

// LoggerConfig converts the logging section.
func (c *Config) LoggerConfig() logging.Config {
	l := c.Logging
	return logging.Config{
		Level:      l.Level,
		File:       l.File,
		MaxSize:    l.MaxSize,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAge,
		Compress:   l.Compress,
	}
}
