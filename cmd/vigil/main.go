package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/vigil/internal/app"
	"github.com/ayusman/vigil/internal/capture"
	"github.com/ayusman/vigil/internal/config"
	"github.com/ayusman/vigil/internal/logging"
	"github.com/ayusman/vigil/internal/report"
	"github.com/ayusman/vigil/internal/server"
	"github.com/ayusman/vigil/internal/store"
	"github.com/ayusman/vigil/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	headless := flag.Bool("headless", false, "run without the menu bar indicator")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vigil: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LoggerConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "vigil: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, *headless, logger); err != nil {
		logger.Error("vigil stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, headless bool, logger *zap.Logger) error {
	// The event log lives only as long as the process.
	st, err := store.New(store.MemoryPath)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()
	logger.Debug("event store opened", zap.String("path", st.Path()))

	var gen report.Generator
	if g, err := report.NewGemini(report.GeminiConfig{
		APIKey:  cfg.Report.APIKey,
		Model:   cfg.Report.Model,
		Timeout: cfg.Report.Timeout,
	}); err == nil {
		gen = g
		defer g.Close()
	} else {
		logger.Warn("incident reports will use the fallback text", zap.Error(err))
	}

	a, err := app.New(app.Config{
		Store: st,
		Camera: capture.Config{
			DeviceID: cfg.Camera.Device,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.FPS,
		},
		Detection: cfg.DrowsinessConfig(),
		Safety:    cfg.SafetyMachineConfig(),
		Report: report.Config{
			DispatchDelay:   cfg.Report.DispatchDelay,
			GenerateTimeout: cfg.Report.Timeout,
		},
		Generator:     gen,
		Location:      cfg.Report.Location,
		PluginDir:     cfg.Plugins.Dir,
		PluginTimeout: cfg.Plugins.Timeout,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	if err := a.DiscoverPlugins(); err != nil {
		logger.Warn("plugin discovery failed", zap.Error(err))
	}

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Monitor:   a,
		Logger:    logger,
	})
	a.AddSink(srv.Live())
	a.AddFrameSink(srv.Stream())

	go func() {
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	}()

	if err := a.Start(); err != nil {
		logger.Error("camera unavailable, monitoring not started", zap.Error(err))
	}

	var once sync.Once
	shutdown := func() {
		once.Do(func() {
			logger.Info("shutting down")
			if err := a.Close(); err != nil {
				logger.Warn("error closing detector", zap.Error(err))
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("server shutdown", zap.Error(err))
			}
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if headless || !cfg.Tray.Enabled {
		<-sigCh
		shutdown()
		return nil
	}

	dashboardURL := "http://" + cfg.Server.Addr

	t := tray.New()
	a.AddSink(t)
	t.OnToggle(a.SetEnabled)
	t.OnDashboard(func() {
		if err := openBrowser(dashboardURL); err != nil {
			logger.Warn("failed to open dashboard", zap.Error(err))
		}
	})
	t.OnReset(func() {
		if _, err := a.ResetSession(); err != nil {
			logger.Error("failed to reset session", zap.Error(err))
		}
	})
	t.OnQuit(shutdown)

	go func() {
		<-sigCh
		shutdown()
		t.Quit()
	}()

	// Blocks on the main thread until Quit.
	t.Run()
	shutdown()
	return nil
}

// findWebDir searches for the dashboard directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.vigil/web.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".vigil", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
