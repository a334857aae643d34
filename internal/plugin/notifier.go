package plugin

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/vigil/internal/logging"
)

// Notifier fans safety events out to subscribed plugins without blocking the caller.
type Notifier struct {
	manager  *Manager
	executor *Executor
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewNotifier creates a Notifier.
func NewNotifier(manager *Manager, executor *Executor, logger *zap.Logger) *Notifier {
	return &Notifier{
		manager:  manager,
		executor: executor,
		logger:   logging.OrNop(logger).Named("plugin"),
	}
}

// Notify runs every plugin subscribed to req.Event in its own goroutine.
// It returns the number of plugins started.
func (n *Notifier) Notify(ctx context.Context, req Request) int {
	subs := n.manager.Subscribers(req.Event)
	for _, p := range subs {
		n.wg.Add(1)
		go func(p *Plugin) {
			defer n.wg.Done()
			n.run(ctx, p, req)
		}(p)
	}
	return len(subs)
}

// Wait blocks until all started plugins have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) run(ctx context.Context, p *Plugin, req Request) {
	log := n.logger.With(zap.String("plugin", p.Manifest.Name), zap.String("event", req.Event))

	resp, err := n.executor.Execute(ctx, p, &req)
	if err != nil {
		log.Warn("plugin failed", zap.Error(err))
		return
	}
	if !resp.Success {
		log.Warn("plugin reported failure", zap.String("error", resp.Error))
		return
	}
	log.Debug("plugin handled event")
}
