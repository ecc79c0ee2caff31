package sessions

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultReapInterval matches the original hourly cleanup job.
const DefaultReapInterval = time.Hour

var (
	reapedSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skycost_sessions_reaped_total",
		Help: "Sessions deactivated by the background reaper, by reason.",
	}, []string{"reason"})

	reaperFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skycost_session_reaper_failures_total",
		Help: "Reaper sweeps that returned an error.",
	})
)

// Reaper periodically bulk-deactivates expired and idle sessions so stale
// rows do not depend on request traffic to be noticed. A failed sweep is
// logged and retried on the next tick; it never affects request serving.
type Reaper struct {
	service  *Service
	interval time.Duration
	done     chan struct{}
}

// NewReaper creates a reaper for the given session service. A non-positive
// interval falls back to DefaultReapInterval.
func NewReaper(service *Service, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	return &Reaper{
		service:  service,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine and returns immediately.
// The loop stops when ctx is cancelled or Stop is called.
func (r *Reaper) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop terminates the sweep loop.
func (r *Reaper) Stop() {
	close(r.done)
}

func (r *Reaper) run(ctx context.Context) {
	slog.Info("Session reaper started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep(ctx)
		case <-ctx.Done():
			slog.Info("Session reaper stopped", "reason", ctx.Err())
			return
		case <-r.done:
			slog.Info("Session reaper stopped")
			return
		}
	}
}

// sweep runs one reap pass. Errors are contained here.
func (r *Reaper) sweep(ctx context.Context) {
	expired, idle, err := r.service.Reap(ctx)
	reapedSessions.WithLabelValues("expired").Add(float64(expired))
	reapedSessions.WithLabelValues("idle").Add(float64(idle))

	if err != nil {
		reaperFailures.Inc()
		slog.Error("Session reap sweep failed", "err", err, "expired", expired, "idle", idle)
		return
	}
	slog.Info("Session reap sweep complete", "expired", expired, "idle", idle)
}
