package predict

import (
	"context"
	"log/slog"
	"time"

	"github.com/hongminglow/smartdash-be/internal/metrics"
)

// Pinger is the subset of Client used by KeepAlive.
type Pinger interface {
	Ping(ctx context.Context) (string, error)
}

// KeepAlive periodically pings the prediction service so it does not go cold.
// Failures are logged and never surfaced.
type KeepAlive struct {
	pinger   Pinger
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewKeepAlive returns a KeepAlive; a non-positive interval makes Run a no-op.
func NewKeepAlive(p Pinger, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *KeepAlive {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeepAlive{pinger: p, interval: interval, logger: logger, metrics: m}
}

// Run blocks until ctx is done.
func (k *KeepAlive) Run(ctx context.Context) error {
	if k.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			k.pingOnce(ctx)
		}
	}
}

func (k *KeepAlive) pingOnce(ctx context.Context) {
	service, err := k.pinger.Ping(ctx)
	if err != nil {
		k.logger.WarnContext(ctx, "ai engine ping failed", "error", err)
		k.count("failure")
		return
	}
	k.logger.InfoContext(ctx, "ai engine alive", "service", service)
	k.count("success")
}

func (k *KeepAlive) count(outcome string) {
	if k.metrics != nil {
		k.metrics.EnginePings.WithLabelValues(outcome).Inc()
	}
}
