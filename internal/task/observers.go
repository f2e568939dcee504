// This file contains concrete observer implementations for the progress
// observer pattern.
package task

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// ─────────────────────────────────────────────────────────────────────────────
// Channel Observer
// ─────────────────────────────────────────────────────────────────────────────

// ChannelObserver adapts the observer pattern to channel-based communication
// for UI code that consumes progress updates from a channel.
type ChannelObserver struct {
	channel chan<- ProgressUpdate
}

// NewChannelObserver creates an observer that sends updates to a channel.
// The channel should have sufficient buffer capacity to avoid blocking.
// If ch is nil, updates are discarded.
func NewChannelObserver(ch chan<- ProgressUpdate) *ChannelObserver {
	return &ChannelObserver{channel: ch}
}

// Update implements ProgressObserver by sending to the channel.
// Uses non-blocking send to avoid deadlocks when the channel is full.
func (o *ChannelObserver) Update(update ProgressUpdate) {
	if o.channel == nil {
		return
	}
	if update.Fraction > 1.0 {
		update.Fraction = 1.0
	}
	select {
	case o.channel <- update:
	default:
		// Channel full, drop update (UI will catch up on next update)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Logging Observer
// ─────────────────────────────────────────────────────────────────────────────

// LoggingObserver logs progress updates using zerolog.
// It throttles logging based on a threshold to avoid log spam.
type LoggingObserver struct {
	logger    zerolog.Logger
	threshold float64         // Minimum progress change to log
	lastLog   map[int]float64 // Last logged fraction per task
	mu        sync.Mutex
}

// NewLoggingObserver creates an observer that logs progress.
// It only logs when progress changes by at least the threshold amount.
func NewLoggingObserver(logger zerolog.Logger, threshold float64) *LoggingObserver {
	if threshold <= 0 {
		threshold = 0.1 // Default to 10%
	}
	return &LoggingObserver{
		logger:    logger,
		threshold: threshold,
		lastLog:   make(map[int]float64),
	}
}

// Update implements ProgressObserver by logging significant progress changes.
func (o *LoggingObserver) Update(update ProgressUpdate) {
	o.mu.Lock()
	defer o.mu.Unlock()

	last := o.lastLog[update.TaskIndex]
	shouldLog := update.Fraction >= 1.0 ||
		last == 0 && update.Fraction > 0 ||
		update.Fraction-last >= o.threshold

	if shouldLog {
		o.logger.Debug().
			Int("task", update.TaskIndex).
			Float64("fraction", update.Fraction).
			Int64("transforms", update.Transforms).
			Str("percent", fmt.Sprintf("%.1f%%", update.Fraction*100)).
			Msg("exponentiation progress")
		o.lastLog[update.TaskIndex] = update.Fraction
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Metrics Observer (Prometheus)
// ─────────────────────────────────────────────────────────────────────────────

var (
	// progressGauge tracks run progress per task.
	// Registered once globally to avoid duplicate registration errors.
	progressGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "primecalc_exponentiation_progress",
			Help: "Current progress of exponentiation runs (0.0 to 1.0)",
		},
		[]string{"task_index"},
	)
	transformsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "primecalc_exponentiation_transforms",
			Help: "Cumulative backend transforms per run",
		},
		[]string{"task_index"},
	)
)

// MetricsObserver exports progress to Prometheus gauges.
type MetricsObserver struct {
	progress   *prometheus.GaugeVec
	transforms *prometheus.GaugeVec
}

// NewMetricsObserver creates an observer that updates Prometheus metrics.
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{progress: progressGauge, transforms: transformsGauge}
}

// Update implements ProgressObserver by updating the gauges.
func (o *MetricsObserver) Update(update ProgressUpdate) {
	label := fmt.Sprintf("%d", update.TaskIndex)
	o.progress.WithLabelValues(label).Set(update.Fraction)
	o.transforms.WithLabelValues(label).Set(float64(update.Transforms))
}

// ResetMetrics resets the gauges for all tasks.
// This should be called at the start of a new batch of runs.
func (o *MetricsObserver) ResetMetrics() {
	o.progress.Reset()
	o.transforms.Reset()
}

// ─────────────────────────────────────────────────────────────────────────────
// No-Op Observer (Null Object Pattern)
// ─────────────────────────────────────────────────────────────────────────────

// NoOpObserver is a null object that discards all progress updates.
// Useful for testing or when progress tracking is not needed.
type NoOpObserver struct{}

// NewNoOpObserver creates a no-op observer that discards updates.
func NewNoOpObserver() *NoOpObserver {
	return &NoOpObserver{}
}

// Update implements ProgressObserver by doing nothing.
func (o *NoOpObserver) Update(ProgressUpdate) {
	// Intentionally empty - Null Object pattern
}
