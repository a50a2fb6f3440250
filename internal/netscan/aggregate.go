package netscan

import (
	"context"
	"time"

	"github.com/officewatch/officewatch/internal/logging"
	"github.com/officewatch/officewatch/internal/metrics"
)

// Scan log labels for the two sweeps of a double scan.
const (
	labelFirstScan  = "FIRST_SCAN"
	labelSecondScan = "SECOND_SCAN"
)

// defaultCooldown is the pause between the two sweeps. A single ARP sweep
// misses devices that briefly sleep their radio (phones especially); two
// samples a minute apart materially raise recall at the cost of latency.
const defaultCooldown = 60 * time.Second

// Aggregator runs the double-scan cycle: scan, cooldown, scan again, merge
// observations deduplicated by MAC. It is a blocking, sequential operation;
// worst-case latency is roughly two scan durations plus the cooldown.
type Aggregator struct {
	runner   Runner
	detector *Detector
	scanLog  *ScanLog
	cooldown time.Duration
	logger   *logging.Logger

	// sleep is injectable so tests don't wait out the cooldown.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAggregator creates a double-scan aggregator. A nil scanLog disables
// raw-output logging; cooldown <= 0 selects the default.
func NewAggregator(runner Runner, detector *Detector, scanLog *ScanLog, cooldown time.Duration, logger *logging.Logger) *Aggregator {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Aggregator{
		runner:   runner,
		detector: detector,
		scanLog:  scanLog,
		cooldown: cooldown,
		logger:   logger.WithComponent("aggregator"),
		sleep:    sleepContext,
	}
}

// Aggregate performs the double scan and returns the merged observation
// set. Either underlying scan failing fails the whole aggregate; there is
// no partial result.
func (a *Aggregator) Aggregate(ctx context.Context) ([]Observation, error) {
	iface := a.detector.Detect(ctx)
	timer := time.Now()

	first, err := a.scanOnce(ctx, iface, labelFirstScan)
	if err != nil {
		metrics.IncrementScanTotal("error")
		return nil, err
	}

	if err := a.sleep(ctx, a.cooldown); err != nil {
		metrics.IncrementScanTotal("canceled")
		return nil, err
	}

	second, err := a.scanOnce(ctx, iface, labelSecondScan)
	if err != nil {
		metrics.IncrementScanTotal("error")
		return nil, err
	}

	merged := Merge(first, second)

	metrics.IncrementScanTotal("success")
	metrics.RecordScanDuration(iface, time.Since(timer))
	a.logger.InfoScan("Double scan complete", iface,
		"first", len(first), "second", len(second), "merged", len(merged))

	return merged, nil
}

func (a *Aggregator) scanOnce(ctx context.Context, iface, label string) ([]Observation, error) {
	raw, err := a.runner.Run(ctx, iface)
	if err != nil {
		a.logger.ErrorScan("Scan failed", iface, err, "label", label)
		return nil, err
	}

	if a.scanLog != nil {
		if logErr := a.scanLog.Append(label, raw); logErr != nil {
			// Best-effort side channel; never fails the pipeline.
			a.logger.Warn("Scan log write failed", "error", logErr)
		}
	}

	return Parse(raw), nil
}

// Merge combines two observation sets deduplicated by MAC. The second set
// is applied after the first, so on a MAC collision the second scan's entry
// wins; result order follows first appearance.
func Merge(first, second []Observation) []Observation {
	merged := make([]Observation, 0, len(first)+len(second))
	index := make(map[string]int, len(first)+len(second))

	for _, obs := range append(append([]Observation{}, first...), second...) {
		if i, seen := index[obs.MAC]; seen {
			merged[i] = obs
			continue
		}
		index[obs.MAC] = len(merged)
		merged = append(merged, obs)
	}
	return merged
}

// sleepContext pauses for d or until the context is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
