package process

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/artlab/artkit/core"
	"github.com/artlab/artkit/metrics"
	"github.com/artlab/artkit/splines"
)

// Operation is one registered processing function: the function itself
// and the modality kinds it applies to. An empty kind list means the
// operation works on the whole Recording and is always applicable.
type Operation struct {
	// Apply processes one Recording. kind names which of the operation's
	// applicable kinds triggered the call; "" for whole-Recording
	// operations.
	Apply func(rec *core.Recording, kind string) error
	// Kinds lists the modality kinds the operation applies to.
	Kinds []string
}

// Options tunes Run.
type Options struct {
	// Workers is the number of recordings processed concurrently.
	// Values below 2 mean sequential execution.
	Workers int
	// Log receives run diagnostics; slog.Default() when nil.
	Log *slog.Logger
}

// RunOption mutates Options.
type RunOption func(*Options)

// WithWorkers fans recordings out to n concurrent workers.
func WithWorkers(n int) RunOption {
	return func(o *Options) { o.Workers = n }
}

// WithLogger sets the run diagnostics logger.
func WithLogger(log *slog.Logger) RunOption {
	return func(o *Options) { o.Log = log }
}

// Run applies every operation to every non-excluded Recording whose
// present modality kinds intersect the operation's kind set. Operations
// run in sorted label order so results are deterministic. Errors from
// individual recordings are joined and returned together; a failing
// recording does not stop the others.
func Run(recordings []*core.Recording, operations map[string]Operation, opts ...RunOption) error {
	options := Options{Log: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}

	labels := make([]string, 0, len(operations))
	for label := range operations {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	if options.Workers < 2 {
		var errs []error
		for _, rec := range recordings {
			if err := runOne(rec, labels, operations, options.Log); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	// Embarrassingly parallel across recordings: each worker owns the
	// recordings it pulls, so no modality map has concurrent writers.
	work := make(chan *core.Recording)
	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup
	for i := 0; i < options.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range work {
				if err := runOne(rec, labels, operations, options.Log); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}
	for _, rec := range recordings {
		work <- rec
	}
	close(work)
	wg.Wait()
	return errors.Join(errs...)
}

// runOne applies the operations to a single Recording.
func runOne(rec *core.Recording, labels []string, operations map[string]Operation, log *slog.Logger) error {
	if rec.Excluded() {
		log.Debug("skipping excluded recording", "recording", rec.Meta.Basename)
		return nil
	}
	for _, label := range labels {
		op := operations[label]
		if len(op.Kinds) == 0 {
			if err := op.Apply(rec, ""); err != nil {
				return fmt.Errorf("%s on %s: %w", label, rec.Meta.Basename, err)
			}
			continue
		}
		for _, kind := range op.Kinds {
			if !rec.Has(kind) {
				continue
			}
			if err := op.Apply(rec, kind); err != nil {
				return fmt.Errorf("%s on %s: %w", label, rec.Meta.Basename, err)
			}
		}
	}
	return nil
}

// SplineMetricOperation builds an Operation that derives the full
// cartesian product of the requested spline metrics and timesteps from a
// Recording's spline modality. Names already present in the Recording
// are skipped, so the operation is idempotent. When releaseDataMemory is
// set, the parent's array is released after the last metric is computed.
func SplineMetricOperation(
	kinds []metrics.SplineMetricKind,
	timesteps []int,
	excludePoints *metrics.PointRange,
	releaseDataMemory bool,
) Operation {
	return Operation{
		Kinds: []string{splines.Kind},
		Apply: func(rec *core.Recording, kind string) error {
			parentModality, ok := rec.Modality(kind)
			if !ok {
				return nil
			}
			parent, ok := parentModality.(*splines.Splines)
			if !ok {
				return fmt.Errorf("%w: %q is not a spline modality", core.ErrUnsupported, kind)
			}

			names, err := metrics.SplineMetricNamesAndMeta(
				kind, kinds, timesteps, excludePoints, releaseDataMemory)
			if err != nil {
				return err
			}
			derived := false
			for _, name := range sortedKeys(names) {
				if rec.Has(name) {
					continue
				}
				params := names[name]
				data, err := metrics.CalculateSplineMetric(parent, params)
				if err != nil {
					return fmt.Errorf("calculating %q: %w", name, err)
				}
				metric, err := metrics.NewSplineMetric(rec, params, core.WithParsedData(data))
				if err != nil {
					return err
				}
				if err := rec.AddModality(metric, false); err != nil {
					return err
				}
				derived = true
			}
			if derived && releaseDataMemory {
				return parent.SetArray(nil)
			}
			return nil
		},
	}
}

// PDOperation builds an Operation that derives pixel difference over a
// Recording's raw ultrasound modality, one modality per norm × timestep
// × mask combination. Idempotent like SplineMetricOperation.
func PDOperation(
	norms []string,
	timesteps []int,
	maskImages bool,
	interpolated bool,
	releaseDataMemory bool,
) Operation {
	return Operation{
		Kinds: []string{core.KindRawUltrasound},
		Apply: func(rec *core.Recording, kind string) error {
			parent, ok := rec.Modality(kind)
			if !ok {
				return nil
			}

			names, err := metrics.PDNamesAndMeta(
				kind, norms, timesteps, maskImages, interpolated, releaseDataMemory)
			if err != nil {
				return err
			}
			derived := false
			for _, name := range sortedKeys(names) {
				if rec.Has(name) {
					continue
				}
				params := names[name]
				data, err := metrics.CalculatePD(parent, params)
				if err != nil {
					return fmt.Errorf("calculating %q: %w", name, err)
				}
				pd, err := metrics.NewPD(rec, params, core.WithParsedData(data))
				if err != nil {
					return err
				}
				if err := rec.AddModality(pd, false); err != nil {
					return err
				}
				derived = true
			}
			if derived && releaseDataMemory {
				return parent.SetArray(nil)
			}
			return nil
		},
	}
}

// DownsampleOperation builds a whole-Recording Operation around
// metrics.DownsampleMetrics.
func DownsampleOperation(pattern string, ratios []int, matchTimestep bool) Operation {
	return Operation{
		Apply: func(rec *core.Recording, _ string) error {
			return metrics.DownsampleMetrics(rec, pattern, ratios, matchTimestep)
		},
	}
}

// sortedKeys returns the map's keys in sorted order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
