// SPDX-License-Identifier: MPL-2.0

package report

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// defaultRecorderCapacity is how many health reports a Recorder retains.
const defaultRecorderCapacity = 256

// Discard is a Sink that drops every report.
var Discard Sink = discard{}

type (
	discard struct{}

	// LogSink writes every report to a charmbracelet logger.
	LogSink struct {
		logger *log.Logger
	}

	// Recorder keeps reports in memory. It is safe for concurrent use.
	// Fault reports are kept in full; health reports are kept up to the
	// configured capacity, oldest dropped first. Counters cover every
	// report ever received.
	Recorder struct {
		mu          sync.Mutex
		capacity    int
		faults      []FaultKind
		health      []HealthInfo
		healthTotal int
		latest      map[string]HealthInfo
	}

	tee []Sink
)

func (discard) ReportFault(FaultKind) error   { return nil }
func (discard) ReportHealth(HealthInfo) error { return nil }

// NewLogSink returns a sink that logs through logger.
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// ReportFault logs the fault at error level.
func (s *LogSink) ReportFault(kind FaultKind) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	s.logger.Error("fault reported", "kind", kind)
	return nil
}

// ReportHealth logs the signal at a level matching its severity.
func (s *LogSink) ReportHealth(info HealthInfo) error {
	if err := info.Severity.Validate(); err != nil {
		return err
	}
	kv := []any{"category", info.Category, "description", info.Description}
	switch info.Severity {
	case SeverityError:
		s.logger.Error("health", kv...)
	case SeverityWarning:
		s.logger.Warn("health", kv...)
	default:
		s.logger.Debug("health", kv...)
	}
	return nil
}

// NewRecorder returns an empty Recorder with the default capacity.
func NewRecorder() *Recorder {
	return NewRecorderWithCapacity(defaultRecorderCapacity)
}

// NewRecorderWithCapacity returns an empty Recorder that retains at most
// capacity health reports. Non-positive capacities use the default.
func NewRecorderWithCapacity(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = defaultRecorderCapacity
	}
	return &Recorder{
		capacity: capacity,
		latest:   make(map[string]HealthInfo),
	}
}

// ReportFault records the fault.
func (r *Recorder) ReportFault(kind FaultKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = append(r.faults, kind)
	return nil
}

// ReportHealth records the health signal.
func (r *Recorder) ReportHealth(info HealthInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.health) == r.capacity {
		r.health = r.health[1:]
	}
	r.health = append(r.health, info)
	r.healthTotal++
	r.latest[info.Category] = info
	return nil
}

// Faults returns a copy of every recorded fault, in report order.
func (r *Recorder) Faults() []FaultKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.faults)
}

// Health returns a copy of the retained health reports, in report order.
func (r *Recorder) Health() []HealthInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.health)
}

// FaultCount returns how many faults of kind were recorded.
func (r *Recorder) FaultCount(kind FaultKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, k := range r.faults {
		if k == kind {
			n++
		}
	}
	return n
}

// CountHealth returns how many retained health reports match sev and
// category. An empty category matches every category.
func (r *Recorder) CountHealth(sev Severity, category string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, h := range r.health {
		if h.Severity == sev && (category == "" || h.Category == category) {
			n++
		}
	}
	return n
}

// HealthTotal returns the number of health reports ever received.
func (r *Recorder) HealthTotal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.healthTotal
}

// Latest returns the most recent report for every category, sorted by
// category name.
func (r *Recorder) Latest() []HealthInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]HealthInfo, 0, len(r.latest))
	for _, h := range r.latest {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b HealthInfo) int {
		return strings.Compare(a.Category, b.Category)
	})
	return out
}

// Tee returns a sink that forwards every report to each of sinks in order.
// Nil sinks are skipped. Errors from individual sinks are joined.
func Tee(sinks ...Sink) Sink {
	out := make(tee, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (t tee) ReportFault(kind FaultKind) error {
	var errs []error
	for _, s := range t {
		if err := s.ReportFault(kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t tee) ReportHealth(info HealthInfo) error {
	var errs []error
	for _, s := range t {
		if err := s.ReportHealth(info); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
