// Package task provides the execution framework shared by the exponentiation
// drivers: progress reporting through observers, periodic state commits
// bounded by a monotonic last-write clock, and a runner that turns
// recoverable errors (verification rejects, roundoff faults) into restarts
// from the last good state.
package task

import "sync"

// ProgressUpdate is a data transfer object carrying the progress state of a
// running task: the fraction of iterations completed and the number of
// transforms performed so far.
type ProgressUpdate struct {
	// TaskIndex identifies the task instance, allowing a UI to distinguish
	// between multiple concurrent runs.
	TaskIndex int
	// Fraction is the normalized progress of the run, from 0.0 to 1.0.
	Fraction float64
	// Transforms is the cumulative transform count reported by the backend.
	Transforms int64
}

// ProgressReporter is the callback type used by drivers to report progress
// without being coupled to the observer machinery.
type ProgressReporter func(update ProgressUpdate)

// ProgressReportThreshold is the minimum fraction change required before a
// new progress update is forwarded. This prevents excessive update traffic on
// long runs.
const ProgressReportThreshold = 0.01

// ProgressObserver receives progress updates for a task.
type ProgressObserver interface {
	// Update is called with each forwarded progress update.
	Update(update ProgressUpdate)
}

// ProgressSubject fans progress updates out to registered observers.
// It is safe for concurrent registration and notification.
type ProgressSubject struct {
	mu        sync.RWMutex
	observers []ProgressObserver
}

// NewProgressSubject creates an empty subject.
func NewProgressSubject() *ProgressSubject {
	return &ProgressSubject{}
}

// Register adds an observer. Nil observers are ignored.
func (s *ProgressSubject) Register(o ProgressObserver) {
	if o == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Notify forwards an update to every registered observer.
func (s *ProgressSubject) Notify(update ProgressUpdate) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.observers {
		o.Update(update)
	}
}

// AsReporter adapts the subject to a ProgressReporter bound to taskIndex.
// A nil subject yields a no-op reporter.
func (s *ProgressSubject) AsReporter(taskIndex int) ProgressReporter {
	if s == nil {
		return func(ProgressUpdate) {}
	}
	return func(update ProgressUpdate) {
		update.TaskIndex = taskIndex
		s.Notify(update)
	}
}
