package task

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestChannelObserverNonBlocking(t *testing.T) {
	t.Parallel()
	ch := make(chan ProgressUpdate, 1)
	o := NewChannelObserver(ch)

	o.Update(ProgressUpdate{Fraction: 0.5})
	o.Update(ProgressUpdate{Fraction: 0.6}) // buffer full, must not block

	got := <-ch
	if got.Fraction != 0.5 {
		t.Errorf("first update = %f, want 0.5", got.Fraction)
	}
	select {
	case u := <-ch:
		t.Errorf("second update should have been dropped, got %f", u.Fraction)
	default:
	}
}

func TestChannelObserverClampsFraction(t *testing.T) {
	t.Parallel()
	ch := make(chan ProgressUpdate, 1)
	NewChannelObserver(ch).Update(ProgressUpdate{Fraction: 1.7})
	if got := <-ch; got.Fraction != 1.0 {
		t.Errorf("fraction = %f, want clamped to 1.0", got.Fraction)
	}
}

func TestChannelObserverNilChannel(t *testing.T) {
	t.Parallel()
	NewChannelObserver(nil).Update(ProgressUpdate{Fraction: 0.1})
}

func TestLoggingObserverThrottles(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	o := NewLoggingObserver(logger, 0.25)

	for _, f := range []float64{0.01, 0.02, 0.03, 0.30, 0.31, 1.0} {
		o.Update(ProgressUpdate{TaskIndex: 0, Fraction: f})
	}
	lines := strings.Count(buf.String(), "\n")
	// 0.01 (first non-zero), 0.30 (>= threshold), 1.0 (completion).
	if lines != 3 {
		t.Errorf("logged %d lines, want 3:\n%s", lines, buf.String())
	}
}

func TestProgressSubjectFanOut(t *testing.T) {
	t.Parallel()
	s := NewProgressSubject()
	ch1 := make(chan ProgressUpdate, 4)
	ch2 := make(chan ProgressUpdate, 4)
	s.Register(NewChannelObserver(ch1))
	s.Register(NewChannelObserver(ch2))
	s.Register(nil) // ignored
	s.Register(NewNoOpObserver())

	reporter := s.AsReporter(3)
	reporter(ProgressUpdate{Fraction: 0.4, Transforms: 80})

	for _, ch := range []chan ProgressUpdate{ch1, ch2} {
		got := <-ch
		if got.TaskIndex != 3 || got.Fraction != 0.4 || got.Transforms != 80 {
			t.Errorf("observer got %+v", got)
		}
	}
}

func TestProgressSubjectConcurrentNotify(t *testing.T) {
	t.Parallel()
	s := NewProgressSubject()
	s.Register(NewNoOpObserver())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Notify(ProgressUpdate{TaskIndex: i, Fraction: float64(j) / 100})
			}
		}(i)
	}
	wg.Wait()
}

func TestNilSubjectReporter(t *testing.T) {
	t.Parallel()
	var s *ProgressSubject
	reporter := s.AsReporter(0)
	reporter(ProgressUpdate{Fraction: 0.5}) // must not panic
}
