package output

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", `\`}

// Spinner animates a message while something waits. Stop, Success and
// Fail may be called once; later calls are ignored.
type Spinner struct {
	w        io.Writer
	message  string
	interval time.Duration

	started  atomic.Bool
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewSpinner creates a spinner.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:        w,
		message:  message,
		interval: 100 * time.Millisecond,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start starts the animation.
func (s *Spinner) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(s.w, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], s.message)
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Spinner) finish(line string) {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.started.Load() {
			<-s.stopped
		}
		fmt.Fprint(s.w, "\r\033[K"+line)
	})
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() { s.finish("") }

// Success ends the animation with a success line.
func (s *Spinner) Success(message string) { s.finish("ok: " + message + "\n") }

// Fail ends the animation with a failure line.
func (s *Spinner) Fail(message string) { s.finish("failed: " + message + "\n") }
