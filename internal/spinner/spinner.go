// Package spinner shows a progress indicator while sources load.
package spinner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"
)

// Spinner animates a label followed by a done/total counter on one line.
type Spinner struct {
	frames []string
	delay  time.Duration
	writer io.Writer
	label  string
	total  int
	done   atomic.Int64

	mu     sync.Mutex
	active bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a spinner for total work items. ctx bounds the animation goroutine.
func New(ctx context.Context, writer io.Writer, label string, total int) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		frames: []string{"◜", "◠", "◝", "◞", "◡", "◟"},
		delay:  100 * time.Millisecond,
		writer: writer,
		label:  label,
		total:  total,
		ctx:    spinnerCtx,
		cancel: cancel,
	}
}

// ForTerminal returns a started spinner when w is a terminal, or nil otherwise.
// Every method is safe on a nil *Spinner.
func ForTerminal(ctx context.Context, w io.Writer, label string, total int) *Spinner {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	s := New(ctx, w, label, total)
	s.Start()
	return s
}

// Start begins the animation; calling it twice is a no-op.
func (s *Spinner) Start() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return
	}
	s.active = true

	s.wg.Add(1)
	go s.run()
}

// Done records one finished work item.
func (s *Spinner) Done() {
	if s == nil {
		return
	}
	s.done.Add(1)
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	fmt.Fprint(s.writer, "\r\033[2K")
}

// IsActive returns whether the spinner is currently running
func (s *Spinner) IsActive() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// line renders the current frame text.
func (s *Spinner) line(frameIndex int) string {
	frame := s.frames[frameIndex%len(s.frames)]
	if s.total > 0 {
		return fmt.Sprintf("\r%s %s %d/%d", frame, s.label, s.done.Load(), s.total)
	}
	return fmt.Sprintf("\r%s %s", frame, s.label)
}

func (s *Spinner) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.delay)
	defer ticker.Stop()

	for frameIndex := 0; ; frameIndex++ {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(s.writer, s.line(frameIndex))
		}
	}
}
