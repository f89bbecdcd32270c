package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

var frames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

var frameColor = color.New(color.FgGreen)

// Spinner shows the current step of a long check on a terminal. When the
// output is not a terminal it prints each step once per line instead.
type Spinner struct {
	out         io.Writer
	interactive bool

	mu      sync.Mutex
	msg     string
	started time.Time
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewSpinner creates a spinner writing to out. interactive selects the
// animated mode; callers usually pass !color.NoColor.
func NewSpinner(out io.Writer, interactive bool) *Spinner {
	return &Spinner{out: out, interactive: interactive}
}

func (s *Spinner) Start(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	s.msg = msg
	s.started = time.Now()
	s.done = make(chan struct{})

	if !s.interactive {
		fmt.Fprintln(s.out, msg)
		return
	}
	s.wg.Add(1)
	go s.run(s.done)
}

// Update replaces the message. It is safe to pass as a
// platform.ProgressFunc.
func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg == s.msg {
		return
	}
	s.msg = msg
	if !s.interactive && s.done != nil {
		fmt.Fprintln(s.out, msg)
	}
}

// Stop halts the animation and clears its line. It returns how long the
// spinner ran.
func (s *Spinner) Stop() time.Duration {
	s.mu.Lock()
	if s.done == nil {
		s.mu.Unlock()
		return 0
	}
	close(s.done)
	s.done = nil
	elapsed := time.Since(s.started)
	s.mu.Unlock()

	s.wg.Wait()
	if s.interactive {
		fmt.Fprint(s.out, "\r\033[K")
	}
	return elapsed
}

func (s *Spinner) run(done <-chan struct{}) {
	defer s.wg.Done()
	tick := time.NewTicker(80 * time.Millisecond)
	defer tick.Stop()

	i := 0
	for {
		select {
		case <-done:
			return
		case <-tick.C:
			s.mu.Lock()
			msg := s.msg
			elapsed := time.Since(s.started).Truncate(time.Second)
			s.mu.Unlock()
			fmt.Fprintf(s.out, "\r\033[K%s %s (%s)", frameColor.Sprint(string(frames[i%len(frames)])), msg, elapsed)
			i++
		}
	}
}
