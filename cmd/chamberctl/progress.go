package main

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"
)

const (
	progressUpdateInterval = 250 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// ProgressPrinter renders a single "prefix (phase Ns)" line on stderr while
// a long operation runs. Output is suppressed entirely when stderr is not a
// terminal, so piped output stays clean.
//
// A ProgressPrinter is single-use: Start once, Stop once.
type ProgressPrinter struct {
	prefix string
	phase  atomic.Value // string

	tty      bool
	start    time.Time
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewProgressPrinter(prefix, phase string) *ProgressPrinter {
	p := &ProgressPrinter{
		prefix: prefix,
		tty:    term.IsTerminal(int(os.Stderr.Fd())),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	p.phase.Store(phase)
	return p
}

// SetPhase updates the displayed phase. Safe from any goroutine.
func (p *ProgressPrinter) SetPhase(phase string) {
	p.phase.Store(phase)
}

// Callback adapts SetPhase to the progress-callback signature.
func (p *ProgressPrinter) Callback() func(phase string) {
	return p.SetPhase
}

func (p *ProgressPrinter) Start() {
	p.start = time.Now()
	if !p.tty {
		close(p.done)
		return
	}
	go p.loop()
}

func (p *ProgressPrinter) loop() {
	defer close(p.done)

	ticker := time.NewTicker(progressUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			fmt.Fprintf(os.Stderr, "%s%s (%s %ds)", clearLineSequence,
				p.prefix, p.phase.Load().(string), int(time.Since(p.start).Seconds()))
		}
	}
}

// Stop clears the progress line. Safe to call multiple times.
func (p *ProgressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
		<-p.done
		if p.tty {
			fmt.Fprint(os.Stderr, clearLineSequence)
		}
	})
}
