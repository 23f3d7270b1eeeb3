// Package ui renders a terminal progress bar for long-running analyses.
// The bar observes a monotone progress ratio; redraws are throttled so a
// hot analysis loop does not spend its time writing escape codes.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

// Progress draws a single-line bar with percentage and estimated time
// remaining on a terminal; on a non-terminal stream it stays silent except
// for messages.
type Progress struct {
	out         io.Writer
	fd          int
	isTTY       bool
	showBar     bool
	showPercent bool
	showETA     bool
	started     time.Time
	position    float64
	redraw      rate.Sometimes
}

// NewProgress returns a Progress writing to stream (usually stderr).
func NewProgress(stream *os.File) *Progress {
	fd := int(stream.Fd())
	tty := term.IsTerminal(fd)
	return &Progress{
		out:         stream,
		fd:          fd,
		isTTY:       tty,
		showBar:     tty,
		showPercent: true,
		showETA:     true,
		redraw:      rate.Sometimes{Interval: 100 * time.Millisecond},
	}
}

// Position returns the last shown ratio.
func (p *Progress) Position() float64 { return p.position }

// Update moves the bar to ratio (clamped to [0, 1]) and redraws, subject to
// throttling.
func (p *Progress) Update(ratio float64) {
	if p.started.IsZero() {
		p.started = time.Now()
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	p.position = ratio
	p.redraw.Do(p.show)
}

// Message writes a line above the bar.
func (p *Progress) Message(msg string) {
	p.hide()
	fmt.Fprintln(p.out, msg)
	p.show()
}

// Finish clears the bar.
func (p *Progress) Finish() {
	p.hide()
}

// Watch polls fn until done closes, driving the bar.
func (p *Progress) Watch(fn func() float64, done <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			p.Update(fn())
			p.Finish()
			return
		case <-ticker.C:
			p.Update(fn())
		}
	}
}

func (p *Progress) hide() {
	if p.isTTY {
		fmt.Fprint(p.out, "\r\x1b[K")
	}
}

func (p *Progress) show() {
	if !p.isTTY {
		return
	}
	var pct, eta string
	if p.showPercent {
		pct = fmt.Sprintf(" %5.1f%% ", p.position*100)
	}
	if p.showETA && !p.started.IsZero() && p.position > 0.1 && p.position < 1 {
		elapsed := time.Since(p.started)
		remaining := time.Duration(float64(elapsed) * (1 - p.position) / p.position)
		eta = fmt.Sprintf(" %s remaining ", humanize.RelTime(time.Now(), time.Now().Add(remaining), "", ""))
	}
	bar := ""
	if p.showBar {
		width, _, err := term.GetSize(p.fd)
		if err != nil || width <= 0 {
			width = 80
		}
		size := width - len(pct) - len(eta) - 3
		if size > 0 {
			filled := int(float64(size) * p.position)
			bar = "[" + strings.Repeat("#", filled) + strings.Repeat(".", size-filled) + "]"
		}
	}
	fmt.Fprint(p.out, "\r", pct, eta, bar)
}
