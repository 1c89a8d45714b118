package format

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MaxETA caps estimates derived from a very slow start.
const MaxETA = 24 * time.Hour

// etaSmoothing is the weight of the newest rate sample.
const etaSmoothing = 0.3

// Progress counts finished jobs against a known total and estimates the
// remaining time from an exponentially smoothed completion rate. It is safe
// for concurrent use.
type Progress struct {
	mu       sync.Mutex
	total    int
	done     int
	start    time.Time
	lastTime time.Time
	lastDone int
	rate     float64 // jobs per second
	now      func() time.Time
}

// NewProgress returns a tracker for total jobs, started now.
func NewProgress(total int) *Progress {
	return newProgressAt(total, time.Now)
}

func newProgressAt(total int, now func() time.Time) *Progress {
	t := now()
	return &Progress{total: max(total, 0), start: t, lastTime: t, now: now}
}

// Advance records n more finished jobs and returns the fraction done and
// the current estimate.
func (p *Progress) Advance(n int) (float64, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = min(p.done+n, p.total)

	t := p.now()
	if dt := t.Sub(p.lastTime).Seconds(); dt > 0 {
		sample := float64(p.done-p.lastDone) / dt
		if p.rate == 0 {
			p.rate = sample
		} else {
			p.rate = etaSmoothing*sample + (1-etaSmoothing)*p.rate
		}
		p.lastTime, p.lastDone = t, p.done
	}
	return p.fraction(), p.eta()
}

// Fraction returns done/total in [0, 1]. An empty run counts as done.
func (p *Progress) Fraction() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fraction()
}

func (p *Progress) fraction() float64 {
	if p.total == 0 {
		return 1
	}
	return float64(p.done) / float64(p.total)
}

// ETA returns the current estimate without recording anything.
func (p *Progress) ETA() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eta()
}

func (p *Progress) eta() time.Duration {
	remaining := p.total - p.done
	if remaining <= 0 || p.rate <= 0 {
		return 0
	}
	secs := float64(remaining) / p.rate
	if secs >= MaxETA.Seconds() {
		return MaxETA
	}
	return time.Duration(secs * float64(time.Second))
}

// Counts returns the finished and total job counts.
func (p *Progress) Counts() (done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.total
}

// Elapsed returns the time since the tracker started.
func (p *Progress) Elapsed() time.Duration {
	return p.now().Sub(p.start)
}

// FormatETA renders an estimate as "45s", "2m30s" or "1h15m".
func FormatETA(eta time.Duration) string {
	switch {
	case eta <= 0:
		return "calculating..."
	case eta < time.Second:
		return "< 1s"
	case eta < time.Minute:
		return fmt.Sprintf("%ds", int(eta.Seconds()))
	case eta < time.Hour:
		m, s := int(eta.Minutes()), int(eta.Seconds())%60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	default:
		h, m := int(eta.Hours()), int(eta.Minutes())%60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%dm", h, m)
	}
}

// ProgressBar renders fraction as a bar of length cells.
func ProgressBar(fraction float64, length int) string {
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction * float64(length))
	return strings.Repeat("█", filled) + strings.Repeat("░", length-filled)
}

// FormatProgressBarWithETA renders "[bar]  42.00% ETA: 1m5s".
func FormatProgressBarWithETA(fraction float64, eta time.Duration, width int) string {
	return fmt.Sprintf("[%s] %6.2f%% ETA: %s", ProgressBar(fraction, width), min(max(fraction, 0), 1)*100, FormatETA(eta))
}

// FormatNumber renders n with thousands separators.
func FormatNumber(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
