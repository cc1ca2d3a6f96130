package download

import (
	"math"
	"regexp"
	"strconv"
	"time"
)

// yt-dlp may colorize progress lines; escapes are stripped before parsing.
var (
	ansiPattern    = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)
	percentPattern = regexp.MustCompile(`\[download\]\s+([0-9]+(?:\.[0-9]+)?)%`)
)

// StripANSI removes terminal color-escape sequences.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// ParsePercent extracts the percent-complete field from one progress line.
func ParsePercent(line string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(StripANSI(line))
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

// Throttle rate-limits progress forwarding. An update passes when enough
// time elapsed since the last forwarded one, the percentage grew by a full
// step, or the value lands on a 5% milestone. Values are forwarded in
// non-decreasing order and 0% / 100% always pass.
type Throttle struct {
	interval time.Duration
	step     float64
	now      func() time.Time

	seeded  bool
	last    time.Time
	lastPct float64
}

// NewThrottle creates a throttle with the given minimum interval and
// percentage step.
func NewThrottle(interval time.Duration, step float64) *Throttle {
	return &Throttle{interval: interval, step: step, now: time.Now}
}

// Forward reports whether pct should be delivered and records it if so.
func (t *Throttle) Forward(pct float64) bool {
	if t.seeded {
		if pct <= t.lastPct {
			return false
		}
		if pct != 100 && !isMilestone(pct) &&
			pct < t.lastPct+t.step && t.now().Sub(t.last) < t.interval {
			return false
		}
	}

	t.seeded = true
	t.last = t.now()
	t.lastPct = pct
	return true
}

// Last returns the most recently forwarded percentage.
func (t *Throttle) Last() (float64, bool) {
	return t.lastPct, t.seeded
}

func isMilestone(pct float64) bool {
	return pct == math.Trunc(pct) && int(pct)%5 == 0
}
