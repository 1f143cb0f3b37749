package encoding

import (
	"math"
	"regexp"
	"strconv"
	"time"
)

var (
	timePattern  = regexp.MustCompile(`time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	speedPattern = regexp.MustCompile(`speed=\s*(\d+(?:\.\d+)?)x`)
)

// MaxRunningPercent is the highest value a Monitor emits; 100 is reserved
// for a process that exited successfully.
const MaxRunningPercent = 99

// Monitor converts ffmpeg stderr lines into completion percentages for one
// job. It is not safe for concurrent use.
type Monitor struct {
	total   float64
	last    int
	elapsed float64
	speed   float64
}

// NewMonitor creates a monitor for a source of totalSeconds. A non-positive
// total disables percentage output.
func NewMonitor(totalSeconds float64) *Monitor {
	if math.IsNaN(totalSeconds) || math.IsInf(totalSeconds, 0) {
		totalSeconds = 0
	}
	return &Monitor{total: totalSeconds, last: -1}
}

// OnLine parses one diagnostic line. It reports a percentage only when the
// line carries a time token and the value advances past the last emission.
func (m *Monitor) OnLine(line string) (int, bool) {
	if match := speedPattern.FindStringSubmatch(line); match != nil {
		if v, err := strconv.ParseFloat(match[1], 64); err == nil {
			m.speed = v
		}
	}
	elapsed, ok := parseTimestamp(line)
	if !ok {
		return 0, false
	}
	if elapsed > m.elapsed {
		m.elapsed = elapsed
	}
	if m.total <= 0 {
		return 0, false
	}
	percent := int(elapsed / m.total * 100)
	if percent > MaxRunningPercent {
		percent = MaxRunningPercent
	}
	if percent <= m.last {
		return 0, false
	}
	m.last = percent
	return percent, true
}

// Last returns the highest emitted percentage, or -1 before the first one.
func (m *Monitor) Last() int { return m.last }

// Speed returns the most recent encoder speed multiplier.
func (m *Monitor) Speed() float64 { return m.speed }

// ETA estimates the remaining wall time from the encoder speed. Zero means
// unknown.
func (m *Monitor) ETA() time.Duration {
	if m.total <= 0 || m.speed <= 0 || m.elapsed >= m.total {
		return 0
	}
	remaining := (m.total - m.elapsed) / m.speed
	return time.Duration(remaining * float64(time.Second)).Round(time.Second)
}

func parseTimestamp(line string) (float64, bool) {
	match := timePattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(match[2])
	if err != nil || minutes > 59 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[3], 64)
	if err != nil || seconds >= 60 {
		return 0, false
	}
	return float64(hours)*3600 + float64(minutes)*60 + seconds, true
}
