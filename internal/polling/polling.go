// Package polling rounds metric-snapshot timestamps onto fixed polling-interval
// boundaries so that repeated polls inside one bucket coalesce in storage.
package polling

import (
	"fmt"
	"time"

	"github.com/cliptrack/cliptrack/internal/models"
)

// Interval is a canonical timestamp-bucketing width.
type Interval string

const (
	IntervalMinute Interval = "minute"
	Interval5Min   Interval = "5min"
	Interval15Min  Interval = "15min"
	Interval30Min  Interval = "30min"
	Interval60Min  Interval = "60min"
)

// minuteWidth returns the interval width in minutes.
func minuteWidth(interval Interval) (int, bool) {
	switch interval {
	case IntervalMinute:
		return 1, true
	case Interval5Min:
		return 5, true
	case Interval15Min:
		return 15, true
	case Interval30Min:
		return 30, true
	case Interval60Min:
		return 60, true
	}
	return 0, false
}

// Normalize floors t onto the interval boundary: seconds and sub-second
// precision are always zeroed, and the minute is floored to the largest
// multiple of the interval width at or below the current minute. An unknown
// interval is a hard validation error.
func Normalize(t time.Time, interval Interval) (time.Time, error) {
	width, ok := minuteWidth(interval)
	if !ok {
		return time.Time{}, fmt.Errorf("unknown polling interval %q", interval)
	}

	minute := (t.Minute() / width) * width
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location()), nil
}

// IntervalForCadence maps a named polling cadence to its bucketing interval.
// Unknown cadences fall back to the 5-minute bucket.
func IntervalForCadence(cadence models.Cadence) Interval {
	switch cadence {
	case models.CadenceTesting:
		return IntervalMinute
	case models.CadenceHourly, models.CadenceDaily:
		return Interval60Min
	case models.CadenceManual:
		return Interval5Min
	}
	return Interval5Min
}
