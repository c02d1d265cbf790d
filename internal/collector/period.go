package collector

import (
	"fmt"
	"time"

	"github.com/polygon-io/client-go/rest/models"
)

var periods = map[string]time.Duration{
	"1d":  24 * time.Hour,
	"5d":  5 * 24 * time.Hour,
	"1mo": 30 * 24 * time.Hour,
	"3mo": 90 * 24 * time.Hour,
	"6mo": 180 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
	"2y":  2 * 365 * 24 * time.Hour,
	"5y":  5 * 365 * 24 * time.Hour,
}

// ParsePeriod converts a lookback such as "5d" or "1mo" into a duration.
func ParsePeriod(s string) (time.Duration, error) {
	d, ok := periods[s]
	if !ok {
		return 0, fmt.Errorf("unsupported period %q", s)
	}
	return d, nil
}

// Interval is a bar size expressed as multiplier x timespan.
type Interval struct {
	Multiplier int
	Timespan   models.Timespan
	Duration   time.Duration
}

var intervals = map[string]Interval{
	"1m":  {1, models.Minute, time.Minute},
	"2m":  {2, models.Minute, 2 * time.Minute},
	"5m":  {5, models.Minute, 5 * time.Minute},
	"15m": {15, models.Minute, 15 * time.Minute},
	"30m": {30, models.Minute, 30 * time.Minute},
	"60m": {1, models.Hour, time.Hour},
	"1h":  {1, models.Hour, time.Hour},
	"1d":  {1, models.Day, 24 * time.Hour},
	"1wk": {1, models.Week, 7 * 24 * time.Hour},
}

// ParseInterval converts a bar size such as "1m" or "1wk".
func ParseInterval(s string) (Interval, error) {
	iv, ok := intervals[s]
	if !ok {
		return Interval{}, fmt.Errorf("unsupported interval %q", s)
	}
	return iv, nil
}

// window returns [now-period, now] for the SDK fetchers.
func window(now time.Time, period string) (time.Time, time.Time, error) {
	d, err := ParsePeriod(period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return now.Add(-d), now, nil
}

// Periods lists the supported lookbacks, shortest first.
func Periods() []string {
	return []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y"}
}

// Intervals lists the supported bar sizes, shortest first.
func Intervals() []string {
	return []string{"1m", "2m", "5m", "15m", "30m", "60m", "1h", "1d", "1wk"}
}
