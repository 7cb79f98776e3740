package market

import (
	"math"
	"time"
)

// Resample aggregates bars into interval buckets. Daily input is returned
// unchanged for Interval1D. Weekly buckets start on Monday (UTC), monthly
// buckets on the first of the month.
func Resample(bars []Bar, interval Interval) []Bar {
	if interval == Interval1D || len(bars) == 0 {
		return bars
	}

	var out []Bar
	var cur Bar
	var curKey time.Time
	open := false

	for _, b := range bars {
		key := bucketStart(b.Time, interval)
		if !open || !key.Equal(curKey) {
			if open {
				out = append(out, cur)
			}
			cur = Bar{
				Time:   key,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
			curKey = key
			open = true
			continue
		}
		cur.High = math.Max(cur.High, b.High)
		cur.Low = math.Min(cur.Low, b.Low)
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	if open {
		out = append(out, cur)
	}
	return out
}

func bucketStart(t time.Time, interval Interval) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch interval {
	case Interval1Wk:
		// Monday = 0
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case Interval1Mo:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// Trim keeps the bars that fall inside period, measured back from the last bar.
func Trim(bars []Bar, period Period) []Bar {
	if len(bars) == 0 {
		return bars
	}
	start := period.Start(bars[len(bars)-1].Time)
	for i, b := range bars {
		if !b.Time.Before(start) {
			return bars[i:]
		}
	}
	return nil
}
