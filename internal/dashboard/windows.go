package dashboard

import "time"

// Window is a half-open [Start, End) time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Windows are the reporting ranges derived from one captured instant. End is
// just past now so orders stamped at now are included.
type Windows struct {
	Now   time.Time
	Today Window
	Month Window
}

// NewWindows derives the today and month windows in UTC.
func NewWindows(now time.Time) Windows {
	now = now.UTC()
	end := now.Add(time.Nanosecond)
	return Windows{
		Now:   now,
		Today: Window{Start: startOfDay(now), End: end},
		Month: Window{Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), End: end},
	}
}

// LastDays returns the window [00:00 of today-n+1, now].
func (w Windows) LastDays(n int) Window {
	return Window{Start: startOfDay(w.Now).AddDate(0, 0, -(n - 1)), End: w.Today.End}
}

// DailyBuckets splits LastDays(n) into n day windows, oldest first. The final
// bucket ends at now.
func (w Windows) DailyBuckets(n int) []Window {
	start := w.LastDays(n).Start
	out := make([]Window, 0, n)
	for i := 0; i < n; i++ {
		day := start.AddDate(0, 0, i)
		end := day.AddDate(0, 0, 1)
		if i == n-1 {
			end = w.Today.End
		}
		out = append(out, Window{Start: day, End: end})
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
