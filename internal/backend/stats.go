package backend

import "time"

// Stats summarizes a store listing for dashboards.
type Stats struct {
	Total        int
	CreatedToday int // created within the 24h before now
}

// ComputeStats counts stores and those created in the last 24 hours.
// Stores with an unparseable create_time are counted only in Total.
func ComputeStats(stores []Store, now time.Time) Stats {
	st := Stats{Total: len(stores)}
	dayAgo := now.Add(-24 * time.Hour)
	for _, s := range stores {
		if t, ok := s.Created(); ok && t.After(dayAgo) {
			st.CreatedToday++
		}
	}
	return st
}
