package cue

import "sort"

// Closest returns the cue nearest to t among cues ordered by ascending start
// time.
//
// Only cues starting at or before t are candidates. The earliest candidate
// whose interval contains t wins; when none contains t the candidate ending
// latest is returned. Nil is returned when every cue starts after t.
func Closest(cues []*Cue, t float64) *Cue {
	// number of cues with StartTime <= t
	n := sort.Search(len(cues), func(i int) bool {
		return cues[i].StartTime > t
	})
	if n == 0 {
		return nil
	}

	var nearest *Cue
	for _, c := range cues[:n] {
		if c.Contains(t) {
			return c
		}
		if nearest == nil || c.EndTime > nearest.EndTime {
			nearest = c
		}
	}
	return nearest
}
