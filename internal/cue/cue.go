// Package cue provides the timed cue model shared by text track providers and
// the ID3 track controller.
package cue

import (
	"fmt"
)

// Flavor identifies which native cue object a provider materializes a cue as.
type Flavor string

const (
	// FlavorData is a data cue carrying its payload as a structured value.
	FlavorData Flavor = "data"
	// FlavorVTT is a WebVTT cue with the payload attached out of band.
	FlavorVTT Flavor = "vtt"
	// FlavorText is the generic text track cue, the lowest common denominator.
	FlavorText Flavor = "text"
)

// Cue is a timed marker with an opaque payload.
//
// Times are in seconds on the media timeline. A cue inserted into a track
// always has EndTime > StartTime.
type Cue struct {
	ID        string
	StartTime float64
	EndTime   float64
	Text      string
	Value     any
	Flavor    Flavor
}

// Duration returns the cue length in seconds.
func (c *Cue) Duration() float64 {
	return c.EndTime - c.StartTime
}

// Contains reports whether t falls inside [StartTime, EndTime).
func (c *Cue) Contains(t float64) bool {
	return t >= c.StartTime && t < c.EndTime
}

// String returns a short description for logs and test failures.
func (c *Cue) String() string {
	return fmt.Sprintf("%s[%.4f, %.4f]", c.Flavor, c.StartTime, c.EndTime)
}
