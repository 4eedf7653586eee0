// Package texttrack defines the text track provider consumed by the ID3 track
// controller and ships a headless in-memory implementation of it.
package texttrack

import (
	"github.com/jmylchreest/timedmeta/internal/cue"
)

// Mode is the display mode of a text track.
type Mode string

const (
	// ModeDisabled tracks are neither rendered nor updated.
	ModeDisabled Mode = "disabled"
	// ModeHidden tracks keep their cues active without rendering them.
	ModeHidden Mode = "hidden"
	// ModeShowing tracks are rendered by the surface.
	ModeShowing Mode = "showing"
)

// KindMetadata is the kind of tracks holding timed metadata.
const KindMetadata = "metadata"

// Track is an ordered cue collection owned by a provider.
type Track interface {
	Kind() string
	Label() string
	Mode() Mode
	SetMode(mode Mode)

	// Cues returns the cues in ascending start time order. The returned
	// slice is a snapshot and may be retained by the caller.
	Cues() []*cue.Cue
	AddCue(c *cue.Cue)
	RemoveCue(c *cue.Cue)
}

// Surface is a playback surface exposing its text tracks.
type Surface interface {
	TextTracks() []Track
	AddTextTrack(kind, label string) Track

	// NotifyTrackAdded tells track listeners that t became available.
	NotifyTrackAdded(t Track)
}

// FindTrack returns the first track of the surface matching kind and label.
func FindTrack(s Surface, kind, label string) Track {
	for _, t := range s.TextTracks() {
		if t.Kind() == kind && t.Label() == label {
			return t
		}
	}
	return nil
}

// ClearCues removes every cue from t. A nil track is ignored.
func ClearCues(t Track) int {
	if t == nil {
		return 0
	}
	cues := t.Cues()
	for _, c := range cues {
		t.RemoveCue(c)
	}
	return len(cues)
}
