// Package events defines the playback events consumed by the ID3 track
// controller and a bus delivering them strictly serialized.
package events

import (
	"github.com/jmylchreest/timedmeta/internal/fragment"
	"github.com/jmylchreest/timedmeta/internal/texttrack"
)

// Event names.
const (
	NameMediaAttached         = "media-attached"
	NameMediaDetaching        = "media-detaching"
	NameFragParsingMetadata   = "fragment-metadata-parsed"
	NameLiveBackBufferReached = "live-buffer-advanced"
)

// Event is implemented by every event published on a Bus.
type Event interface {
	Name() string
}

// MediaAttached signals that a playback surface was attached.
type MediaAttached struct {
	Surface texttrack.Surface
}

// Name implements Event.
func (MediaAttached) Name() string { return NameMediaAttached }

// MediaDetaching signals that the playback surface is being detached.
type MediaDetaching struct{}

// Name implements Event.
func (MediaDetaching) Name() string { return NameMediaDetaching }

// FragParsingMetadata carries the timed metadata samples of a parsed fragment.
type FragParsingMetadata struct {
	Fragment fragment.Fragment
	Samples  []fragment.Sample
}

// Name implements Event.
func (FragParsingMetadata) Name() string { return NameFragParsingMetadata }

// LiveBackBufferReached signals that the live back buffer now starts at
// BufferEnd seconds.
type LiveBackBufferReached struct {
	BufferEnd float64
}

// Name implements Event.
func (LiveBackBufferReached) Name() string { return NameLiveBackBufferReached }
