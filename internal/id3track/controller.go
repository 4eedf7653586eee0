// Package id3track keeps an ID3 metadata text track in sync with the playback
// timeline.
//
// The Controller reacts to four events: media attach/detach bind and release
// the playback surface, parsed fragment metadata becomes cues on a hidden
// "metadata" track, and live back buffer advances evict cues that fell out of
// the retained window. The Controller is not safe for concurrent use; deliver
// its events through an events.Bus or another serializing dispatcher.
package id3track

import (
	"log/slog"

	"github.com/jmylchreest/timedmeta/internal/cue"
	"github.com/jmylchreest/timedmeta/internal/events"
	"github.com/jmylchreest/timedmeta/internal/id3"
	"github.com/jmylchreest/timedmeta/internal/texttrack"
)

// DefaultLabel is the label of the decoded ID3 frame track.
const DefaultLabel = "id3"

// Decoder turns raw metadata samples into frames.
type Decoder interface {
	Decode(data []byte) []id3.Frame
	IsTimestampFrame(f id3.Frame) bool
}

// ClosestFunc finds the cue nearest to t among cues ordered by start time.
type ClosestFunc func(cues []*cue.Cue, t float64) *cue.Cue

// Config configures a Controller.
type Config struct {
	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger

	// Decoder for sample payloads. Defaults to an unbounded id3.Decoder.
	Decoder Decoder

	// Label of the metadata track. Defaults to DefaultLabel.
	Label string

	// Closest locates the first cue to retain on trim. Defaults to cue.Closest.
	Closest ClosestFunc
}

// Stats counts what the controller did since it was created.
type Stats struct {
	CuesAdded       int `json:"cues_added" yaml:"cues_added"`
	CuesEvicted     int `json:"cues_evicted" yaml:"cues_evicted"`
	CuesCleared     int `json:"cues_cleared" yaml:"cues_cleared"`
	SamplesSkipped  int `json:"samples_skipped" yaml:"samples_skipped"`
	TimestampFrames int `json:"timestamp_frames" yaml:"timestamp_frames"`
	ZeroLengthCues  int `json:"zero_length_cues" yaml:"zero_length_cues"`
	InvertedCues    int `json:"inverted_cues" yaml:"inverted_cues"`
}

// Controller owns the binding between a playback surface and its ID3 track.
type Controller struct {
	config Config
	logger *slog.Logger

	surface texttrack.Surface
	factory cue.Factory
	track   texttrack.Track

	stats       Stats
	unsubscribe func()
}

// New creates an unbound controller.
func New(config Config) *Controller {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Decoder == nil {
		config.Decoder = id3.NewDecoder(0)
	}
	if config.Label == "" {
		config.Label = DefaultLabel
	}
	if config.Closest == nil {
		config.Closest = cue.Closest
	}

	return &Controller{
		config: config,
		logger: config.Logger.With(slog.String("component", "id3track")),
	}
}

var _ events.Handler = (*Controller)(nil)

// Register subscribes the controller to bus. Destroy unsubscribes it.
func (c *Controller) Register(bus *events.Bus) error {
	unsubscribe, err := bus.Subscribe(c)
	if err != nil {
		return err
	}
	c.unsubscribe = unsubscribe
	return nil
}

// HandleEvent implements events.Handler.
func (c *Controller) HandleEvent(e events.Event) error {
	switch ev := e.(type) {
	case events.MediaAttached:
		return c.OnMediaAttached(ev.Surface)
	case events.MediaDetaching:
		c.OnMediaDetaching()
	case events.FragParsingMetadata:
		c.OnFragParsingMetadata(ev.Fragment, ev.Samples)
	case events.LiveBackBufferReached:
		c.OnLiveBackBufferReached(ev.BufferEnd)
	}
	return nil
}

// Destroy unsubscribes the controller and releases its binding.
func (c *Controller) Destroy() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.OnMediaDetaching()
}

// Surface returns the bound surface, or nil.
func (c *Controller) Surface() texttrack.Surface {
	return c.surface
}

// Track returns the metadata track, or nil before the first metadata event of
// a binding.
func (c *Controller) Track() texttrack.Track {
	return c.track
}

// Stats returns the controller counters.
func (c *Controller) Stats() Stats {
	return c.stats
}
