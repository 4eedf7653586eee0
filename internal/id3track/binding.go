package id3track

import (
	"errors"
	"log/slog"

	"github.com/jmylchreest/timedmeta/internal/cue"
	"github.com/jmylchreest/timedmeta/internal/texttrack"
)

// ErrNoSurface is returned when media is attached without a surface.
var ErrNoSurface = errors.New("media attached without a surface")

// OnMediaAttached binds surface and picks the cue flavor it supports.
//
// Attaching while bound releases the previous binding first. A nil surface is
// rejected with ErrNoSurface and leaves the controller state untouched.
func (c *Controller) OnMediaAttached(surface texttrack.Surface) error {
	if surface == nil {
		c.logger.Warn("media attached without a surface, ignoring")
		return ErrNoSurface
	}
	if c.surface != nil {
		c.OnMediaDetaching()
	}

	c.surface = surface
	c.factory = cue.SelectFactory(surface)

	c.logger.Debug("media attached",
		slog.String("cue_flavor", string(c.factory.Flavor())))
	return nil
}

// OnMediaDetaching clears the track and drops the binding. It is idempotent
// and safe without a prior attach.
func (c *Controller) OnMediaDetaching() {
	if c.track != nil {
		cleared := texttrack.ClearCues(c.track)
		c.stats.CuesCleared += cleared
		c.logger.Debug("media detaching, cleared metadata track",
			slog.Int("cues", cleared))
	}
	c.track = nil
	c.surface = nil
	c.factory = nil
}

// ensureTrack returns the metadata track, acquiring it on first use of a
// binding. It returns nil while unbound.
func (c *Controller) ensureTrack() texttrack.Track {
	if c.track != nil {
		return c.track
	}
	if c.surface == nil {
		return nil
	}

	c.track = c.getOrCreateTrack()
	c.track.SetMode(texttrack.ModeHidden)
	return c.track
}

// getOrCreateTrack reuses the surface's metadata track with our label when
// present, announcing it as added so listeners treat it like a fresh track.
func (c *Controller) getOrCreateTrack() texttrack.Track {
	if t := texttrack.FindTrack(c.surface, texttrack.KindMetadata, c.config.Label); t != nil {
		c.surface.NotifyTrackAdded(t)
		c.logger.Debug("reusing metadata track", slog.String("label", c.config.Label))
		return t
	}

	c.logger.Debug("creating metadata track", slog.String("label", c.config.Label))
	return c.surface.AddTextTrack(texttrack.KindMetadata, c.config.Label)
}
