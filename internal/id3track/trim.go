package id3track

import (
	"log/slog"
)

// OnLiveBackBufferReached evicts every cue preceding the cue closest to
// bufferEnd. The closest cue and everything after it are retained.
func (c *Controller) OnLiveBackBufferReached(bufferEnd float64) {
	if c.track == nil {
		return
	}
	cues := c.track.Cues()
	if len(cues) == 0 {
		return
	}

	found := c.config.Closest(cues, bufferEnd)
	if found == nil {
		return
	}

	// bounded by the initial length in case found is not in the track
	evicted := 0
	for range len(cues) {
		current := c.track.Cues()
		if len(current) == 0 || current[0] == found {
			break
		}
		c.track.RemoveCue(current[0])
		evicted++
	}

	c.stats.CuesEvicted += evicted
	if evicted > 0 {
		c.logger.Debug("evicted cues behind live back buffer",
			slog.Float64("buffer_end", bufferEnd),
			slog.Int("evicted", evicted),
			slog.Int("remaining", len(c.track.Cues())))
	}
}
