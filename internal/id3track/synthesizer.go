package id3track

import (
	"log/slog"

	"github.com/jmylchreest/timedmeta/internal/fragment"
)

const (
	// MinCueDuration is added to the end of a cue whose start and end
	// coincide; providers reject zero length cues.
	MinCueDuration = 0.0001

	// InvertedCueDuration replaces the length of a cue ending before it
	// starts.
	InvertedCueDuration = 0.25
)

// OnFragParsingMetadata turns the decoded frames of samples into cues.
//
// Sample i spans from its PTS to the PTS of sample i+1, the last sample ends
// at the fragment end. Samples that decode to nothing are skipped and
// timestamp frames never become cues.
func (c *Controller) OnFragParsingMetadata(frag fragment.Fragment, samples []fragment.Sample) {
	track := c.ensureTrack()
	if track == nil {
		c.logger.Debug("dropping fragment metadata, no media attached",
			slog.Int("sequence", frag.Sequence),
			slog.Int("samples", len(samples)))
		return
	}

	for i, sample := range samples {
		frames := c.config.Decoder.Decode(sample.Data)
		if len(frames) == 0 {
			c.stats.SamplesSkipped++
			continue
		}

		startTime, endTime := c.cueInterval(frag, samples, i)

		for _, frame := range frames {
			if c.config.Decoder.IsTimestampFrame(frame) {
				c.stats.TimestampFrames++
				continue
			}
			track.AddCue(c.factory.NewCue(startTime, endTime, "", frame))
			c.stats.CuesAdded++
		}
	}
}

// cueInterval computes the corrected [start, end] of sample i.
func (c *Controller) cueInterval(frag fragment.Fragment, samples []fragment.Sample, i int) (float64, float64) {
	startTime := samples[i].PTS
	endTime := frag.EndPTS
	if i < len(samples)-1 {
		endTime = samples[i+1].PTS
	}

	switch {
	case startTime == endTime:
		endTime += MinCueDuration
		c.stats.ZeroLengthCues++
	case startTime > endTime:
		c.logger.Warn("id3 sample ends before it starts, adjusting end time",
			slog.Int("sequence", frag.Sequence),
			slog.Float64("start", startTime),
			slog.Float64("end", endTime),
			slog.Float64("adjusted_end", startTime+InvertedCueDuration))
		endTime = startTime + InvertedCueDuration
		c.stats.InvertedCues++
	}
	return startTime, endTime
}
