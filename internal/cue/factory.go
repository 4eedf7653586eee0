package cue

import (
	"github.com/oklog/ulid/v2"
)

// Factory constructs cues of one native flavor.
type Factory interface {
	NewCue(startTime, endTime float64, text string, value any) *Cue
	Flavor() Flavor
}

// DataCueSupporter is implemented by surfaces able to hold data cues.
type DataCueSupporter interface {
	SupportsDataCues() bool
}

// VTTCueSupporter is implemented by surfaces able to hold WebVTT cues.
type VTTCueSupporter interface {
	SupportsVTTCues() bool
}

// SelectFactory probes the capabilities of a surface and returns the richest
// factory it supports. Surfaces advertising nothing get TextCueFactory.
func SelectFactory(surface any) Factory {
	if s, ok := surface.(DataCueSupporter); ok && s.SupportsDataCues() {
		return DataCueFactory{}
	}
	if s, ok := surface.(VTTCueSupporter); ok && s.SupportsVTTCues() {
		return VTTCueFactory{}
	}
	return TextCueFactory{}
}

// DataCueFactory builds data cues.
type DataCueFactory struct{}

// NewCue implements Factory.
func (DataCueFactory) NewCue(startTime, endTime float64, text string, value any) *Cue {
	return newCue(FlavorData, startTime, endTime, text, value)
}

// Flavor implements Factory.
func (DataCueFactory) Flavor() Flavor { return FlavorData }

// VTTCueFactory builds WebVTT cues.
type VTTCueFactory struct{}

// NewCue implements Factory.
func (VTTCueFactory) NewCue(startTime, endTime float64, text string, value any) *Cue {
	return newCue(FlavorVTT, startTime, endTime, text, value)
}

// Flavor implements Factory.
func (VTTCueFactory) Flavor() Flavor { return FlavorVTT }

// TextCueFactory builds generic text track cues.
type TextCueFactory struct{}

// NewCue implements Factory.
func (TextCueFactory) NewCue(startTime, endTime float64, text string, value any) *Cue {
	return newCue(FlavorText, startTime, endTime, text, value)
}

// Flavor implements Factory.
func (TextCueFactory) Flavor() Flavor { return FlavorText }

func newCue(flavor Flavor, startTime, endTime float64, text string, value any) *Cue {
	return &Cue{
		ID:        ulid.Make().String(),
		StartTime: startTime,
		EndTime:   endTime,
		Text:      text,
		Value:     value,
		Flavor:    flavor,
	}
}
