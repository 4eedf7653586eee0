package fragment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/asticode/go-astits"
)

// StreamTypeMetadata is the PMT stream type of PES-carried timed metadata.
const StreamTypeMetadata astits.StreamType = 0x15

const (
	clockRate = 90000
	// ptsWrap is the modulus of a 33-bit presentation timestamp.
	ptsWrap int64 = 1 << 33
)

// ExtractOptions describe where a fragment sits in its playlist.
type ExtractOptions struct {
	Sequence int
	URI      string
	// Duration is the playlist-declared fragment length. Zero falls back to
	// the media timestamps.
	Duration time.Duration
}

// Extract demuxes an MPEG-TS fragment, returning its timing bounds and the
// timed metadata samples it carries in PTS order. A fragment without a
// metadata stream yields no samples and no error.
func Extract(ctx context.Context, r io.Reader, opts ExtractOptions) (Fragment, []Sample, error) {
	dmx := astits.NewDemuxer(ctx, r)

	var (
		metadataPIDs = map[uint16]bool{}
		samples      []Sample
		reference    int64
		haveRef      bool
		mediaMin     int64
		mediaMax     int64
		haveMedia    bool
	)

	unwrap := func(ticks int64) int64 {
		if !haveRef {
			reference, haveRef = ticks, true
			return ticks
		}
		return normalizePTS(ticks, reference)
	}

	for {
		d, err := dmx.NextData()
		if err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) {
				break
			}
			return Fragment{}, nil, fmt.Errorf("demuxing fragment %d: %w", opts.Sequence, err)
		}

		if d.PMT != nil {
			for _, es := range d.PMT.ElementaryStreams {
				if es.StreamType == StreamTypeMetadata {
					metadataPIDs[es.ElementaryPID] = true
				}
			}
			continue
		}

		if d.PES == nil || d.PES.Header == nil || d.PES.Header.OptionalHeader == nil ||
			d.PES.Header.OptionalHeader.PTS == nil {
			continue
		}
		pts := unwrap(d.PES.Header.OptionalHeader.PTS.Base)

		if metadataPIDs[d.PID] {
			samples = append(samples, Sample{PTS: ticksToSeconds(pts), Data: slices.Clone(d.PES.Data)})
			continue
		}

		if !haveMedia || pts < mediaMin {
			mediaMin = pts
		}
		if !haveMedia || pts > mediaMax {
			mediaMax = pts
		}
		haveMedia = true
	}

	slices.SortStableFunc(samples, func(a, b Sample) int {
		switch {
		case a.PTS < b.PTS:
			return -1
		case a.PTS > b.PTS:
			return 1
		}
		return 0
	})

	frag := Fragment{Sequence: opts.Sequence, URI: opts.URI}
	switch {
	case haveMedia:
		frag.StartPTS = ticksToSeconds(mediaMin)
		frag.EndPTS = ticksToSeconds(mediaMax)
	case len(samples) > 0:
		frag.StartPTS = samples[0].PTS
		frag.EndPTS = samples[len(samples)-1].PTS
	}
	if opts.Duration > 0 {
		frag.EndPTS = frag.StartPTS + opts.Duration.Seconds()
	}

	return frag, samples, nil
}

// normalizePTS moves value across 33-bit rollovers until it lies within
// half the timestamp range of reference.
func normalizePTS(value, reference int64) int64 {
	offset := ptsWrap
	if reference < value {
		offset = -ptsWrap
	}
	for abs(value-reference) > ptsWrap/2 {
		value += offset
	}
	return value
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func ticksToSeconds(ticks int64) float64 {
	return float64(ticks) / clockRate
}
