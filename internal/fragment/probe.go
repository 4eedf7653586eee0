package fragment

import (
	"fmt"
	"io"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"
)

// TrackInfo describes a media track found in a fragment.
type TrackInfo struct {
	PID   uint16 `json:"pid" yaml:"pid"`
	Codec string `json:"codec" yaml:"codec"`
}

// Probe lists the media tracks declared by a fragment's program map.
func Probe(r io.Reader) ([]TrackInfo, error) {
	reader := &mpegts.Reader{R: r}

	// Initialize reads until the PAT/PMT have been seen
	if err := reader.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing mpegts reader: %w", err)
	}

	tracks := reader.Tracks()
	infos := make([]TrackInfo, 0, len(tracks))
	for _, track := range tracks {
		infos = append(infos, TrackInfo{PID: track.PID, Codec: codecName(track.Codec)})
	}
	return infos, nil
}

func codecName(codec mpegts.Codec) string {
	switch codec.(type) {
	case *mpegts.CodecH264:
		return "h264"
	case *mpegts.CodecH265:
		return "h265"
	case *mpegts.CodecMPEG4Audio:
		return "aac"
	case *mpegts.CodecMPEG1Audio:
		return "mp3"
	case *mpegts.CodecAC3:
		return "ac3"
	case *mpegts.CodecOpus:
		return "opus"
	default:
		return fmt.Sprintf("%T", codec)
	}
}
