// Package testutil provides test utilities including sample data generation
// for ID3 timed metadata and MPEG-TS fragments.
package testutil

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/asticode/go-astits"
	"github.com/bogem/id3v2/v2"
	"github.com/jmylchreest/timedmeta/internal/id3"
)

// PIDs used by generated segments.
const (
	VideoPID    uint16 = 0x100
	MetadataPID uint16 = 0x102
)

// Stream IDs used by generated segments.
const (
	videoStreamID   = 0xe0
	privateStreamID = 0xbd
)

const clockRate = 90000

// TextFrame returns a text information frame such as TIT2.
func TextFrame(id, text string) id3.Frame {
	return id3.Frame{ID: id, Text: text}
}

// UserTextFrame returns a TXXX frame.
func UserTextFrame(description, value string) id3.Frame {
	return id3.Frame{ID: "TXXX", Info: description, Text: value}
}

// PrivFrame returns a PRIV frame.
func PrivFrame(owner string, data []byte) id3.Frame {
	return id3.Frame{ID: "PRIV", Info: owner, Data: data}
}

// TimestampFrame returns the Apple transport stream timestamp PRIV frame for
// a 33-bit 90kHz timestamp.
func TimestampFrame(ticks int64) id3.Frame {
	data := make([]byte, 8)
	data[3] = byte(ticks>>32) & 0x01
	binary.BigEndian.PutUint32(data[4:], uint32(ticks))
	return PrivFrame(id3.TimestampOwner, data)
}

// ID3Tag encodes frames as a single ID3v2.4 tag.
func ID3Tag(tb testing.TB, frames ...id3.Frame) []byte {
	tb.Helper()

	tag := id3v2.NewEmptyTag()
	tag.SetVersion(4)
	for _, f := range frames {
		switch f.ID {
		case "TXXX":
			tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
				Encoding:    id3v2.EncodingUTF8,
				Description: f.Info,
				Value:       f.Text,
			})
		case "PRIV":
			body := append([]byte(f.Info+"\x00"), f.Data...)
			tag.AddFrame("PRIV", id3v2.UnknownFrame{Body: body})
		default:
			tag.AddTextFrame(f.ID, id3v2.EncodingUTF8, f.Text)
		}
	}

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		tb.Fatalf("encoding id3 tag: %v", err)
	}
	return buf.Bytes()
}

// Seconds converts seconds to 90kHz ticks.
func Seconds(s float64) int64 {
	return int64(s * clockRate)
}

// PESSample is a PES payload with its presentation timestamp in seconds.
type PESSample struct {
	PTS  float64
	Data []byte
}

// SegmentSpec describes a generated MPEG-TS segment.
type SegmentSpec struct {
	// Video samples are written on an H.264 stream.
	Video []PESSample
	// Metadata samples are written on a timed metadata (0x15) stream.
	Metadata []PESSample
}

// TSSegment muxes spec into an MPEG-TS byte stream. Samples are written in
// PTS order across streams.
func TSSegment(tb testing.TB, spec SegmentSpec) []byte {
	tb.Helper()

	var buf bytes.Buffer
	mx := astits.NewMuxer(context.Background(), &buf)

	if err := mx.AddElementaryStream(astits.PMTElementaryStream{
		ElementaryPID: VideoPID,
		StreamType:    astits.StreamTypeH264Video,
	}); err != nil {
		tb.Fatalf("adding video stream: %v", err)
	}
	if len(spec.Metadata) > 0 {
		if err := mx.AddElementaryStream(astits.PMTElementaryStream{
			ElementaryPID: MetadataPID,
			StreamType:    astits.StreamType(0x15),
		}); err != nil {
			tb.Fatalf("adding metadata stream: %v", err)
		}
	}
	mx.SetPCRPID(VideoPID)

	type write struct {
		pid      uint16
		streamID uint8
		sample   PESSample
	}
	var writes []write
	vi, mi := 0, 0
	for vi < len(spec.Video) || mi < len(spec.Metadata) {
		if mi >= len(spec.Metadata) || (vi < len(spec.Video) && spec.Video[vi].PTS <= spec.Metadata[mi].PTS) {
			writes = append(writes, write{VideoPID, videoStreamID, spec.Video[vi]})
			vi++
			continue
		}
		writes = append(writes, write{MetadataPID, privateStreamID, spec.Metadata[mi]})
		mi++
	}

	for _, w := range writes {
		data := &astits.MuxerData{
			PID: w.pid,
			PES: &astits.PESData{
				Header: &astits.PESHeader{
					OptionalHeader: &astits.PESOptionalHeader{
						MarkerBits:      2,
						PTSDTSIndicator: astits.PTSDTSIndicatorOnlyPTS,
						PTS:             &astits.ClockReference{Base: Seconds(w.sample.PTS)},
					},
					StreamID: w.streamID,
				},
				Data: w.sample.Data,
			},
		}
		if w.pid == VideoPID {
			data.AdaptationField = &astits.PacketAdaptationField{RandomAccessIndicator: true}
		}
		if _, err := mx.WriteData(data); err != nil {
			tb.Fatalf("writing pes: %v", err)
		}
	}

	return buf.Bytes()
}
