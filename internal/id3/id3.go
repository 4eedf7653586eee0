// Package id3 adapts github.com/bogem/id3v2 to the frame decoder consumed by
// the ID3 track controller.
package id3

import (
	"bytes"
	"encoding/binary"
	"maps"
	"slices"
	"time"

	"github.com/bogem/id3v2/v2"
)

// TimestampOwner is the PRIV owner identifier of the frame carrying the MPEG-2
// transport stream timestamp in HLS timed metadata.
const TimestampOwner = "com.apple.streaming.transportStreamTimestamp"

const (
	headerSize    = 10
	footerPresent = 0x10
)

// Frame is one decoded ID3 frame.
type Frame struct {
	// ID is the four character frame identifier, e.g. TIT2, TXXX or PRIV.
	ID string `json:"id" yaml:"id"`
	// Info is the owner identifier of PRIV/UFID frames or the description of
	// TXXX/COMM frames.
	Info string `json:"info,omitempty" yaml:"info,omitempty"`
	// Text is the decoded value of text frames.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
	// Data is the binary payload of non-text frames.
	Data []byte `json:"data,omitempty" yaml:"data,omitempty"`
}

// Decoder decodes the ID3v2 tags carried by a timed metadata sample.
type Decoder struct {
	maxSampleSize int64
}

// NewDecoder creates a decoder. Samples larger than maxSampleSize bytes decode
// to nothing; zero disables the limit.
func NewDecoder(maxSampleSize int64) *Decoder {
	return &Decoder{maxSampleSize: maxSampleSize}
}

// Decode returns the frames of every ID3v2 tag found at the start of data.
// Tags that cannot be parsed are skipped. Frames of a tag are ordered by
// frame ID, then by appearance.
func (d *Decoder) Decode(data []byte) []Frame {
	if len(data) == 0 {
		return nil
	}
	if d.maxSampleSize > 0 && int64(len(data)) > d.maxSampleSize {
		return nil
	}

	var frames []Frame
	for _, raw := range splitTags(data) {
		tag, err := id3v2.ParseReader(bytes.NewReader(raw), id3v2.Options{Parse: true})
		if err != nil {
			continue
		}
		all := tag.AllFrames()
		for _, id := range slices.Sorted(maps.Keys(all)) {
			for _, f := range all[id] {
				frames = append(frames, convert(id, f))
			}
		}
	}
	return frames
}

// IsTimestampFrame reports whether f only carries transport stream timing.
func (d *Decoder) IsTimestampFrame(f Frame) bool {
	return IsTimestampFrame(f)
}

// IsTimestampFrame reports whether f is the Apple transport stream timestamp
// PRIV frame.
func IsTimestampFrame(f Frame) bool {
	return f.ID == "PRIV" && f.Info == TimestampOwner
}

// TransportStreamTimestamp decodes the 33-bit 90kHz timestamp carried by a
// timestamp frame.
func TransportStreamTimestamp(f Frame) (time.Duration, bool) {
	if !IsTimestampFrame(f) || len(f.Data) != 8 {
		return 0, false
	}
	ticks := int64(f.Data[3]&0x01)<<32 | int64(binary.BigEndian.Uint32(f.Data[4:8]))
	return time.Duration(ticks) * time.Second / 90000, true
}

// splitTags cuts data into consecutive ID3v2 tags using the sizes declared in
// their headers. Scanning stops at the first byte that does not start a tag.
func splitTags(data []byte) [][]byte {
	var tags [][]byte
	for len(data) >= headerSize && bytes.HasPrefix(data, []byte("ID3")) {
		size := headerSize + syncsafe(data[6:10])
		if data[5]&footerPresent != 0 {
			size += headerSize
		}
		if size > len(data) {
			break
		}
		tags = append(tags, data[:size])
		data = data[size:]
	}
	return tags
}

func syncsafe(b []byte) int {
	return int(b[0]&0x7f)<<21 | int(b[1]&0x7f)<<14 | int(b[2]&0x7f)<<7 | int(b[3]&0x7f)
}

func convert(id string, f id3v2.Framer) Frame {
	out := Frame{ID: id}
	switch v := f.(type) {
	case id3v2.TextFrame:
		out.Text = v.Text
	case id3v2.UserDefinedTextFrame:
		out.Info = v.Description
		out.Text = v.Value
	case id3v2.CommentFrame:
		out.Info = v.Description
		out.Text = v.Text
	case id3v2.UFIDFrame:
		out.Info = v.OwnerIdentifier
		out.Data = v.Identifier
	case id3v2.UnknownFrame:
		out.Data = v.Body
		if id == "PRIV" {
			// owner identifier is a null terminated latin1 string
			if i := bytes.IndexByte(v.Body, 0); i >= 0 {
				out.Info = string(v.Body[:i])
				out.Data = v.Body[i+1:]
			}
		}
	default:
		var buf bytes.Buffer
		if _, err := f.WriteTo(&buf); err == nil {
			out.Data = buf.Bytes()
		}
	}
	return out
}
