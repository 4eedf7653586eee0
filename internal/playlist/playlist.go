// Package playlist loads HLS media playlists whose segments are local
// MPEG-TS files.
package playlist

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
	"github.com/hashicorp/go-multierror"
)

var (
	// ErrMultivariant is returned when a multivariant playlist is loaded
	// instead of a media playlist.
	ErrMultivariant = errors.New("multivariant playlists are not supported")
	// ErrEmpty is returned when a playlist has no segments.
	ErrEmpty = errors.New("playlist has no segments")
	// ErrRemoteSegment is reported for segments that are not local files.
	ErrRemoteSegment = errors.New("remote segments are not supported")
)

// Segment is one media fragment of a playlist.
type Segment struct {
	Sequence int           `json:"sequence" yaml:"sequence"`
	URI      string        `json:"uri" yaml:"uri"`
	Path     string        `json:"path,omitempty" yaml:"path,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Playlist is a parsed media playlist.
type Playlist struct {
	Source         string        `json:"source" yaml:"source"`
	Live           bool          `json:"live" yaml:"live"`
	TargetDuration time.Duration `json:"target_duration" yaml:"target_duration"`
	Segments       []Segment     `json:"segments" yaml:"segments"`
}

// Load reads and parses the media playlist at path.
func Load(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}

	pl, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("parsing playlist %s: %w", path, err)
	}
	pl.Source = path
	return pl, nil
}

// Parse parses a media playlist. Relative segment URIs resolve against baseDir.
func Parse(data []byte, baseDir string) (*Playlist, error) {
	parsed, err := playlist.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	media, ok := parsed.(*playlist.Media)
	if !ok {
		return nil, ErrMultivariant
	}
	if len(media.Segments) == 0 {
		return nil, ErrEmpty
	}

	pl := &Playlist{
		Live:           !media.Endlist,
		TargetDuration: time.Duration(media.TargetDuration) * time.Second,
		Segments:       make([]Segment, 0, len(media.Segments)),
	}
	for i, seg := range media.Segments {
		pl.Segments = append(pl.Segments, Segment{
			Sequence: media.MediaSequence + i,
			URI:      seg.URI,
			Path:     resolve(baseDir, seg.URI),
			Duration: seg.Duration,
		})
	}
	return pl, nil
}

// FromSegments builds a live playlist from bare segment files. Durations are
// unknown and left to the media timestamps.
func FromSegments(paths []string) (*Playlist, error) {
	if len(paths) == 0 {
		return nil, ErrEmpty
	}

	pl := &Playlist{Source: "segments", Live: true, Segments: make([]Segment, 0, len(paths))}
	for i, p := range paths {
		pl.Segments = append(pl.Segments, Segment{Sequence: i, URI: filepath.Base(p), Path: p})
	}
	return pl, nil
}

// Validate checks that every segment is a readable local file. All problems
// are reported together.
func (p *Playlist) Validate() error {
	var result *multierror.Error
	for _, seg := range p.Segments {
		if seg.Path == "" {
			result = multierror.Append(result, fmt.Errorf("segment %d (%s): %w", seg.Sequence, seg.URI, ErrRemoteSegment))
			continue
		}
		info, err := os.Stat(seg.Path)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("segment %d: %w", seg.Sequence, err))
			continue
		}
		if info.IsDir() {
			result = multierror.Append(result, fmt.Errorf("segment %d: %s is a directory", seg.Sequence, seg.Path))
		}
	}
	return result.ErrorOrNil()
}

// Duration returns the sum of the declared segment durations.
func (p *Playlist) Duration() time.Duration {
	var total time.Duration
	for _, seg := range p.Segments {
		total += seg.Duration
	}
	return total
}

// resolve maps a segment URI to a local path, or "" for remote URIs.
func resolve(baseDir, uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" && u.Scheme != "file" {
		return ""
	}
	uri = strings.TrimPrefix(uri, "file://")
	if filepath.IsAbs(uri) {
		return uri
	}
	return filepath.Join(baseDir, filepath.FromSlash(uri))
}
