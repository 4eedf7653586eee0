// Package replay drives an ID3 track controller through the fragments of a
// playlist, the way a player would while loading them.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/jmylchreest/timedmeta/internal/events"
	"github.com/jmylchreest/timedmeta/internal/fragment"
	"github.com/jmylchreest/timedmeta/internal/id3"
	"github.com/jmylchreest/timedmeta/internal/id3track"
	"github.com/jmylchreest/timedmeta/internal/observability"
	"github.com/jmylchreest/timedmeta/internal/playlist"
	"github.com/jmylchreest/timedmeta/internal/texttrack"
)

// ErrSessionClosed is returned when running a closed session.
var ErrSessionClosed = errors.New("replay session closed")

// Options configures a Session.
type Options struct {
	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger

	// Label of the metadata track.
	Label string

	// MaxSampleSize bounds decodable samples (0 = unbounded).
	MaxSampleSize int64

	// BackBufferLength is the media kept behind the playhead (0 = never trim).
	BackBufferLength time.Duration

	// TrimVOD trims playlists that carry an ENDLIST tag too.
	TrimVOD bool

	// DetachOnFinish detaches the surface once every fragment was loaded.
	DetachOnFinish bool

	// Pace waits each fragment's duration before loading the next one.
	Pace bool

	// Surface to bind. Defaults to a MemorySurface supporting data cues.
	Surface *texttrack.MemorySurface
}

// Session is one replay of a playlist against a fresh controller.
type Session struct {
	id      string
	opts    Options
	logger  *slog.Logger
	bus     *events.Bus
	ctrl    *id3track.Controller
	surface *texttrack.MemorySurface

	mu       sync.RWMutex
	source   string
	loaded   int
	failed   int
	stats    id3track.Stats
	closed   bool
	lastFrag *fragment.Fragment
}

// NewSession creates a session with its own event bus and controller.
func NewSession(opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Surface == nil {
		opts.Surface = texttrack.NewMemorySurface()
	}
	if opts.Label == "" {
		opts.Label = id3track.DefaultLabel
	}

	id := uuid.New().String()
	logger := observability.WithComponent(observability.WithSession(opts.Logger, id), "replay")

	bus := events.NewBus(logger)
	ctrl := id3track.New(id3track.Config{
		Logger:  observability.WithSession(opts.Logger, id),
		Decoder: id3.NewDecoder(opts.MaxSampleSize),
		Label:   opts.Label,
	})
	if err := ctrl.Register(bus); err != nil {
		return nil, fmt.Errorf("registering controller: %w", err)
	}

	return &Session{
		id:      id,
		opts:    opts,
		logger:  logger,
		bus:     bus,
		ctrl:    ctrl,
		surface: opts.Surface,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Surface returns the surface the session binds.
func (s *Session) Surface() *texttrack.MemorySurface {
	return s.surface
}

// Run attaches the surface and loads every fragment of pl in order. A
// fragment that cannot be read is logged and skipped; all such failures are
// returned together once the playlist is done, along with the result.
func (s *Session) Run(ctx context.Context, pl *playlist.Playlist) (*Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	s.source = pl.Source
	s.mu.Unlock()

	var err error
	done := observability.TimedOperationWithError(ctx, s.logger, "replay", &err)
	defer done()

	if err = s.bus.Publish(events.MediaAttached{Surface: s.surface}); err != nil {
		return nil, err
	}

	trim := s.opts.BackBufferLength > 0 && (pl.Live || s.opts.TrimVOD)

	var failures *multierror.Error
	for _, seg := range pl.Segments {
		if err = ctx.Err(); err != nil {
			return s.Snapshot(), err
		}

		frag, samples, loadErr := s.load(ctx, seg)
		if loadErr != nil {
			s.logger.Warn("skipping fragment",
				slog.Int("sequence", seg.Sequence),
				slog.String("uri", seg.URI),
				slog.String("error", loadErr.Error()))
			failures = multierror.Append(failures, loadErr)
			s.update(func() { s.failed++ })
			continue
		}

		if err = s.bus.Publish(events.FragParsingMetadata{Fragment: frag, Samples: samples}); err != nil {
			return s.Snapshot(), err
		}

		if trim {
			bufferEnd := frag.EndPTS - s.opts.BackBufferLength.Seconds()
			if bufferEnd > 0 {
				if err = s.bus.Publish(events.LiveBackBufferReached{BufferEnd: bufferEnd}); err != nil {
					return s.Snapshot(), err
				}
			}
		}

		s.update(func() {
			s.loaded++
			s.lastFrag = &frag
		})
		s.logger.Debug("fragment loaded",
			slog.Int("sequence", frag.Sequence),
			slog.Int("samples", len(samples)),
			slog.Float64("start", frag.StartPTS),
			slog.Float64("end", frag.EndPTS))

		if s.opts.Pace && seg.Duration > 0 {
			select {
			case <-ctx.Done():
				err = ctx.Err()
				return s.Snapshot(), err
			case <-time.After(seg.Duration):
			}
		}
	}

	if s.opts.DetachOnFinish {
		if err = s.bus.Publish(events.MediaDetaching{}); err != nil {
			return s.Snapshot(), err
		}
		s.update(nil)
	}

	err = failures.ErrorOrNil()
	return s.Snapshot(), err
}

// load opens and extracts one fragment.
func (s *Session) load(ctx context.Context, seg playlist.Segment) (fragment.Fragment, []fragment.Sample, error) {
	if seg.Path == "" {
		return fragment.Fragment{}, nil, fmt.Errorf("segment %d (%s): %w", seg.Sequence, seg.URI, playlist.ErrRemoteSegment)
	}

	f, err := os.Open(seg.Path)
	if err != nil {
		return fragment.Fragment{}, nil, fmt.Errorf("segment %d: %w", seg.Sequence, err)
	}
	defer f.Close()

	return fragment.Extract(ctx, f, fragment.ExtractOptions{
		Sequence: seg.Sequence,
		URI:      seg.URI,
		Duration: seg.Duration,
	})
}

// update copies the controller counters after a dispatch and applies fn
// under the session lock.
func (s *Session) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats = s.ctrl.Stats()
	if fn != nil {
		fn()
	}
}

// Close destroys the controller and closes the bus, clearing the cues of the
// metadata track. It must not run concurrently with Run.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.ctrl.Destroy()
	s.bus.Close()
	s.update(nil)
}
