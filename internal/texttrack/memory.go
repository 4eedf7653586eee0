package texttrack

import (
	"slices"
	"sort"
	"sync"

	"github.com/jmylchreest/timedmeta/internal/cue"
)

// MemoryTrack is a Track held in memory. It is safe for concurrent use so the
// inspection API can read it while a replay is writing.
type MemoryTrack struct {
	kind  string
	label string

	mu   sync.RWMutex
	mode Mode
	cues []*cue.Cue
}

// NewMemoryTrack creates an empty disabled track.
func NewMemoryTrack(kind, label string) *MemoryTrack {
	return &MemoryTrack{
		kind:  kind,
		label: label,
		mode:  ModeDisabled,
	}
}

// Kind implements Track.
func (t *MemoryTrack) Kind() string { return t.kind }

// Label implements Track.
func (t *MemoryTrack) Label() string { return t.label }

// Mode implements Track.
func (t *MemoryTrack) Mode() Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// SetMode implements Track.
func (t *MemoryTrack) SetMode(mode Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = mode
}

// Cues implements Track.
func (t *MemoryTrack) Cues() []*cue.Cue {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.cues)
}

// Len returns the number of cues in the track.
func (t *MemoryTrack) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.cues)
}

// AddCue inserts c after every cue starting at or before c.StartTime.
// Adding a cue already present is a no-op.
func (t *MemoryTrack) AddCue(c *cue.Cue) {
	if c == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if slices.Contains(t.cues, c) {
		return
	}
	i := sort.Search(len(t.cues), func(i int) bool {
		return t.cues[i].StartTime > c.StartTime
	})
	t.cues = slices.Insert(t.cues, i, c)
}

// RemoveCue removes c by identity. Unknown cues are ignored.
func (t *MemoryTrack) RemoveCue(c *cue.Cue) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i := slices.Index(t.cues, c); i >= 0 {
		t.cues = slices.Delete(t.cues, i, i+1)
	}
}

// SurfaceOption configures a MemorySurface.
type SurfaceOption func(*MemorySurface)

// WithDataCues advertises data cue support.
func WithDataCues(enabled bool) SurfaceOption {
	return func(s *MemorySurface) { s.dataCues = enabled }
}

// WithVTTCues advertises WebVTT cue support.
func WithVTTCues(enabled bool) SurfaceOption {
	return func(s *MemorySurface) { s.vttCues = enabled }
}

// MemorySurface is a headless playback surface holding MemoryTracks.
type MemorySurface struct {
	dataCues bool
	vttCues  bool

	mu        sync.Mutex
	tracks    []Track
	listeners []func(Track)
}

// NewMemorySurface creates a surface supporting data cues unless configured
// otherwise.
func NewMemorySurface(opts ...SurfaceOption) *MemorySurface {
	s := &MemorySurface{dataCues: true, vttCues: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SupportsDataCues implements cue.DataCueSupporter.
func (s *MemorySurface) SupportsDataCues() bool { return s.dataCues }

// SupportsVTTCues implements cue.VTTCueSupporter.
func (s *MemorySurface) SupportsVTTCues() bool { return s.vttCues }

// TextTracks implements Surface.
func (s *MemorySurface) TextTracks() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tracks)
}

// AddTextTrack creates a track, appends it to the surface and notifies
// listeners, like a browser media element does.
func (s *MemorySurface) AddTextTrack(kind, label string) Track {
	t := NewMemoryTrack(kind, label)

	s.mu.Lock()
	s.tracks = append(s.tracks, t)
	s.mu.Unlock()

	s.NotifyTrackAdded(t)
	return t
}

// AttachTrack appends an existing track without notifying listeners, as if it
// had been declared before anyone listened.
func (s *MemorySurface) AttachTrack(t Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, t)
}

// OnTrackAdded registers a listener for track added notifications.
func (s *MemorySurface) OnTrackAdded(fn func(Track)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// NotifyTrackAdded implements Surface.
func (s *MemorySurface) NotifyTrackAdded(t Track) {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(t)
	}
}

var (
	_ Track                = (*MemoryTrack)(nil)
	_ Surface              = (*MemorySurface)(nil)
	_ cue.DataCueSupporter = (*MemorySurface)(nil)
	_ cue.VTTCueSupporter  = (*MemorySurface)(nil)
)
