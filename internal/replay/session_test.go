package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/timedmeta/internal/config"
	"github.com/jmylchreest/timedmeta/internal/observability"
	"github.com/jmylchreest/timedmeta/internal/playlist"
	"github.com/jmylchreest/timedmeta/internal/testutil"
	"github.com/jmylchreest/timedmeta/internal/texttrack"
)

// fixture describes a segment by its media start and metadata samples.
type fixture struct {
	start    float64
	metadata map[float64]string
}

func writeSegment(t *testing.T, dir, name string, f fixture) {
	t.Helper()

	spec := testutil.SegmentSpec{}
	for i := range 6 {
		spec.Video = append(spec.Video, testutil.PESSample{
			PTS:  f.start + float64(i),
			Data: []byte{0, 0, 0, 1, 0x65, 0x88},
		})
	}
	// deterministic order for map input
	for pts := f.start; pts < f.start+6; pts += 0.5 {
		title, ok := f.metadata[pts]
		if !ok {
			continue
		}
		spec.Metadata = append(spec.Metadata, testutil.PESSample{
			PTS: pts,
			Data: testutil.ID3Tag(t,
				testutil.TextFrame("TIT2", title),
				testutil.TimestampFrame(testutil.Seconds(pts)),
			),
		})
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), testutil.TSSegment(t, spec), 0o600))
}

func writePlaylist(t *testing.T, dir string, endlist bool, names ...string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:6\n#EXT-X-MEDIA-SEQUENCE:0\n")
	for _, name := range names {
		fmt.Fprintf(&b, "#EXTINF:6.000,\n%s\n", name)
	}
	if endlist {
		b.WriteString("#EXT-X-ENDLIST\n")
	}

	path := filepath.Join(dir, "index.m3u8")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

// twoSegmentPlaylist writes cues a@1, b@3 in the first segment and c@7 in
// the second.
func twoSegmentPlaylist(t *testing.T, endlist bool) *playlist.Playlist {
	t.Helper()
	dir := t.TempDir()
	writeSegment(t, dir, "seg0.ts", fixture{start: 0, metadata: map[float64]string{1: "a", 3: "b"}})
	writeSegment(t, dir, "seg1.ts", fixture{start: 6, metadata: map[float64]string{7: "c"}})

	pl, err := playlist.Load(writePlaylist(t, dir, endlist, "seg0.ts", "seg1.ts"))
	require.NoError(t, err)
	return pl
}

func newTestSession(t *testing.T, opts Options) (*Session, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts.Logger = observability.NewLoggerWithWriter(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)

	s, err := NewSession(opts)
	require.NoError(t, err)
	return s, &buf
}

func cueTexts(r *Result) []string {
	if r.Track == nil {
		return nil
	}
	texts := make([]string, 0, len(r.Track.Cues))
	for _, c := range r.Track.Cues {
		texts = append(texts, c.Text)
	}
	return texts
}

func TestRun_BuildsTrack(t *testing.T) {
	s, logs := newTestSession(t, Options{})
	res, err := s.Run(context.Background(), twoSegmentPlaylist(t, false))
	require.NoError(t, err)

	assert.Equal(t, s.ID(), res.SessionID)
	assert.Equal(t, 2, res.Loaded)
	assert.Zero(t, res.Failed)
	assert.InDelta(t, 12.0, res.Playhead, 1e-6)

	require.NotNil(t, res.Track)
	assert.Equal(t, texttrack.KindMetadata, res.Track.Kind)
	assert.Equal(t, "id3", res.Track.Label)
	assert.Equal(t, string(texttrack.ModeHidden), res.Track.Mode)
	assert.Equal(t, []string{"a", "b", "c"}, cueTexts(res))

	a, b, c := res.Track.Cues[0], res.Track.Cues[1], res.Track.Cues[2]
	assert.InDelta(t, 1.0, a.Start, 1e-6)
	assert.InDelta(t, 3.0, a.End, 1e-6)
	assert.InDelta(t, 6.0, b.End, 1e-6)
	assert.InDelta(t, 12.0, c.End, 1e-6)
	assert.Equal(t, "TIT2", a.FrameID)

	assert.Equal(t, 3, res.Stats.CuesAdded)
	assert.Equal(t, 3, res.Stats.TimestampFrames)
	assert.Contains(t, logs.String(), s.ID())
}

func TestRun_TrimsLiveBackBuffer(t *testing.T) {
	s, _ := newTestSession(t, Options{BackBufferLength: 4 * time.Second})
	res, err := s.Run(context.Background(), twoSegmentPlaylist(t, false))
	require.NoError(t, err)

	// playhead 12 keeps everything from the cue containing 8
	assert.Equal(t, []string{"c"}, cueTexts(res))
	assert.Equal(t, 2, res.Stats.CuesEvicted)
}

func TestRun_VODIsNotTrimmedByDefault(t *testing.T) {
	s, _ := newTestSession(t, Options{BackBufferLength: 4 * time.Second})
	res, err := s.Run(context.Background(), twoSegmentPlaylist(t, true))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, cueTexts(res))
	assert.Zero(t, res.Stats.CuesEvicted)
}

func TestRun_TrimVOD(t *testing.T) {
	s, _ := newTestSession(t, Options{BackBufferLength: 4 * time.Second, TrimVOD: true})
	res, err := s.Run(context.Background(), twoSegmentPlaylist(t, true))
	require.NoError(t, err)

	assert.Equal(t, []string{"c"}, cueTexts(res))
}

func TestRun_MissingSegmentIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeSegment(t, dir, "seg0.ts", fixture{start: 0, metadata: map[float64]string{1: "a"}})
	pl, err := playlist.Load(writePlaylist(t, dir, false, "seg0.ts", "gone.ts"))
	require.NoError(t, err)

	s, logs := newTestSession(t, Options{})
	res, err := s.Run(context.Background(), pl)
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 1)

	require.NotNil(t, res)
	assert.Equal(t, 1, res.Loaded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"a"}, cueTexts(res))
	assert.Contains(t, logs.String(), "skipping fragment")
}

func TestRun_DetachOnFinishClearsCues(t *testing.T) {
	s, _ := newTestSession(t, Options{DetachOnFinish: true})
	res, err := s.Run(context.Background(), twoSegmentPlaylist(t, false))
	require.NoError(t, err)

	require.NotNil(t, res.Track)
	assert.Empty(t, res.Track.Cues)
	assert.Equal(t, 3, res.Stats.CuesCleared)
}

func TestRun_CanceledContext(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Run(ctx, twoSegmentPlaylist(t, false))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Zero(t, res.Loaded)
}

func TestRun_ClosedSession(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	s.Close()
	s.Close()

	_, err := s.Run(context.Background(), twoSegmentPlaylist(t, false))
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestClose_ClearsTrack(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	_, err := s.Run(context.Background(), twoSegmentPlaylist(t, false))
	require.NoError(t, err)

	s.Close()

	res := s.Snapshot()
	require.NotNil(t, res.Track)
	assert.Empty(t, res.Track.Cues)
	assert.Equal(t, 3, res.Stats.CuesCleared)
}

func TestRun_FromSegments(t *testing.T) {
	dir := t.TempDir()
	writeSegment(t, dir, "a.ts", fixture{start: 0, metadata: map[float64]string{2: "x"}})
	pl, err := playlist.FromSegments([]string{filepath.Join(dir, "a.ts")})
	require.NoError(t, err)

	s, _ := newTestSession(t, Options{Label: "custom"})
	res, err := s.Run(context.Background(), pl)
	require.NoError(t, err)

	require.NotNil(t, res.Track)
	assert.Equal(t, "custom", res.Track.Label)
	require.Len(t, res.Track.Cues, 1)
	// without a declared duration the cue ends at the last media timestamp
	assert.InDelta(t, 5.0, res.Track.Cues[0].End, 1e-6)
}

func TestRender(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	res, err := s.Run(context.Background(), twoSegmentPlaylist(t, false))
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, res, config.OutputJSON))

		var decoded Result
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, res.SessionID, decoded.SessionID)
		require.NotNil(t, decoded.Track)
		assert.Len(t, decoded.Track.Cues, 3)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, res, config.OutputYAML))
		assert.Contains(t, buf.String(), "session_id: "+res.SessionID)
		assert.Contains(t, buf.String(), "frame_id: TIT2")
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, res, config.OutputText))
		assert.Contains(t, buf.String(), res.SessionID)
		assert.Contains(t, buf.String(), "metadata/id3 (hidden), 3 cues")
		assert.Contains(t, buf.String(), "TIT2")
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, Render(&bytes.Buffer{}, res, "csv"))
	})
}
