package fragment_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/timedmeta/internal/fragment"
	"github.com/jmylchreest/timedmeta/internal/testutil"
)

func videoSamples(start, end, step float64) []testutil.PESSample {
	var out []testutil.PESSample
	for pts := start; pts <= end; pts += step {
		out = append(out, testutil.PESSample{PTS: pts, Data: []byte{0, 0, 0, 1, 0x65, 0x88}})
	}
	return out
}

func TestExtract_MetadataSamples(t *testing.T) {
	first := testutil.ID3Tag(t, testutil.TextFrame("TIT2", "first"))
	second := testutil.ID3Tag(t, testutil.TextFrame("TIT2", "second"))

	data := testutil.TSSegment(t, testutil.SegmentSpec{
		Video: videoSamples(10, 14, 1),
		Metadata: []testutil.PESSample{
			{PTS: 11, Data: first},
			{PTS: 12.5, Data: second},
		},
	})

	frag, samples, err := fragment.Extract(context.Background(), bytes.NewReader(data), fragment.ExtractOptions{
		Sequence: 7,
		URI:      "seg7.ts",
	})
	require.NoError(t, err)

	assert.Equal(t, 7, frag.Sequence)
	assert.Equal(t, "seg7.ts", frag.URI)
	assert.InDelta(t, 10.0, frag.StartPTS, 1e-6)
	assert.InDelta(t, 14.0, frag.EndPTS, 1e-6)

	require.Len(t, samples, 2)
	assert.InDelta(t, 11.0, samples[0].PTS, 1e-6)
	assert.Equal(t, first, samples[0].Data)
	assert.InDelta(t, 12.5, samples[1].PTS, 1e-6)
	assert.Equal(t, second, samples[1].Data)
}

func TestExtract_PlaylistDurationBoundsFragment(t *testing.T) {
	data := testutil.TSSegment(t, testutil.SegmentSpec{
		Video:    videoSamples(20, 23, 1),
		Metadata: []testutil.PESSample{{PTS: 21, Data: testutil.ID3Tag(t, testutil.TextFrame("TIT2", "x"))}},
	})

	frag, _, err := fragment.Extract(context.Background(), bytes.NewReader(data), fragment.ExtractOptions{
		Duration: 6 * time.Second,
	})
	require.NoError(t, err)

	assert.InDelta(t, 20.0, frag.StartPTS, 1e-6)
	assert.InDelta(t, 26.0, frag.EndPTS, 1e-6)
	assert.InDelta(t, 6.0, frag.Duration(), 1e-6)
}

func TestExtract_NoMetadataStream(t *testing.T) {
	data := testutil.TSSegment(t, testutil.SegmentSpec{Video: videoSamples(0, 2, 1)})

	frag, samples, err := fragment.Extract(context.Background(), bytes.NewReader(data), fragment.ExtractOptions{})
	require.NoError(t, err)

	assert.Empty(t, samples)
	assert.InDelta(t, 2.0, frag.EndPTS, 1e-6)
}

func TestExtract_PTSRollover(t *testing.T) {
	// 33-bit wrap happens at ~95443.7s
	const wrap = float64(1<<33) / 90000
	tag := testutil.ID3Tag(t, testutil.TextFrame("TIT2", "after wrap"))

	data := testutil.TSSegment(t, testutil.SegmentSpec{
		Video:    []testutil.PESSample{{PTS: wrap - 1, Data: []byte{0, 0, 0, 1, 0x65}}},
		Metadata: []testutil.PESSample{{PTS: 0.5, Data: tag}},
	})

	frag, samples, err := fragment.Extract(context.Background(), bytes.NewReader(data), fragment.ExtractOptions{})
	require.NoError(t, err)

	require.Len(t, samples, 1)
	// timestamps on both sides of the wrap stay on one continuous timeline
	assert.InDelta(t, 1.5, samples[0].PTS-frag.StartPTS, 1e-3)
}

func TestExtract_CanceledContext(t *testing.T) {
	data := testutil.TSSegment(t, testutil.SegmentSpec{Video: videoSamples(0, 2, 1)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := fragment.Extract(ctx, bytes.NewReader(data), fragment.ExtractOptions{})
	assert.Error(t, err)
}

func TestProbe_ListsTracks(t *testing.T) {
	data := testutil.TSSegment(t, testutil.SegmentSpec{
		Video: videoSamples(0, 1, 1),
	})

	tracks, err := fragment.Probe(bytes.NewReader(data))
	require.NoError(t, err)

	require.NotEmpty(t, tracks)
	assert.Equal(t, testutil.VideoPID, tracks[0].PID)
	assert.Equal(t, "h264", tracks[0].Codec)
}

func TestProbe_InvalidInput(t *testing.T) {
	_, err := fragment.Probe(bytes.NewReader([]byte("not a transport stream")))
	assert.Error(t, err)
}
