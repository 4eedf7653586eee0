package replay

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/timedmeta/internal/config"
	"github.com/jmylchreest/timedmeta/internal/cue"
	"github.com/jmylchreest/timedmeta/internal/id3"
	"github.com/jmylchreest/timedmeta/internal/id3track"
	"github.com/jmylchreest/timedmeta/internal/texttrack"
)

// Result is a point-in-time view of a session.
type Result struct {
	SessionID string         `json:"session_id" yaml:"session_id"`
	Source    string         `json:"source,omitempty" yaml:"source,omitempty"`
	Loaded    int            `json:"fragments_loaded" yaml:"fragments_loaded"`
	Failed    int            `json:"fragments_failed" yaml:"fragments_failed"`
	Playhead  float64        `json:"playhead" yaml:"playhead"`
	Stats     id3track.Stats `json:"stats" yaml:"stats"`
	Track     *TrackView     `json:"track,omitempty" yaml:"track,omitempty"`
}

// TrackView describes the metadata track and its cues.
type TrackView struct {
	Kind  string    `json:"kind" yaml:"kind"`
	Label string    `json:"label" yaml:"label"`
	Mode  string    `json:"mode" yaml:"mode"`
	Cues  []CueView `json:"cues" yaml:"cues"`
}

// CueView is the serializable form of a cue carrying an ID3 frame.
type CueView struct {
	ID      string  `json:"id" yaml:"id"`
	Start   float64 `json:"start" yaml:"start"`
	End     float64 `json:"end" yaml:"end"`
	Flavor  string  `json:"flavor" yaml:"flavor"`
	FrameID string  `json:"frame_id,omitempty" yaml:"frame_id,omitempty"`
	Info    string  `json:"info,omitempty" yaml:"info,omitempty"`
	Text    string  `json:"text,omitempty" yaml:"text,omitempty"`
	Data    string  `json:"data,omitempty" yaml:"data,omitempty"`
}

// Snapshot returns the current state of the session. It is safe to call while
// Run is in progress.
func (s *Session) Snapshot() *Result {
	s.mu.RLock()
	res := &Result{
		SessionID: s.id,
		Source:    s.source,
		Loaded:    s.loaded,
		Failed:    s.failed,
		Stats:     s.stats,
	}
	if s.lastFrag != nil {
		res.Playhead = s.lastFrag.EndPTS
	}
	s.mu.RUnlock()

	if track := texttrack.FindTrack(s.surface, texttrack.KindMetadata, s.opts.Label); track != nil {
		res.Track = NewTrackView(track)
	}
	return res
}

// NewTrackView snapshots track.
func NewTrackView(track texttrack.Track) *TrackView {
	cues := track.Cues()
	view := &TrackView{
		Kind:  track.Kind(),
		Label: track.Label(),
		Mode:  string(track.Mode()),
		Cues:  make([]CueView, 0, len(cues)),
	}
	for _, c := range cues {
		view.Cues = append(view.Cues, NewCueView(c))
	}
	return view
}

// NewCueView converts c. Payloads other than id3.Frame are carried as text.
func NewCueView(c *cue.Cue) CueView {
	v := CueView{
		ID:     c.ID,
		Start:  c.StartTime,
		End:    c.EndTime,
		Flavor: string(c.Flavor),
		Text:   c.Text,
	}
	switch payload := c.Value.(type) {
	case id3.Frame:
		v.FrameID = payload.ID
		v.Info = payload.Info
		if payload.Text != "" {
			v.Text = payload.Text
		}
		if len(payload.Data) > 0 {
			v.Data = hex.EncodeToString(payload.Data)
		}
	case nil:
	default:
		v.Text = fmt.Sprint(payload)
	}
	return v
}

// Render writes r in the given output format.
func Render(w io.Writer, r *Result, format string) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case config.OutputText:
		return renderText(w, r)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderText(w io.Writer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "session\t%s\n", r.SessionID)
	if r.Source != "" {
		fmt.Fprintf(tw, "source\t%s\n", r.Source)
	}
	fmt.Fprintf(tw, "fragments\t%d loaded, %d failed\n", r.Loaded, r.Failed)
	fmt.Fprintf(tw, "playhead\t%.3fs\n", r.Playhead)
	fmt.Fprintf(tw, "cues\tadded %d, evicted %d, cleared %d\n",
		r.Stats.CuesAdded, r.Stats.CuesEvicted, r.Stats.CuesCleared)
	fmt.Fprintf(tw, "samples\tskipped %d, timestamp frames %d, zero length %d, inverted %d\n",
		r.Stats.SamplesSkipped, r.Stats.TimestampFrames, r.Stats.ZeroLengthCues, r.Stats.InvertedCues)

	if r.Track == nil {
		fmt.Fprintf(tw, "track\tnone\n")
		return tw.Flush()
	}

	fmt.Fprintf(tw, "track\t%s/%s (%s), %d cues\n", r.Track.Kind, r.Track.Label, r.Track.Mode, len(r.Track.Cues))
	if len(r.Track.Cues) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "START\tEND\tFLAVOR\tFRAME\tVALUE")
		for _, c := range r.Track.Cues {
			fmt.Fprintf(tw, "%.4f\t%.4f\t%s\t%s\t%s\n", c.Start, c.End, c.Flavor, c.FrameID, cueValue(c))
		}
	}
	return tw.Flush()
}

func cueValue(c CueView) string {
	value := c.Text
	if value == "" {
		value = c.Data
	}
	if c.Info != "" {
		return c.Info + ": " + value
	}
	return value
}
