package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/timedmeta/internal/id3track"
	"github.com/jmylchreest/timedmeta/internal/replay"
)

// SessionSource provides snapshots of a replay session.
type SessionSource interface {
	Snapshot() *replay.Result
}

// SessionHandler exposes the state of a replay session.
type SessionHandler struct {
	source SessionSource
}

// NewSessionHandler creates a handler serving snapshots of source.
func NewSessionHandler(source SessionSource) *SessionHandler {
	return &SessionHandler{source: source}
}

// GetSessionInput is the input for the session endpoint.
type GetSessionInput struct{}

// GetSessionOutput is the output for the session endpoint.
type GetSessionOutput struct {
	Body SessionResponse
}

// SessionResponse is a session summary without cues.
type SessionResponse struct {
	SessionID string         `json:"session_id"`
	Source    string         `json:"source,omitempty"`
	Loaded    int            `json:"fragments_loaded"`
	Failed    int            `json:"fragments_failed"`
	Playhead  float64        `json:"playhead"`
	Stats     id3track.Stats `json:"stats"`
}

// GetTrackInput is the input for the track endpoint.
type GetTrackInput struct{}

// GetTrackOutput is the output for the track endpoint.
type GetTrackOutput struct {
	Body TrackResponse
}

// TrackResponse describes the metadata track.
type TrackResponse struct {
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	Mode     string `json:"mode"`
	CueCount int    `json:"cue_count"`
}

// ListCuesInput filters the cue listing.
type ListCuesInput struct {
	Since float64 `query:"since" doc:"Only return cues ending after this time in seconds"`
	Frame string  `query:"frame" doc:"Only return cues carrying this frame id, e.g. TIT2"`
	Limit int     `query:"limit" minimum:"0" doc:"Maximum number of cues to return (0 = all)"`
}

// ListCuesOutput is the output for the cue listing.
type ListCuesOutput struct {
	Body struct {
		Cues  []replay.CueView `json:"cues"`
		Total int              `json:"total"`
	}
}

// Register registers the session routes with the API.
func (h *SessionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getSession",
		Method:      "GET",
		Path:        "/api/v1/session",
		Summary:     "Get replay session",
		Tags:        []string{"Session"},
	}, h.GetSession)

	huma.Register(api, huma.Operation{
		OperationID: "getTrack",
		Method:      "GET",
		Path:        "/api/v1/track",
		Summary:     "Get metadata track",
		Tags:        []string{"Session"},
	}, h.GetTrack)

	huma.Register(api, huma.Operation{
		OperationID: "listCues",
		Method:      "GET",
		Path:        "/api/v1/cues",
		Summary:     "List metadata cues",
		Description: "Returns the cues of the metadata track ordered by start time",
		Tags:        []string{"Session"},
	}, h.ListCues)
}

// GetSession returns the session summary.
func (h *SessionHandler) GetSession(_ context.Context, _ *GetSessionInput) (*GetSessionOutput, error) {
	res := h.source.Snapshot()
	return &GetSessionOutput{
		Body: SessionResponse{
			SessionID: res.SessionID,
			Source:    res.Source,
			Loaded:    res.Loaded,
			Failed:    res.Failed,
			Playhead:  res.Playhead,
			Stats:     res.Stats,
		},
	}, nil
}

// GetTrack returns the metadata track, or 404 before it exists.
func (h *SessionHandler) GetTrack(_ context.Context, _ *GetTrackInput) (*GetTrackOutput, error) {
	res := h.source.Snapshot()
	if res.Track == nil {
		return nil, huma.Error404NotFound("metadata track not created yet")
	}
	return &GetTrackOutput{
		Body: TrackResponse{
			Kind:     res.Track.Kind,
			Label:    res.Track.Label,
			Mode:     res.Track.Mode,
			CueCount: len(res.Track.Cues),
		},
	}, nil
}

// ListCues returns the cues of the metadata track.
func (h *SessionHandler) ListCues(_ context.Context, input *ListCuesInput) (*ListCuesOutput, error) {
	res := h.source.Snapshot()
	out := &ListCuesOutput{}
	out.Body.Cues = []replay.CueView{}
	if res.Track == nil {
		return out, nil
	}

	out.Body.Total = len(res.Track.Cues)
	for _, c := range res.Track.Cues {
		if c.End <= input.Since {
			continue
		}
		if input.Frame != "" && c.FrameID != input.Frame {
			continue
		}
		out.Body.Cues = append(out.Body.Cues, c)
		if input.Limit > 0 && len(out.Body.Cues) == input.Limit {
			break
		}
	}
	return out, nil
}
