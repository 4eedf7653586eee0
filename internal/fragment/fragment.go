// Package fragment extracts timed metadata samples and timing bounds from
// MPEG-TS media fragments.
package fragment

// Fragment is a bounded unit of media data. Times are in seconds.
type Fragment struct {
	Sequence int     `json:"sequence" yaml:"sequence"`
	URI      string  `json:"uri,omitempty" yaml:"uri,omitempty"`
	StartPTS float64 `json:"start_pts" yaml:"start_pts"`
	EndPTS   float64 `json:"end_pts" yaml:"end_pts"`
}

// Duration returns the fragment length in seconds.
func (f Fragment) Duration() float64 {
	return f.EndPTS - f.StartPTS
}

// Sample is one timed metadata payload with its presentation time in seconds.
type Sample struct {
	PTS  float64
	Data []byte
}
