package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/timedmeta/internal/config"
	"github.com/jmylchreest/timedmeta/internal/fragment"
	"github.com/jmylchreest/timedmeta/internal/id3"
)

var probeCmd = &cobra.Command{
	Use:   "probe <segment.ts>",
	Short: "List the tracks and ID3 frames of one fragment",
	Long: `Probe reads a single MPEG-TS fragment and prints its media tracks, its
timing bounds and every ID3 frame carried by its timed metadata stream,
including the transport stream timestamp frames that never become cues.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

var probeOutput string

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringVarP(&probeOutput, "output", "o", config.OutputText, "output format (text, json, yaml)")
}

// ProbeReport is the result of probing one fragment.
type ProbeReport struct {
	Path     string               `json:"path" yaml:"path"`
	Tracks   []fragment.TrackInfo `json:"tracks" yaml:"tracks"`
	Fragment fragment.Fragment    `json:"fragment" yaml:"fragment"`
	Samples  []ProbeSample        `json:"samples" yaml:"samples"`
}

// ProbeSample is one decoded metadata sample.
type ProbeSample struct {
	PTS       float64     `json:"pts" yaml:"pts"`
	Size      int         `json:"size" yaml:"size"`
	Timestamp *float64    `json:"transport_stream_timestamp,omitempty" yaml:"transport_stream_timestamp,omitempty"`
	Frames    []id3.Frame `json:"frames" yaml:"frames"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading segment: %w", err)
	}

	report, err := probe(cmd, args[0], data, id3.NewDecoder(cfg.Metadata.MaxSampleSize.Bytes()))
	if err != nil {
		return err
	}
	return renderProbe(cmd.OutOrStdout(), report, probeOutput)
}

func probe(cmd *cobra.Command, path string, data []byte, decoder *id3.Decoder) (*ProbeReport, error) {
	tracks, err := fragment.Probe(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("probing tracks: %w", err)
	}

	frag, samples, err := fragment.Extract(cmd.Context(), bytes.NewReader(data), fragment.ExtractOptions{URI: path})
	if err != nil {
		return nil, err
	}

	report := &ProbeReport{Path: path, Tracks: tracks, Fragment: frag, Samples: make([]ProbeSample, 0, len(samples))}
	for _, s := range samples {
		ps := ProbeSample{PTS: s.PTS, Size: len(s.Data), Frames: decoder.Decode(s.Data)}
		for _, f := range ps.Frames {
			if ts, ok := id3.TransportStreamTimestamp(f); ok {
				seconds := ts.Seconds()
				ps.Timestamp = &seconds
			}
		}
		report.Samples = append(report.Samples, ps)
	}
	return report, nil
}

func renderProbe(w io.Writer, r *ProbeReport, format string) error {
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
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "path\t%s\n", r.Path)
	fmt.Fprintf(tw, "span\t%.4f - %.4f\n", r.Fragment.StartPTS, r.Fragment.EndPTS)
	for _, t := range r.Tracks {
		fmt.Fprintf(tw, "track\tpid 0x%04x\t%s\n", t.PID, t.Codec)
	}
	fmt.Fprintf(tw, "samples\t%d\n", len(r.Samples))
	for _, s := range r.Samples {
		fmt.Fprintf(tw, "\n%.4f\t%d bytes\t%d frames\n", s.PTS, s.Size, len(s.Frames))
		for _, f := range s.Frames {
			value := f.Text
			if value == "" && len(f.Data) > 0 {
				value = fmt.Sprintf("%d bytes", len(f.Data))
			}
			fmt.Fprintf(tw, "\t%s\t%s\t%s\n", f.ID, f.Info, value)
		}
	}
	return tw.Flush()
}
