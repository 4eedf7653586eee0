package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/timedmeta/internal/config"
	"github.com/jmylchreest/timedmeta/internal/playlist"
	"github.com/jmylchreest/timedmeta/internal/replay"
	"github.com/jmylchreest/timedmeta/internal/texttrack"
)

var replayCmd = &cobra.Command{
	Use:   "replay <playlist.m3u8 | segment.ts...>",
	Short: "Replay fragments through the metadata track controller",
	Long: `Replay loads every fragment of a media playlist (or a list of bare MPEG-TS
segments, treated as a live stream) in order, turns its ID3 samples into cues
and prints the resulting metadata track.

Live playlists trim cues that fall behind the back buffer; VOD playlists are
only trimmed with --trim-vod.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringP("output", "o", config.OutputText, "output format (text, json, yaml)")
	replayCmd.Flags().Duration("back-buffer", 30*time.Second, "media kept behind the playhead before cues are evicted (0 = never)")
	replayCmd.Flags().Bool("trim-vod", false, "trim the back buffer of VOD playlists too")
	replayCmd.Flags().Bool("detach", false, "detach the surface after the last fragment, clearing the track")
	replayCmd.Flags().String("label", "id3", "label of the metadata track")
	replayCmd.Flags().Bool("data-cues", true, "surface supports data cues")
	replayCmd.Flags().Bool("vtt-cues", true, "surface supports WebVTT cues")

	mustBindPFlag("replay.output", replayCmd.Flags().Lookup("output"))
	mustBindPFlag("buffer.back_buffer_length", replayCmd.Flags().Lookup("back-buffer"))
	mustBindPFlag("buffer.trim_vod", replayCmd.Flags().Lookup("trim-vod"))
	mustBindPFlag("replay.detach_on_finish", replayCmd.Flags().Lookup("detach"))
	mustBindPFlag("metadata.track_label", replayCmd.Flags().Lookup("label"))
	mustBindPFlag("surface.data_cues", replayCmd.Flags().Lookup("data-cues"))
	mustBindPFlag("surface.vtt_cues", replayCmd.Flags().Lookup("vtt-cues"))
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	pl, err := loadInput(args)
	if err != nil {
		return err
	}
	if err := pl.Validate(); err != nil {
		logger.Warn("playlist has unreadable segments", slog.String("error", err.Error()))
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	session, err := replay.NewSession(sessionOptions(cfg, logger))
	if err != nil {
		return err
	}

	res, runErr := session.Run(ctx, pl)
	if res != nil {
		if err := replay.Render(cmd.OutOrStdout(), res, cfg.Replay.Output); err != nil {
			return fmt.Errorf("rendering result: %w", err)
		}
	}
	return runErr
}

// loadInput loads a playlist, or builds one from bare segment paths.
func loadInput(args []string) (*playlist.Playlist, error) {
	if len(args) == 1 && isPlaylist(args[0]) {
		return playlist.Load(args[0])
	}
	return playlist.FromSegments(args)
}

func isPlaylist(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u8", ".m3u":
		return true
	}
	return false
}

// sessionOptions maps configuration onto replay options.
func sessionOptions(cfg *config.Config, logger *slog.Logger) replay.Options {
	return replay.Options{
		Logger:           logger,
		Label:            cfg.Metadata.TrackLabel,
		MaxSampleSize:    cfg.Metadata.MaxSampleSize.Bytes(),
		BackBufferLength: cfg.Buffer.BackBufferLength,
		TrimVOD:          cfg.Buffer.TrimVOD,
		DetachOnFinish:   cfg.Replay.DetachOnFinish,
		Surface: texttrack.NewMemorySurface(
			texttrack.WithDataCues(cfg.Surface.DataCues),
			texttrack.WithVTTCues(cfg.Surface.VTTCues),
		),
	}
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
