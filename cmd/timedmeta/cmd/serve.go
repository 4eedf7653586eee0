package cmd

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	internalhttp "github.com/jmylchreest/timedmeta/internal/http"
	"github.com/jmylchreest/timedmeta/internal/http/handlers"
	"github.com/jmylchreest/timedmeta/internal/replay"
	"github.com/jmylchreest/timedmeta/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve <playlist.m3u8 | segment.ts...>",
	Short: "Replay a playlist and serve its metadata track over HTTP",
	Long: `Serve replays a playlist like the replay command while exposing the
session over HTTP:

- GET /api/v1/session   session summary and counters
- GET /api/v1/track     metadata track description
- GET /api/v1/cues      cues, filterable by since/frame/limit
- GET /health, /livez   health checks
- OpenAPI documentation at /docs

With --pace, each fragment is loaded after the previous fragment's duration,
so the track evolves as it would during live playback.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().Bool("pace", false, "load fragments in real time using their playlist durations")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	pl, err := loadInput(args)
	if err != nil {
		return err
	}

	opts := sessionOptions(cfg, logger)
	opts.Pace, _ = cmd.Flags().GetBool("pace")

	session, err := replay.NewSession(opts)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	server := internalhttp.NewServer(cfg.Server, logger, version.Version)
	handlers.NewHealthHandler(version.Version).Register(server.API())
	handlers.NewSessionHandler(session).Register(server.API())

	replayDone := make(chan struct{})
	go func() {
		defer close(replayDone)
		res, err := session.Run(ctx, pl)
		if err != nil && !errors.Is(err, ctx.Err()) {
			logger.Warn("replay finished with errors", slog.String("error", err.Error()))
		}
		if res != nil {
			logger.Info("replay finished",
				slog.String("session_id", res.SessionID),
				slog.Int("fragments_loaded", res.Loaded),
				slog.Int("fragments_failed", res.Failed),
				slog.Int("cues_added", res.Stats.CuesAdded),
				slog.Int("cues_evicted", res.Stats.CuesEvicted))
		}
	}()

	logger.Info("serving replay session",
		slog.String("session_id", session.ID()),
		slog.String("source", pl.Source),
		slog.Int("segments", len(pl.Segments)),
		slog.Bool("live", pl.Live),
		slog.String("address", cfg.Server.Address()))

	serveErr := server.ListenAndServe(ctx)

	// Run must return before the session is torn down
	stop()
	<-replayDone
	session.Close()

	return serveErr
}
