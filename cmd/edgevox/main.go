// Command edgevox synthesises text to speech through the Edge read-aloud
// service and plays the result on the speaker or writes it to a file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/edgevox/edgevox/internal/config"
	"github.com/edgevox/edgevox/internal/health"
	"github.com/edgevox/edgevox/internal/observe"
	"github.com/edgevox/edgevox/internal/player"
	"github.com/edgevox/edgevox/pkg/edgetts"
	"github.com/edgevox/edgevox/pkg/playback"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	voice := flag.String("voice", "", "voice short name (overrides speech.voice)")
	rate := flag.String("rate", "", "speaking rate, e.g. +10% (overrides speech.rate)")
	outPath := flag.String("out", "", "write audio to this file instead of playing it")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "edgevox: %v\n", err)
			return 1
		}
		cfg = config.Defaults()
	}
	if *voice != "" {
		cfg.Speech.Voice = *voice
	}
	if *rate != "" {
		cfg.Speech.Rate = *rate
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	// ── Input text ────────────────────────────────────────────────────────────
	text := strings.Join(flag.Args(), " ")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			slog.Error("read stdin", "err", err)
			return 1
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(os.Stderr, "edgevox: no input text; pass it as arguments or on stdin")
		return 2
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "edgevox",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("init telemetry", "err", err)
		return 1
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutCtx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: metricsMux()}
		g.Go(func() error {
			slog.Info("serving metrics", "addr", cfg.Server.MetricsAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	// ── Synthesis ─────────────────────────────────────────────────────────────
	code := synthesize(ctx, cfg, metrics, text, *outPath)

	stop()
	if err := g.Wait(); err != nil {
		slog.Warn("metrics server", "err", err)
	}
	return code
}

// synthesize runs one full stream-and-play session and returns the process
// exit code.
func synthesize(ctx context.Context, cfg *config.Config, metrics *observe.Metrics, text, outPath string) int {
	ctx, span := observe.StartSpan(ctx, "edgevox.synthesize")
	defer span.End()

	client := edgetts.New(
		edgetts.WithVoice(cfg.Speech.Voice),
		edgetts.WithRate(cfg.Speech.Rate),
		edgetts.WithVolume(cfg.Speech.Volume),
		edgetts.WithPitch(cfg.Speech.Pitch),
		edgetts.WithOutputFormat(cfg.Speech.OutputFormat),
		edgetts.WithConnectTimeout(cfg.Speech.ConnectTimeout),
		edgetts.WithDialHook(func(dialErr error) {
			status := "ok"
			if dialErr != nil {
				status = "error"
			}
			metrics.RecordConnectAttempt(ctx, status)
		}),
	)

	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	metrics.ActiveStreams.Add(ctx, 1)
	defer metrics.ActiveStreams.Add(ctx, -1)
	start := time.Now()

	events, err := client.Stream(streamCtx, text)
	if err != nil {
		metrics.RecordStreamError(ctx, errKind(err))
		slog.Error("start stream", "err", err)
		return 1
	}

	sink, err := buildSink(cfg, outPath)
	if err != nil {
		slog.Error("open output", "err", err)
		return 1
	}

	mgr := playback.NewManager(sink,
		playback.WithProducerCancel(cancelStream),
		playback.WithWordBoundaryHandler(func(wb edgetts.WordBoundary) {
			slog.Debug("word boundary", "text", wb.Text, "offset", wb.Offset, "duration", wb.Duration)
		}),
	)
	go logStates(ctx, mgr)

	err = mgr.Run(ctx, instrument(ctx, metrics, events))
	metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		metrics.RecordStreamError(ctx, errKind(err))
		observe.Logger(ctx).Error("synthesis failed", "err", err)
		return 1
	}
	observe.Logger(ctx).Info("synthesis complete", "voice", cfg.Speech.Voice, "duration", time.Since(start))
	return 0
}

// buildSink selects the playback sink: a file when outPath is set, the
// speaker otherwise.
func buildSink(cfg *config.Config, outPath string) (playback.Sink, error) {
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return nil, err
		}
		return player.NewFile(f), nil
	}
	return player.NewBeep(cfg.Player.VolumeDB), nil
}

// instrument forwards events, counting audio chunks and bytes as they pass.
func instrument(ctx context.Context, m *observe.Metrics, in <-chan edgetts.Event) <-chan edgetts.Event {
	out := make(chan edgetts.Event, 1)
	go func() {
		defer close(out)
		for ev := range in {
			if ev.Kind == edgetts.KindAudio {
				m.RecordAudioChunk(ctx, len(ev.Audio))
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// logStates logs playback state transitions until ctx is cancelled.
func logStates(ctx context.Context, mgr *playback.Manager) {
	for {
		select {
		case st := <-mgr.States():
			slog.Info("playback state", "state", st)
		case <-ctx.Done():
			return
		}
	}
}

// errKind maps a stream error to a stable metrics label.
func errKind(err error) string {
	switch {
	case errors.Is(err, edgetts.ErrConnection):
		return "connection"
	case errors.Is(err, edgetts.ErrTimeout):
		return "timeout"
	case errors.Is(err, edgetts.ErrNoAudioReceived):
		return "no_audio"
	case errors.Is(err, edgetts.ErrMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, edgetts.ErrUnexpectedResponse):
		return "unexpected_response"
	case errors.Is(err, edgetts.ErrUnknownResponse):
		return "unknown_response"
	case errors.Is(err, edgetts.ErrProtocolMisuse):
		return "protocol_misuse"
	case errors.Is(err, playback.ErrSink):
		return "sink"
	default:
		return "other"
	}
}

// metricsMux serves the Prometheus scrape endpoint plus health probes.
func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	health.New(health.SpeechReachable(edgetts.DefaultBaseURL)).Register(mux)
	return mux
}

// newLogger builds the process logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
