// Package runtime wires the dictation pipeline together and owns process
// lifecycle: telemetry, the health endpoint, startup ordering and shutdown
// sequencing.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hushkey/hushkey/internal/bus"
	"github.com/hushkey/hushkey/internal/capture"
	"github.com/hushkey/hushkey/internal/config"
	"github.com/hushkey/hushkey/internal/history"
	"github.com/hushkey/hushkey/internal/hotkey"
	"github.com/hushkey/hushkey/internal/inject"
	"github.com/hushkey/hushkey/internal/state"
	"github.com/hushkey/hushkey/internal/storage"
	"github.com/hushkey/hushkey/internal/telemetry"
	"github.com/hushkey/hushkey/internal/transcribe"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	busHealthy  func() bool // nil when the bus is disabled
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func captureConfig(cfg config.AudioConfig) capture.Config {
	return capture.Config{
		SampleRate:    cfg.SampleRate,
		Channels:      cfg.Channels,
		ChunkDuration: time.Duration(cfg.ChunkMS) * time.Millisecond,
		MaxDuration:   time.Duration(cfg.MaxDurationS) * time.Second,
		Device:        cfg.Device,
	}
}

// Start brings the pipeline up and blocks until ctx is cancelled. Failures
// acquiring resources (audio device, model, storage) abort startup; failures
// of optional collaborators (bus) are logged and skipped.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry
	metrics := telemetry.DefaultMetrics()

	device, err := capture.NewPortAudioDevice()
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer device.Close()

	engine := capture.NewEngine(captureConfig(r.cfg.Audio), device, r.logger)

	store, err := storage.NewTempStore(r.cfg.Storage.Dir, r.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		removed := store.CleanupAll()
		r.logger.Info("temp storage cleaned", slog.Int("removed", removed))
	}()

	stt, err := transcribe.New(r.cfg.Transcriber, r.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize transcriber: %w", err)
	}
	defer stt.Close()

	typist := inject.NewTypist(r.cfg.Inject, r.logger)

	hist, err := history.Open(ctx, r.cfg.History, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer hist.Close()

	machine := state.NewMachine(engine, store, stt, typist, metrics, r.logger).
		WithFilePrefix(r.cfg.Storage.Prefix).
		WithHistory(hist)

	if r.cfg.Bus.Enabled {
		pub, err := bus.Connect(r.cfg.Bus, r.logger)
		if err != nil {
			r.logger.Warn("bus unavailable, transcripts will not be published",
				slog.String("error", err.Error()))
		} else {
			defer pub.Close()
			machine.WithPublisher(pub)
			r.busHealthy = pub.Healthy
		}
	}

	detector, err := hotkey.NewGlobalDetector(r.cfg.Hotkey, r.logger)
	if err != nil {
		return fmt.Errorf("failed to configure hotkey: %w", err)
	}
	var pipeline sync.WaitGroup
	if err := detector.StartListening(func() {
		// The pipeline runs off the hook thread so key events keep flowing
		// while a recording is processed.
		pipeline.Add(1)
		go func() {
			defer pipeline.Done()
			machine.HandleHotkey(ctx)
		}()
	}); err != nil {
		return fmt.Errorf("failed to start hotkey listener: %w", err)
	}
	defer detector.StopListening()

	if r.cfg.HTTP.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", r.handleHealth)
		mux.HandleFunc("/readyz", r.handleReady)
		if metricHandler != nil {
			mux.Handle("/metrics", metricHandler)
		}

		addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
		r.httpServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.logger.Error("http server failed", slog.String("error", err.Error()))
			}
		}()
		r.logger.Info("http endpoint listening", slog.String("addr", addr))
	}

	r.ready.Store(true)
	r.logger.Info("hushkey ready",
		slog.Any("hotkey", r.cfg.Hotkey.Keys),
		slog.String("transcriber", r.cfg.Transcriber.Mode))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	machine.Shutdown(shutdownCtx)
	// The deferred Close calls must not run under an active pipeline; wait
	// for hotkey goroutines, but never past the shutdown deadline.
	if !waitBounded(shutdownCtx, &pipeline) {
		r.logger.Warn("dictation pipeline still running at shutdown deadline")
	}

	if r.httpServer != nil {
		if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

// waitBounded waits for wg until ctx expires. Reports whether the group
// finished in time.
func waitBounded(ctx context.Context, wg *sync.WaitGroup) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !r.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	if r.busHealthy != nil && !r.busHealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("bus disconnected"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
