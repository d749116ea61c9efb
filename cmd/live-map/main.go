// Command live-map consumes vehicle batches from a live channel and animates
// them into a map scene served as GeoJSON.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gtfsrt-livemap/internal/animate"
	"gtfsrt-livemap/internal/channel"
	"gtfsrt-livemap/internal/config"
	"gtfsrt-livemap/internal/fleet"
	"gtfsrt-livemap/internal/ingest"
	"gtfsrt-livemap/internal/mapview"
	"gtfsrt-livemap/internal/metrics"
	"gtfsrt-livemap/internal/relay"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	config.LoadDotEnv()
	cfg, err := config.LoadLiveMap(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry := metrics.NewServer(cfg.MetricsAddr)
	m := metrics.NewAnimator(telemetry.Registry())
	if cfg.MetricsAddr != "" {
		if err := telemetry.Start(); err != nil {
			log.Fatalf("metrics server: %v", err)
		}
	}

	scene := mapview.NewScene()
	registry := fleet.NewRegistry(scene)
	sched := animate.NewScheduler(scene, m)
	ingester := ingest.New(scene, registry, sched, cfg.AnimationSteps, m)

	hub := relay.NewHub("scene", func() []byte {
		b, err := scene.GeoJSON()
		if err != nil {
			log.Printf("scene encode error: %v", err)
			return nil
		}
		return b
	}, m)
	mux := relay.NewMux("", map[string]http.Handler{
		"/scene.geojson": relay.WithLogging(sceneHandler(scene)),
		"/scene/ws":      hub,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Printf("scene server starting on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	ch, err := channel.Open(ctx, cfg.ChannelURL, cfg.NATSSubject)
	if err != nil {
		log.Fatalf("open channel: %v", err)
	}
	defer ch.Close()

	batches := make(chan []byte, 16)
	go func() {
		defer close(batches)
		if err := ch.Run(ctx, batches); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("channel stopped: %v", err)
		}
	}()

	// Only the loop goroutine touches published.
	var published uint64
	publish := func() {
		v := scene.Version()
		if v == published {
			return
		}
		published = v
		b, err := scene.GeoJSON()
		if err != nil {
			log.Printf("scene encode error: %v", err)
			return
		}
		_ = hub.Publish(b)
	}
	handle := func(payload []byte) {
		ingester.Handle(payload)
		publish()
	}

	loop := animate.NewLoop(sched, cfg.FrameInterval, handle, publish)
	if err := loop.Run(ctx, batches); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("frame loop error: %v", err)
	}
	if ctx.Err() == nil {
		log.Printf("channel closed; serving the last scene until shutdown")
		<-ctx.Done()
	}
	log.Printf("shutdown initiated...")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := telemetry.Shutdown(sctx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
}

func sceneHandler(scene *mapview.Scene) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := scene.GeoJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write(b)
	})
}
