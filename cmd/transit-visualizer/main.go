// Command transit-visualizer polls one vehicle positions feed and streams
// vehicle batches to map clients over a websocket, and optionally NATS.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gtfsrt-livemap/internal/config"
	"gtfsrt-livemap/internal/feed"
	"gtfsrt-livemap/internal/metrics"
	"gtfsrt-livemap/internal/relay"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	config.LoadDotEnv()
	cfg, err := config.LoadVisualizer(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	telemetry := metrics.NewServer(cfg.MetricsAddr)
	m := metrics.NewFeed(telemetry.Registry())
	if cfg.MetricsAddr != "" {
		if err := telemetry.Start(); err != nil {
			log.Fatalf("metrics server: %v", err)
		}
	}

	var poller *feed.Poller
	hub := relay.NewHub("vehicles", func() []byte { return poller.Last() }, m)
	sinks := []feed.Sink{hub}
	if cfg.NATSURL != "" {
		pub, err := relay.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, "transit-visualizer", m)
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	poller = feed.NewPoller(selectSource(cfg), feed.PollerConfig{
		Agency:          cfg.Agency,
		Hue:             cfg.Hue,
		InitialInterval: time.Duration(cfg.RefreshInitSecs) * time.Second,
		MinInterval:     time.Duration(cfg.RefreshMinSecs) * time.Second,
		LockRefresh:     cfg.LockRefresh,
		FetchTimeout:    cfg.FetchTimeout,
	}, m, sinks...)
	log.Printf("agency=%q hue=%.3f", cfg.Agency, poller.Hue())

	mux := relay.NewMux(cfg.StaticDir, map[string]http.Handler{"/data.json": hub})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("server starting on http://localhost:%d/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go poller.Run(ctx)

	<-ctx.Done()
	log.Printf("shutdown initiated...")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Printf("HTTP server shut down successfully")
	}
	if err := telemetry.Shutdown(sctx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
}

// selectSource picks the configured feed. Validation guarantees exactly one
// URL is set.
func selectSource(cfg config.Visualizer) feed.Source {
	switch {
	case cfg.GTFSRTURL != "":
		return feed.NewGtfsRt(cfg.GTFSRTURL, cfg.FetchTimeout)
	case cfg.SiriXMLURL != "":
		return feed.NewSiriXML(cfg.SiriXMLURL, cfg.FetchTimeout)
	default:
		return feed.NewSiriJSON(cfg.SiriJSONURL, cfg.FetchTimeout)
	}
}
