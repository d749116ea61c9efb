// Package metrics exposes Prometheus metrics for both binaries.
package metrics

import (
	"context"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set at build time with -ldflags "-X gtfsrt-livemap/internal/metrics.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// Server serves /metrics and pprof from a private registry.
type Server struct {
	addr     string
	registry *prometheus.Registry
	mux      *http.ServeMux
	srv      *http.Server
}

func NewServer(addr string) *Server {
	s := &Server{
		addr:     addr,
		registry: prometheus.NewRegistry(),
		mux:      http.NewServeMux(),
	}

	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "livemap_build_info",
		Help: "Build metadata.",
	}, []string{"version", "git_commit"})

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfo,
	)
	buildInfo.WithLabelValues(Version, GitCommit).Set(1)

	s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("/debug/pprof/", pprof.Index)
	s.mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	s.mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	s.mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	s.mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return s
}

func (s *Server) Registry() *prometheus.Registry { return s.registry }

func (s *Server) Handler() http.Handler { return s.mux }

// Start listens on addr and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", ln.Addr())
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
