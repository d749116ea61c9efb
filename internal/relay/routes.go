package relay

import (
	"log"
	"net/http"
)

// NewMux registers the health endpoint, the given handlers and, when
// staticDir is set, a file server on "/".
func NewMux(staticDir string, handlers map[string]http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", Health)
	for pattern, h := range handlers {
		mux.Handle(pattern, h)
	}
	if staticDir != "" {
		mux.Handle("/", WithLogging(http.FileServer(http.Dir(staticDir))))
	}
	return mux
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// WithLogging logs method, path and response status of every request.
func WithLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(sw, r)
		log.Printf("%s %s %d", r.Method, r.URL.Path, sw.status)
	})
}
