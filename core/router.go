package core

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type RuntimeContext struct {
	Env   string
	Debug bool
}

// Site binds the page handlers to one record source and one renderer.
type Site struct {
	config   Config
	runtime  RuntimeContext
	store    RecordSource
	renderer Renderer
}

func NewSite(config Config, runtime RuntimeContext, store RecordSource, renderer Renderer) *Site {
	return &Site{
		config:   config,
		runtime:  runtime,
		store:    store,
		renderer: renderer,
	}
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// Routes returns the site's route table. Requests that match no route get the
// not-found page.
func (s *Site) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handle(s.index))
	mux.HandleFunc("GET /about", s.handle(s.about))
	mux.HandleFunc("GET /about/{slug}", s.handle(s.member))
	mux.HandleFunc("GET /contact", s.handle(s.contact))
	mux.HandleFunc("POST /contact", s.handle(s.submitContact))
	mux.HandleFunc("GET /careers", s.handle(s.careers))
	mux.HandleFunc("/", s.notFound)

	if s.runtime.Debug || s.config.DebugLogs {
		return logRequests(mux)
	}
	return mux
}

func (s *Site) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			if IsNotFoundError(err) {
				log.Printf("[SERVER] %s %s: %v", r.Method, r.URL.Path, err)
				s.notFound(w, r)
				return
			}
			log.Printf("[SERVER] %s %s: %v", r.Method, r.URL.Path, err)
			if s.runtime.Debug {
				http.Error(w, "Server error: "+err.Error(), http.StatusInternalServerError)
				return
			}
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

func (s *Site) notFound(w http.ResponseWriter, r *http.Request) {
	if t, ok := s.renderer.(interface{ Has(string) bool }); ok && t.Has("404.html") {
		err := s.render(w, r, http.StatusNotFound, "404.html", map[string]interface{}{
			"PageTitle": "Not Found",
		})
		if err == nil {
			return
		}
		log.Printf("[SERVER] rendering 404 page: %v", err)
	}
	http.NotFound(w, r)
}

// render writes a whole page or nothing: the template is executed into a
// buffer before any header is sent.
func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) error {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, name, data); err != nil {
		return err
	}
	body := buf.Bytes()

	h := w.Header()
	if s.config.DebugHeaders || s.runtime.Debug {
		h.Set("X-Teamsite-Template", name)
	}
	h.Set("Content-Type", "text/html; charset=utf-8")

	if status == http.StatusOK && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		etag := generateETag(body)
		h.Set("ETag", etag)
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return nil
		}
	}

	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write(body)
	}
	return nil
}

func generateETag(body []byte) string {
	sum := md5.Sum(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Status() int {
	if sr.status == 0 {
		return http.StatusOK
	}
	return sr.status
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		log.Printf("[HTTP] %s %q %s | %d %s | %s",
			id, r.Method, r.URL.Path, rec.Status(), http.StatusText(rec.Status()), time.Since(start))
	})
}
