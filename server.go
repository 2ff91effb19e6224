package teamsite

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-barry/teamsite/core"
)

const ConfigFile = "teamsite.config.yml"

type RuntimeConfig struct {
	Env        string
	Debug      bool
	Host       string
	Port       int
	ConfigPath string
}

func (c RuntimeConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Start serves the site until the process receives SIGINT or SIGTERM.
var Start = func(cfg RuntimeConfig) error {
	fmt.Println("Starting teamsite in", cfg.Env, "mode...")

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = ConfigFile
	}
	config := core.LoadConfig(configPath)

	handler, closeFn, err := NewHandler(cfg, config)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("✅ teamsite running at http://%s\n", cfg.Addr())
	return serve(ctx, cfg.Addr(), handler)
}

// NewHandler wires the record store, renderer, static files and (in dev) the
// live reload endpoint. The returned func releases any file watchers.
func NewHandler(cfg RuntimeConfig, config core.Config) (http.Handler, func(), error) {
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Printf("[SERVER] closing watcher: %v", err)
			}
		}
	}

	mux := http.NewServeMux()
	dev := cfg.Env == "dev"

	var onReload func()
	if dev {
		hub := core.NewReloadHub()
		mux.Handle(core.LiveReloadPath, hub)

		sources := []string{config.TemplatesDir, config.PublicDir}
		if config.Reload == core.ReloadOnChange {
			onReload = hub.Broadcast
		} else {
			sources = append(sources, config.DataFile)
		}

		w, err := hub.WatchSources(sources...)
		if err != nil {
			return nil, nil, fmt.Errorf("starting live reload: %w", err)
		}
		closers = append(closers, w.Close)
	}

	store, err := core.OpenStore(config, onReload)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("opening record store %s: %w", config.DataFile, err)
	}
	if ws, ok := store.(*core.WatchedStore); ok {
		closers = append(closers, ws.Close)
	}

	funcs := core.TemplateFuncs(cfg.Env, config.PublicDir, config.OutputDir)
	renderer := core.NewTemplateRenderer(config.TemplatesDir, cfg.Env, funcs)
	site := core.NewSite(config, core.RuntimeContext{Env: cfg.Env, Debug: cfg.Debug}, store, renderer)

	cacheControl := "public, max-age=31536000, immutable"
	cacheStaticDir := filepath.Join(config.OutputDir, "static")
	if dev {
		cacheControl = "no-store"
		cacheStaticDir = ""
	}

	mux.Handle("/static/", makeStaticHandler(config.PublicDir, cacheStaticDir, cacheControl))
	for _, name := range []string{"favicon.ico", "robots.txt"} {
		file := filepath.Join(config.PublicDir, name)
		mux.HandleFunc("GET /"+name, func(w http.ResponseWriter, r *http.Request) {
			if _, err := os.Stat(file); err != nil {
				http.NotFound(w, r)
				return
			}
			serveFileWithHeaders(w, r, file, cacheControl)
		})
	}
	mux.Handle("/", site.Routes())

	return mux, closeAll, nil
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Println("[SERVER] shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// makeStaticHandler serves /static/ requests. When cacheDir is set, a gzip or
// minified copy there wins over the original in publicDir.
func makeStaticHandler(publicDir, cacheDir, cacheControl string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		rel := strings.TrimPrefix(r.URL.Path, "/static/")
		clean := filepath.Clean(filepath.FromSlash(rel))
		if rel == "" || clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if cacheDir != "" {
			cachedFile := filepath.Join(cacheDir, clean)
			gzipFile := cachedFile + ".gz"

			if acceptsGzip(r) && fileExists(gzipFile) {
				w.Header().Set("Content-Type", detectMimeType(cachedFile))
				w.Header().Set("Content-Encoding", "gzip")
				w.Header().Set("Vary", "Accept-Encoding")
				serveFileWithHeaders(w, r, gzipFile, cacheControl)
				return
			}

			if fileExists(cachedFile) {
				serveFileWithHeaders(w, r, cachedFile, cacheControl)
				return
			}
		}

		publicFile := filepath.Join(publicDir, clean)
		if fileExists(publicFile) {
			serveFileWithHeaders(w, r, publicFile, cacheControl)
			return
		}

		http.NotFound(w, r)
	})
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func serveFileWithHeaders(w http.ResponseWriter, r *http.Request, path, cacheControl string) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", detectMimeType(path))
	}
	w.Header().Set("Cache-Control", cacheControl)
	http.ServeFile(w, r, path)
}

func detectMimeType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".ico":
		return "image/x-icon"
	case ".woff":
		return "font/woff"
	case ".woff2":
		return "font/woff2"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func acceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}
