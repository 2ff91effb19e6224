package core

import (
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/russross/blackfriday/v2"
	"github.com/spf13/cast"
	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	minjs "github.com/tdewolff/minify/v2/js"
)

const LiveReloadPath = "/__teamsite_reload"

const liveReloadScript = `<script>
(function () {
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "` + LiveReloadPath + `");
  ws.onmessage = function (e) { if (e.data === "reload") { location.reload(); } };
})();
</script>`

func shortHash(b []byte) string {
	h := md5.Sum(b)
	return hex.EncodeToString(h[:])[:6]
}

// minifiedAsset remembers the output for one source file version.
type minifiedAsset struct {
	mu      sync.Mutex
	modTime time.Time
	size    int64
	url     string
}

// minifiedAssets is keyed by the .min output path.
var minifiedAssets sync.Map

// MinifyAsset returns the URL to use for a /static/ css or js asset. Outside
// prod, or for anything it cannot minify, it returns path unchanged. The
// minified copy is written once per source version and replaced atomically.
func MinifyAsset(env, path, publicDir, cacheDir string) string {
	if env != "prod" {
		return path
	}

	ext := filepath.Ext(path)
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, ext)

	if ext != ".css" && ext != ".js" {
		return path
	}

	if strings.Contains(name, ".min") {
		return path
	}

	rel := strings.TrimPrefix(path, "/static/")
	src := filepath.Join(publicDir, rel)
	minPath := filepath.Join(cacheDir, "static", filepath.Dir(rel), fmt.Sprintf("%s.min%s", name, ext))

	info, err := os.Stat(src)
	if err != nil {
		return path
	}

	v, _ := minifiedAssets.LoadOrStore(minPath, &minifiedAsset{})
	asset := v.(*minifiedAsset)
	asset.mu.Lock()
	defer asset.mu.Unlock()

	if asset.url != "" && asset.modTime.Equal(info.ModTime()) && asset.size == info.Size() {
		if _, err := os.Stat(minPath); err == nil {
			return asset.url
		}
	}

	original, err := os.ReadFile(src)
	if err != nil {
		return path
	}

	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	m.AddFunc("application/javascript", minjs.Minify)

	mediatype := "text/css"
	if ext == ".js" {
		mediatype = "application/javascript"
	}

	var buf bytes.Buffer
	if err := m.Minify(mediatype, &buf, bytes.NewReader(original)); err != nil {
		return path
	}
	minified := buf.Bytes()

	if err := os.MkdirAll(filepath.Dir(minPath), os.ModePerm); err != nil {
		return path
	}
	if err := writeFileAtomic(minPath, minified); err != nil {
		return path
	}
	if err := writeGzip(minPath+".gz", minified); err != nil {
		return path
	}

	minRel := filepath.ToSlash(filepath.Join(filepath.Dir(rel), name+".min"+ext))
	asset.url = fmt.Sprintf("/static/%s?v=%s", minRel, shortHash(minified))
	asset.modTime = info.ModTime()
	asset.size = info.Size()
	return asset.url
}

func writeGzip(path string, data []byte) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// writeFileAtomic writes data to a temp file next to path and renames it into
// place, so readers see either the old file or the new one.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// TemplateFuncs is the function map available to every page template: the
// sprig library plus the site's own helpers.
func TemplateFuncs(env, publicDir, cacheDir string) template.FuncMap {
	funcs := sprig.FuncMap()

	own := template.FuncMap{
		"minify": func(path string) string {
			return MinifyAsset(env, path, publicDir, cacheDir)
		},
		"props": func(values ...interface{}) map[string]interface{} {
			if len(values)%2 != 0 {
				panic("props must be called with even number of arguments")
			}
			m := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					panic("props keys must be strings")
				}
				m[key] = values[i+1]
			}
			return m
		},
		"safeHTML": func(s interface{}) template.HTML {
			switch val := s.(type) {
			case template.HTML:
				return val
			case string:
				return template.HTML(val)
			default:
				return ""
			}
		},
		"markdown": func(s interface{}) template.HTML {
			src := cast.ToString(s)
			if src == "" {
				return ""
			}
			return template.HTML(blackfriday.Run([]byte(src)))
		},
		"field": func(rec interface{}, key string) string {
			switch r := rec.(type) {
			case Record:
				return r.String(key)
			case map[string]interface{}:
				return Record(r).String(key)
			default:
				return ""
			}
		},
		"liveReload": func() template.HTML {
			if env != "dev" {
				return ""
			}
			return template.HTML(liveReloadScript)
		},
		"versioned": func(path string) string {
			if !strings.HasPrefix(path, "/static/") {
				return path
			}

			rel := strings.TrimPrefix(path, "/static/")
			locations := []string{
				filepath.Join(publicDir, rel),
				filepath.Join(cacheDir, "static", rel),
			}

			for _, file := range locations {
				if content, err := os.ReadFile(file); err == nil {
					return fmt.Sprintf("/static/%s?v=%s", rel, shortHash(content))
				}
			}

			return path
		},
	}

	for name, fn := range own {
		funcs[name] = fn
	}
	return funcs
}
