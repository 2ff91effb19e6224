package core

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	minjs "github.com/tdewolff/minify/v2/js"
)

// Renderer turns a named template and its values into an HTML document.
type Renderer interface {
	Render(w io.Writer, name string, data map[string]interface{}) error
}

// TemplateRenderer renders page templates from a directory. A page may name a
// layout with a leading <!-- layout: file.html --> line, in which case the
// layout's "layout" template is executed and the page supplies "content".
// Every components/*.html file is parsed alongside each page.
type TemplateRenderer struct {
	dir   string
	env   string
	funcs template.FuncMap
	cache sync.Map
	min   *minify.M
}

func NewTemplateRenderer(dir, env string, funcs template.FuncMap) *TemplateRenderer {
	r := &TemplateRenderer{dir: dir, env: env, funcs: funcs}
	if env == "prod" {
		m := minify.New()
		m.AddFunc("text/css", mincss.Minify)
		m.AddFunc("application/javascript", minjs.Minify)
		m.Add("text/html", &minhtml.Minifier{
			KeepDocumentTags: true,
			KeepEndTags:      true,
			KeepQuotes:       true,
		})
		r.min = m
	}
	return r
}

func (r *TemplateRenderer) Has(name string) bool {
	info, err := os.Stat(filepath.Join(r.dir, name))
	return err == nil && !info.IsDir()
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data map[string]interface{}) error {
	page, err := r.load(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := page.tmpl.ExecuteTemplate(&buf, page.entry, data); err != nil {
		return fmt.Errorf("executing %s: %w", name, err)
	}

	if r.min != nil {
		return r.min.Minify("text/html", w, &buf)
	}
	_, err = buf.WriteTo(w)
	return err
}

type parsedPage struct {
	tmpl  *template.Template
	entry string
}

func (r *TemplateRenderer) load(name string) (*parsedPage, error) {
	if r.env == "prod" {
		if cached, ok := r.cache.Load(name); ok {
			return cached.(*parsedPage), nil
		}
	}

	pagePath := filepath.Join(r.dir, name)
	content, err := os.ReadFile(pagePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("template %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("template %s: %w", name, err)
	}

	files := []string{pagePath}
	entry := filepath.Base(name)
	if layout := ParseLayoutDirective(content); layout != "" {
		files = append([]string{filepath.Join(r.dir, layout)}, files...)
		entry = "layout"
	}

	components, _ := filepath.Glob(filepath.Join(r.dir, "components", "*.html"))
	files = append(files, components...)

	tmpl, err := template.New(filepath.Base(name)).Funcs(r.funcs).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	page := &parsedPage{tmpl: tmpl, entry: entry}
	if r.env == "prod" {
		r.cache.Store(name, page)
	}
	return page, nil
}

// ParseLayoutDirective returns the layout file named by the first
// <!-- layout: ... --> line of a page, or "" when there is none.
func ParseLayoutDirective(content []byte) string {
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "<!-- layout:") && strings.HasSuffix(line, "-->") {
			return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "<!-- layout:"), "-->"))
		}
	}
	return ""
}
