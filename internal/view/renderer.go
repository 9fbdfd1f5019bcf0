// Package view renders the embedded page templates for gin.
//
// Every page is parsed together with templates/base.html and all of
// templates/includes/*.html, then executed through the "base" template.
// A page therefore only defines "title" and "content".
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"yatube/pkg/logger"

	"github.com/gin-gonic/gin/render"
	"go.uber.org/zap"
)

const (
	templatesDir = "templates"
	layoutFile   = "base.html"
	layoutName   = "base"
)

var htmlContentType = []string{"text/html; charset=utf-8"}

var functions = template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006")
	},
	"truncateWords": truncateWords,
	"linebreaks": func(s string) template.HTML {
		escaped := template.HTMLEscapeString(s)
		return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
	},
	"idString": func(id uint) string {
		return fmt.Sprintf("%d", id)
	},
}

// truncateWords keeps the first n words and marks the cut with an ellipsis.
func truncateWords(n int, s string) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + " …"
}

// Renderer implements gin's render.HTMLRender.
type Renderer struct {
	fsys   fs.FS
	reload bool

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// NewRenderer serves templates from fsys, which must contain a templates/ directory.
// With reload set, pages are parsed on every request.
func NewRenderer(fsys fs.FS, reload bool) *Renderer {
	return &Renderer{
		fsys:   fsys,
		reload: reload,
		cache:  make(map[string]*template.Template),
	}
}

func (r *Renderer) Instance(name string, data any) render.Render {
	tmpl, err := r.lookup(name)
	return &Page{Template: tmpl, Name: name, Data: data, err: err}
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	if !r.reload {
		r.mu.RLock()
		tmpl, ok := r.cache[name]
		r.mu.RUnlock()
		if ok {
			return tmpl, nil
		}
	}

	tmpl, err := r.parse(name)
	if err != nil {
		return nil, err
	}

	if !r.reload {
		r.mu.Lock()
		r.cache[name] = tmpl
		r.mu.Unlock()
	}
	return tmpl, nil
}

func (r *Renderer) parse(name string) (*template.Template, error) {
	tmpl, err := template.New(layoutName).Funcs(functions).ParseFS(r.fsys,
		path.Join(templatesDir, layoutFile),
		path.Join(templatesDir, "includes", "*.html"),
		path.Join(templatesDir, name),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// Page is a single template execution. Output is buffered so a failing
// template never sends half a page.
type Page struct {
	Template *template.Template
	Name     string
	Data     any
	err      error
}

func (p *Page) Render(w http.ResponseWriter) error {
	p.WriteContentType(w)
	if p.err != nil {
		return p.fail(w, p.err)
	}

	buf := new(bytes.Buffer)
	if err := p.Template.ExecuteTemplate(buf, layoutName, p.Data); err != nil {
		return p.fail(w, fmt.Errorf("failed to execute template %s: %w", p.Name, err))
	}
	_, err := buf.WriteTo(w)
	return err
}

func (p *Page) fail(w http.ResponseWriter, err error) error {
	logger.L.Error("Template rendering failed", zap.String("template", p.Name), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	return err
}

func (p *Page) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = htmlContentType
	}
}

// Names lists every page template, e.g. "posts/index.html".
func Names(fsys fs.FS) ([]string, error) {
	var names []string
	err := fs.WalkDir(fsys, templatesDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(p, templatesDir+"/")
		if d.IsDir() || !strings.HasSuffix(p, ".html") || rel == layoutFile || strings.HasPrefix(rel, "includes/") {
			return nil
		}
		names = append(names, rel)
		return nil
	})
	return names, err
}

// Preload parses every page up front so a broken template fails at startup.
func (r *Renderer) Preload() error {
	names, err := Names(r.fsys)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := r.lookup(name); err != nil {
			return err
		}
	}
	return nil
}

var _ render.HTMLRender = (*Renderer)(nil)
